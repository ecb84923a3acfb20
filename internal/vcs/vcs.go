// Package vcs fetches source checkouts with the git CLI.
package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/goplus/srcbuild/internal/env"
	"github.com/goplus/srcbuild/internal/shell"
)

// VCS defines the interface for version control operations.
type VCS interface {
	// Clone produces a fresh checkout of remote in dir.
	// Any existing dir is removed first. ref selects a branch or tag and may be empty.
	// Submodules are initialized recursively once the clone succeeds.
	// A failed clone leaves whatever was written in dir for inspection.
	Clone(ctx context.Context, remote, ref, dir string) error
}

// gitVCS implements VCS using the git CLI.
type gitVCS struct {
	git    string
	runner shell.Runner
	settle time.Duration
	log    *zap.Logger
}

// GitOption configures gitVCS.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.git = path
	}
}

// WithRunner sets the runner used to launch git.
func WithRunner(r shell.Runner) GitOption {
	return func(g *gitVCS) {
		g.runner = r
	}
}

// WithSettle sets the pause after removing a stale checkout.
func WithSettle(d time.Duration) GitOption {
	return func(g *gitVCS) {
		g.settle = d
	}
}

// WithLogger sets the progress logger.
func WithLogger(log *zap.Logger) GitOption {
	return func(g *gitVCS) {
		g.log = log
	}
}

// NewGitVCS creates a new git VCS instance.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{git: "git", settle: time.Second, log: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.runner == nil {
		g.runner = shell.NewExec()
	}
	return g
}

func (g *gitVCS) Clone(ctx context.Context, remote, ref, dir string) error {
	g.log.Info("cloning repository", zap.String("url", remote), zap.String("ref", ref))

	if err := env.Remove(dir, g.settle); err != nil {
		return fmt.Errorf("remove stale checkout: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return err
	}

	args := []string{"clone"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, remote, dir)
	if err := g.run(ctx, "", args...); err != nil {
		return fmt.Errorf("clone %s: %w", remote, err)
	}

	if err := g.run(ctx, dir, "submodule", "update", "--init", "--recursive"); err != nil {
		return fmt.Errorf("update submodules: %w", err)
	}
	g.log.Info("repository and submodules cloned", zap.String("dir", dir))
	return nil
}

func (g *gitVCS) run(ctx context.Context, dir string, args ...string) error {
	return g.runner.Run(ctx, shell.Cmd{Dir: dir, Name: g.git, Args: args})
}
