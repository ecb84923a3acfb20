// Package makefile drives plain Makefile projects, with a manual artifact
// copy when the project has no working install target.
package makefile

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/goplus/srcbuild/internal/shell"
	"github.com/goplus/srcbuild/pkgs/buildsys"
)

// artifactExts are the suffixes of binaries and libraries copied by the fallback.
var artifactExts = map[string]bool{
	".exe":   true,
	".dll":   true,
	".so":    true,
	".dylib": true,
}

// Make drives Makefile-based builds inside the source tree.
type Make struct {
	runner shell.Runner
	log    *zap.Logger
	jobs   int
	args   []string
	env    buildsys.Env
}

var _ buildsys.Driver = (*Make)(nil)

// New returns a ready-to-use Make.
func New(r shell.Runner, log *zap.Logger) *Make {
	if log == nil {
		log = zap.NewNop()
	}
	return &Make{runner: r, log: log, env: buildsys.Env{}}
}

func (m *Make) Kind() buildsys.Kind { return buildsys.Make }

// Jobs sets make's job count. Zero lets make run without a limit.
func (m *Make) Jobs(n int) { m.jobs = n }

// ConfigureArgs appends extra flags passed to ./configure when present.
func (m *Make) ConfigureArgs(args ...string) { m.args = append(m.args, args...) }

// Env returns the environment overlay used for every step.
func (m *Make) Env() buildsys.Env { return m.env }

// Run configures when a configure script is shipped, builds, and installs.
// A failing install is not fatal: built artifacts are collected into the
// output directory instead.
func (m *Make) Run(ctx context.Context, dirs buildsys.Dirs) error {
	m.log.Info("building with make")

	if buildsys.Exists(dirs.Script("configure")) {
		m.log.Info("running configure")
		args := append([]string{"--prefix=" + dirs.Output}, m.args...)
		if err := m.run(ctx, dirs, "./configure", args...); err != nil {
			return fmt.Errorf("configure: %w", err)
		}
	}
	m.log.Info("running make")
	if err := m.run(ctx, dirs, "make", buildsys.JobsFlag(m.jobs)); err != nil {
		return fmt.Errorf("make: %w", err)
	}
	m.log.Info("running make install")
	if err := m.run(ctx, dirs, "make", "install"); err != nil {
		m.log.Warn("make install failed, copying build artifacts manually", zap.Error(err))
		copied, err := CollectArtifacts(dirs.Source, dirs.Output)
		if err != nil {
			return fmt.Errorf("collect artifacts: %w", err)
		}
		m.log.Info("copied build artifacts", zap.Int("count", len(copied)))
	}
	return nil
}

func (m *Make) run(ctx context.Context, dirs buildsys.Dirs, name string, args ...string) error {
	cmd := shell.Cmd{Dir: dirs.Source, Name: name, Args: args}
	if len(m.env) > 0 {
		cmd.Env = m.env
	}
	m.log.Debug("exec", zap.Stringer("cmd", cmd), zap.String("dir", cmd.Dir))
	return m.runner.Run(ctx, cmd)
}

// IsArtifact reports whether a file looks like a build product: executable by
// its owner, or carrying a binary or library extension.
func IsArtifact(name string, mode fs.FileMode) bool {
	if mode&0o100 != 0 {
		return true
	}
	return artifactExts[strings.ToLower(filepath.Ext(name))]
}

// CollectArtifacts copies every artifact below src flat into dst and returns
// the copied source paths. Same-named files overwrite each other, the last one
// walked wins. Symbolic links are followed to regular files and copied
// under the link's name. Version control metadata is skipped.
func CollectArtifacts(src, dst string) ([]string, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, err
	}
	var copied []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		var info fs.FileInfo
		switch {
		case d.Type().IsRegular():
			if info, err = d.Info(); err != nil {
				return err
			}
		case d.Type()&fs.ModeSymlink != 0:
			// Links to regular files are copied as their target; dangling ones are ignored.
			if info, err = os.Stat(path); err != nil || !info.Mode().IsRegular() {
				return nil
			}
		default:
			return nil
		}
		if !IsArtifact(d.Name(), info.Mode()) {
			return nil
		}
		if err := copyFile(path, filepath.Join(dst, d.Name()), info); err != nil {
			return err
		}
		copied = append(copied, path)
		return nil
	})
	return copied, err
}

// copyFile copies contents, permission bits and modification time.
func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
