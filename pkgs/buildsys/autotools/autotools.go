// Package autotools drives the classic autogen/configure/make/make-install workflow.
package autotools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goplus/srcbuild/internal/shell"
	"github.com/goplus/srcbuild/pkgs/buildsys"
)

// AutoTools drives Autotools-style builds inside the source tree.
type AutoTools struct {
	runner shell.Runner
	log    *zap.Logger
	jobs   int
	args   []string
	env    buildsys.Env
}

var _ buildsys.Driver = (*AutoTools)(nil)

// New returns a ready-to-use AutoTools.
func New(r shell.Runner, log *zap.Logger) *AutoTools {
	if log == nil {
		log = zap.NewNop()
	}
	return &AutoTools{runner: r, log: log, env: buildsys.Env{}}
}

func (a *AutoTools) Kind() buildsys.Kind { return buildsys.Autotools }

// Jobs sets make's job count. Zero lets make run without a limit.
func (a *AutoTools) Jobs(n int) { a.jobs = n }

// ConfigureArgs appends extra flags passed to ./configure.
func (a *AutoTools) ConfigureArgs(args ...string) { a.args = append(a.args, args...) }

// Env returns the environment overlay used for every step.
func (a *AutoTools) Env() buildsys.Env { return a.env }

// Run generates configure when autogen.sh is shipped, configures with the
// output directory as prefix and shared libraries enabled, then builds and
// installs. Every command runs with the source tree as working directory.
func (a *AutoTools) Run(ctx context.Context, dirs buildsys.Dirs) error {
	a.log.Info("building with autotools")

	if buildsys.Exists(dirs.Script("autogen.sh")) {
		a.log.Info("running autogen.sh")
		if err := a.run(ctx, dirs, "./autogen.sh"); err != nil {
			return fmt.Errorf("autogen.sh: %w", err)
		}
	}
	if buildsys.Exists(dirs.Script("configure")) {
		a.log.Info("running configure")
		args := append([]string{"--prefix=" + dirs.Output, "--enable-shared"}, a.args...)
		if err := a.run(ctx, dirs, "./configure", args...); err != nil {
			return fmt.Errorf("configure: %w", err)
		}
	}
	a.log.Info("running make")
	if err := a.run(ctx, dirs, "make", buildsys.JobsFlag(a.jobs)); err != nil {
		return fmt.Errorf("make: %w", err)
	}
	a.log.Info("running make install")
	if err := a.run(ctx, dirs, "make", "install"); err != nil {
		return fmt.Errorf("make install: %w", err)
	}
	return nil
}

func (a *AutoTools) run(ctx context.Context, dirs buildsys.Dirs, name string, args ...string) error {
	cmd := shell.Cmd{Dir: dirs.Source, Name: name, Args: args}
	if len(a.env) > 0 {
		cmd.Env = a.env
	}
	a.log.Debug("exec", zap.Stringer("cmd", cmd), zap.String("dir", cmd.Dir))
	return a.runner.Run(ctx, cmd)
}
