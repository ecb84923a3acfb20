// Package build runs the end-to-end pipeline: check the tools, clean the
// workspace, fetch the source, detect its build system and drive it.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/goplus/srcbuild/internal/env"
	"github.com/goplus/srcbuild/internal/prereq"
	"github.com/goplus/srcbuild/internal/shell"
	"github.com/goplus/srcbuild/internal/toolchain"
	"github.com/goplus/srcbuild/internal/vcs"
	"github.com/goplus/srcbuild/pkgs/buildsys"
	"github.com/goplus/srcbuild/pkgs/buildsys/autotools"
	"github.com/goplus/srcbuild/pkgs/buildsys/cmake"
	"github.com/goplus/srcbuild/pkgs/buildsys/makefile"
)

// Stage names a step of the pipeline.
type Stage string

const (
	CheckDependencies Stage = "check dependencies"
	CleanDirectories  Stage = "clean directories"
	FetchRepository   Stage = "fetch repository"
	DetectBuildSystem Stage = "detect build system"
	RunDriver         Stage = "run build driver"
)

// ErrLocked is returned when another run holds the lock of the same project.
var ErrLocked = errors.New("another build of this project is already running")

// MissingToolsError reports the tools that could not be invoked.
type MissingToolsError struct {
	Tools []string
}

func (e *MissingToolsError) Error() string {
	return "missing required tools: " + strings.Join(e.Tools, ", ")
}

// StageError tells which stage of the pipeline failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// Options configures a Builder.
type Options struct {
	Runner shell.Runner
	Host   toolchain.Host
	// VCS fetches the source. Defaults to the git CLI driven through Runner.
	VCS vcs.VCS
	Log *zap.Logger
	// Out receives installation guidance for missing tools.
	Out io.Writer

	Settle        time.Duration
	Jobs          int
	Defines       map[string]string
	ConfigureArgs []string
	Use           []string
	Env           map[string]string
}

// Result records what a run discovered along the way.
type Result struct {
	BuildDriver string
	Kind        buildsys.Kind
	OutputDir   string
}

// Builder runs the pipeline.
type Builder struct {
	opts Options
}

// NewBuilder returns a Builder for opts.
func NewBuilder(opts Options) *Builder {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Runner == nil {
		opts.Runner = shell.NewExec()
	}
	if opts.Host == nil {
		opts.Host = toolchain.Detect(opts.Runner)
	}
	if opts.VCS == nil {
		opts.VCS = vcs.NewGitVCS(
			vcs.WithRunner(opts.Runner),
			vcs.WithSettle(opts.Settle),
			vcs.WithLogger(opts.Log),
		)
	}
	return &Builder{opts: opts}
}

// Run builds tgt. The stages run strictly in order and the first failure ends
// the run. Nothing is deleted or cloned unless every tool is present.
func (b *Builder) Run(ctx context.Context, tgt env.Target) (*Result, error) {
	log := b.opts.Log.With(zap.String("project", tgt.Project))
	log.Info("starting build process")

	res := &Result{OutputDir: tgt.OutputDir()}

	checker := &prereq.Checker{Runner: b.opts.Runner, Host: b.opts.Host, Out: b.opts.Out, Log: log}
	rep := checker.Check(ctx)
	if !rep.OK() {
		return res, &MissingToolsError{Tools: rep.Missing}
	}
	res.BuildDriver = rep.BuildDriver

	unlock, err := lock(tgt)
	if err != nil {
		return res, err
	}
	defer unlock()

	dirs := buildsys.Dirs{Source: tgt.SourceDir(), Build: tgt.BuildDir(), Output: tgt.OutputDir()}
	steps := []struct {
		stage Stage
		run   func() error
	}{
		{CleanDirectories, func() error {
			log.Info("cleaning directories")
			for _, dir := range []string{dirs.Build, dirs.Output} {
				if err := env.Reset(dir, b.opts.Settle); err != nil {
					return err
				}
			}
			return nil
		}},
		{FetchRepository, func() error {
			return b.opts.VCS.Clone(ctx, tgt.URL, tgt.Branch, dirs.Source)
		}},
		{DetectBuildSystem, func() error {
			log.Info("detecting build system")
			kind, err := buildsys.Detect(dirs.Source)
			if err != nil {
				return err
			}
			if kind == buildsys.Unknown {
				return buildsys.ErrUnsupported
			}
			res.Kind = kind
			log.Info(kind.String() + " build system detected")
			return nil
		}},
		{RunDriver, func() error {
			return b.driver(res).Run(ctx, dirs)
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return res, &StageError{Stage: step.stage, Err: err}
		}
	}
	log.Info("project built and installed", zap.String("output", res.OutputDir))
	return res, nil
}

type envDriver interface {
	buildsys.Driver
	Env() buildsys.Env
	Jobs(n int)
}

func (b *Builder) driver(res *Result) buildsys.Driver {
	var d envDriver
	switch res.Kind {
	case buildsys.CMake:
		c := cmake.New(b.opts.Runner, b.opts.Host, b.opts.Log, res.BuildDriver)
		for k, v := range b.opts.Defines {
			c.Define(k, v)
		}
		d = c
	case buildsys.Autotools:
		a := autotools.New(b.opts.Runner, b.opts.Log)
		a.ConfigureArgs(b.opts.ConfigureArgs...)
		d = a
	default:
		m := makefile.New(b.opts.Runner, b.opts.Log)
		m.ConfigureArgs(b.opts.ConfigureArgs...)
		d = m
	}
	d.Jobs(b.opts.Jobs)
	for k, v := range b.opts.Env {
		d.Env().Set(k, v)
	}
	for _, root := range b.opts.Use {
		d.Env().Use(root)
	}
	return d
}

// lock takes the per-project workspace lock so that concurrent runs cannot
// delete each other's trees.
func lock(tgt env.Target) (unlock func(), err error) {
	if err := os.MkdirAll(tgt.Root, 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(tgt.Root, "."+tgt.Project+".lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return func() { _ = fl.Unlock() }, nil
}
