// Package cmake drives the cmake configure/build/install workflow.
package cmake

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/goplus/srcbuild/internal/shell"
	"github.com/goplus/srcbuild/internal/toolchain"
	"github.com/goplus/srcbuild/pkgs/buildsys"
)

const buildType = "Release"

type defineValue struct {
	value    string
	typeName string
}

// CMake drives CMake-based builds.
type CMake struct {
	runner  shell.Runner
	host    toolchain.Host
	log     *zap.Logger
	driver  string
	jobs    int
	defines map[string]defineValue
	env     buildsys.Env
}

var _ buildsys.Driver = (*CMake)(nil)

// New returns a CMake driver. driver is the located native build driver, if any.
func New(r shell.Runner, host toolchain.Host, log *zap.Logger, driver string) *CMake {
	if log == nil {
		log = zap.NewNop()
	}
	return &CMake{
		runner:  r,
		host:    host,
		log:     log,
		driver:  driver,
		defines: make(map[string]defineValue),
		env:     buildsys.Env{},
	}
}

func (c *CMake) Kind() buildsys.Kind { return buildsys.CMake }

// Jobs sets the build parallelism. Zero leaves it to the build tool.
func (c *CMake) Jobs(n int) { c.jobs = n }

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// Env returns the environment overlay used for every step.
func (c *CMake) Env() buildsys.Env { return c.env }

// Run configures, builds and installs. Any failing step aborts the run.
func (c *CMake) Run(ctx context.Context, dirs buildsys.Dirs) error {
	c.log.Info("building with cmake")

	c.log.Info("running cmake configuration")
	if err := c.Configure(ctx, dirs); err != nil {
		return fmt.Errorf("cmake configure: %w", err)
	}
	c.log.Info("building project")
	if err := c.Build(ctx, dirs); err != nil {
		return fmt.Errorf("cmake build: %w", err)
	}
	c.log.Info("installing to output directory")
	if err := c.Install(ctx, dirs); err != nil {
		return fmt.Errorf("cmake install: %w", err)
	}
	return nil
}

// Configure runs "cmake -S <source> -B <build>" with all configured options.
func (c *CMake) Configure(ctx context.Context, dirs buildsys.Dirs) error {
	args := []string{"-S", dirs.Source, "-B", dirs.Build}
	args = append(args, c.host.CMakeConfigureArgs()...)
	args = append(args, "-DCMAKE_INSTALL_PREFIX="+dirs.Output)
	args = append(args, c.definesArgs()...)
	return c.run(ctx, shell.Cmd{Name: "cmake", Args: args})
}

// Build compiles the configured tree in the Release configuration.
func (c *CMake) Build(ctx context.Context, dirs buildsys.Dirs) error {
	return c.run(ctx, c.host.CMakeBuildCmd(dirs.Build, c.driver, c.jobs))
}

// Install runs "cmake --install <build>" into the output directory.
func (c *CMake) Install(ctx context.Context, dirs buildsys.Dirs) error {
	return c.run(ctx, shell.Cmd{Name: "cmake", Args: []string{
		"--install", dirs.Build,
		"--config", buildType,
		"--prefix", dirs.Output,
	}})
}

func (c *CMake) run(ctx context.Context, cmd shell.Cmd) error {
	if len(c.env) > 0 {
		cmd.Env = c.env
	}
	c.log.Debug("exec", zap.Stringer("cmd", cmd))
	return c.runner.Run(ctx, cmd)
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}
