// Package toolchain captures what differs between host platforms: where the
// native build driver lives, how CMake trees are built and what to tell the
// user when a tool is missing.
package toolchain

import (
	"context"
	"errors"
	"runtime"
	"strconv"

	"github.com/goplus/srcbuild/internal/shell"
)

// Tool names probed by the dependency check.
const (
	Git     = "git"
	Make    = "make"
	CMake   = "cmake"
	MSBuild = "msbuild"
)

// ErrNotFound is returned when the native build driver cannot be located.
var ErrNotFound = errors.New("build driver not found")

// Host is the platform capability selected once at startup.
type Host interface {
	// Name identifies the host family.
	Name() string

	// LocateBuildDriver returns the absolute path of the native build driver
	// when one must be invoked by path, or "" when PATH lookup suffices.
	LocateBuildDriver(ctx context.Context) (string, error)

	// Hint returns installation guidance for a missing tool.
	Hint(tool string) string

	// CMakeConfigureArgs returns host specific arguments for "cmake -S -B".
	CMakeConfigureArgs() []string

	// CMakeBuildCmd returns the command building a configured tree in Release.
	CMakeBuildCmd(buildDir, driver string, jobs int) shell.Cmd

	// Troubleshooting returns the checklist printed after a failed run.
	Troubleshooting() []string
}

// Detect returns the Host for the running platform.
func Detect(r shell.Runner) Host {
	return ForOS(runtime.GOOS, r)
}

// ForOS returns the Host variant for goos.
func ForOS(goos string, r shell.Runner) Host {
	if goos == "windows" {
		return &Windows{Locator: NewMSBuildLocator(r)}
	}
	return POSIX{}
}

var troubleshooting = []string{
	"Make sure the repository URL is correct",
	"Verify the project has a supported build system:\n" +
		"   - CMake (CMakeLists.txt)\n" +
		"   - Autotools (configure.ac or configure)\n" +
		"   - Make (Makefile)",
	"Check if you have the necessary permissions",
	"Make sure all dependencies are properly installed",
}

// POSIX assumes make and cmake resolve through the inherited PATH.
type POSIX struct{}

func (POSIX) Name() string { return "posix" }

func (POSIX) LocateBuildDriver(ctx context.Context) (string, error) { return "", nil }

func (POSIX) Hint(tool string) string {
	switch tool {
	case Git:
		return "Git not found! Please install using your package manager."
	case Make:
		return "Make not found! Please install using your package manager."
	case CMake:
		return "CMake not found! Please install using your package manager."
	}
	return tool + " not found! Please install using your package manager."
}

func (POSIX) CMakeConfigureArgs() []string { return []string{"-DCMAKE_BUILD_TYPE=Release"} }

func (POSIX) CMakeBuildCmd(buildDir, driver string, jobs int) shell.Cmd {
	args := []string{"--build", buildDir, "--config", "Release"}
	if jobs > 0 {
		args = append(args, "--parallel", strconv.Itoa(jobs))
	}
	return shell.Cmd{Name: "cmake", Args: args}
}

func (POSIX) Troubleshooting() []string {
	return append([]string(nil), troubleshooting...)
}
