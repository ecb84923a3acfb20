package toolchain

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/goplus/srcbuild/internal/shell"
)

// Windows builds CMake trees with MSBuild, located through vswhere or a list
// of well-known install locations.
type Windows struct {
	Locator *MSBuildLocator
}

func (*Windows) Name() string { return "windows" }

func (w *Windows) LocateBuildDriver(ctx context.Context) (string, error) {
	return w.Locator.Locate(ctx)
}

func (*Windows) Hint(tool string) string {
	switch tool {
	case Git:
		return `
Git not found! Please install:
1. Download from: https://git-scm.com/download/win
2. Run installer and select "Add to PATH"
`
	case Make:
		return "Make not found! Please install MinGW or Cygwin."
	case CMake:
		return `
CMake not found! Please install:
1. Download from: https://cmake.org/download/
2. Choose Windows x64 Installer
3. During installation, select "Add CMake to system PATH"
`
	case MSBuild:
		return `
Visual Studio Build Tools not found! Please install:
1. Download Visual Studio Build Tools 2022:
   https://aka.ms/vs/17/release/vs_buildtools.exe

2. Run the installer and select:
   - "Desktop development with C++"
   Including these components:
   - MSVC Build Tools
   - Windows 10/11 SDK
   - C++ CMake tools

3. Complete installation and restart your computer
`
	}
	return tool + " not found! Please install it and add it to PATH."
}

func (*Windows) CMakeConfigureArgs() []string { return []string{"-A", "x64"} }

func (*Windows) CMakeBuildCmd(buildDir, driver string, jobs int) shell.Cmd {
	if driver == "" {
		driver = "MSBuild.exe"
	}
	parallel := "/m"
	if jobs > 0 {
		parallel += ":" + strconv.Itoa(jobs)
	}
	return shell.Cmd{Name: driver, Args: []string{
		filepath.Join(buildDir, "ALL_BUILD.vcxproj"),
		"/p:Configuration=Release",
		"/p:Platform=x64",
		parallel,
	}}
}

func (*Windows) Troubleshooting() []string {
	return append(append([]string(nil), troubleshooting...),
		"Verify Visual Studio Build Tools are properly installed")
}
