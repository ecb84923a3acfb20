package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/srcbuild/internal/shell"
)

// vcToolsComponent is the workload every usable Visual Studio install carries.
const vcToolsComponent = "Microsoft.VisualStudio.Component.VC.Tools.x86.x64"

var (
	vsReleases = []string{"2022", "2019"}
	vsEditions = []string{"Community", "BuildTools"}
)

// MSBuildLocator finds MSBuild.exe.
type MSBuildLocator struct {
	ProgramFiles    string
	ProgramFilesX86 string

	runner shell.Runner
	exists func(path string) bool
}

// NewMSBuildLocator returns a locator rooted at the host's Program Files folders.
func NewMSBuildLocator(r shell.Runner) *MSBuildLocator {
	pf, pf86 := programFiles()
	return &MSBuildLocator{
		ProgramFiles:    pf,
		ProgramFilesX86: pf86,
		runner:          r,
		exists:          fileExists,
	}
}

// Locate asks vswhere for the latest install carrying the VC tools and falls
// back to the well-known install locations.
func (l *MSBuildLocator) Locate(ctx context.Context) (string, error) {
	if root := l.installationPath(ctx); root != "" {
		if p := msbuildUnder(root); l.exists(p) {
			return p, nil
		}
	}
	for _, p := range l.Candidates() {
		if l.exists(p) {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// Candidates lists the fallback MSBuild locations in probe order.
func (l *MSBuildLocator) Candidates() []string {
	var paths []string
	for _, release := range vsReleases {
		for _, root := range []string{l.ProgramFiles, l.ProgramFilesX86} {
			if root == "" {
				continue
			}
			for _, edition := range vsEditions {
				paths = append(paths, msbuildUnder(filepath.Join(root, "Microsoft Visual Studio", release, edition)))
			}
		}
	}
	return paths
}

func (l *MSBuildLocator) vswhere() string {
	return filepath.Join(l.ProgramFilesX86, "Microsoft Visual Studio", "Installer", "vswhere.exe")
}

func (l *MSBuildLocator) installationPath(ctx context.Context) string {
	exe := l.vswhere()
	if l.runner == nil || !l.exists(exe) {
		return ""
	}
	out, err := l.runner.Output(ctx, shell.Cmd{Name: exe, Args: []string{
		"-latest",
		"-products", "*",
		"-requires", vcToolsComponent,
		"-property", "installationPath",
	}})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func msbuildUnder(root string) string {
	return filepath.Join(root, "MSBuild", "Current", "Bin", "MSBuild.exe")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
