// Package env describes what is being built and where its files live.
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Workspace directory layout:
//
//	root/
//	  source/<project>/   # clone destination
//	  build/<project>/    # intermediate build tree
//	  output/<project>/   # installed artifacts
const (
	sourceDir = "source"
	buildDir  = "build"
	outputDir = "output"
)

// Target identifies the repository to build and owns its directories.
type Target struct {
	URL     string
	Branch  string
	Project string
	Root    string
}

// NewTarget returns the Target for url under root. branch may be empty.
func NewTarget(root, url, branch string) (Target, error) {
	project, err := ProjectName(url)
	if err != nil {
		return Target{}, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Target{}, err
	}
	return Target{URL: url, Branch: branch, Project: project, Root: abs}, nil
}

func (t Target) SourceDir() string { return filepath.Join(t.Root, sourceDir, t.Project) }
func (t Target) BuildDir() string  { return filepath.Join(t.Root, buildDir, t.Project) }
func (t Target) OutputDir() string { return filepath.Join(t.Root, outputDir, t.Project) }

// ProjectName derives the project name from a repository URL: its final path
// segment with any trailing ".git" removed.
func ProjectName(url string) (string, error) {
	s := strings.TrimRight(strings.TrimSpace(url), "/")
	if i := strings.LastIndexAny(s, `/\:`); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, ".git")
	if s == "" || s == "." || s == ".." {
		return "", fmt.Errorf("cannot derive project name from %q", url)
	}
	return s, nil
}

// DefaultRoot returns the directory holding the running executable.
func DefaultRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Remove deletes dir and everything below it. When something was removed it
// pauses for settle so the filesystem can release handles on the old tree.
func Remove(dir string, settle time.Duration) error {
	if _, err := os.Lstat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if settle > 0 {
		time.Sleep(settle)
	}
	return nil
}

// Reset removes dir if present and recreates it empty.
func Reset(dir string, settle time.Duration) error {
	if err := Remove(dir, settle); err != nil {
		return fmt.Errorf("clean %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
