// Package buildsys detects which build system governs a source tree and
// defines what every build driver shares.
package buildsys

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind is the build system a project uses.
type Kind int

const (
	Unknown Kind = iota
	CMake
	Autotools
	Make
)

func (k Kind) String() string {
	switch k {
	case CMake:
		return "cmake"
	case Autotools:
		return "autotools"
	case Make:
		return "make"
	}
	return "unknown"
}

// ErrUnsupported is returned when no recognized marker file is present.
var ErrUnsupported = errors.New("no supported build system detected")

// Detect inspects dir for marker files. The first match wins, in this order:
// CMakeLists.txt, configure.ac or configure, Makefile or makefile*.
func Detect(dir string) (Kind, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Unknown, err
	}
	var hasConfigure, hasMakefile bool
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case name == "CMakeLists.txt":
			return CMake, nil
		case name == "configure.ac" || name == "configure":
			hasConfigure = true
		case strings.HasPrefix(strings.ToLower(name), "makefile"):
			hasMakefile = true
		}
	}
	switch {
	case hasConfigure:
		return Autotools, nil
	case hasMakefile:
		return Make, nil
	}
	return Unknown, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Dirs are the directories a driver works with. All three must be absolute.
type Dirs struct {
	Source string
	Build  string
	Output string
}

// Script returns the path of a script shipped at the top of the source tree.
func (d Dirs) Script(name string) string {
	return filepath.Join(d.Source, name)
}

// Driver runs the configure, build and install sequence of one build system.
type Driver interface {
	Kind() Kind
	Run(ctx context.Context, dirs Dirs) error
}

// JobsFlag renders make's parallelism flag. Zero or less means no limit.
func JobsFlag(n int) string {
	if n <= 0 {
		return "-j"
	}
	return "-j" + strconv.Itoa(n)
}
