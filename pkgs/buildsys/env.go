package buildsys

import (
	"os"
	"path/filepath"
	"runtime"
)

// Env is the environment overlay handed to every build subprocess.
type Env map[string]string

// Set records key=value for later subprocesses.
func (e Env) Set(key, value string) { e[key] = value }

// Use exposes a dependency installed under root so that CMake, pkg-config and
// compilers find its headers and libraries.
func (e Env) Use(root string) {
	includeDir := filepath.Join(root, "include")
	libDir := filepath.Join(root, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if isDir(pkgconfigDir) {
		e.prependPath("PKG_CONFIG_PATH", pkgconfigDir)
	}
	e.prependPath("CMAKE_PREFIX_PATH", root)
	if isDir(includeDir) {
		e.prependPath("CMAKE_INCLUDE_PATH", includeDir)
	}
	if isDir(libDir) {
		e.prependPath("CMAKE_LIBRARY_PATH", libDir)
	}

	if runtime.GOOS == "windows" {
		if isDir(includeDir) {
			e.prependPath("INCLUDE", includeDir)
		}
		if isDir(libDir) {
			e.prependPath("LIB", libDir)
		}
	} else {
		if isDir(includeDir) {
			e.appendFlag("CPPFLAGS", "-I"+includeDir)
		}
		if isDir(libDir) {
			e.appendFlag("LDFLAGS", "-L"+libDir)
		}
	}
}

// lookup prefers a value already in the overlay over the process environment.
func (e Env) lookup(key string) string {
	if v, ok := e[key]; ok {
		return v
	}
	return os.Getenv(key)
}

// prependPath prepends value to a PATH-style variable.
func (e Env) prependPath(key, value string) {
	if cur := e.lookup(key); cur != "" {
		value += string(os.PathListSeparator) + cur
	}
	e[key] = value
}

// appendFlag appends a space-separated flag to a variable.
func (e Env) appendFlag(key, flag string) {
	if cur := e.lookup(key); cur != "" {
		flag = cur + " " + flag
	}
	e[key] = flag
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
