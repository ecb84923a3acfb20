package toolchain

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestForOS(t *testing.T) {
	if h := ForOS("linux", nil); h.Name() != "posix" {
		t.Errorf("linux host = %q", h.Name())
	}
	if h := ForOS("darwin", nil); h.Name() != "posix" {
		t.Errorf("darwin host = %q", h.Name())
	}
	if h := ForOS("windows", nil); h.Name() != "windows" {
		t.Errorf("windows host = %q", h.Name())
	}
}

func TestPOSIXLocateIsNoop(t *testing.T) {
	p, err := POSIX{}.LocateBuildDriver(context.Background())
	if err != nil || p != "" {
		t.Fatalf("LocateBuildDriver = %q, %v; want empty, nil", p, err)
	}
}

func TestCMakeBuildCmd(t *testing.T) {
	build := filepath.Join("ws", "build", "libfoo")

	c := POSIX{}.CMakeBuildCmd(build, "", 4)
	if got, want := c.String(), "cmake --build "+build+" --config Release --parallel 4"; got != want {
		t.Errorf("posix build = %q, want %q", got, want)
	}

	w := &Windows{}
	c = w.CMakeBuildCmd(build, `C:\VS\MSBuild.exe`, 0)
	want := `C:\VS\MSBuild.exe ` + filepath.Join(build, "ALL_BUILD.vcxproj") + " /p:Configuration=Release /p:Platform=x64 /m"
	if got := c.String(); got != want {
		t.Errorf("windows build = %q, want %q", got, want)
	}
	if got := w.CMakeBuildCmd(build, "msb", 8).Args[3]; got != "/m:8" {
		t.Errorf("windows parallel flag = %q, want /m:8", got)
	}
}

func TestHintsAndTroubleshooting(t *testing.T) {
	w := &Windows{}
	var p POSIX
	for _, tool := range []string{Git, Make, CMake, MSBuild} {
		if w.Hint(tool) == "" || p.Hint(tool) == "" {
			t.Errorf("missing hint for %s", tool)
		}
	}
	if !strings.Contains(w.Hint(MSBuild), "vs_buildtools.exe") {
		t.Errorf("msbuild hint lacks download link: %q", w.Hint(MSBuild))
	}
	if n, m := len(p.Troubleshooting()), len(w.Troubleshooting()); m != n+1 {
		t.Errorf("windows checklist has %d items, posix %d; want one extra", m, n)
	}
}
