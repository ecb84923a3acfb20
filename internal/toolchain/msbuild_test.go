package toolchain

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/goplus/srcbuild/internal/shell"
	"github.com/goplus/srcbuild/internal/shell/shelltest"
)

func newTestLocator(r shell.Runner, existing ...string) *MSBuildLocator {
	return &MSBuildLocator{
		ProgramFiles:    filepath.Join("C", "PF"),
		ProgramFilesX86: filepath.Join("C", "PF86"),
		runner:          r,
		exists: func(p string) bool {
			return slices.Contains(existing, p)
		},
	}
}

func TestLocateViaVswhere(t *testing.T) {
	vsRoot := filepath.Join("D", "VS", "2022", "Enterprise")
	rec := &shelltest.Recorder{Handler: func(cmd shell.Cmd) (string, error) {
		return vsRoot + "\r\n", nil
	}}
	l := newTestLocator(rec, "")
	want := msbuildUnder(vsRoot)
	l.exists = func(p string) bool { return p == l.vswhere() || p == want }

	got, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != want {
		t.Fatalf("Locate = %q, want %q", got, want)
	}
	cmds := rec.Cmds()
	if len(cmds) != 1 || cmds[0].Name != l.vswhere() {
		t.Fatalf("unexpected commands %v", rec.Lines())
	}
	if !slices.Contains(cmds[0].Args, vcToolsComponent) || !slices.Contains(cmds[0].Args, "installationPath") {
		t.Fatalf("vswhere args = %v", cmds[0].Args)
	}
}

func TestLocateFallsBackWhenVswhereMissing(t *testing.T) {
	rec := &shelltest.Recorder{}
	fallback := msbuildUnder(filepath.Join("C", "PF86", "Microsoft Visual Studio", "2019", "BuildTools"))
	l := newTestLocator(rec, fallback)

	got, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != fallback {
		t.Fatalf("Locate = %q, want %q", got, fallback)
	}
	if n := len(rec.Cmds()); n != 0 {
		t.Fatalf("vswhere should not run when absent, ran %d commands", n)
	}
}

func TestLocateFallsBackWhenVswhereFails(t *testing.T) {
	rec := &shelltest.Recorder{Handler: func(shell.Cmd) (string, error) {
		return "", errors.New("exit status 1")
	}}
	fallback := msbuildUnder(filepath.Join("C", "PF", "Microsoft Visual Studio", "2022", "Community"))
	l := newTestLocator(rec)
	l.exists = func(p string) bool { return p == l.vswhere() || p == fallback }

	got, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != fallback {
		t.Fatalf("Locate = %q, want %q", got, fallback)
	}
}

func TestLocateNotFound(t *testing.T) {
	l := newTestLocator(&shelltest.Recorder{})
	if _, err := l.Locate(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Locate error = %v, want ErrNotFound", err)
	}
}

func TestCandidatesOrder(t *testing.T) {
	l := newTestLocator(nil)
	got := l.Candidates()
	if len(got) != 8 {
		t.Fatalf("len(Candidates) = %d, want 8", len(got))
	}
	first := msbuildUnder(filepath.Join("C", "PF", "Microsoft Visual Studio", "2022", "Community"))
	last := msbuildUnder(filepath.Join("C", "PF86", "Microsoft Visual Studio", "2019", "BuildTools"))
	if got[0] != first {
		t.Errorf("Candidates[0] = %q, want %q", got[0], first)
	}
	if got[len(got)-1] != last {
		t.Errorf("Candidates[last] = %q, want %q", got[len(got)-1], last)
	}
}
