package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/goplus/srcbuild/internal/env"
	"github.com/goplus/srcbuild/internal/shell"
	"github.com/goplus/srcbuild/internal/shell/shelltest"
	"github.com/goplus/srcbuild/internal/toolchain"
	"github.com/goplus/srcbuild/pkgs/buildsys"
)

// fakeRepo answers version probes and materializes a checkout containing
// files whenever git clone runs.
func fakeRepo(t *testing.T, files ...string) *shelltest.Recorder {
	t.Helper()
	return &shelltest.Recorder{Handler: func(cmd shell.Cmd) (string, error) {
		if len(cmd.Args) == 1 && cmd.Args[0] == "--version" {
			return cmd.Name + " version 3.28.0\n", nil
		}
		if cmd.Name == "git" && cmd.Args[0] == "clone" {
			dir := cmd.Args[len(cmd.Args)-1]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", err
			}
			for _, f := range files {
				if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
					return "", err
				}
			}
		}
		return "", nil
	}}
}

func newTarget(t *testing.T, url, branch string) env.Target {
	t.Helper()
	tgt, err := env.NewTarget(t.TempDir(), url, branch)
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	return tgt
}

func newBuilder(rec *shelltest.Recorder, opts Options) *Builder {
	opts.Runner = rec
	opts.Host = toolchain.POSIX{}
	opts.Jobs = 4
	return NewBuilder(opts)
}

func TestRunCMakeEndToEnd(t *testing.T) {
	tgt := newTarget(t, "https://github.com/example/libfoo.git", "")
	rec := fakeRepo(t, "CMakeLists.txt", "Makefile")

	res, err := newBuilder(rec, Options{}).Run(context.Background(), tgt)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Kind != buildsys.CMake {
		t.Fatalf("Kind = %v, want cmake", res.Kind)
	}
	if res.OutputDir != filepath.Join(tgt.Root, "output", "libfoo") {
		t.Fatalf("OutputDir = %q", res.OutputDir)
	}

	source := filepath.Join(tgt.Root, "source", "libfoo")
	build := filepath.Join(tgt.Root, "build", "libfoo")
	output := filepath.Join(tgt.Root, "output", "libfoo")
	want := []string{
		"git --version",
		"make --version",
		"cmake --version",
		"git clone https://github.com/example/libfoo.git " + source,
		"git submodule update --init --recursive",
		"cmake -S " + source + " -B " + build + " -DCMAKE_BUILD_TYPE=Release -DCMAKE_INSTALL_PREFIX=" + output,
		"cmake --build " + build + " --config Release --parallel 4",
		"cmake --install " + build + " --config Release --prefix " + output,
	}
	if got := rec.Lines(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("commands:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	for _, dir := range []string{build, output} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}

func TestRunMissingToolsHasNoSideEffects(t *testing.T) {
	tgt := newTarget(t, "https://github.com/example/libfoo.git", "")
	stale := filepath.Join(tgt.BuildDir(), "stale.o")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &shelltest.Recorder{Handler: func(cmd shell.Cmd) (string, error) {
		if cmd.Name == "cmake" {
			return "", errors.New(`exec: "cmake": executable file not found in $PATH`)
		}
		return "", nil
	}}
	var out bytes.Buffer
	_, err := newBuilder(rec, Options{Out: &out}).Run(context.Background(), tgt)

	var missing *MissingToolsError
	if !errors.As(err, &missing) || !slices.Equal(missing.Tools, []string{"cmake"}) {
		t.Fatalf("Run error = %v, want missing cmake", err)
	}
	if got := strings.Join(rec.Lines(), ";"); got != "git --version;make --version;cmake --version" {
		t.Fatalf("commands = %q, want only probes", got)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("build directory was cleaned: %v", err)
	}
	for _, dir := range []string{tgt.SourceDir(), tgt.OutputDir()} {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("%s created despite missing tools", dir)
		}
	}
	if !strings.Contains(out.String(), "CMake not found") {
		t.Errorf("guidance = %q", out.String())
	}
}

func TestRunUnknownBuildSystem(t *testing.T) {
	tgt := newTarget(t, "https://github.com/example/docs", "main")
	rec := fakeRepo(t, "README.md")

	_, err := newBuilder(rec, Options{}).Run(context.Background(), tgt)
	if !errors.Is(err, buildsys.ErrUnsupported) {
		t.Fatalf("Run error = %v, want ErrUnsupported", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != DetectBuildSystem {
		t.Fatalf("Run error = %v, want detect stage", err)
	}
	lines := rec.Lines()
	if last := lines[len(lines)-1]; last != "git submodule update --init --recursive" {
		t.Fatalf("a driver ran after detection failed: %q", last)
	}
	if _, err := os.Stat(filepath.Join(tgt.SourceDir(), "README.md")); err != nil {
		t.Fatalf("checkout was rolled back: %v", err)
	}
}

func TestRunAutotoolsWithOptions(t *testing.T) {
	tgt := newTarget(t, "https://github.com/example/libbar.git", "")
	rec := fakeRepo(t, "configure")
	prefix := t.TempDir()

	b := newBuilder(rec, Options{
		ConfigureArgs: []string{"--disable-static"},
		Env:           map[string]string{"CC": "clang"},
		Use:           []string{prefix},
	})
	res, err := b.Run(context.Background(), tgt)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Kind != buildsys.Autotools {
		t.Fatalf("Kind = %v, want autotools", res.Kind)
	}
	cmds := rec.Cmds()
	configure := cmds[len(cmds)-3]
	if got, want := configure.String(), "./configure --prefix="+tgt.OutputDir()+" --enable-shared --disable-static"; got != want {
		t.Fatalf("configure = %q, want %q", got, want)
	}
	if configure.Dir != tgt.SourceDir() {
		t.Fatalf("configure ran in %q", configure.Dir)
	}
	if configure.Env["CC"] != "clang" || !strings.HasPrefix(configure.Env["CMAKE_PREFIX_PATH"], prefix) {
		t.Fatalf("configure env = %v", configure.Env)
	}
	if got := cmds[len(cmds)-2].String(); got != "make -j4" {
		t.Fatalf("build = %q", got)
	}
}

func TestRunCMakeDefines(t *testing.T) {
	tgt := newTarget(t, "https://github.com/example/libfoo.git", "")
	rec := fakeRepo(t, "CMakeLists.txt")

	b := newBuilder(rec, Options{Defines: map[string]string{"BUILD_TESTING": "OFF"}})
	if _, err := b.Run(context.Background(), tgt); err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, line := range rec.Lines() {
		if strings.HasPrefix(line, "cmake -S") && strings.HasSuffix(line, "-DBUILD_TESTING:STRING=OFF") {
			found = true
		}
	}
	if !found {
		t.Fatalf("define not passed to configure: %q", rec.Lines())
	}
}

func TestRunFetchFailure(t *testing.T) {
	tgt := newTarget(t, "https://github.com/example/private.git", "")
	rec := &shelltest.Recorder{Handler: func(cmd shell.Cmd) (string, error) {
		if cmd.Name == "git" && cmd.Args[0] == "clone" {
			return "", errors.New("exit status 128")
		}
		return "", nil
	}}
	_, err := newBuilder(rec, Options{}).Run(context.Background(), tgt)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != FetchRepository {
		t.Fatalf("Run error = %v, want fetch stage failure", err)
	}
}

func TestRunLocked(t *testing.T) {
	tgt := newTarget(t, "https://github.com/example/libfoo.git", "")
	fl := flock.New(filepath.Join(tgt.Root, ".libfoo.lock"))
	locked, err := fl.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: %v %v", locked, err)
	}
	defer fl.Unlock()

	rec := fakeRepo(t, "CMakeLists.txt")
	if _, err := newBuilder(rec, Options{}).Run(context.Background(), tgt); !errors.Is(err, ErrLocked) {
		t.Fatalf("Run error = %v, want ErrLocked", err)
	}
	for _, line := range rec.Lines() {
		if strings.HasPrefix(line, "git clone") {
			t.Fatal("cloned while another run held the lock")
		}
	}
}
