// Package shell runs external tools on behalf of the build pipeline.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Cmd describes a single child-process invocation.
type Cmd struct {
	// Dir is the working directory of the child. Empty means the current directory.
	Dir  string
	Name string
	Args []string
	// Env overrides or extends the inherited environment.
	Env map[string]string
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner launches child processes and blocks until they exit.
type Runner interface {
	// Run executes cmd with its output forwarded to the runner's streams.
	Run(ctx context.Context, cmd Cmd) error

	// Output executes cmd and returns its captured stdout.
	Output(ctx context.Context, cmd Cmd) (string, error)
}

// Exec implements Runner with os/exec.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns an Exec forwarding child output to the process streams.
func NewExec() *Exec {
	return &Exec{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *Exec) Run(ctx context.Context, c Cmd) error {
	cmd := e.command(ctx, c)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

func (e *Exec) Output(ctx context.Context, c Cmd) (string, error) {
	cmd := e.command(ctx, c)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", c.Name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", c.Name, err)
	}
	return stdout.String(), nil
}

func (e *Exec) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), c.Env)
	}
	return cmd
}

// MergeEnv returns base with every key in overrides replaced or appended.
// The result is sorted by key so that child environments are reproducible.
func MergeEnv(base []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(base)+len(overrides))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range overrides {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
