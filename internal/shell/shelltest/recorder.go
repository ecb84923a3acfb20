// Package shelltest provides a recording shell.Runner for tests.
package shelltest

import (
	"context"
	"sync"

	"github.com/goplus/srcbuild/internal/shell"
)

// Recorder records every command it is asked to run and never launches a process.
type Recorder struct {
	// Handler decides the outcome of each command. A nil Handler succeeds with empty output.
	Handler func(cmd shell.Cmd) (string, error)

	mu   sync.Mutex
	cmds []shell.Cmd
}

var _ shell.Runner = (*Recorder)(nil)

func (r *Recorder) Run(ctx context.Context, cmd shell.Cmd) error {
	_, err := r.handle(cmd)
	return err
}

func (r *Recorder) Output(ctx context.Context, cmd shell.Cmd) (string, error) {
	return r.handle(cmd)
}

// Cmds returns the recorded commands in invocation order.
func (r *Recorder) Cmds() []shell.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shell.Cmd(nil), r.cmds...)
}

// Lines returns the recorded commands rendered as command lines.
func (r *Recorder) Lines() []string {
	cmds := r.Cmds()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}

func (r *Recorder) handle(cmd shell.Cmd) (string, error) {
	r.mu.Lock()
	r.cmds = append(r.cmds, cmd)
	h := r.Handler
	r.mu.Unlock()
	if h == nil {
		return "", nil
	}
	return h(cmd)
}
