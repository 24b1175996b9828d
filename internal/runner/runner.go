// Package runner executes host commands with timeouts and output size
// limits. The CLI container engines drive docker and podman through it.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// Runner executes commands on the host.
type Runner struct {
	Dir       string        // working directory; empty means the current one
	Timeout   time.Duration // zero means no timeout
	MaxOutput int           // bytes per captured stream in Run; zero means unlimited
	Env       []string      // extra environment, appended to the inherited one
}

// Run executes argv and captures its output. The first element is the
// binary name (resolved via PATH), and the rest are arguments. A non-zero
// exit is reported in the Result, not as an error.
func (r *Runner) Run(ctx context.Context, argv []string) (*Result, error) {
	var stdout, stderr bytes.Buffer
	outW := &LimitWriter{W: &stdout, Limit: r.MaxOutput}
	errW := &LimitWriter{W: &stderr, Limit: r.MaxOutput}

	code, err := r.exec(ctx, argv, outW, errW)
	if err != nil {
		return nil, err
	}
	return &Result{
		ExitCode:  code,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: outW.Truncated() || errW.Truncated(),
	}, nil
}

// Stream executes argv and copies stdout and stderr into w as they are
// produced, returning the exit code. Both streams share w, so lines
// arrive in the order the process wrote them. Streamed output is not
// subject to MaxOutput; w decides what to keep.
func (r *Runner) Stream(ctx context.Context, argv []string, w io.Writer) (int, error) {
	return r.exec(ctx, argv, w, w)
}

func (r *Runner) exec(ctx context.Context, argv []string, stdout, stderr io.Writer) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("empty argv")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctx.Err() != nil {
				return exitErr.ExitCode(), fmt.Errorf("executing %s: %w", argv[0], ctx.Err())
			}
			return exitErr.ExitCode(), nil
		}
		// Binary not found or other exec error.
		return 0, fmt.Errorf("executing %s: %w", argv[0], err)
	}
	return 0, nil
}

// LimitWriter writes up to Limit bytes to W, then silently discards the
// rest. A zero Limit never truncates.
type LimitWriter struct {
	W     io.Writer
	Limit int

	written   int
	truncated bool
}

func (w *LimitWriter) Write(p []byte) (int, error) {
	if w.Limit <= 0 {
		return w.W.Write(p)
	}
	remaining := w.Limit - w.written
	if remaining <= 0 {
		w.truncated = len(p) > 0 || w.truncated
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		n, err := w.W.Write(p[:remaining])
		w.written += n
		w.truncated = true
		if err != nil {
			return n, err
		}
		return len(p), nil
	}
	n, err := w.W.Write(p)
	w.written += n
	return n, err
}

// Truncated reports whether any output was discarded.
func (w *LimitWriter) Truncated() bool { return w.truncated }
