package container

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"
)

const removeTimeout = 30 * time.Second

// Runner executes one container to completion.
type Runner struct {
	Engine Engine
	Logger *slog.Logger
}

// Run starts a container for spec, hands every line of its combined
// output to onLine as it arrives, and returns the container's exit code.
// The container is removed on every path, including cancellation.
func (r *Runner) Run(ctx context.Context, spec RunSpec, onLine func(string)) (code int, err error) {
	id, err := r.Engine.Start(ctx, spec)
	if id != "" {
		defer r.remove(ctx, id)
	}
	if err != nil {
		return 0, err
	}
	r.logger().Debug("container started", "id", shortID(id), "image", spec.Image)

	lw := NewLineWriter(onLine)
	logErr := r.Engine.Logs(ctx, id, lw)
	lw.Flush()
	if logErr != nil {
		return 0, logErr
	}

	code, err = r.Engine.Wait(ctx, id)
	if err != nil {
		return 0, err
	}
	r.logger().Debug("container exited", "id", shortID(id), "code", code)
	return code, nil
}

func (r *Runner) remove(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), removeTimeout)
	defer cancel()
	if err := r.Engine.Remove(ctx, id); err != nil {
		r.logger().Warn("removing container", "id", shortID(id), "err", err)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// LineWriter splits a byte stream into lines. The line terminator and
// any carriage return before it are dropped.
type LineWriter struct {
	fn  func(string)
	buf bytes.Buffer
}

// NewLineWriter returns a LineWriter calling fn once per line.
func NewLineWriter(fn func(string)) *LineWriter {
	return &LineWriter{fn: fn}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.emit(line[:i])
	}
	return len(p), nil
}

// Flush emits a trailing line that was not terminated by a newline.
func (w *LineWriter) Flush() {
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *LineWriter) emit(line string) {
	if w.fn != nil {
		w.fn(strings.TrimRight(line, "\r"))
	}
}
