// Package containertest provides an in-memory container.Engine for tests.
package containertest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/deixis/lintbox/internal/container"
)

// Fake is a container.Engine that records every call. Injected errors are
// wrapped in the error types a real engine returns.
type Fake struct {
	BuildErr error
	StartErr error
	LogsErr  error
	WaitErr  error

	// Output is written to the log stream of every container.
	Output   string
	ExitCode int
	// OnStart runs when a container starts, e.g. to write into a mount.
	OnStart func(spec container.RunSpec) error

	mu      sync.Mutex
	Builds  []container.BuildSpec
	Runs    []container.RunSpec
	Removed []string
	Closed  bool
	started int
}

var _ container.Engine = (*Fake)(nil)

func (f *Fake) Build(_ context.Context, spec container.BuildSpec) error {
	f.mu.Lock()
	f.Builds = append(f.Builds, spec)
	f.mu.Unlock()
	if f.BuildErr != nil {
		return &container.BuildError{Image: spec.Tag, Err: f.BuildErr}
	}
	if spec.Output != nil {
		fmt.Fprintf(spec.Output, "Successfully tagged %s\n", spec.Tag)
	}
	return nil
}

func (f *Fake) Start(_ context.Context, spec container.RunSpec) (string, error) {
	f.mu.Lock()
	f.Runs = append(f.Runs, spec)
	f.started++
	id := fmt.Sprintf("fake-%d", f.started)
	f.mu.Unlock()

	if f.StartErr != nil {
		// Created but not started: the caller still has to remove it.
		return id, &container.EngineError{Op: "start", Err: f.StartErr}
	}
	if f.OnStart != nil {
		if err := f.OnStart(spec); err != nil {
			return id, &container.EngineError{Op: "start", Err: err}
		}
	}
	return id, nil
}

func (f *Fake) Logs(_ context.Context, _ string, w io.Writer) error {
	if f.Output != "" {
		if _, err := io.WriteString(w, f.Output); err != nil {
			return err
		}
	}
	if f.LogsErr != nil {
		return &container.EngineError{Op: "logs", Err: f.LogsErr}
	}
	return nil
}

func (f *Fake) Wait(context.Context, string) (int, error) {
	if f.WaitErr != nil {
		return 0, &container.EngineError{Op: "wait", Err: f.WaitErr}
	}
	return f.ExitCode, nil
}

func (f *Fake) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removed = append(f.Removed, id)
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Live returns the number of containers started and not yet removed.
func (f *Fake) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started - len(f.Removed)
}
