package workflow

import (
	"errors"
	"fmt"

	"github.com/deixis/lintbox/internal/container"
)

// FailureKind classifies why a run could not produce a tool result.
type FailureKind string

const (
	FailureBuild      FailureKind = "build"
	FailureEngine     FailureKind = "engine"
	FailureUnexpected FailureKind = "unexpected"
)

// Failure is a run that ended before the tool could report. Tool findings
// are never failures.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureBuild:
		return fmt.Sprintf("error building image: %v", f.Err)
	case FailureEngine:
		return fmt.Sprintf("container engine error: %v", f.Err)
	default:
		return fmt.Sprintf("unexpected error: %v", f.Err)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// classify wraps err in the Failure matching its origin.
func classify(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	var buildErr *container.BuildError
	if errors.As(err, &buildErr) {
		return &Failure{Kind: FailureBuild, Err: err}
	}
	var engineErr *container.EngineError
	if errors.As(err, &engineErr) {
		return &Failure{Kind: FailureEngine, Err: err}
	}
	return &Failure{Kind: FailureUnexpected, Err: err}
}

// Exit status of the lintbox process.
const (
	ExitFailure = 1 // build, engine or unexpected failure
	ExitUsage   = 2 // invalid command line or request
)

// ExitCode maps the outcome of Run to a process exit status: the tool's
// own status, 1 for a failure, 2 for an invalid request.
func ExitCode(res *Result, err error) int {
	if err != nil {
		var usage *UsageError
		if errors.As(err, &usage) {
			return ExitUsage
		}
		return ExitFailure
	}
	if res == nil {
		return ExitFailure
	}
	if res.Failure != nil {
		return ExitFailure
	}
	return res.ExitCode
}
