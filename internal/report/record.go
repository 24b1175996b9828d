// Package report persists lint runs and extracts diagnostics from their
// output so a run can be inspected after the fact.
package report

import (
	"time"

	"github.com/deixis/lintbox/internal/pathmap"
)

// Status summarizes how a run ended.
type Status string

const (
	StatusClean    Status = "clean"    // the tool exited 0
	StatusFindings Status = "findings" // the tool exited non-zero
	StatusSkipped  Status = "skipped"  // nothing to lint, the tool never ran
	StatusFailed   Status = "failed"   // the image or container could not be run
)

// Store persists and retrieves run records.
type Store interface {
	Save(rec *RunRecord) error
	Load(runID string) (*RunRecord, error)
}

// RunRecord is the persisted form of one lint run.
type RunRecord struct {
	ID        string          `json:"id"`
	Tool      string          `json:"tool"`
	Image     string          `json:"image,omitempty"`
	WorkDir   string          `json:"work_dir"`
	Files     []string        `json:"files,omitempty"`
	Args      []string        `json:"args,omitempty"` // in-container argv
	Mounts    []pathmap.Mount `json:"mounts,omitempty"`
	ExitCode  int             `json:"exit_code"`
	Failure   string          `json:"failure,omitempty"` // build, engine or unexpected
	Error     string          `json:"error,omitempty"`
	Skipped   bool            `json:"skipped,omitempty"`
	Output    []string        `json:"output,omitempty"` // rewritten lines
	Truncated bool            `json:"truncated,omitempty"`
	Started   time.Time       `json:"started"`
	Duration  time.Duration   `json:"duration"`
}

// Status derives the run's status.
func (r *RunRecord) Status() Status {
	switch {
	case r.Failure != "":
		return StatusFailed
	case r.Skipped:
		return StatusSkipped
	case r.ExitCode == 0:
		return StatusClean
	default:
		return StatusFindings
	}
}

// Diagnostics parses the recorded output.
func (r *RunRecord) Diagnostics() []Diagnostic {
	return Parse(r.Tool, r.Output)
}
