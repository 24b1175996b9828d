package workflow

import (
	"fmt"
	"io"

	"github.com/deixis/lintbox/internal/pathmap"
	"github.com/deixis/lintbox/internal/report"
)

// reporter relays tool output: every line is rewritten to host paths and
// written out in arrival order. Lines are also kept for the run record,
// up to limit bytes.
type reporter struct {
	out    io.Writer
	mapper *pathmap.Mapper
	limit  int

	lines     []string
	size      int
	count     int
	truncated bool
	err       error // first write error; later lines are still counted
}

func (r *reporter) line(s string) {
	s = r.mapper.Rewrite(s)
	r.count++
	if r.err == nil {
		_, r.err = fmt.Fprintln(r.out, s)
	}
	if r.truncated || (r.limit > 0 && r.size+len(s)+1 > r.limit) {
		r.truncated = true
		return
	}
	r.size += len(s) + 1
	r.lines = append(r.lines, s)
}

// Record converts res into its persisted form.
func Record(res *Result) *report.RunRecord {
	rec := &report.RunRecord{
		ID:        res.RunID,
		Tool:      res.Tool,
		Image:     res.Image,
		WorkDir:   res.WorkDir,
		Files:     res.Files,
		Args:      res.Args,
		Mounts:    res.Mounts,
		ExitCode:  res.ExitCode,
		Skipped:   res.Skipped,
		Output:    res.Lines,
		Truncated: res.Truncated,
		Started:   res.Started,
		Duration:  res.Duration,
	}
	if res.Failure != nil {
		rec.Failure = string(res.Failure.Kind)
		rec.Error = res.Failure.Error()
	}
	return rec
}

// Outcome names how res ended, for metrics and logs: the failure kind,
// or skipped, clean or findings.
func Outcome(res *Result) string {
	if res.Failure != nil {
		return string(res.Failure.Kind)
	}
	return string(Record(res).Status())
}
