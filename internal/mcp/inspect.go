package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/lintbox/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a lint_run result; a unique prefix is enough"`
	File  string `json:"file,omitempty" jsonschema:"a file path as it appears in the run output; omit to list files with findings"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	engine, _ := h.snapshot()
	if engine.Store == nil {
		return errorResult("Run history is disabled; lint_inspect is unavailable.")
	}

	rec, err := engine.Store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	diagnostics := rec.Diagnostics()
	if params.File == "" {
		return textResult(formatRunSummary(rec, diagnostics))
	}

	diagnostics = report.ByFile(diagnostics, params.File)
	if len(diagnostics) == 0 {
		return textResult(fmt.Sprintf("No diagnostics found for %s in run %s (%s).", params.File, rec.ID, rec.Tool))
	}
	return textResult(formatInspectOutput(rec, params.File, diagnostics))
}

// formatRunSummary lists the files with findings and their counts. Output
// that yields no diagnostics is returned as is.
func formatRunSummary(rec *report.RunRecord, diagnostics []report.Diagnostic) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", rec.ID, rec.Tool)
	fmt.Fprintf(&b, "Status: %s (exit %d)\n", rec.Status(), rec.ExitCode)
	if rec.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", rec.Error)
	}
	fmt.Fprintln(&b)

	if len(diagnostics) == 0 {
		if len(rec.Output) == 0 {
			fmt.Fprintln(&b, "No output recorded.")
			return b.String()
		}
		fmt.Fprintln(&b, "No diagnostics recognised; output:")
		for _, line := range rec.Output {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		return b.String()
	}

	counts := make(map[string]int)
	for _, d := range diagnostics {
		counts[d.File]++
	}
	files := report.Files(diagnostics)
	fmt.Fprintf(&b, "%d diagnostics in %d files:\n", len(diagnostics), len(files))
	for _, f := range files {
		fmt.Fprintf(&b, "  %s: %d\n", f, counts[f])
	}
	if rec.Truncated {
		fmt.Fprintln(&b, "\n(output was truncated; counts may be incomplete)")
	}
	return b.String()
}

func formatInspectOutput(rec *report.RunRecord, file string, diagnostics []report.Diagnostic) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", rec.ID, rec.Tool)

	// Group by code for the header.
	codes := make(map[string]int)
	var order []string
	for _, d := range diagnostics {
		code := d.Code
		if code == "" {
			code = "uncategorised"
		}
		if codes[code] == 0 {
			order = append(order, code)
		}
		codes[code]++
	}
	var parts []string
	for _, code := range order {
		parts = append(parts, fmt.Sprintf("%d %s", codes[code], code))
	}
	fmt.Fprintf(&b, "%s: %s\n\n", file, strings.Join(parts, ", "))

	for _, d := range diagnostics {
		if d.Col > 0 {
			fmt.Fprintf(&b, "%s:%d:%d: ", d.File, d.Line, d.Col)
		} else {
			fmt.Fprintf(&b, "%s:%d: ", d.File, d.Line)
		}
		if d.Code != "" {
			fmt.Fprintf(&b, "[%s] ", d.Code)
		}
		fmt.Fprintln(&b, d.Message)
	}
	return b.String()
}
