package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/deixis/lintbox/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct {
	Tool       string              `json:"tool" jsonschema:"the tool to run, e.g. cpplint or flake8 (see lint_tools)"`
	Paths      []string            `json:"paths,omitempty" jsonschema:"files or directories relative to the workspace; default is the whole workspace"`
	Excludes   []string            `json:"excludes,omitempty" jsonschema:"skip files whose name contains any of these substrings"`
	Extensions []string            `json:"extensions,omitempty" jsonschema:"file extensions to check instead of the defaults (xmllint only)"`
	Options    map[string][]string `json:"options,omitempty" jsonschema:"tool options keyed by option name as listed by lint_tools; boolean options take true or false"`
	XunitFile  string              `json:"xunit_file,omitempty" jsonschema:"write an xunit report to this path relative to the workspace"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if params.Tool == "" {
		return errorResult("tool is required")
	}

	engine, workDir := h.snapshot()
	var diag strings.Builder
	engine.Stderr = &diag
	engine.Verbose = false

	res, err := engine.Run(ctx, workflow.RunRequest{
		Tool:       params.Tool,
		WorkDir:    workDir,
		Paths:      params.Paths,
		Excludes:   params.Excludes,
		Extensions: params.Extensions,
		ReportFile: params.XunitFile,
		Options:    params.Options,
	}, io.Discard)
	if err != nil {
		var usage *workflow.UsageError
		if errors.As(err, &usage) {
			return errorResult("Invalid request: " + usage.Msg)
		}
		return errorResult(err.Error())
	}

	text := formatRunOutput(res, diag.String(), engine.Store != nil)
	if res.Failure != nil {
		return errorResult(text)
	}
	return textResult(text)
}

func formatRunOutput(res *workflow.Result, diag string, history bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", res.RunID, res.Tool)
	fmt.Fprintf(&b, "Status: %s (exit %d)\n", workflow.Outcome(res), res.ExitCode)
	fmt.Fprintf(&b, "Files: %d\n", len(res.Files))
	fmt.Fprintf(&b, "Duration: %s\n", res.Duration.Round(time.Millisecond))

	if len(res.Lines) > 0 {
		fmt.Fprintln(&b)
		for _, line := range res.Lines {
			fmt.Fprintln(&b, line)
		}
	}
	if res.Truncated {
		fmt.Fprintf(&b, "\n(output truncated: %d of %d lines shown)\n", len(res.Lines), res.LineCount)
	}
	if diag = strings.TrimSpace(diag); diag != "" {
		fmt.Fprintf(&b, "\n%s\n", diag)
	}

	if history && res.ExitCode != 0 && res.Failure == nil && res.LineCount > 0 {
		fmt.Fprintf(&b, "\nUse lint_inspect with run_id %q to list findings per file.\n", res.RunID)
	}
	return b.String()
}
