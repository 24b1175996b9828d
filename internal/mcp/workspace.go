package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/lintbox/internal/selector"
	"github.com/deixis/lintbox/internal/toolspec"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type workspaceParams struct{}

func (h *handler) workspaceHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ workspaceParams) (*sdkmcp.CallToolResult, any, error) {
	engine, workDir := h.snapshot()
	h.mu.RLock()
	cfgPath := h.cfgPath
	h.mu.RUnlock()
	cfg := engine.Config

	var b strings.Builder
	fmt.Fprintf(&b, "Workspace: %s\n", workDir)
	if cfgPath != "" {
		fmt.Fprintf(&b, "Config: %s\n", cfgPath)
	} else {
		fmt.Fprintln(&b, "Config: (none, using defaults)")
	}
	fmt.Fprintf(&b, "Engine: %s\n", cfg.EngineName())
	fmt.Fprintf(&b, "ROS distro: %s\n", cfg.ROSDistro())
	fmt.Fprintf(&b, "Timeout: %s\n", cfg.Timeout())
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Files per tool:")
	for _, spec := range toolspec.All() {
		files := selector.Select([]string{workDir}, selector.Rule{
			Match:    spec.Match,
			Excludes: cfg.Tool(spec.Name).Excludes,
			FullPath: spec.ExcludeBy == toolspec.ExcludePath,
		})
		fmt.Fprintf(&b, "  %-11s %d\n", spec.Name, len(files))
	}
	return textResult(b.String())
}
