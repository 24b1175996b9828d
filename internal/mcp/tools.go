package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/lintbox/internal/toolspec"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type toolsParams struct{}

func (h *handler) toolsHandler(ctx context.Context, req *mcp.CallToolRequest, _ toolsParams) (*mcp.CallToolResult, any, error) {
	var b strings.Builder
	for i, spec := range toolspec.All() {
		if i > 0 {
			fmt.Fprintln(&b)
		}
		formatTool(&b, spec)
	}
	return textResult(b.String())
}

func formatTool(b *strings.Builder, spec toolspec.ToolSpec) {
	fmt.Fprintf(b, "%s: %s\n", spec.Name, spec.Description)
	if aliases := toolspec.Aliases(spec.Name); len(aliases) > 0 {
		fmt.Fprintf(b, "  aliases: %s\n", strings.Join(aliases, ", "))
	}

	var patterns []string
	patterns = append(patterns, spec.Match.Names...)
	for _, ext := range spec.Match.Extensions {
		patterns = append(patterns, "*."+ext)
	}
	fmt.Fprintf(b, "  files: %s\n", strings.Join(patterns, " "))
	if spec.CustomExtensions {
		fmt.Fprintln(b, "  extensions: replaceable")
	}
	fmt.Fprintf(b, "  when nothing matches: %s\n", spec.Empty)

	if len(spec.Flags) == 0 {
		return
	}
	fmt.Fprintln(b, "  options:")
	for _, f := range spec.Flags {
		fmt.Fprintf(b, "    %s (%s)", f.Name, kindName(f.Kind))
		if len(f.Choices) > 0 {
			fmt.Fprintf(b, " one of %s", strings.Join(f.Choices, "|"))
		}
		if f.Default != "" {
			fmt.Fprintf(b, " default %s", f.Default)
		}
		if f.Group != "" {
			fmt.Fprintf(b, " [exclusive: %s]", f.Group)
		}
		fmt.Fprintf(b, ": %s\n", f.Usage)
	}
}

func kindName(k toolspec.FlagKind) string {
	switch k {
	case toolspec.FlagInt:
		return "int"
	case toolspec.FlagBool:
		return "bool"
	case toolspec.FlagList:
		return "list"
	case toolspec.FlagConfig:
		return "file"
	case toolspec.FlagCache:
		return "dir"
	}
	return "string"
}
