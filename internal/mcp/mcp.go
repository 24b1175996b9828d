// Package mcp provides the lintbox MCP server, exposing the containerized
// lint tools to agents and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/lintbox"
	"github.com/deixis/lintbox/internal/config"
	"github.com/deixis/lintbox/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu      sync.RWMutex // guards engine.Config and workDir, replaced from client roots
	engine  *workflow.Engine
	workDir string
	cfgPath string
}

// NewServer creates an MCP server with all lintbox tools registered.
// Runs are executed by engine inside workDir; its Store, when set, backs
// lint_inspect.
func NewServer(engine *workflow.Engine, workDir string) *mcp.Server {
	h := &handler{
		engine:  engine,
		workDir: workDir,
	}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "lintbox", Version: lintbox.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "lint_tools",
		Description: "List the lint tools lintbox can run, with the files each one checks and its options.",
	}, h.toolsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "lint_workspace",
		Description: "Summarise the workspace: project root, config file, container engine, and how many files each tool would lint.",
	}, h.workspaceHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "lint_run",
		Description: `Run one lint tool in its container against files in the workspace.

Paths default to the whole workspace. Output paths are relative to the workspace.
The result carries a run_id; pass it to lint_inspect to drill into one file.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "lint_inspect",
		Description: `Drill into the findings of a previous lint_run.

Without a file, lists the files with findings. With a file, returns that file's diagnostics.`,
	}, h.inspectHandler)

	return s
}

// snapshot returns a copy of the engine and the current work directory so
// a call is unaffected by a concurrent roots update.
func (h *handler) snapshot() (workflow.Engine, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return *h.engine, h.workDir
}

// updateWorkspaceFromRoots queries the client for MCP roots and moves the
// server to the first file root, reloading its config. Called during
// session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	loaded, err := config.Load(u.Path)
	if err != nil {
		return
	}
	h.setWorkspace(loaded)
}

func (h *handler) setWorkspace(loaded *config.LoadResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.engine.Config = loaded.Config
	h.workDir = loaded.Root
	h.cfgPath = loaded.Path
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
