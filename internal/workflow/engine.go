// Package workflow runs lint tools in containers. One generic runner,
// parameterized by a ToolSpec, serves every tool; it is consumed by both
// the CLI and the MCP server.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/deixis/lintbox/internal/config"
	"github.com/deixis/lintbox/internal/container"
	"github.com/deixis/lintbox/internal/metrics"
	"github.com/deixis/lintbox/internal/pathmap"
	"github.com/deixis/lintbox/internal/report"
	"github.com/deixis/lintbox/internal/selector"
	"github.com/deixis/lintbox/internal/toolspec"
)

// Engine holds shared dependencies for all runs.
type Engine struct {
	Config     *config.Config
	Containers container.Engine
	Store      report.Store      // optional run history
	Metrics    *metrics.Recorder // optional
	Logger     *slog.Logger
	Stderr     io.Writer // diagnostics for the user; default os.Stderr
	Verbose    bool      // show image build progress on Stderr
}

// Run executes req and writes the tool's rewritten output to out.
//
// The returned error is non-nil only for an invalid request, in which
// case nothing was run. A build, engine or unexpected failure is reported
// in Result.Failure and on Stderr; a non-zero tool exit is a finding and
// passes through in Result.ExitCode.
func (e *Engine) Run(ctx context.Context, req RunRequest, out io.Writer) (res *Result, err error) {
	spec, ok := toolspec.Lookup(req.Tool)
	if !ok {
		return nil, usageErrorf("unknown tool %q (want one of %v)", req.Tool, toolspec.Names())
	}
	tc := e.Config.Tool(spec.Name)

	opts, err := resolveOptions(spec, tc.Options, req.Options)
	if err != nil {
		return nil, err
	}
	policy := spec.Empty
	if tc.Empty != "" {
		if policy, err = toolspec.ParseEmptyPolicy(tc.Empty); err != nil {
			return nil, usageErrorf("%s: %v", spec.Name, err)
		}
	}
	match := spec.Match
	if len(req.Extensions) > 0 {
		if !spec.CustomExtensions {
			return nil, usageErrorf("%s does not accept --extensions", spec.Name)
		}
		match = match.WithExtensions(req.Extensions)
	}
	workDir, err := e.workDir(req.WorkDir)
	if err != nil {
		return nil, err
	}

	res = &Result{
		RunID:   uuid.NewString(),
		Tool:    spec.Name,
		WorkDir: workDir,
		Started: time.Now(),
	}
	defer func() {
		if r := recover(); r != nil {
			err = nil
			e.fail(res, &Failure{Kind: FailureUnexpected, Err: fmt.Errorf("panic: %v", r)})
		}
		res.Duration = time.Since(res.Started)
		e.finish(res)
	}()

	if timeout := e.Config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// File Selector.
	res.Files = selector.Select(e.hostPaths(workDir, req.Paths), selector.Rule{
		Match:    match,
		Excludes: append(append([]string(nil), tc.Excludes...), req.Excludes...),
		FullPath: spec.ExcludeBy == toolspec.ExcludePath,
	})
	e.logger().Debug("selected files", "tool", spec.Name, "count", len(res.Files))

	files := res.Files
	if len(files) == 0 {
		switch policy {
		case toolspec.EmptySkip:
			res.Skipped = true
			fmt.Fprintf(e.stderr(), "No %s files found to lint\n", spec.Kind)
			return res, nil
		case toolspec.EmptySentinel:
			files = []string{"."}
		}
	}

	// Path Mapper.
	mapper := pathmap.New(workDir, e.Config.ContainerWorkspace())
	configFile, cacheDir := e.hostFiles(spec, opts, workDir)
	plan, err := mapper.Plan(pathmap.Request{
		Files:      files,
		ConfigFile: configFile,
		ReportFile: req.ReportFile,
		CacheDir:   cacheDir,
		Writable:   writes(spec, opts),
	})
	if err != nil {
		e.fail(res, &Failure{Kind: FailureUnexpected, Err: err})
		return res, nil
	}
	res.Mounts = plan.Mounts

	// Command Composer.
	res.Args = Compose(spec, opts, plan)

	// Image Builder.
	res.Image, err = e.ensureImage(ctx, spec, tc)
	if err != nil {
		e.fail(res, classify(err))
		return res, nil
	}

	// Container Runner and Result Reporter.
	rep := &reporter{out: out, mapper: mapper, limit: e.Config.MaxOutputBytes()}
	cr := &container.Runner{Engine: e.Containers, Logger: e.logger()}
	code, err := cr.Run(ctx, container.RunSpec{
		Image:   res.Image,
		Cmd:     res.Args,
		Mounts:  plan.Mounts,
		WorkDir: mapper.ContainerRoot,
		User:    e.user(),
		Env:     []string{"HOME=/tmp"},
	}, rep.line)
	res.Lines, res.LineCount, res.Truncated = rep.lines, rep.count, rep.truncated
	if err != nil {
		e.fail(res, classify(err))
		return res, nil
	}
	if rep.err != nil {
		e.logger().Warn("writing tool output", "err", rep.err)
	}

	res.ExitCode = code
	if code != 0 && rep.count == 0 {
		fmt.Fprintln(e.stderr(), "Error: Linting failed but no output was captured")
	}
	return res, nil
}

func (e *Engine) fail(res *Result, f *Failure) {
	res.Failure = f
	res.ExitCode = ExitFailure
	fmt.Fprintln(e.stderr(), f.Error())
}

// finish records a completed run in the history and metrics.
func (e *Engine) finish(res *Result) {
	outcome := Outcome(res)
	e.logger().Info("run finished",
		"run_id", res.RunID,
		"tool", res.Tool,
		"outcome", outcome,
		"exit_code", res.ExitCode,
		"files", len(res.Files),
		"duration", res.Duration.Round(time.Millisecond),
	)

	if e.Store != nil {
		if err := e.Store.Save(Record(res)); err != nil {
			e.logger().Warn("saving run", "run_id", res.RunID, "err", err)
		}
	}
	if e.Metrics != nil {
		e.Metrics.Observe(metrics.Run{
			Tool:     res.Tool,
			Outcome:  outcome,
			Files:    len(res.Files),
			Lines:    res.LineCount,
			Duration: res.Duration,
		})
		if path := e.Config.MetricsFile; path != "" {
			if err := e.Metrics.WriteTextfile(path); err != nil {
				e.logger().Warn("exporting metrics", "err", err)
			}
		}
	}
}

func (e *Engine) workDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", usageErrorf("work directory %s is not a directory", dir)
	}
	return abs, nil
}

// hostPaths resolves paths against workDir. When workDir is the process's
// own directory they are returned unchanged, so output paths read the way
// the user typed them.
func (e *Engine) hostPaths(workDir string, paths []string) []string {
	if wd, err := os.Getwd(); err == nil && wd == workDir {
		return paths
	}
	if len(paths) == 0 {
		return []string{workDir}
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = absUnder(workDir, p)
	}
	return out
}

func absUnder(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

// user returns the uid:gid containers run as, or "" for the image default.
func (e *Engine) user() string {
	if !e.Config.HostUser() {
		return ""
	}
	uid, gid := os.Getuid(), os.Getgid()
	if uid < 0 || gid < 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", uid, gid)
}

func (e *Engine) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
