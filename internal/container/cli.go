package container

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/deixis/lintbox/internal/pathmap"
	"github.com/deixis/lintbox/internal/runner"
)

// CommandRunner executes host commands. Implemented by *runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) (*runner.Result, error)
	Stream(ctx context.Context, argv []string, w io.Writer) (int, error)
}

// CLIEngine drives a docker-compatible command line client such as
// docker or podman.
type CLIEngine struct {
	Binary string
	Exec   CommandRunner
}

func (e *CLIEngine) Build(ctx context.Context, spec BuildSpec) error {
	argv := e.buildArgs(spec)

	if spec.Output != nil {
		code, err := e.Exec.Stream(ctx, argv, spec.Output)
		if err != nil {
			return engineErr("build", err)
		}
		if code != 0 {
			return &BuildError{Image: spec.Tag, Err: fmt.Errorf("%s build exited with status %d", e.Binary, code)}
		}
		return nil
	}

	// A command that could not be executed is an engine fault; a build
	// that ran and failed is the image's.
	res, err := e.Exec.Run(ctx, argv)
	if err != nil {
		return engineErr("build", err)
	}
	if res.ExitCode != 0 {
		return &BuildError{Image: spec.Tag, Err: fmt.Errorf("%s build exited with status %d: %s", e.Binary, res.ExitCode, lastLine(res.Output()))}
	}
	return nil
}

func (e *CLIEngine) buildArgs(spec BuildSpec) []string {
	argv := []string{e.Binary, "build", "-t", spec.Tag}
	if spec.Dockerfile != "" {
		argv = append(argv, "-f", spec.ContextDir+"/"+spec.Dockerfile)
	}
	keys := make([]string, 0, len(spec.BuildArgs))
	for k := range spec.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		argv = append(argv, "--build-arg", k+"="+spec.BuildArgs[k])
	}
	return append(argv, spec.ContextDir)
}

func (e *CLIEngine) Start(ctx context.Context, spec RunSpec) (string, error) {
	res, err := e.Exec.Run(ctx, e.runArgs(spec))
	if err != nil {
		return "", engineErr("start", err)
	}
	id := strings.TrimSpace(string(res.Stdout))
	if res.ExitCode != 0 {
		// docker run -d prints the ID once the container exists, even if
		// starting it failed afterwards.
		return lastLine(id), engineErr("start", fmt.Errorf("%s run exited with status %d: %s", e.Binary, res.ExitCode, lastLine(string(res.Stderr))))
	}
	if id == "" {
		return "", engineErr("start", fmt.Errorf("%s run printed no container ID", e.Binary))
	}
	return lastLine(id), nil
}

func (e *CLIEngine) runArgs(spec RunSpec) []string {
	argv := []string{e.Binary, "run", "-d"}
	for _, m := range spec.Mounts {
		argv = append(argv, "--mount", mountArg(m))
	}
	if spec.WorkDir != "" {
		argv = append(argv, "-w", spec.WorkDir)
	}
	if spec.User != "" {
		argv = append(argv, "--user", spec.User)
	}
	for _, env := range spec.Env {
		argv = append(argv, "-e", env)
	}
	argv = append(argv, spec.Image)
	return append(argv, spec.Cmd...)
}

// mountArg renders m as a --mount value. The value is parsed as a CSV
// record, so fields holding a comma or a quote are quoted.
func mountArg(m pathmap.Mount) string {
	s := "type=bind," + csvField("source="+m.Source) + "," + csvField("target="+m.Target)
	if m.ReadOnly {
		s += ",readonly=true"
	}
	return s
}

func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (e *CLIEngine) Logs(ctx context.Context, id string, w io.Writer) error {
	code, err := e.Exec.Stream(ctx, []string{e.Binary, "logs", "-f", id}, w)
	if err != nil {
		return engineErr("logs", err)
	}
	if code != 0 {
		return engineErr("logs", fmt.Errorf("%s logs exited with status %d", e.Binary, code))
	}
	return nil
}

func (e *CLIEngine) Wait(ctx context.Context, id string) (int, error) {
	res, err := e.Exec.Run(ctx, []string{e.Binary, "wait", id})
	if err != nil {
		return 0, engineErr("wait", err)
	}
	if res.ExitCode != 0 {
		return 0, engineErr("wait", fmt.Errorf("%s wait exited with status %d: %s", e.Binary, res.ExitCode, lastLine(string(res.Stderr))))
	}
	code, err := strconv.Atoi(lastLine(string(res.Stdout)))
	if err != nil {
		return 0, engineErr("wait", fmt.Errorf("parsing exit status: %w", err))
	}
	return code, nil
}

func (e *CLIEngine) Remove(ctx context.Context, id string) error {
	res, err := e.Exec.Run(ctx, []string{e.Binary, "rm", "-f", id})
	if err != nil {
		return engineErr("remove", err)
	}
	if res.ExitCode != 0 {
		return engineErr("remove", fmt.Errorf("%s rm exited with status %d: %s", e.Binary, res.ExitCode, lastLine(string(res.Stderr))))
	}
	return nil
}

func (e *CLIEngine) Close() error { return nil }

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
