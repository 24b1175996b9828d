package container

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/lintbox/internal/pathmap"
	"github.com/deixis/lintbox/internal/runner"
)

// fakeRunner records commands and answers them by subcommand.
type fakeRunner struct {
	calls   [][]string
	results map[string]*runner.Result
	streams map[string]string
	codes   map[string]int
	err     error
}

func (f *fakeRunner) Run(_ context.Context, argv []string) (*runner.Result, error) {
	f.calls = append(f.calls, argv)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[argv[1]]; ok {
		return r, nil
	}
	return &runner.Result{}, nil
}

func (f *fakeRunner) Stream(_ context.Context, argv []string, w io.Writer) (int, error) {
	f.calls = append(f.calls, argv)
	if f.err != nil {
		return 0, f.err
	}
	_, _ = io.WriteString(w, f.streams[argv[1]])
	return f.codes[argv[1]], nil
}

func TestCLIEngine_RunArgs(t *testing.T) {
	e := &CLIEngine{Binary: "docker"}
	argv := e.runArgs(RunSpec{
		Image: "ament_flake8_linter",
		Cmd:   []string{"ament_flake8", "a.py"},
		Mounts: []pathmap.Mount{
			{Source: "/home/u/ws", Target: "/workspace", ReadOnly: true},
			{Source: "/home/u/ws/out", Target: "/workspace/out"},
		},
		WorkDir: "/workspace",
		User:    "1000:1000",
		Env:     []string{"HOME=/tmp"},
	})

	assert.Equal(t, []string{
		"docker", "run", "-d",
		"--mount", "type=bind,source=/home/u/ws,target=/workspace,readonly=true",
		"--mount", "type=bind,source=/home/u/ws/out,target=/workspace/out",
		"-w", "/workspace",
		"--user", "1000:1000",
		"-e", "HOME=/tmp",
		"ament_flake8_linter", "ament_flake8", "a.py",
	}, argv)
}

func TestMountArg_Quoting(t *testing.T) {
	got := mountArg(pathmap.Mount{Source: `/home/u/a,b "c"`, Target: "/lintbox/src/0", ReadOnly: true})
	assert.Equal(t, `type=bind,"source=/home/u/a,b ""c""",target=/lintbox/src/0,readonly=true`, got)

	fields, err := csv.NewReader(strings.NewReader(got)).Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"type=bind", `source=/home/u/a,b "c"`, "target=/lintbox/src/0", "readonly=true"}, fields)
}

func TestCLIEngine_BuildArgs(t *testing.T) {
	e := &CLIEngine{Binary: "podman"}
	argv := e.buildArgs(BuildSpec{
		ContextDir: "/cache/build/mypy",
		Dockerfile: "Dockerfile",
		Tag:        "ament_mypy_linter",
		BuildArgs:  map[string]string{"ROS_DISTRO": "jazzy", "A": "1"},
	})
	assert.Equal(t, []string{
		"podman", "build", "-t", "ament_mypy_linter",
		"-f", "/cache/build/mypy/Dockerfile",
		"--build-arg", "A=1",
		"--build-arg", "ROS_DISTRO=jazzy",
		"/cache/build/mypy",
	}, argv)
}

func TestCLIEngine_BuildFailure(t *testing.T) {
	fr := &fakeRunner{results: map[string]*runner.Result{
		"build": {ExitCode: 1, Stderr: []byte("step 1\nE: Unable to locate package\n")},
	}}
	e := &CLIEngine{Binary: "docker", Exec: fr}

	err := e.Build(context.Background(), BuildSpec{ContextDir: "/ctx", Tag: "img"})
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "img", buildErr.Image)
	assert.Contains(t, err.Error(), "Unable to locate package")
}

func TestCLIEngine_BuildStreamsProgress(t *testing.T) {
	fr := &fakeRunner{streams: map[string]string{"build": "Step 1/4\n"}}
	e := &CLIEngine{Binary: "docker", Exec: fr}

	var out bytes.Buffer
	require.NoError(t, e.Build(context.Background(), BuildSpec{ContextDir: "/ctx", Tag: "img", Output: &out}))
	assert.Equal(t, "Step 1/4\n", out.String())
}

func TestCLIEngine_Lifecycle(t *testing.T) {
	fr := &fakeRunner{
		results: map[string]*runner.Result{
			"run":  {Stdout: []byte("abc123\n")},
			"wait": {Stdout: []byte("2\n")},
		},
		streams: map[string]string{"logs": "x.py:1: bad\n"},
	}
	e := &CLIEngine{Binary: "docker", Exec: fr}
	r := &Runner{Engine: e}

	var lines []string
	code, err := r.Run(context.Background(), RunSpec{Image: "img"}, func(s string) { lines = append(lines, s) })
	require.NoError(t, err)
	assert.Equal(t, 2, code)
	assert.Equal(t, []string{"x.py:1: bad"}, lines)

	var verbs []string
	for _, c := range fr.calls {
		verbs = append(verbs, c[1])
	}
	assert.Equal(t, []string{"run", "logs", "wait", "rm"}, verbs)
	assert.Equal(t, []string{"docker", "rm", "-f", "abc123"}, fr.calls[3])
}

func TestCLIEngine_MissingBinary(t *testing.T) {
	fr := &fakeRunner{err: errors.New(`executing docker: exec: "docker": executable file not found in $PATH`)}
	e := &CLIEngine{Binary: "docker", Exec: fr}

	_, err := e.Start(context.Background(), RunSpec{Image: "img"})
	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Contains(t, err.Error(), "executable file not found")
}

func TestCLIEngine_BuildMissingBinary(t *testing.T) {
	fr := &fakeRunner{err: errors.New(`executing podman: exec: "podman": executable file not found in $PATH`)}
	e := &CLIEngine{Binary: "podman", Exec: fr}

	for _, out := range []io.Writer{nil, new(bytes.Buffer)} {
		err := e.Build(context.Background(), BuildSpec{ContextDir: "/ctx", Tag: "img", Output: out})
		var engErr *EngineError
		require.ErrorAs(t, err, &engErr)
		assert.Equal(t, "build", engErr.Op)
		var buildErr *BuildError
		assert.False(t, errors.As(err, &buildErr))
	}
}

func TestCLIEngine_WaitParsesStatus(t *testing.T) {
	fr := &fakeRunner{results: map[string]*runner.Result{"wait": {Stdout: []byte("garbage")}}}
	e := &CLIEngine{Binary: "docker", Exec: fr}

	_, err := e.Wait(context.Background(), "id")
	assert.Error(t, err)
}
