package container

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/mattn/go-isatty"

	"github.com/deixis/lintbox/internal/pathmap"
)

// APIEngine talks to the Docker Engine API. The connection honours
// DOCKER_HOST and the other standard environment variables.
type APIEngine struct {
	cli *client.Client
}

// NewAPIEngine connects to the engine described by the environment.
func NewAPIEngine() (*APIEngine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, engineErr("connect", err)
	}
	return &APIEngine{cli: cli}, nil
}

func (e *APIEngine) Build(ctx context.Context, spec BuildSpec) error {
	buildCtx, err := archive.TarWithOptions(spec.ContextDir, &archive.TarOptions{})
	if err != nil {
		return &BuildError{Image: spec.Tag, Err: fmt.Errorf("archiving build context: %w", err)}
	}
	defer buildCtx.Close()

	args := make(map[string]*string, len(spec.BuildArgs))
	for k, v := range spec.BuildArgs {
		args[k] = &v
	}

	resp, err := e.cli.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:       []string{spec.Tag},
		Dockerfile: spec.Dockerfile,
		BuildArgs:  args,
		Remove:     true,
	})
	if err != nil {
		if client.IsErrConnectionFailed(err) {
			return engineErr("build", err)
		}
		return &BuildError{Image: spec.Tag, Err: err}
	}
	defer resp.Body.Close()

	// The daemon reports step failures inside the progress stream.
	out := spec.Output
	if out == nil {
		out = io.Discard
	}
	fd, isTerm := terminal(out)
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, out, fd, isTerm, nil); err != nil {
		return &BuildError{Image: spec.Tag, Err: err}
	}
	return nil
}

func (e *APIEngine) Start(ctx context.Context, spec RunSpec) (string, error) {
	cfg := &container.Config{
		Image:        spec.Image,
		Cmd:          spec.Cmd,
		WorkingDir:   spec.WorkDir,
		User:         spec.User,
		Env:          spec.Env,
		AttachStdout: true,
		AttachStderr: true,
	}
	host := &container.HostConfig{Mounts: bindMounts(spec.Mounts)}

	created, err := e.cli.ContainerCreate(ctx, cfg, host, nil, nil, "")
	if err != nil {
		return "", engineErr("create", err)
	}
	if err := e.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return created.ID, engineErr("start", err)
	}
	return created.ID, nil
}

func (e *APIEngine) Logs(ctx context.Context, id string, w io.Writer) error {
	rc, err := e.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return engineErr("logs", err)
	}
	defer rc.Close()

	// Without a TTY the stream is multiplexed; both halves go to w.
	if _, err := stdcopy.StdCopy(w, w, rc); err != nil {
		return engineErr("logs", err)
	}
	return nil
}

func (e *APIEngine) Wait(ctx context.Context, id string) (int, error) {
	statusCh, errCh := e.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return 0, engineErr("wait", err)
	case st := <-statusCh:
		if st.Error != nil && st.Error.Message != "" {
			return 0, engineErr("wait", fmt.Errorf("%s", st.Error.Message))
		}
		return int(st.StatusCode), nil
	}
}

func (e *APIEngine) Remove(ctx context.Context, id string) error {
	return engineErr("remove", e.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}))
}

func (e *APIEngine) Close() error {
	return e.cli.Close()
}

func bindMounts(mounts []pathmap.Mount) []mount.Mount {
	out := make([]mount.Mount, 0, len(mounts))
	for _, m := range mounts {
		out = append(out, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}
	return out
}

// terminal reports the file descriptor behind w and whether it is a
// terminal, so build progress can redraw in place.
func terminal(w io.Writer) (uintptr, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 0, false
	}
	fd := f.Fd()
	return fd, isatty.IsTerminal(fd)
}
