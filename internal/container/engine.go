// Package container drives a container engine through the life cycle of
// one lint run: build the image, start the container, stream its logs,
// read its exit code and remove it.
package container

import (
	"context"
	"fmt"
	"io"

	"github.com/deixis/lintbox/internal/pathmap"
)

// Engine names accepted by Open.
const (
	EngineDocker    = "docker"     // Docker Engine API
	EngineDockerCLI = "docker-cli" // docker binary
	EnginePodman    = "podman"     // podman binary
)

// Engines lists the names accepted by Open.
var Engines = []string{EngineDocker, EngineDockerCLI, EnginePodman}

// BuildSpec describes an image build.
type BuildSpec struct {
	ContextDir string            // host directory holding the build context
	Dockerfile string            // relative to ContextDir
	Tag        string            // image reference to produce
	BuildArgs  map[string]string // --build-arg values
	Output     io.Writer         // build progress; nil discards it
}

// RunSpec describes a container to start.
type RunSpec struct {
	Image   string
	Cmd     []string
	Mounts  []pathmap.Mount
	WorkDir string
	User    string   // uid:gid, empty for the image default
	Env     []string // KEY=VALUE
}

// Engine is the subset of a container engine a run needs. A build that
// ran and failed returns *BuildError; an engine that cannot be reached,
// and every other failure, returns *EngineError.
type Engine interface {
	// Build builds spec.Tag from the context directory. The engine's own
	// layer cache makes repeated builds cheap.
	Build(ctx context.Context, spec BuildSpec) error
	// Start creates and starts a detached container. A non-empty ID may be
	// returned with an error when the container was created but did not
	// start; the caller still owns its removal.
	Start(ctx context.Context, spec RunSpec) (string, error)
	// Logs follows the combined stdout and stderr of the container into w
	// until it exits.
	Logs(ctx context.Context, id string, w io.Writer) error
	// Wait blocks until the container stops and returns its exit code.
	Wait(ctx context.Context, id string) (int, error)
	// Remove force-removes the container.
	Remove(ctx context.Context, id string) error
	Close() error
}

// Open returns the engine called name. The CLI engines execute their
// binary through exec.
func Open(name string, exec CommandRunner) (Engine, error) {
	switch name {
	case EngineDocker, "":
		return NewAPIEngine()
	case EngineDockerCLI:
		return &CLIEngine{Binary: "docker", Exec: exec}, nil
	case EnginePodman:
		return &CLIEngine{Binary: "podman", Exec: exec}, nil
	default:
		return nil, &EngineError{Op: "open", Err: fmt.Errorf("unknown engine %q (want one of %v)", name, Engines)}
	}
}
