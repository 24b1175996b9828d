package workflow

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/deixis/lintbox/internal/config"
	"github.com/deixis/lintbox/internal/container"
	"github.com/deixis/lintbox/internal/toolspec"
)

// ensureImage builds the tool image and returns its tag. The engine is
// asked to build on every run; its layer cache makes that cheap once the
// image exists.
func (e *Engine) ensureImage(ctx context.Context, spec toolspec.ToolSpec, tc config.ToolConfig) (string, error) {
	tag := spec.Image
	if tc.Image != "" {
		tag = tc.Image
	}

	dir, err := e.buildContext(spec)
	if err != nil {
		return tag, &container.BuildError{Image: tag, Err: err}
	}

	var progress io.Writer
	if e.Verbose {
		progress = e.stderr()
	}
	e.logger().Debug("building image", "tool", spec.Name, "image", tag, "context", dir)
	err = e.Containers.Build(ctx, container.BuildSpec{
		ContextDir: dir,
		Dockerfile: spec.Dockerfile,
		Tag:        tag,
		BuildArgs:  map[string]string{"ROS_DISTRO": e.Config.ROSDistro()},
		Output:     progress,
	})
	return tag, err
}

// buildContext returns a host directory holding the build context of
// spec. A Dockerfile the user placed under build_dir/<tool> is used as
// is; otherwise the embedded context is written there.
func (e *Engine) buildContext(spec toolspec.ToolSpec) (string, error) {
	dir := filepath.Join(e.Config.BuildRoot(), spec.Name)
	if e.Config.BuildDir != "" {
		if _, err := os.Stat(filepath.Join(dir, spec.Dockerfile)); err == nil {
			return dir, nil
		}
	}

	fsys, err := spec.BuildContext()
	if err != nil {
		return "", err
	}
	if err := writeTree(dir, fsys); err != nil {
		return "", fmt.Errorf("writing build context: %w", err)
	}
	return dir, nil
}

// writeTree copies fsys into dir, overwriting files that already exist.
func writeTree(dir string, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(p))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
