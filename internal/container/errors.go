package container

import "fmt"

// BuildError reports that an image could not be built.
type BuildError struct {
	Image string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building %s: %v", e.Image, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// EngineError reports that the container engine failed to create, start,
// stream, wait for or remove a container.
type EngineError struct {
	Op  string // create, start, logs, wait, remove, ...
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func engineErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Err: err}
}
