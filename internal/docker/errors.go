package docker

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable means the Docker daemon cannot be reached at all.
	ErrBackendUnavailable = errors.New("container backend unavailable")
	ErrTimeout            = errors.New("execution timed out")
)

// LaunchError is returned when a container could not be created, populated or started.
type LaunchError struct {
	Step string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("sandbox %s failed: %v", e.Step, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
