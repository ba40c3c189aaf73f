package executor

import (
	"fmt"
	"time"

	"github.com/devforge-labs/devforge/internal/extension"
)

// InstallError reports a failed install step.
type InstallError struct {
	Name   string
	Method extension.Method
	Err    error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s (%s step): %v", e.Name, e.Method, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// TimeoutError reports an extension whose install exceeded its deadline.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("install %s timed out after %s", e.Name, e.Timeout)
}
