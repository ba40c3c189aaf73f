package cli

import (
	"errors"

	"github.com/devforge-labs/devforge/internal/conflict"
	"github.com/devforge-labs/devforge/internal/executor"
	"github.com/devforge-labs/devforge/internal/extension"
	"github.com/devforge-labs/devforge/internal/manifest"
	"github.com/devforge-labs/devforge/internal/resolver"
	"github.com/devforge-labs/devforge/internal/validator"
)

// ExitCode maps an error to the process exit code, so scripts can
// distinguish failure kinds without parsing output.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var (
		schemaErr     *extension.SchemaError
		missingErr    *resolver.MissingDependencyError
		cycleErr      *resolver.CyclicDependencyError
		installTOErr  *executor.TimeoutError
		installErr    *executor.InstallError
		validateTOErr *validator.TimeoutError
		validateErr   *validator.FailedError
		lockErr       *manifest.LockError
		protectedErr  *manifest.ProtectedError
		conflictErr   *conflict.ResolutionError
	)

	switch {
	case errors.As(err, &schemaErr):
		return 2
	case errors.As(err, &missingErr):
		return 3
	case errors.As(err, &cycleErr):
		return 4
	case errors.As(err, &installTOErr):
		return 5
	case errors.As(err, &installErr):
		return 6
	case errors.As(err, &validateTOErr):
		return 7
	case errors.As(err, &validateErr):
		return 8
	case errors.As(err, &lockErr):
		return 9
	case errors.As(err, &protectedErr):
		return 10
	case errors.As(err, &conflictErr):
		return 11
	default:
		return 1
	}
}
