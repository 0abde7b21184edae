package cli

import (
	"errors"

	"flowboard/internal/domain"
)

// Exit codes follow Unix conventions.
const (
	ExitSuccess     = 0
	ExitGeneral     = 1
	ExitUsage       = 2
	ExitNotFound    = 3
	ExitDataErr     = 4
	ExitValidation  = 5
	ExitUnavailable = 69 // EX_UNAVAILABLE
)

// ExitError is returned by commands that already reported the failure.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// exitCodeFor maps the domain error taxonomy onto exit codes.
func exitCodeFor(err error) int {
	var exit *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exit):
		return exit.Code
	case errors.Is(err, domain.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, domain.ErrSchema):
		return ExitDataErr
	case errors.Is(err, domain.ErrValidation):
		return ExitValidation
	case errors.Is(err, domain.ErrStorageUnavailable):
		return ExitUnavailable
	default:
		return ExitGeneral
	}
}
