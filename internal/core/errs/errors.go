package errs

import "errors"

// Sentinel errors for the domain layer.
// Low-level failures (exec, socket, parse errors) are wrapped with these so
// the upper layers (API/CLI) can classify them without knowing the details.

var (
	// ErrNotFound is returned when a requested check or run is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when the input provided is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSchedule is returned when a check carries a cron schedule
	// that failed validation.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrAlreadyRunning is returned when a check is triggered while a
	// previous run of the same check is still in progress.
	ErrAlreadyRunning = errors.New("check already running")

	// ErrConnection is returned when a backing service (such as the EPA
	// reservation socket) cannot be reached.
	ErrConnection = errors.New("connection failed")

	// ErrSystem is returned when an unexpected system error occurs.
	ErrSystem = errors.New("system error")
)
