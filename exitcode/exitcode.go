// Package exitcode defines the process exit codes reldb reports.
// The numeric values are a stable contract for calling automation.
package exitcode

import "errors"

const (
	Validation       = 1
	Git              = 2
	NoReleases       = 3
	S3               = 4
	Query            = 5
	ParameterMissing = 6
	InvalidField     = 7
	HTTP             = 8
	FileNotFound     = 9
	Format           = 10
	Input            = 11
)

// Error attaches an exit code to an error so it can travel up to the
// CLI boundary.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err tagged with code, or nil when err is nil.
func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// Code extracts the exit code from err, defaulting to Validation.
func Code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Validation
}
