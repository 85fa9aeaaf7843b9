// Package apierr carries an HTTP status and a stable machine-readable
// code alongside the underlying error. Services return these; the
// handler layer maps anything else to a 500.
package apierr

import "fmt"

// Error is a service-level failure with its intended HTTP mapping.
// Code is the value clients branch on, so it never changes once
// published.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}
