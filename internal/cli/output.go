package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for syncctl.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the job ran and failed
	ExitCommandError = 2 // bad flags, configuration or backend
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that are not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope of every command result.
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// writeResult prints data as a JSON envelope or through text. A non-nil
// jobErr is reported in the envelope and returned as ExitFailure.
func writeResult(w io.Writer, format string, data any, jobErr error, text func(io.Writer)) error {
	if format == "json" {
		resp := Response{Status: "ok", Data: data}
		if jobErr != nil {
			resp.Status = "error"
			resp.Error = jobErr.Error()
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else if text != nil {
		text(w)
	}

	if jobErr != nil {
		return WrapExitError(ExitFailure, "job failed", jobErr)
	}
	return nil
}
