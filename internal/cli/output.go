package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes follow the pipeline convention: 0 on a clean validation,
// 1 when validation produced diagnostics, 2 for operational errors
// (bad flags, unreadable files, broken stores).
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ExitError pairs an error with the process exit code it should
// produce. Commands return it from RunE instead of calling os.Exit
// so tests can assert on codes.
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

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an underlying error with an exit code and context.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Nil means success;
// a non-ExitError defaults to ExitCommandError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// Response is the JSON envelope emitted in --format json mode.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// Error carries a machine-readable code alongside the human message.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OutputFormatter renders command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// NewOutputFormatter creates a formatter for the given format and writers.
func NewOutputFormatter(format string, out, errOut io.Writer, verbose bool) *OutputFormatter {
	return &OutputFormatter{
		Format:    format,
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   verbose,
	}
}

// Success emits a success payload. In text mode data is expected to be
// a pre-rendered string; anything else falls back to fmt formatting.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return f.writeJSON(Response{Status: "success", Data: data})
	}
	if s, ok := data.(string); ok {
		_, err := fmt.Fprintln(f.Writer, s)
		return err
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Failure emits an error payload to the error writer.
func (f *OutputFormatter) Failure(code, message string, details interface{}) error {
	if f.Format == "json" {
		return f.writeJSON(Response{
			Status: "error",
			Error:  &Error{Code: code, Message: message, Details: details},
		})
	}
	_, err := fmt.Fprintf(f.ErrWriter, "error: %s\n", message)
	return err
}

// VerboseLog writes a progress line to the error writer when verbose
// mode is on. JSON mode suppresses it to keep stdout parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose || f.Format == "json" {
		return
	}
	fmt.Fprintf(f.ErrWriter, format+"\n", args...)
}

func (f *OutputFormatter) writeJSON(resp Response) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
