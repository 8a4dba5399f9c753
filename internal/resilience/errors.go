// Package resilience classifies scrape failures and retries transient ones.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// TransientError wraps an error that is safe to retry (e.g., 429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// EnvironmentError marks a failure of the execution environment: a missing
// browser binary, an unreachable source site, an unwritable output path.
// Environment errors abort the run.
type EnvironmentError struct {
	Op  string
	Err error
}

func (e *EnvironmentError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// NewEnvironmentError wraps err as fatal for the whole run.
func NewEnvironmentError(op string, err error) *EnvironmentError {
	if err == nil {
		err = eris.New("unknown failure")
	}
	return &EnvironmentError{Op: op, Err: err}
}

// RecordError marks a failure confined to one entity (a search entry, a
// detail page or a workbook row). The run continues without that entity.
type RecordError struct {
	Entity string
	Err    error
}

func (e *RecordError) Error() string {
	return e.Entity + ": " + e.Err.Error()
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError wraps err as a recoverable failure of the named entity.
func NewRecordError(entity string, err error) *RecordError {
	return &RecordError{Entity: entity, Err: err}
}

// IsFatal reports whether err (or any error in its chain) is an EnvironmentError.
func IsFatal(err error) bool {
	var ee *EnvironmentError
	return errors.As(err, &ee)
}

// IsRecord reports whether err is confined to a single entity.
func IsRecord(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
		"unexpected eof",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// ClassifyError categorizes an error as "fatal", "transient" or "permanent".
func ClassifyError(err error) string {
	switch {
	case IsFatal(err):
		return "fatal"
	case IsTransient(err):
		return "transient"
	default:
		return "permanent"
	}
}
