package api

import (
	"errors"
	"fmt"

	cbastrings "github.com/mozaika228/codebaseagent/internal/strings"
)

// Error families, matchable with errors.Is.
var (
	ErrTransport = errors.New("transport failure")
	ErrStatus    = errors.New("unexpected response status")
	ErrContract  = errors.New("response contract violation")
)

// TransportError wraps a failure to reach the service at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// StatusError reports a non-2xx response. Detail comes from a
// {"detail": ...} body when the service sends one.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Detail)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// ContractError reports a response that is not the expected JSON shape.
type ContractError struct {
	Op    string
	Field string // empty when the body did not decode at all
	Err   error
}

func (e *ContractError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: response missing %q", e.Op, e.Field)
	}
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *ContractError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrContract}
	}
	return []error{ErrContract, e.Err}
}

// Diagnostic renders err as the short text shown on the status line.
func Diagnostic(err error) string {
	var statusErr *StatusError
	var contractErr *ContractError
	var transportErr *TransportError

	switch {
	case errors.As(err, &statusErr):
		if statusErr.Detail != "" {
			return fmt.Sprintf("HTTP %d: %s", statusErr.StatusCode, statusErr.Detail)
		}
		return fmt.Sprintf("HTTP %d", statusErr.StatusCode)
	case errors.As(err, &contractErr):
		if contractErr.Field != "" {
			return fmt.Sprintf("invalid response: missing %s", contractErr.Field)
		}
		if contractErr.Err != nil {
			return "invalid response: " + cbastrings.Truncate(contractErr.Err.Error(), maxDetailLen)
		}
		return "invalid response: not a JSON object"
	case errors.As(err, &transportErr):
		return fmt.Sprintf("service unreachable: %v", transportErr.Err)
	case err != nil:
		return err.Error()
	default:
		return ""
	}
}
