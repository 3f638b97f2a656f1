package common

import (
	"errors"
	"fmt"
	"strings"
)

// Exit statuses for the CLI. Zero is success.
const (
	ExitOK          = 0
	ExitConfig      = 2
	ExitSource      = 3
	ExitComputation = 4
)

// ErrEmptySnapshot is returned by a provider that answered without rows.
var ErrEmptySnapshot = errors.New("empty response")

// Error kinds reported in meta.error_kind
const (
	KindConfig      = "config"
	KindSource      = "source"
	KindComputation = "computation"
)

// ConfigError is an invalid scope, malformed params or unusable configuration.
// It is always raised before any network access.
type ConfigError struct {
	Field   string
	Message string
	Detail  string
}

func (e *ConfigError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// ProviderFailure records why one provider attempt was abandoned.
type ProviderFailure struct {
	Provider string
	Err      error
}

func (f ProviderFailure) String() string {
	return fmt.Sprintf("[%s] %v", f.Provider, f.Err)
}

// SourceError means every configured provider failed for a scope.
type SourceError struct {
	Scope    string
	Failures []ProviderFailure
}

func (e *SourceError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("all data sources failed for %s: no providers attempted", e.Scope)
	}
	return fmt.Sprintf("all data sources failed for %s: %s", e.Scope, strings.Join(e.Causes(), "; "))
}

// Causes returns one "[provider] cause" line per failed attempt, in rank order.
func (e *SourceError) Causes() []string {
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.String()
	}
	return out
}

func (e *SourceError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// ComputationError is an unrecoverable failure while building the summary.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed in %s: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// ErrorKind classifies err for meta.error_kind. Unclassified errors are
// reported as computation errors.
func ErrorKind(err error) string {
	var cfgErr *ConfigError
	var srcErr *SourceError
	switch {
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &srcErr):
		return KindSource
	default:
		return KindComputation
	}
}

// ExitCode maps err onto the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch ErrorKind(err) {
	case KindConfig:
		return ExitConfig
	case KindSource:
		return ExitSource
	default:
		return ExitComputation
	}
}

// PublicMessage is the string placed in the document's error field.
// Config errors report only their message; the detail goes to meta.
func PublicMessage(err error) string {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Message
	}
	return err.Error()
}

// ErrorDetail returns supplementary detail for meta.error_detail, if any.
func ErrorDetail(err error) string {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Detail
	}
	return ""
}
