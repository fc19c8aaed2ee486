package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

var (
	// ErrNetworkFailure matches any NetworkError via errors.Is.
	ErrNetworkFailure = errors.New("network failure")

	// ErrParseFailure matches any ParseError via errors.Is.
	ErrParseFailure = errors.New("parse failure")

	// ErrEmptyResult is returned when a response decodes but yields no usable records.
	ErrEmptyResult = errors.New("empty result")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)

// NetworkError represents an outbound request that could not complete
// (DNS, refused connection, timeout, non-2xx status).
type NetworkError struct {
	Op  string // Operation that failed (e.g., "fetch", "read")
	Err error  // Underlying error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return true
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetworkFailure
}

// NewNetworkError creates a new network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// ParseError represents a body that could not be decoded into the expected shape.
type ParseError struct {
	Shape string // Provider shape being decoded
	Err   error
}

func (e *ParseError) Error() string {
	return "parse " + e.Shape + ": " + e.Err.Error()
}

func (e *ParseError) IsRetriable() bool {
	return true
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailure
}

// EmptyResultError is returned when decoding succeeds but nothing is usable.
type EmptyResultError struct {
	Shape string
}

func (e *EmptyResultError) Error() string {
	return "empty result from " + e.Shape
}

func (e *EmptyResultError) IsRetriable() bool {
	return true
}

func (e *EmptyResultError) Is(target error) bool {
	return target == ErrEmptyResult
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Error kinds reported by Kind.
const (
	KindNetwork = "network"
	KindParse   = "parse"
	KindEmpty   = "empty"
	KindConfig  = "config"
	KindUnknown = "unknown"
)

// Kind maps an error to its taxonomy name for logs and metrics.
func Kind(err error) string {
	var cfgErr *ConfigError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetworkFailure):
		return KindNetwork
	case errors.Is(err, ErrParseFailure):
		return KindParse
	case errors.Is(err, ErrEmptyResult):
		return KindEmpty
	case errors.As(err, &cfgErr):
		return KindConfig
	default:
		return KindUnknown
	}
}
