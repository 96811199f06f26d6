package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is returned when the provider rejects the configured credentials (HTTP 401).
	ErrAuthentication = errors.New("authentication failed: credentials rejected")

	// ErrTransport covers timeouts, connection failures and undecodable bodies.
	ErrTransport = errors.New("transport failure")

	// ErrCircuitOpen means the provider call was short-circuited after repeated failures.
	ErrCircuitOpen = errors.New("provider circuit open")

	// ErrEmptyResult marks a well-formed response that carried no records.
	ErrEmptyResult = errors.New("empty result")

	// ErrMalformedRecord is returned for state arrays that break the positional contract.
	ErrMalformedRecord = errors.New("malformed state record")

	// ErrNoData is returned once every retry attempt has failed.
	ErrNoData = errors.New("no data available")
)

// ProviderError is a non-2xx, non-401 response from the provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// RecordError locates a malformed record inside a snapshot.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("state %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Failure kinds used as metric labels and log attributes.
const (
	KindAuthentication = "auth_failure"
	KindProvider       = "provider_error"
	KindTransport      = "transport_failure"
	KindCircuitOpen    = "circuit_open"
	KindEmptyResult    = "empty_result"
	KindUnknown        = "unknown"
)

// Classify maps an error from the fetch path onto its failure kind.
func Classify(err error) string {
	var perr *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	case errors.As(err, &perr):
		return KindProvider
	case errors.Is(err, ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrEmptyResult):
		return KindEmptyResult
	default:
		return KindUnknown
	}
}
