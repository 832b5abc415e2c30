package services

import "fmt"

const (
	ReasonMissingCredential = "missing_credential"
	ReasonUnavailable       = "unavailable"
	ReasonUpstream          = "upstream"
	ReasonEmptyResponse     = "empty_response"
)

// ProviderError is any failure of the completion provider. It aborts the
// turn before anything is written to history.
type ProviderError struct {
	Reason string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return "completion provider: " + e.Reason
	}
	return fmt.Sprintf("completion provider: %s: %v", e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
