package posti

import "fmt"

// AuthError means the login handshake failed at some hop: either the hop
// returned an unexpected status, or an expected token could not be
// extracted from the response.
type AuthError struct {
	Hop    string
	Status int
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("posti auth: %s: %s", e.Hop, e.Reason)
	}
	return fmt.Sprintf("posti auth: %s: status %d is not valid", e.Hop, e.Status)
}

// APIError kinds.
const (
	APIErrorKindStatus = "status"
	APIErrorKindParse  = "parse"
)

// APIError means the query endpoint returned an unexpected non-200,
// non-401 status, or a 200 body without a "data" member.
type APIError struct {
	Status int
	Kind   string
}

func (e *APIError) Error() string {
	if e.Kind == APIErrorKindParse {
		return fmt.Sprintf("posti api: malformed response body (status %d)", e.Status)
	}
	return fmt.Sprintf("posti api: status %d is not valid", e.Status)
}

// TimeoutError means an HTTP call did not complete within the configured
// timeout.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("posti: timeout during %s", e.Op)
}

// CommunicationError covers every other transport failure.
type CommunicationError struct {
	Detail string
	Err    error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("posti: communication error %s: %v", e.Detail, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }
