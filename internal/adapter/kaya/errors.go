package kaya

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAuthRetriesExhausted is returned when a request kept coming back
// unauthorized after the allowed number of token refreshes.
var ErrAuthRetriesExhausted = errors.New("kaya: auth retries exhausted")

// AuthError indicates the token refresh protocol itself failed.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("kaya: token refresh failed: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// HTTPError is a non-auth HTTP failure. It is not retried by the client; the
// sync engine retries at the page level.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("kaya: unexpected status %d: %s", e.StatusCode, e.Body)
}

// TransportError is a network-level failure (connection reset, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("kaya: request failed: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "kaya: graphql errors: " + strings.Join(e.Messages, "; ")
}
