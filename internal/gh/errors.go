package gh

import (
	"errors"
	"fmt"
)

var (
	// ErrNoToken indicates no credential is available; no request was sent.
	ErrNoToken = errors.New("no authentication token found")
	// ErrInvalidURL indicates a malformed endpoint URL.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrInvalidResponse covers non-2xx responses, unparsable bodies and GraphQL-level errors.
	ErrInvalidResponse = errors.New("invalid response from GitHub API")
	// ErrNetwork indicates a transport-level failure (DNS, TLS, timeout, connection refused).
	ErrNetwork = errors.New("network error")
	// ErrUnknown wraps any other failure.
	ErrUnknown = errors.New("unknown error")
)

// GraphQLError is returned when a response carries a top-level "errors" array,
// even on HTTP 200. It matches ErrInvalidResponse under errors.Is.
type GraphQLError struct {
	Message string
}

func (e *GraphQLError) Error() string {
	return "graphql error: " + e.Message
}

// Is makes GraphQL errors count as invalid responses.
func (e *GraphQLError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// StatusError is a non-2xx HTTP response. It matches ErrInvalidResponse under errors.Is.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned HTTP %d", e.Code)
}

// Is makes status errors count as invalid responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// Classify maps an arbitrary error onto the API taxonomy. Errors that already
// carry a taxonomy sentinel pass through unchanged; anything else is wrapped in ErrUnknown.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNoToken, ErrInvalidURL, ErrInvalidResponse, ErrNetwork, ErrUnknown} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrUnknown, err)
}
