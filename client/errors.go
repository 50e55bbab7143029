package client

import (
	"errors"
	"fmt"
)

// ErrAPI matches every error returned by the API calls.
var ErrAPI = errors.New("ipfs api call failed")

// APIError describes a failed API call. StatusCode is zero when the
// request did not get any response (e.g. connection refused).
type APIError struct {
	Command    string
	StatusCode int
	Attempts   int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	prefix := fmt.Sprintf("%s: %q", ErrAPI, e.Command)
	if e.Attempts > 1 {
		prefix += fmt.Sprintf(" after %d attempts", e.Attempts)
	}

	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}

	return fmt.Sprintf("%s: http code %d, %s", prefix, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}
