package remote

import (
	"fmt"
	"strings"
)

// FetchError is a failed list request: a transport failure, a non-2xx
// response, or a body that could not be normalized.
type FetchError struct {
	Resource string
	Status   int
	Body     string
	Err      error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0:
		body := strings.TrimSpace(e.Body)
		if body == "" && e.Err != nil {
			body = e.Err.Error()
		}
		return fmt.Sprintf("failed to fetch %s: %d %s", e.Resource, e.Status, body)
	case e.Err != nil:
		return fmt.Sprintf("failed to fetch %s: %v", e.Resource, e.Err)
	default:
		return fmt.Sprintf("failed to fetch %s", e.Resource)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MutationError is a failed status change, premium toggle or delete.
type MutationError struct {
	Op       string
	EntityID string
	Status   int
	Message  string
	Err      error
}

func (e *MutationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.EntityID, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.EntityID, msg)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// ParseError is a response body that matches none of the accepted shapes.
type ParseError struct {
	Reason string
	Body   string
}

func (e *ParseError) Error() string {
	return "parse response: " + e.Reason
}
