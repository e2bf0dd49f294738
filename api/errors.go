package api

import "fmt"

// TransportError reports a network-level failure or a non-2xx response the
// server gave no explanation for. Status is zero when the request never
// reached the server.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("server responded with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DomainError reports an operation the server explicitly rejected.
// Message is the server-supplied explanation.
type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// DecodeError reports malformed or incomplete JSON in a response body,
// including responses missing required fields.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
