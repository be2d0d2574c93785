package api

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned without touching the network when no bearer
// credential is available.
var ErrUnauthenticated = errors.New("not authenticated")

// NetworkError is a transport failure: unreachable host, timeout or a
// cancelled request.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is any non-2xx response.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP error! status: %d, body: %s", e.Op, e.StatusCode, e.Body)
}

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: error decoding response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsNetwork reports whether err came from the transport rather than the server.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsAuth reports a missing credential or a 401 from the server.
func IsAuth(err error) bool {
	if errors.Is(err, ErrUnauthenticated) {
		return true
	}
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == 401
}
