package client

import (
	"errors"
	"fmt"
)

// ErrNotSignedIn is returned before any request when the client holds no session
var ErrNotSignedIn = errors.New("not signed in")

// NetworkError is a transport failure or a response the server marked unsuccessful
type NetworkError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NotFoundError is a 404 from the API
type NotFoundError struct {
	Path    string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Path)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
