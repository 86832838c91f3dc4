package client

import "fmt"

// ErrUnexpectedStatus is returned when a mirror answers with a non-200 status
type ErrUnexpectedStatus struct {
	URL        string
	StatusCode int
}

// Error implements the error interface
func (e *ErrUnexpectedStatus) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// Is allows for error checking with errors.Is()
func (e *ErrUnexpectedStatus) Is(target error) bool {
	_, ok := target.(*ErrUnexpectedStatus)
	return ok
}

// ErrRequestRejected is returned when the CDN endpoint answers success=false
type ErrRequestRejected struct {
	Action  string
	Message string
}

// Error implements the error interface
func (e *ErrRequestRejected) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s rejected: %s", e.Action, e.Message)
	}
	return fmt.Sprintf("%s rejected", e.Action)
}

// Is allows for error checking with errors.Is()
func (e *ErrRequestRejected) Is(target error) bool {
	_, ok := target.(*ErrRequestRejected)
	return ok
}
