package apperrors

import (
	"errors"
	"fmt"
)

// ErrNoQueryProvided is returned when a request carries an empty search query.
type ErrNoQueryProvided struct{}

// Error implements the error interface.
func (e *ErrNoQueryProvided) Error() string {
	return "no query provided"
}

// Is allows for error checking with errors.Is().
func (e *ErrNoQueryProvided) Is(target error) bool {
	_, ok := target.(*ErrNoQueryProvided)
	return ok
}

// ErrResolutionExhausted is returned when every mirror failed or returned no results.
type ErrResolutionExhausted struct {
	Query    string
	Attempts int
	Cause    error
}

// Error implements the error interface.
func (e *ErrResolutionExhausted) Error() string {
	return fmt.Sprintf("failed to find content on any mirror for %q (%d attempts)", e.Query, e.Attempts)
}

// Is allows for error checking with errors.Is().
func (e *ErrResolutionExhausted) Is(target error) bool {
	_, ok := target.(*ErrResolutionExhausted)
	return ok
}

// Unwrap returns the joined per-mirror failures.
func (e *ErrResolutionExhausted) Unwrap() error {
	return e.Cause
}

// NewResolutionExhaustedError joins the per-mirror causes into one error.
func NewResolutionExhaustedError(query string, causes []error) *ErrResolutionExhausted {
	return &ErrResolutionExhausted{
		Query:    query,
		Attempts: len(causes),
		Cause:    errors.Join(causes...),
	}
}

// ErrNoMatchFound is returned when no search candidate matches the requested content type.
type ErrNoMatchFound struct {
	Query       string
	ContentType string
}

// Error implements the error interface.
func (e *ErrNoMatchFound) Error() string {
	return fmt.Sprintf("no %s found for %q", e.ContentType, e.Query)
}

// Is allows for error checking with errors.Is().
func (e *ErrNoMatchFound) Is(target error) bool {
	_, ok := target.(*ErrNoMatchFound)
	return ok
}

// ErrSeasonNotFound is returned when a series has no such season.
type ErrSeasonNotFound struct {
	Season int
}

// Error implements the error interface.
func (e *ErrSeasonNotFound) Error() string {
	return fmt.Sprintf("season %d not found", e.Season)
}

// Is allows for error checking with errors.Is().
func (e *ErrSeasonNotFound) Is(target error) bool {
	_, ok := target.(*ErrSeasonNotFound)
	return ok
}

// ErrStreamResolutionFailed wraps any upstream failure while extracting a stream URL.
type ErrStreamResolutionFailed struct {
	Cause error
}

// Error implements the error interface.
func (e *ErrStreamResolutionFailed) Error() string {
	if e.Cause == nil {
		return "stream resolution failed"
	}
	return fmt.Sprintf("stream resolution failed: %v", e.Cause)
}

// Is allows for error checking with errors.Is().
func (e *ErrStreamResolutionFailed) Is(target error) bool {
	_, ok := target.(*ErrStreamResolutionFailed)
	return ok
}

func (e *ErrStreamResolutionFailed) Unwrap() error {
	return e.Cause
}

// ErrUpstreamUnavailable is returned when the media host cannot be probed or fetched.
type ErrUpstreamUnavailable struct {
	URL        string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *ErrUpstreamUnavailable) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("upstream unavailable at %s: %v", e.URL, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream unavailable at %s: status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("upstream unavailable at %s", e.URL)
	}
}

// Is allows for error checking with errors.Is().
func (e *ErrUpstreamUnavailable) Is(target error) bool {
	_, ok := target.(*ErrUpstreamUnavailable)
	return ok
}

func (e *ErrUpstreamUnavailable) Unwrap() error {
	return e.Cause
}

// ErrInvalidRange is returned for a malformed Range header or one outside the resource.
// Unsatisfiable is set when the syntax was valid but the bounds were not.
type ErrInvalidRange struct {
	Header        string
	Total         int64
	Unsatisfiable bool
	Reason        string
}

// Error implements the error interface.
func (e *ErrInvalidRange) Error() string {
	return fmt.Sprintf("invalid range %q: %s", e.Header, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrInvalidRange) Is(target error) bool {
	_, ok := target.(*ErrInvalidRange)
	return ok
}

// ErrInvalidFilename is returned when a static file name tries to escape its directory.
type ErrInvalidFilename struct {
	Filename string
}

// Error implements the error interface.
func (e *ErrInvalidFilename) Error() string {
	return fmt.Sprintf("invalid filename %q", e.Filename)
}

// Is allows for error checking with errors.Is().
func (e *ErrInvalidFilename) Is(target error) bool {
	_, ok := target.(*ErrInvalidFilename)
	return ok
}

// ErrInvalidParameter is returned when a request parameter is missing or malformed.
type ErrInvalidParameter struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Name, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrInvalidParameter) Is(target error) bool {
	_, ok := target.(*ErrInvalidParameter)
	return ok
}

// ErrNotFound represents an error when a requested resource is not found.
type ErrNotFound struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *ErrNotFound) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows for error checking with errors.Is().
func (e *ErrNotFound) Is(target error) bool {
	_, ok := target.(*ErrNotFound)
	return ok
}

// NewNotFoundError creates a new ErrNotFound.
func NewNotFoundError(resource string, id interface{}) *ErrNotFound {
	return &ErrNotFound{
		Resource: resource,
		ID:       id,
	}
}
