// Package apperr holds the error values shared by the client and the workflow packages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrTitleRequired   = errors.New("Title is required")
	ErrNotImage        = errors.New("Please select a valid image file")
	ErrImageTooLarge   = errors.New("Image size must be less than 5MB")
	ErrSaveBlocked     = errors.New("save is not available")
	ErrUploadBlocked   = errors.New("an upload is already in progress")
	ErrNoPendingDelete = errors.New("no delete awaiting confirmation")
	ErrDeleteInFlight  = errors.New("a delete is already in progress")
)

// APIError is a non-2xx response from the notes API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is reports 404 responses as ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// NewAPIError builds an APIError, falling back to a generic message when the
// server sent none.
func NewAPIError(status int, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("request failed with status code %d", status)
	}
	return &APIError{StatusCode: status, Message: message}
}

// Message returns the text shown to users for err: the server's message for
// API errors, err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
