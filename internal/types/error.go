package types

import (
	"errors"
	"net/http"
)

// StatusError pairs an error with the HTTP status of the page that reports it.
type StatusError struct {
	Error  error
	Status int
}

func (e StatusError) Unwrap() error {
	return e.Error
}

func (e StatusError) HTTPStatus() int {
	return e.Status
}

func (e StatusError) StatusText() string {
	return http.StatusText(e.Status)
}

// Message is what the error page shows. Internal errors are never echoed to the visitor.
func (e StatusError) Message() string {
	if e.Status >= http.StatusInternalServerError {
		return "Something went wrong on our side. Please try again."
	}
	if e.Error == nil {
		return http.StatusText(e.Status)
	}
	return e.Error.Error()
}

func NewStatusError(err error, status int) StatusError {
	return StatusError{
		Error:  err,
		Status: status,
	}
}

var (
	ErrPageNotFound = errors.New("the page you are looking for does not exist")
	ErrForbidden    = errors.New("you are not allowed to change this post")
)

func NotFound() StatusError {
	return NewStatusError(ErrPageNotFound, http.StatusNotFound)
}

func Forbidden() StatusError {
	return NewStatusError(ErrForbidden, http.StatusForbidden)
}

func Internal(err error) StatusError {
	return NewStatusError(err, http.StatusInternalServerError)
}
