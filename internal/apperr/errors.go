// Package apperr carries typed errors from the engine to the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeBadRequest       Code = "BAD_REQUEST"
	CodeStoreFailure     Code = "STORE_FAILURE"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeInternal         Code = "INTERNAL_ERROR"
)

type AppError struct {
	Code     Code   `json:"code"`
	Message  string `json:"message"`
	Details  any    `json:"details,omitempty"`
	Err      error  `json:"-"`
	HTTPCode int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func New(code Code, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, HTTPCode: httpCode}
}

func Wrap(err error, code Code, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, Err: err, HTTPCode: httpCode}
}

// Validation is a client input error; it is never retried.
func Validation(message string, details any) *AppError {
	return New(CodeValidationFailed, message, http.StatusBadRequest).WithDetails(details)
}

func BadRequest(message string, err error) *AppError {
	return Wrap(err, CodeBadRequest, message, http.StatusBadRequest)
}

// StoreFailure reports a failed collaborator call. It is distinct from an
// empty result, which is not an error at all.
func StoreFailure(op string, err error) *AppError {
	return Wrap(err, CodeStoreFailure, "cutoff store query failed: "+op, http.StatusInternalServerError).
		WithDetails(map[string]any{"operation": op, "cause": errString(err)})
}

func StoreUnavailable(op string, err error) *AppError {
	return Wrap(err, CodeStoreUnavailable, "cutoff store temporarily unavailable", http.StatusServiceUnavailable).
		WithDetails(map[string]any{"operation": op})
}

// From converts any error into an AppError, defaulting to 500.
func From(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(err, CodeInternal, "internal error", http.StatusInternalServerError)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
