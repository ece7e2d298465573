package fgs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Client is the FunctionGraph API surface the reconcilers depend on. Every
// failure is an *APIError.
type Client interface {
	GetFunction(ctx context.Context, urn string) (*FunctionRecord, error)
	CreateFunction(ctx context.Context, req *FunctionRequest) (*FunctionRecord, error)
	UpdateFunction(ctx context.Context, urn string, req *FunctionRequest) (*FunctionRecord, error)
	DeleteFunction(ctx context.Context, urn string) error

	ListTriggers(ctx context.Context, functionURN string) ([]TriggerRecord, error)
	CreateTrigger(ctx context.Context, functionURN string, req *CreateTriggerRequest) (*TriggerRecord, error)
	UpdateTrigger(ctx context.Context, functionURN string, req *UpdateTriggerRequest) (*TriggerRecord, error)
	DeleteTrigger(ctx context.Context, functionURN string, req *DeleteTriggerRequest) error
}

// Operation names used in errors, spans and metrics.
const (
	OpGetFunction    = "get-function"
	OpCreateFunction = "create-function"
	OpUpdateFunction = "update-function"
	OpDeleteFunction = "delete-function"
	OpListTriggers   = "list-triggers"
	OpCreateTrigger  = "create-trigger"
	OpUpdateTrigger  = "update-trigger"
	OpDeleteTrigger  = "delete-trigger"
)

// Error codes FunctionGraph returns for missing functions and triggers.
var notFoundCodes = map[string]bool{
	"FSS.1051": true,
	"FSS.1053": true,
	"FSS.0404": true,
}

// APIError is a failed FunctionGraph call. StatusCode is zero when the
// request never produced a response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"error_msg"`
	RequestID  string `json:"-"`
	Operation  string `json:"-"`
	Err        error  `json:"-"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("fgs %s: %d %s: %s", e.Operation, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("fgs %s: %d: %s", e.Operation, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// HTTPStatus returns the response status, used to classify the error.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// IsNotFound reports whether err is a confirmed absence.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || notFoundCodes[apiErr.Code]
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
