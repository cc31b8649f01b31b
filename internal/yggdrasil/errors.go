package yggdrasil

import (
	"errors"
	"fmt"
)

var ErrNoProviders = errors.New("at least one provider must be configured")

// MalformedIdentifierError occurs when an identifier received from a provider
// can't be decoded into UUID
type MalformedIdentifierError struct {
	Value  string
	Reason string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed identifier \"%s\": %s", e.Value, e.Reason)
}

// MalformedResponseError occurs when a required field of a provider's response
// is missing or has an unexpected type
type MalformedResponseError struct {
	Field  string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	if e.Field == "" {
		return "malformed response: " + e.Reason
	}

	return fmt.Sprintf("malformed response field \"%s\": %s", e.Field, e.Reason)
}

// When passed request params are invalid, Yggdrasil returns 400 Bad Request error
type BadRequestError struct {
	ErrorType string
	Message   string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("400 %s: %s", e.ErrorType, e.Message)
}

// Some providers protect their API with a firewall and respond with 403 to the suspicious clients
type ForbiddenError struct {
}

func (*ForbiddenError) Error() string {
	return "403: Forbidden"
}

// When you exceed the set limit of requests, this error will be returned
type TooManyRequestsError struct {
}

func (*TooManyRequestsError) Error() string {
	return "429: Too Many Requests"
}

// ServerError happens when provider's API returns any response with 50* status
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, "Server error")
}
