// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package apierr provides the error taxonomy for the campdir API.

Every failure that reaches a request handler is one of the kinds below and
is reported exactly once, as {"success":false,"error":message} with the
matching HTTP status code.
*/
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// Kind classifies an API failure.
type Kind int

// the supported failure kinds
const (
	BadRequest Kind = iota
	Unauthorized
	Forbidden
	NotFound
	Conflict
	UpstreamFailure
	InternalError
)

// Error is an API error with a failure kind and a human readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind which wraps a cause. The cause is
// logged, the message is what the client gets to see.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the failure kind of err. Errors which are not API errors
// are classified as InternalError.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalError
}

// Status returns the HTTP status code for err.
func Status(err error) int {
	switch KindOf(err) {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case UpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-visible message for err. Internal errors are
// masked, their cause belongs into the log and not onto the wire.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != InternalError {
		return e.Message
	}
	return "server error"
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type dataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// WriteError writes err as the uniform error envelope.
func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(Status(err))
	jsonData, _ := json.Marshal(errorResponse{Success: false, Error: Message(err)})
	w.Write(jsonData)
}

// WriteData writes a single-item success envelope with the given status code.
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, dataResponse{Success: true, Data: data})
}

// WriteJSON writes an arbitrary object as JSON response.
func WriteJSON(w http.ResponseWriter, status int, object interface{}) {
	jsonData, err := json.MarshalWithOption(object, json.DisableHTMLEscape())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}
