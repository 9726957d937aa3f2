package server

import (
	"errors"
	"fmt"

	"github.com/vctt94/pokerreferee/pkg/server/internal/db"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode classifies a failure reported to the caller of an action.
type ErrorCode string

const (
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
	CodeInvalidParams    ErrorCode = "INVALID_PARAMS_ERROR"
	CodeActionDisallowed ErrorCode = "ACTION_DISALLOWED"
	CodePlayerAction     ErrorCode = "PLAYER_ACTION_ERROR"
)

var (
	ErrAccountNotFound     = db.ErrAccountNotFound
	ErrBadCredentials      = db.ErrBadCredentials
	ErrInsufficientBalance = db.ErrInsufficientBalance
	ErrContractNotFound    = errors.New("contract not found")
	ErrNoSession           = errors.New("no active session")
)

// Error is the error returned by Dispatch and the action handlers.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Err     error       `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// GRPCStatus lets a gRPC transport return the error unchanged.
func (e *Error) GRPCStatus() *status.Status {
	var c codes.Code
	switch e.Code {
	case CodeInvalidParams:
		c = codes.InvalidArgument
	case CodeActionDisallowed:
		c = codes.FailedPrecondition
	case CodePlayerAction:
		c = codes.Aborted
	default:
		c = codes.Internal
	}
	return status.New(c, e.Message)
}

func newError(code ErrorCode, err error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

func errInternal(err error, format string, args ...interface{}) *Error {
	return newError(CodeInternal, err, format, args...)
}

func errInvalidParams(err error, format string, args ...interface{}) *Error {
	return newError(CodeInvalidParams, err, format, args...)
}

func errDisallowed(err error, format string, args ...interface{}) *Error {
	return newError(CodeActionDisallowed, err, format, args...)
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
