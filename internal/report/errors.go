package report

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a report could not be produced.
type ErrorKind string

const (
	KindInvalidRequest     ErrorKind = "InvalidRequest"
	KindInvalidDataSource  ErrorKind = "InvalidDataSource"
	KindInvalidField       ErrorKind = "InvalidField"
	KindUnsupportedFormula ErrorKind = "UnsupportedFormula"
	KindInvalidAlias       ErrorKind = "InvalidAlias"
	KindInvalidJoinType    ErrorKind = "InvalidJoinType"
	KindInvalidFilter      ErrorKind = "InvalidFilter"
	KindInvalidSort        ErrorKind = "InvalidSort"
	KindInvalidPagination  ErrorKind = "InvalidPagination"
	KindMissingTenant      ErrorKind = "MissingTenant"
	KindCompile            ErrorKind = "CompileError"
	KindDatabaseExecution  ErrorKind = "DatabaseExecutionError"
)

// Error is a report failure with a user-displayable message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// IsValidation reports whether the error was raised before any database call.
func (e *Error) IsValidation() bool {
	return e.Kind != KindDatabaseExecution && e.Kind != KindCompile
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// DatabaseExecutionError wraps a failure of the database collaborator. Only
// the driver's message is kept.
type DatabaseExecutionError struct {
	Message string
	cause   error
}

func (e *DatabaseExecutionError) Error() string { return e.Message }

func (e *DatabaseExecutionError) Unwrap() error { return e.cause }

// defaultFailureMessage is used when the driver error carries no message.
const defaultFailureMessage = "Report execution failed"

func newDatabaseError(err error) *DatabaseExecutionError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = defaultFailureMessage
	}
	return &DatabaseExecutionError{Message: msg, cause: err}
}

// KindOf returns the kind of err, or "" when err is not a report error.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	var de *DatabaseExecutionError
	if errors.As(err, &de) {
		return KindDatabaseExecution
	}
	return ""
}
