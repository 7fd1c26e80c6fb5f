// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. Every kind maps onto one process exit status, so the
// command layer can turn any classified failure into the right exit code without
// inspecting messages.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Argument indicates malformed user input (flags, coercion, validation).
	Argument Kind = "argument"
	// Preprocess indicates a failure while reading options before the main parse.
	Preprocess Kind = "preprocess"
	// Internal indicates an unexpected failure with no better category.
	Internal Kind = "internal"
	// Output indicates the result could not be rendered in the requested format.
	Output Kind = "output"
	// Input indicates a records file could not be read.
	Input Kind = "input"
	// Authentication indicates rejected credentials.
	Authentication Kind = "authentication"
	// UnknownModel indicates a model name the server does not know.
	UnknownModel Kind = "unknown_model"
	// Dispatch indicates a failure inside a model operation that is neither a fault nor a protocol error.
	Dispatch Kind = "dispatch"
	// Fault indicates an application-level error returned by the server.
	Fault Kind = "fault"
	// Protocol indicates a transport-level failure talking to the server.
	Protocol Kind = "protocol"
	// Interrupted indicates the user aborted the operation.
	Interrupted Kind = "interrupted"
)

// Exit statuses shared by the whole program.
const (
	CodeOK             = 0
	CodeArgument       = 1
	CodePreprocess     = 2
	CodeInternal       = 5
	CodeOutput         = 6
	CodeInput          = 7
	CodeFatal          = 10
	CodeUnknownModel   = 20
	CodeDispatch       = 30
	CodeFault          = 100
	CodeProtocol       = 200
	CodeInterrupted    = 250
	CodeAuthentication = CodeFatal
)

var codes = map[Kind]int{
	Argument:       CodeArgument,
	Preprocess:     CodePreprocess,
	Internal:       CodeInternal,
	Output:         CodeOutput,
	Input:          CodeInput,
	Authentication: CodeAuthentication,
	UnknownModel:   CodeUnknownModel,
	Dispatch:       CodeDispatch,
	Fault:          CodeFault,
	Protocol:       CodeProtocol,
	Interrupted:    CodeInterrupted,
}

// Code returns the exit status associated with the kind.
func (k Kind) Code() int {
	if c, ok := codes[k]; ok {
		return c
	}
	return CodeInternal
}

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *E {
	return &E{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of the first *E in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *E
	return stderrors.As(err, &e) && e.Kind == kind
}
