package commandstructure

import "fmt"

// ErrorKind classifies why an operation failed.
type ErrorKind string

const (
	// DecodeError reports malformed or unsupported input image data.
	DecodeError ErrorKind = "DecodeError"
	// FrameError reports a frame-level decode failure after the header was read.
	FrameError ErrorKind = "FrameError"
	// EncodeError reports a failure of the output codec.
	EncodeError ErrorKind = "EncodeError"
	// OptimizationError reports a failure inside the lossless PNG optimizer.
	OptimizationError ErrorKind = "OptimizationError"
	// ArgumentError reports call parameters that are missing or malformed.
	ArgumentError ErrorKind = "ArgumentError"
)

// OperationError is the error returned by commands. Message is what callers
// see; Err keeps the underlying library error for errors.Is / errors.As.
type OperationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return e.Message
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError builds an OperationError whose message is prefix followed
// by the verbatim text of err. An empty prefix keeps err's text unchanged.
func NewOperationError(kind ErrorKind, prefix string, err error) *OperationError {
	msg := prefix
	switch {
	case err != nil && prefix != "":
		msg = fmt.Sprintf("%s: %v", prefix, err)
	case err != nil:
		msg = err.Error()
	}
	return &OperationError{Kind: kind, Message: msg, Err: err}
}

// NewArgumentError wraps a parameter validation failure.
func NewArgumentError(err error) *OperationError {
	return NewOperationError(ArgumentError, "", err)
}
