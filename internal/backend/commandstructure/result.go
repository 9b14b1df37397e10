package commandstructure

import (
	"errors"
)

// Status tags a Result as success or failure.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result is the outcome of one operation: either an encoded image or an
// error kind plus message, never both and never partial.
type Result struct {
	Status  Status
	Image   []byte
	Kind    ErrorKind
	Message string
}

// Success wraps the produced image.
func Success(image []byte) Result {
	return Result{Status: StatusOK, Image: image}
}

// Failure builds an error result.
func Failure(kind ErrorKind, message string) Result {
	return Result{Status: StatusError, Kind: kind, Message: message}
}

// FailureFromError converts err into an error result. An *OperationError
// anywhere in the chain supplies kind and message; otherwise fallback is
// used as the kind and err's text as the message.
func FailureFromError(err error, fallback ErrorKind) Result {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return Failure(opErr.Kind, opErr.Message)
	}
	return Failure(fallback, err.Error())
}

// OK reports whether the result carries an image.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Err returns nil for a successful result and an *OperationError otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &OperationError{Kind: r.Kind, Message: r.Message}
}
