package commandstructure

// Command defines the interface for all image operations. A command is
// bound to its per-call parameters by its factory; Execute consumes the
// encoded input image and returns the encoded output image.
type Command interface {
	Name() string
	Execute(imageData []byte) ([]byte, error)
}

// FailureKinder is implemented by commands that report the error kind used
// when Execute fails without returning an *OperationError (e.g. a codec panic).
type FailureKinder interface {
	FailureKind() ErrorKind
}

// CommandFactory is a function type that creates a command from call parameters
type CommandFactory func(params map[string]any) (Command, error)
