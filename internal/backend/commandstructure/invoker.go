package commandstructure

import (
	"fmt"
	"log/slog"
	"time"
)

// Invoke runs the named operation from the default registry.
func Invoke(name string, imageData []byte, params map[string]any) Result {
	return DefaultRegistry.Invoke(name, imageData, params)
}

// Invoke creates the named command with params and executes it on imageData.
// Every failure, including a panic raised by a codec, is returned as an
// error Result; Invoke itself never panics.
func (r *CommandRegistry) Invoke(name string, imageData []byte, params map[string]any) (result Result) {
	start := time.Now()

	command, err := r.Create(name, params)
	if err != nil {
		slog.Error("failed to create command", "command_name", name, "error", err)
		return Failure(ArgumentError, err.Error())
	}

	slog.Info("executing command",
		"command_name", command.Name(),
		"input_size_bytes", len(imageData))

	kind := EncodeError
	if k, ok := command.(FailureKinder); ok {
		kind = k.FailureKind()
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("command panicked",
				"command_name", command.Name(),
				"panic", rec,
				"input_size_bytes", len(imageData))
			result = Failure(kind, fmt.Sprintf("%s panicked: %v", command.Name(), rec))
		}
	}()

	out, err := command.Execute(imageData)
	if err != nil {
		slog.Error("command execution failed",
			"command_name", command.Name(),
			"error", err,
			"input_size_bytes", len(imageData))
		return FailureFromError(err, kind)
	}

	slog.Info("command completed",
		"command_name", command.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
		"input_size_bytes", len(imageData),
		"output_size_bytes", len(out))

	return Success(out)
}
