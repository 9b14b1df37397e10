package commands

import (
	"fmt"
	"log/slog"

	"github.com/alt-ctrl-dev/imagewise/internal/backend/commandstructure"
	"github.com/alt-ctrl-dev/imagewise/internal/pngopt"
)

// MinifyCommandName is the registry key of the minify operation.
const MinifyCommandName = "minify"

// MinifyParams represents typed parameters for the minify command
type MinifyParams struct {
	// Level is the optimizer preset, already clamped to pngopt.MaxPreset.
	Level uint8
	Strip bool
}

// NewMinifyParamsFromMap creates MinifyParams from a generic map. Levels
// above the highest preset are capped rather than rejected.
func NewMinifyParamsFromMap(params map[string]any) (*MinifyParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"level"}); err != nil {
		return nil, err
	}

	level := commandstructure.GetIntParam(params, "level", -1)
	if level < 0 {
		return nil, fmt.Errorf("level must be a non-negative integer, got %v", params["level"])
	}

	return &MinifyParams{
		Level: clampLevel(level),
		Strip: commandstructure.GetBoolParam(params, "strip", false),
	}, nil
}

func clampLevel(level int) uint8 {
	if level > pngopt.MaxPreset {
		return pngopt.MaxPreset
	}
	return uint8(level)
}

// MinifyCommand losslessly re-encodes a PNG with the optimizer preset
// selected by its level.
type MinifyCommand struct {
	name   string
	params *MinifyParams
}

// NewMinifyCommand creates a new minify command from call parameters
func NewMinifyCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewMinifyParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &MinifyCommand{
		name:   MinifyCommandName,
		params: typedParams,
	}, nil
}

// NewMinifyCommandWithParams creates a new minify command from a concrete level
func NewMinifyCommandWithParams(level uint8) *MinifyCommand {
	return &MinifyCommand{
		name:   MinifyCommandName,
		params: &MinifyParams{Level: clampLevel(int(level))},
	}
}

// Name returns the command name
func (c *MinifyCommand) Name() string {
	return c.name
}

// FailureKind reports OptimizationError for failures that carry no kind of their own.
func (c *MinifyCommand) FailureKind() commandstructure.ErrorKind {
	return commandstructure.OptimizationError
}

// GetLevel returns the effective (clamped) preset
func (c *MinifyCommand) GetLevel() uint8 {
	return c.params.Level
}

// Execute runs the optimizer with force enabled, so the output is always a
// freshly encoded PNG.
func (c *MinifyCommand) Execute(imageData []byte) ([]byte, error) {
	opts := pngopt.FromPreset(c.params.Level)
	opts.Force = true
	opts.Strip = c.params.Strip

	slog.Debug("MinifyCommand: optimizing",
		"level", c.params.Level,
		"strip", c.params.Strip,
		"filters", len(opts.Filters),
		"compression_levels", len(opts.CompressionLevels),
		"input_size_bytes", len(imageData))

	out, err := pngopt.Optimize(imageData, opts)
	if err != nil {
		return nil, commandstructure.NewOperationError(commandstructure.OptimizationError, "", err)
	}

	slog.Debug("MinifyCommand: optimization complete",
		"input_size_bytes", len(imageData),
		"output_size_bytes", len(out))
	return out, nil
}

func init() {
	// Register the command in the default registry
	if err := commandstructure.DefaultRegistry.Register(MinifyCommandName, NewMinifyCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", MinifyCommandName, err))
	}
}
