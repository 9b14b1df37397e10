package commands

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/alt-ctrl-dev/imagewise/internal/backend/commandstructure"
	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp"
)

// ResizeCommandName is the registry key of the resize operation.
const ResizeCommandName = "resize"

// ResizeParams represents typed parameters for the resize command
type ResizeParams struct {
	MaxHeight int
}

// NewResizeParamsFromMap creates ResizeParams from a generic map
func NewResizeParamsFromMap(params map[string]any) (*ResizeParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"max_height"}); err != nil {
		return nil, err
	}

	maxHeight := commandstructure.GetIntParam(params, "max_height", 0)
	if maxHeight <= 0 {
		return nil, fmt.Errorf("max_height must be positive, got %v", params["max_height"])
	}

	return &ResizeParams{MaxHeight: maxHeight}, nil
}

// ResizeCommand bounds an image to a maximum height, keeping its aspect
// ratio. Images that already fit are returned untouched.
type ResizeCommand struct {
	name   string
	params *ResizeParams
}

// NewResizeCommand creates a new resize command from call parameters
func NewResizeCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewResizeParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ResizeCommand{
		name:   ResizeCommandName,
		params: typedParams,
	}, nil
}

// NewResizeCommandWithParams creates a new resize command from a concrete max height
func NewResizeCommandWithParams(maxHeight int) (*ResizeCommand, error) {
	if maxHeight <= 0 {
		return nil, fmt.Errorf("max_height must be positive, got %d", maxHeight)
	}
	return &ResizeCommand{
		name:   ResizeCommandName,
		params: &ResizeParams{MaxHeight: maxHeight},
	}, nil
}

// Name returns the command name
func (c *ResizeCommand) Name() string {
	return c.name
}

// FailureKind reports DecodeError for failures that carry no kind of their own.
func (c *ResizeCommand) FailureKind() commandstructure.ErrorKind {
	return commandstructure.DecodeError
}

// GetMaxHeight returns the configured height bound
func (c *ResizeCommand) GetMaxHeight() int {
	return c.params.MaxHeight
}

// Execute decodes the image and, when it is taller than the bound,
// resamples it with a Lanczos filter and re-encodes it as PNG.
func (c *ResizeCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, commandstructure.NewOperationError(commandstructure.DecodeError, "Image loading error", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if height <= c.params.MaxHeight {
		slog.Debug("ResizeCommand: image within bound; returning input",
			"width", width,
			"height", height,
			"max_height", c.params.MaxHeight)
		return imageData, nil
	}

	targetWidth := scaledWidth(width, height, c.params.MaxHeight)
	slog.Debug("ResizeCommand: resampling",
		"original_width", width,
		"original_height", height,
		"target_width", targetWidth,
		"target_height", c.params.MaxHeight)

	resized := imaging.Resize(img, targetWidth, c.params.MaxHeight, imaging.Lanczos)

	out, err := encodePNG(resized)
	if err != nil {
		return nil, commandstructure.NewOperationError(commandstructure.EncodeError, "PNG encoding error", err)
	}

	slog.Debug("ResizeCommand: resize complete", "output_size_bytes", len(out))
	return out, nil
}

// scaledWidth keeps the aspect ratio for the new height, rounding to the
// nearest pixel and never going below one.
func scaledWidth(width, height, targetHeight int) int {
	w := int(math.Round(float64(targetHeight) * float64(width) / float64(height)))
	if w < 1 {
		return 1
	}
	return w
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	bb := img.Bounds()
	// Pre-grow buffer to reduce re-allocations; rough heuristic: 1 byte per pixel
	buf.Grow(bb.Dx() * bb.Dy())
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	// Register the command in the default registry
	if err := commandstructure.DefaultRegistry.Register(ResizeCommandName, NewResizeCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", ResizeCommandName, err))
	}
}
