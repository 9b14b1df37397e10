package commands

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"

	"github.com/alt-ctrl-dev/imagewise/internal/backend/commandstructure"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// WebpConverterCommandName is the registry key of the WebP conversion operation.
const WebpConverterCommandName = "convert_to_webp"

// WebpConverterParams represents typed parameters for the WebP converter
type WebpConverterParams struct {
	Quality float32
}

// NewWebpConverterParamsFromMap creates WebpConverterParams from a generic map.
// The quality range is checked by the encoder, not here.
func NewWebpConverterParamsFromMap(params map[string]any) (*WebpConverterParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"quality"}); err != nil {
		return nil, err
	}

	quality := commandstructure.GetFloatParam(params, "quality", math.NaN())
	if math.IsNaN(quality) {
		return nil, fmt.Errorf("quality must be a number, got %v", params["quality"])
	}

	return &WebpConverterParams{Quality: float32(quality)}, nil
}

// WebpConverterCommand converts a PNG into a lossy WebP image
type WebpConverterCommand struct {
	name   string
	params *WebpConverterParams
}

// NewWebpConverterCommand creates a new WebP converter command from call parameters
func NewWebpConverterCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewWebpConverterParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &WebpConverterCommand{
		name:   WebpConverterCommandName,
		params: typedParams,
	}, nil
}

// NewWebpConverterCommandWithParams creates a new WebP converter command from a concrete quality
func NewWebpConverterCommandWithParams(quality float32) *WebpConverterCommand {
	return &WebpConverterCommand{
		name:   WebpConverterCommandName,
		params: &WebpConverterParams{Quality: quality},
	}
}

// Name returns the command name
func (c *WebpConverterCommand) Name() string {
	return c.name
}

// FailureKind reports EncodeError for failures that carry no kind of their own.
func (c *WebpConverterCommand) FailureKind() commandstructure.ErrorKind {
	return commandstructure.EncodeError
}

// GetQuality returns the configured quality
func (c *WebpConverterCommand) GetQuality() float32 {
	return c.params.Quality
}

// Execute reads the PNG header, then the frame, and lossy-encodes the
// straight RGBA pixels as WebP.
func (c *WebpConverterCommand) Execute(imageData []byte) ([]byte, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return nil, commandstructure.NewOperationError(commandstructure.DecodeError, "PNG decoding error", err)
	}
	slog.Debug("WebpConverterCommand: header read",
		"width", cfg.Width,
		"height", cfg.Height,
		"quality", c.params.Quality)

	img, err := png.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, commandstructure.NewOperationError(commandstructure.FrameError, "PNG frame reading error", err)
	}

	q := c.params.Quality
	if math.IsNaN(float64(q)) || q < 0 || q > 100 {
		return nil, commandstructure.NewOperationError(commandstructure.EncodeError, "WebP encoding error",
			fmt.Errorf("quality %v outside [0, 100]", q))
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, straightRGBA(img), &webp.Options{Lossless: false, Quality: q}); err != nil {
		return nil, commandstructure.NewOperationError(commandstructure.EncodeError, "WebP encoding error", err)
	}

	slog.Debug("WebpConverterCommand: conversion complete",
		"input_size_bytes", len(imageData),
		"output_size_bytes", buf.Len())
	return buf.Bytes(), nil
}

// straightRGBA returns the pixels as non-premultiplied RGBA. The encoder
// reads *image.RGBA pixel data as straight RGBA, so the NRGBA buffer is
// handed over under that type.
func straightRGBA(img image.Image) *image.RGBA {
	nrgba := imaging.Clone(img)
	return &image.RGBA{
		Pix:    nrgba.Pix,
		Stride: nrgba.Stride,
		Rect:   nrgba.Rect,
	}
}

func init() {
	// Register the command in the default registry
	if err := commandstructure.DefaultRegistry.Register(WebpConverterCommandName, NewWebpConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", WebpConverterCommandName, err))
	}
}
