package commands

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/alt-ctrl-dev/imagewise/internal/backend/commandstructure"
)

// createTestImage creates an RGBA test image with a color gradient
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func encodeTestPNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func createTestPNG(t testing.TB, width, height int) []byte {
	t.Helper()
	return encodeTestPNG(t, createTestImage(width, height))
}

func assertOperationError(t *testing.T, err error, kind commandstructure.ErrorKind, prefix string) {
	t.Helper()
	var opErr *commandstructure.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("Expected *OperationError, got %T (%v)", err, err)
	}
	if opErr.Kind != kind {
		t.Errorf("Expected kind %s, got %s", kind, opErr.Kind)
	}
	if len(opErr.Message) < len(prefix) || opErr.Message[:len(prefix)] != prefix {
		t.Errorf("Expected message starting with %q, got %q", prefix, opErr.Message)
	}
}
