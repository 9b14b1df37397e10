package commands

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/alt-ctrl-dev/imagewise/internal/backend/commandstructure"
	"github.com/chai2010/webp"
)

func TestNewWebpConverterCommand(t *testing.T) {
	tests := []struct {
		name        string
		params      map[string]any
		expectError bool
		wantQuality float32
	}{
		{name: "Float quality", params: map[string]any{"quality": 75.5}, wantQuality: 75.5},
		{name: "Int quality from YAML", params: map[string]any{"quality": 80}, wantQuality: 80},
		{name: "Out of range is left to the encoder", params: map[string]any{"quality": 150.0}, wantQuality: 150},
		{name: "Missing quality", params: map[string]any{}, expectError: true},
		{name: "Wrong type", params: map[string]any{"quality": "best"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewWebpConverterCommand(tt.params)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			webpCmd, ok := command.(*WebpConverterCommand)
			if !ok {
				t.Fatal("Expected command to be *WebpConverterCommand")
			}
			if webpCmd.Name() != WebpConverterCommandName {
				t.Errorf("Expected name '%s', got '%s'", WebpConverterCommandName, webpCmd.Name())
			}
			if webpCmd.GetQuality() != tt.wantQuality {
				t.Errorf("Expected quality %v, got %v", tt.wantQuality, webpCmd.GetQuality())
			}
		})
	}
}

func TestWebpConverterCommand_Execute_SolidColor(t *testing.T) {
	want := color.NRGBA{R: 200, G: 100, B: 50, A: 255}
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, want)
		}
	}

	out, err := NewWebpConverterCommandWithParams(100).Execute(encodeTestPNG(t, img))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(out) < 12 || string(out[0:4]) != "RIFF" || string(out[8:12]) != "WEBP" {
		t.Fatalf("Expected a RIFF/WEBP container, got %q", out[:min(len(out), 12)])
	}

	decoded, err := webp.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Failed to decode WebP output: %v", err)
	}
	if decoded.Bounds().Dx() != 2 || decoded.Bounds().Dy() != 2 {
		t.Fatalf("Expected 2x2, got %v", decoded.Bounds())
	}

	const tolerance = 10
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			got := color.NRGBAModel.Convert(decoded.At(x, y)).(color.NRGBA)
			if absDiff(got.R, want.R) > tolerance || absDiff(got.G, want.G) > tolerance || absDiff(got.B, want.B) > tolerance {
				t.Errorf("pixel (%d,%d): expected about %v, got %v", x, y, want, got)
			}
		}
	}
}

func TestWebpConverterCommand_Execute_Errors(t *testing.T) {
	valid := createTestPNG(t, 8, 8)

	tests := []struct {
		name    string
		data    []byte
		quality float32
		kind    commandstructure.ErrorKind
		prefix  string
	}{
		{name: "Not a PNG", data: []byte("not a valid image"), quality: 80, kind: commandstructure.DecodeError, prefix: "PNG decoding error: "},
		{name: "Empty input", data: nil, quality: 80, kind: commandstructure.DecodeError, prefix: "PNG decoding error: "},
		// Signature and IHDR only: the header parses, the frame does not.
		{name: "Missing frame data", data: valid[:33], quality: 80, kind: commandstructure.FrameError, prefix: "PNG frame reading error: "},
		{name: "Quality above range", data: valid, quality: 150, kind: commandstructure.EncodeError, prefix: "WebP encoding error: "},
		{name: "Negative quality", data: valid, quality: -1, kind: commandstructure.EncodeError, prefix: "WebP encoding error: "},
		{name: "NaN quality", data: valid, quality: float32(math.NaN()), kind: commandstructure.EncodeError, prefix: "WebP encoding error: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWebpConverterCommandWithParams(tt.quality).Execute(tt.data)
			assertOperationError(t, err, tt.kind, tt.prefix)
		})
	}
}

func TestStraightRGBA_KeepsUnpremultipliedSamples(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	got := straightRGBA(img)
	if !bytes.Equal(got.Pix, []byte{200, 100, 50, 128}) {
		t.Errorf("Expected straight samples [200 100 50 128], got %v", got.Pix)
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
