package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 13), G: uint8(y * 7), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestRun_ResizeFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	if err := os.WriteFile(in, createTestPNG(t, 100, 300), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{"--op", "resize", "--max-height", "100", "--in", in, "--out", out}, nil, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run failed: %v (stderr: %s)", err, stderr.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Expected PNG output: %v", err)
	}
	if cfg.Width != 33 || cfg.Height != 100 {
		t.Errorf("Expected 33x100, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRun_Stdio(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		prefix string
	}{
		{name: "Minify", args: []string{"-o", "minify", "--level", "9"}, prefix: "\x89PNG"},
		{name: "WebP", args: []string{"--op", "convert_to_webp", "--quality", "70"}, prefix: "RIFF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, bytes.NewReader(createTestPNG(t, 16, 16)), &stdout, &stderr)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if !strings.HasPrefix(stdout.String(), tt.prefix) {
				t.Errorf("Expected output starting with %q", tt.prefix)
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		input   []byte
		wantErr string
	}{
		{name: "Missing operation", args: []string{}, wantErr: "--op is required"},
		{name: "Unknown operation", args: []string{"--op", "add"}, wantErr: "unknown operation: add"},
		{name: "Unknown flag", args: []string{"--op", "resize", "--width", "3"}, wantErr: "unknown flag"},
		{name: "Zero max height", args: []string{"--op", "resize"}, input: []byte("x"), wantErr: "max_height must be positive"},
		{name: "Invalid image", args: []string{"--op", "resize", "--max-height", "5"}, input: []byte("x"), wantErr: "Image loading error"},
		{name: "Missing input file", args: []string{"--op", "minify", "--in", "/does/not/exist.png"}, wantErr: "failed to read input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, bytes.NewReader(tt.input), &stdout, &stderr)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
			if stdout.Len() != 0 {
				t.Error("Expected no output on failure")
			}
		})
	}
}

func TestRun_ConfigDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	config := "operations:\n  - name: convert_to_webp\n    quality: 150\n"
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "Configured default applies", args: []string{"--op", "convert_to_webp", "--config", configPath}, wantErr: "quality 150 outside [0, 100]"},
		{name: "Flag overrides configured default", args: []string{"--op", "convert_to_webp", "--config", configPath, "--quality", "70"}},
		{name: "Flag default without configured default", args: []string{"--op", "minify", "-c", configPath}},
		{name: "Missing config file", args: []string{"--op", "minify", "--config", filepath.Join(t.TempDir(), "missing.yaml")}, wantErr: "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, bytes.NewReader(createTestPNG(t, 16, 16)), &stdout, &stderr)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if stdout.Len() == 0 {
				t.Error("Expected image output")
			}
		})
	}
}

func TestOperationParams(t *testing.T) {
	defaults := map[string]map[string]any{
		"minify": {"level": 4},
	}

	tests := []struct {
		name     string
		opts     *options
		expected map[string]any
	}{
		{
			name:     "Unset flag yields to configured default",
			opts:     &options{operation: "minify", level: 2, changed: map[string]bool{}},
			expected: map[string]any{"strip": false},
		},
		{
			name:     "Set flag overrides configured default",
			opts:     &options{operation: "minify", level: 6, strip: true, changed: map[string]bool{"level": true, "strip": true}},
			expected: map[string]any{"level": 6, "strip": true},
		},
		{
			name:     "Flag default without configured default",
			opts:     &options{operation: "convert_to_webp", quality: 80, changed: map[string]bool{}},
			expected: map[string]any{"quality": 80.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := operationParams(tt.opts, defaults)
			if err != nil {
				t.Fatalf("operationParams failed: %v", err)
			}
			if !reflect.DeepEqual(params, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, params)
			}
		})
	}
}
