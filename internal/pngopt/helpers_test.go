package pngopt

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodeTestPNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodeTestPNG(t testing.TB, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	return img
}

// assertSamePixels compares straight (non-premultiplied) 16-bit pixels, so
// the color of fully transparent pixels is compared as well.
func assertSamePixels(t testing.TB, want, got image.Image) {
	t.Helper()
	if want.Bounds().Size() != got.Bounds().Size() {
		t.Fatalf("size mismatch: want %v, got %v", want.Bounds().Size(), got.Bounds().Size())
	}
	wb, gb := want.Bounds(), got.Bounds()
	for y := 0; y < wb.Dy(); y++ {
		for x := 0; x < wb.Dx(); x++ {
			w := straightAt(want, wb.Min.X+x, wb.Min.Y+y)
			g := straightAt(got, gb.Min.X+x, gb.Min.Y+y)
			if w != g {
				t.Fatalf("pixel (%d,%d) differs: want %v, got %v", x, y, w, g)
			}
		}
	}
}

func gradientRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: uint8(x*y + 3), A: 255})
		}
	}
	return img
}

// fewColorsTransparent has four colors, two of them translucent, and keeps
// RGB data under fully transparent pixels.
func fewColorsTransparent(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	colors := []color.NRGBA{
		{R: 200, G: 10, B: 10, A: 255},
		{R: 10, G: 200, B: 10, A: 128},
		{R: 40, G: 50, B: 60, A: 0},
		{R: 255, G: 255, B: 255, A: 255},
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, colors[(x/3+y)%len(colors)])
		}
	}
	return img
}

func grayLevels(w, h, levels int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % levels * (255 / levels))})
		}
	}
	return img
}

func deepGray(w, h int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(x*977 + y*131 + 1)})
		}
	}
	return img
}

// shallowNRGBA64 is a 16-bit image whose samples all fit in 8 bits.
func shallowNRGBA64(w, h int) *image.NRGBA64 {
	img := image.NewNRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: uint16(uint8(x*11)) * 0x101,
				G: uint16(y*13%256) * 0x101,
				B: 0x8080,
				A: 0xffff,
			})
		}
	}
	return img
}
