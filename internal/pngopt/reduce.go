package pngopt

import (
	"image"
	"image/color"
	"sort"
)

// straightAt returns the pixel at (x, y) as non-premultiplied 16-bit color.
// Concrete types produced by the PNG decoder are read directly so that the
// color of fully transparent pixels survives.
func straightAt(img image.Image, x, y int) color.NRGBA64 {
	switch m := img.(type) {
	case *image.NRGBA:
		p := m.Pix[m.PixOffset(x, y):]
		return color.NRGBA64{R: uint16(p[0]) * 0x101, G: uint16(p[1]) * 0x101, B: uint16(p[2]) * 0x101, A: uint16(p[3]) * 0x101}
	case *image.NRGBA64:
		p := m.Pix[m.PixOffset(x, y):]
		return color.NRGBA64{
			R: uint16(p[0])<<8 | uint16(p[1]),
			G: uint16(p[2])<<8 | uint16(p[3]),
			B: uint16(p[4])<<8 | uint16(p[5]),
			A: uint16(p[6])<<8 | uint16(p[7]),
		}
	case *image.RGBA:
		c := m.RGBAAt(x, y)
		if c.A == 0xff {
			return color.NRGBA64{R: uint16(c.R) * 0x101, G: uint16(c.G) * 0x101, B: uint16(c.B) * 0x101, A: 0xffff}
		}
		return straightColor(c)
	case *image.Gray:
		v := uint16(m.GrayAt(x, y).Y) * 0x101
		return color.NRGBA64{R: v, G: v, B: v, A: 0xffff}
	case *image.Gray16:
		v := m.Gray16At(x, y).Y
		return color.NRGBA64{R: v, G: v, B: v, A: 0xffff}
	case *image.Paletted:
		return straightColor(m.Palette[m.ColorIndexAt(x, y)])
	}
	return straightColor(img.At(x, y))
}

func straightColor(c color.Color) color.NRGBA64 {
	switch v := c.(type) {
	case color.NRGBA:
		return color.NRGBA64{R: uint16(v.R) * 0x101, G: uint16(v.G) * 0x101, B: uint16(v.B) * 0x101, A: uint16(v.A) * 0x101}
	case color.NRGBA64:
		return v
	}
	return color.NRGBA64Model.Convert(c).(color.NRGBA64)
}

func fits8(v uint16) bool {
	return v>>8 == v&0xff
}

func to8(c color.NRGBA64) color.NRGBA {
	return color.NRGBA{R: uint8(c.R >> 8), G: uint8(c.G >> 8), B: uint8(c.B >> 8), A: uint8(c.A >> 8)}
}

// analysis holds one pass over the decoded pixels and the facts the
// reductions depend on.
type analysis struct {
	width, height int
	pixels        []color.NRGBA64

	// deep is set when some sample cannot be represented in 8 bits.
	deep   bool
	opaque bool
	gray   bool

	// colors is nil once more than 256 distinct colors were seen.
	colors map[color.NRGBA]int
	order  []color.NRGBA
}

func analyze(img image.Image) *analysis {
	b := img.Bounds()
	a := &analysis{
		width:  b.Dx(),
		height: b.Dy(),
		pixels: make([]color.NRGBA64, 0, b.Dx()*b.Dy()),
		opaque: true,
		gray:   true,
		colors: make(map[color.NRGBA]int),
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := straightAt(img, x, y)
			a.pixels = append(a.pixels, c)

			if c.A != 0xffff {
				a.opaque = false
			}
			if c.R != c.G || c.G != c.B {
				a.gray = false
			}
			if !a.deep && !(fits8(c.R) && fits8(c.G) && fits8(c.B) && fits8(c.A)) {
				a.deep = true
				a.colors, a.order = nil, nil
			}
			if a.colors == nil {
				continue
			}
			c8 := to8(c)
			if _, seen := a.colors[c8]; !seen {
				if len(a.order) == 256 {
					a.colors, a.order = nil, nil
					continue
				}
				a.order = append(a.order, c8)
			}
			a.colors[c8]++
		}
	}
	return a
}

func (a *analysis) canPalette() bool {
	return a.colors != nil
}

func (a *analysis) canGray() bool {
	return a.gray && a.opaque
}

func (a *analysis) rect() image.Rectangle {
	return image.Rect(0, 0, a.width, a.height)
}

// truecolor returns the pixels as NRGBA or NRGBA64. The PNG encoder drops
// the alpha channel by itself when the image is opaque.
func (a *analysis) truecolor() image.Image {
	if a.deep {
		img := image.NewNRGBA64(a.rect())
		for i, c := range a.pixels {
			p := img.Pix[i*8 : i*8+8]
			p[0], p[1] = uint8(c.R>>8), uint8(c.R)
			p[2], p[3] = uint8(c.G>>8), uint8(c.G)
			p[4], p[5] = uint8(c.B>>8), uint8(c.B)
			p[6], p[7] = uint8(c.A>>8), uint8(c.A)
		}
		return img
	}
	img := image.NewNRGBA(a.rect())
	for i, c := range a.pixels {
		c8 := to8(c)
		p := img.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = c8.R, c8.G, c8.B, c8.A
	}
	return img
}

func (a *analysis) grayscale() image.Image {
	if a.deep {
		img := image.NewGray16(a.rect())
		for i, c := range a.pixels {
			img.Pix[i*2] = uint8(c.R >> 8)
			img.Pix[i*2+1] = uint8(c.R)
		}
		return img
	}
	img := image.NewGray(a.rect())
	for i, c := range a.pixels {
		img.Pix[i] = uint8(c.R >> 8)
	}
	return img
}

type paletteOrder int

const (
	byFrequency paletteOrder = iota
	byLuma
)

func luma(c color.NRGBA) int {
	return 299*int(c.R) + 587*int(c.G) + 114*int(c.B)
}

// paletted builds an indexed image. Translucent entries come first so the
// tRNS chunk covers as few entries as possible.
func (a *analysis) paletted(order paletteOrder) image.Image {
	entries := append([]color.NRGBA(nil), a.order...)
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := entries[i].A != 0xff, entries[j].A != 0xff
		if ti != tj {
			return ti
		}
		if order == byLuma {
			return luma(entries[i]) < luma(entries[j])
		}
		return a.colors[entries[i]] > a.colors[entries[j]]
	})

	pal := make(color.Palette, len(entries))
	index := make(map[color.NRGBA]uint8, len(entries))
	for i, c := range entries {
		pal[i] = c
		index[c] = uint8(i)
	}

	img := image.NewPaletted(a.rect(), pal)
	for i, c := range a.pixels {
		img.Pix[i] = index[to8(c)]
	}
	return img
}

// representation is one lossless way of storing the analysed pixels.
type representation struct {
	name  string
	image image.Image
}

// grayConstraint limits the color types a representation may use. An
// embedded ICC profile fixes whether the image is stored as gray or color.
type grayConstraint int

const (
	grayAllowed grayConstraint = iota
	grayForbidden
	grayRequired
)

// representations lists the encodings to try, best guess first.
func (a *analysis) representations(mode reductionMode, constraint grayConstraint) []representation {
	if constraint == grayRequired && a.canGray() {
		return []representation{{"gray", a.grayscale()}}
	}
	gray := constraint != grayForbidden && a.canGray()
	var reps []representation

	if mode == reduceBest {
		switch {
		case gray && (!a.canPalette() || len(a.order) > 16):
			reps = append(reps, representation{"gray", a.grayscale()})
		case a.canPalette():
			reps = append(reps, representation{"palette", a.paletted(byFrequency)})
		case gray:
			reps = append(reps, representation{"gray", a.grayscale()})
		default:
			reps = append(reps, representation{"truecolor", a.truecolor()})
		}
		return reps
	}

	if a.canPalette() {
		reps = append(reps, representation{"palette", a.paletted(byFrequency)})
		reps = append(reps, representation{"palette-luma", a.paletted(byLuma)})
	}
	if gray {
		reps = append(reps, representation{"gray", a.grayscale()})
	}
	if len(reps) == 0 || mode == reduceExhaustive {
		reps = append(reps, representation{"truecolor", a.truecolor()})
	}
	return reps
}
