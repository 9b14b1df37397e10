package pngopt

import (
	"fmt"
	"math"
)

// Filter selects how scanlines are filtered before compression. The first
// five values are the PNG filter types; MinSum and Entropy choose one of
// them per row.
type Filter uint8

const (
	FilterNone Filter = iota
	FilterSub
	FilterUp
	FilterAverage
	FilterPaeth
	FilterMinSum
	FilterEntropy
)

var filterNames = [...]string{"none", "sub", "up", "average", "paeth", "minsum", "entropy"}

func (f Filter) String() string {
	if int(f) < len(filterNames) {
		return filterNames[f]
	}
	return fmt.Sprintf("filter(%d)", uint8(f))
}

func paeth(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa := absInt(p - int(a))
	pb := absInt(p - int(b))
	pc := absInt(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// applyFilter writes the filtered form of cur into dst using one of the
// five basic filter types. prev is the previous raw scanline (zeros for the
// first row).
func applyFilter(dst, cur, prev []byte, bpp int, f Filter) {
	switch f {
	case FilterNone:
		copy(dst, cur)
	case FilterSub:
		for i := range cur {
			var left byte
			if i >= bpp {
				left = cur[i-bpp]
			}
			dst[i] = cur[i] - left
		}
	case FilterUp:
		for i := range cur {
			dst[i] = cur[i] - prev[i]
		}
	case FilterAverage:
		for i := range cur {
			var left int
			if i >= bpp {
				left = int(cur[i-bpp])
			}
			dst[i] = cur[i] - byte((left+int(prev[i]))/2)
		}
	case FilterPaeth:
		for i := range cur {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			dst[i] = cur[i] - paeth(left, prev[i], upLeft)
		}
	}
}

// sumAbs is the classic libpng heuristic: the sum of the filtered bytes
// interpreted as signed values.
func sumAbs(row []byte) int {
	s := 0
	for _, v := range row {
		s += absInt(int(int8(v)))
	}
	return s
}

func entropy(row []byte) float64 {
	var counts [256]int
	for _, v := range row {
		counts[v]++
	}
	n := float64(len(row))
	e := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		e -= p * math.Log2(p)
	}
	return e
}

// filterRows filters every scanline of raw with the given strategy and
// returns the filtered stream, each row prefixed by its filter type byte.
func filterRows(raw []byte, rowBytes, height, bpp int, strategy Filter) []byte {
	out := make([]byte, (rowBytes+1)*height)
	prev := make([]byte, rowBytes)

	var trial [5][]byte
	if strategy == FilterMinSum || strategy == FilterEntropy {
		for i := range trial {
			trial[i] = make([]byte, rowBytes)
		}
	}

	for y := 0; y < height; y++ {
		cur := raw[y*rowBytes : (y+1)*rowBytes]
		dst := out[y*(rowBytes+1) : (y+1)*(rowBytes+1)]

		switch strategy {
		case FilterMinSum, FilterEntropy:
			best := FilterNone
			bestScore := math.Inf(1)
			for f := FilterNone; f <= FilterPaeth; f++ {
				applyFilter(trial[f], cur, prev, bpp, f)
				var score float64
				if strategy == FilterMinSum {
					score = float64(sumAbs(trial[f]))
				} else {
					score = entropy(trial[f])
				}
				if score < bestScore {
					best, bestScore = f, score
				}
			}
			dst[0] = byte(best)
			copy(dst[1:], trial[best])
		default:
			dst[0] = byte(strategy)
			applyFilter(dst[1:], cur, prev, bpp, strategy)
		}
		prev = cur
	}
	return out
}

// unfilterRows reverses filterRows for any mix of per-row filter types.
func unfilterRows(filtered []byte, rowBytes, height, bpp int) ([]byte, error) {
	if len(filtered) != (rowBytes+1)*height {
		return nil, fmt.Errorf("pngopt: image data is %d bytes, want %d", len(filtered), (rowBytes+1)*height)
	}

	raw := make([]byte, rowBytes*height)
	prev := make([]byte, rowBytes)
	for y := 0; y < height; y++ {
		src := filtered[y*(rowBytes+1)+1 : (y+1)*(rowBytes+1)]
		cur := raw[y*rowBytes : (y+1)*rowBytes]

		switch Filter(filtered[y*(rowBytes+1)]) {
		case FilterNone:
			copy(cur, src)
		case FilterSub:
			for i := range cur {
				var left byte
				if i >= bpp {
					left = cur[i-bpp]
				}
				cur[i] = src[i] + left
			}
		case FilterUp:
			for i := range cur {
				cur[i] = src[i] + prev[i]
			}
		case FilterAverage:
			for i := range cur {
				var left int
				if i >= bpp {
					left = int(cur[i-bpp])
				}
				cur[i] = src[i] + byte((left+int(prev[i]))/2)
			}
		case FilterPaeth:
			for i := range cur {
				var left, upLeft byte
				if i >= bpp {
					left = cur[i-bpp]
					upLeft = prev[i-bpp]
				}
				cur[i] = src[i] + paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("pngopt: bad filter type %d in row %d", filtered[y*(rowBytes+1)], y)
		}
		prev = cur
	}
	return raw, nil
}
