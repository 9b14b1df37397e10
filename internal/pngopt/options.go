package pngopt

// MaxPreset is the highest supported effort preset.
const MaxPreset = 6

// reductionMode controls how many lossless pixel representations are tried.
type reductionMode int

const (
	// reduceBest tries only the representation expected to be smallest.
	reduceBest reductionMode = iota
	// reduceAll tries every applicable reduced representation.
	reduceAll
	// reduceExhaustive additionally tries the truecolor representation.
	reduceExhaustive
)

// Options configures Optimize.
type Options struct {
	// Force returns the re-encoded image even when it is not smaller than
	// the input.
	Force bool
	// Strip drops every ancillary chunk instead of keeping the ones whose
	// meaning does not depend on the pixel encoding.
	Strip bool

	Filters           []Filter
	CompressionLevels []int
	reductions        reductionMode
}

// FromPreset returns the options for an effort preset. Presets above
// MaxPreset are treated as MaxPreset.
func FromPreset(preset uint8) Options {
	if preset > MaxPreset {
		preset = MaxPreset
	}

	basic := []Filter{FilterNone, FilterSub, FilterUp, FilterMinSum}
	all := []Filter{FilterNone, FilterSub, FilterUp, FilterAverage, FilterPaeth, FilterMinSum}

	switch preset {
	case 0:
		return Options{Filters: []Filter{FilterNone}, CompressionLevels: []int{6}, reductions: reduceBest}
	case 1:
		return Options{Filters: []Filter{FilterNone, FilterMinSum}, CompressionLevels: []int{9}, reductions: reduceBest}
	case 2:
		return Options{Filters: basic, CompressionLevels: []int{9}, reductions: reduceBest}
	case 3:
		return Options{Filters: basic, CompressionLevels: []int{9}, reductions: reduceAll}
	case 4:
		return Options{Filters: all, CompressionLevels: []int{9}, reductions: reduceAll}
	case 5:
		return Options{
			Filters:           append(all, FilterEntropy),
			CompressionLevels: []int{6, 9},
			reductions:        reduceAll,
		}
	default:
		return Options{
			Filters:           append(all, FilterEntropy),
			CompressionLevels: []int{1, 2, 3, 4, 5, 6, 7, 8, 9},
			reductions:        reduceExhaustive,
		}
	}
}
