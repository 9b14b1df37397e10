package pngopt

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
)

// Chunks that are copied to the output. Their meaning does not depend on
// the color type, bit depth or palette of the re-encoded image.
var preservedChunks = map[string]bool{
	"gAMA": true,
	"cHRM": true,
	"sRGB": true,
	"iCCP": true,
	"pHYs": true,
	"tEXt": true,
	"zTXt": true,
	"iTXt": true,
	"tIME": true,
	"eXIf": true,
}

// candidate is one representation of the image ready for filter and
// compression trials.
type candidate struct {
	name     string
	hdr      header
	ihdr     []byte
	plte     []byte
	trns     []byte
	raw      []byte
	overhead int
}

type trial struct {
	candidate int
	filter    Filter
}

type outcome struct {
	idat  []byte
	level int
	err   error
}

// Optimize losslessly re-encodes a PNG. The decoded pixels of the result are
// identical to those of data. Unless opts.Force is set, data itself is
// returned when no smaller encoding was found.
func Optimize(data []byte, opts Options) ([]byte, error) {
	chunks, err := readChunks(data)
	if err != nil {
		return nil, err
	}

	var before, after []chunk
	seenIDAT := false
	var iccp []byte
	for _, c := range chunks {
		switch {
		case c.typ == "IDAT":
			seenIDAT = true
		case c.typ == "acTL":
			return nil, ErrAnimated
		case c.typ == "iCCP":
			iccp = c.data
		}
		if opts.Strip || !isAncillary(c.typ) || !preservedChunks[c.typ] {
			continue
		}
		if seenIDAT {
			after = append(after, c)
		} else {
			before = append(before, c)
		}
	}
	if !seenIDAT {
		return nil, fmt.Errorf("pngopt: no IDAT chunk")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pngopt: decoding image: %w", err)
	}

	a := analyze(img)
	constraint := grayAllowed
	if iccp != nil && !opts.Strip {
		constraint = profileConstraint(iccp)
	}
	reps := a.representations(opts.reductions, constraint)

	candidates := make([]candidate, 0, len(reps))
	for _, rep := range reps {
		cand, err := prepareCandidate(rep)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, cand)
	}

	filters := opts.Filters
	if len(filters) == 0 {
		filters = []Filter{FilterNone}
	}
	levels := opts.CompressionLevels
	if len(levels) == 0 {
		levels = []int{9}
	}

	trials := make([]trial, 0, len(candidates)*len(filters))
	for ci := range candidates {
		for _, f := range filters {
			trials = append(trials, trial{candidate: ci, filter: f})
		}
	}

	outcomes := make([]outcome, len(trials))
	parallelFor(len(trials), func(i int) {
		outcomes[i] = runTrial(&candidates[trials[i].candidate], trials[i].filter, levels)
	})

	best := -1
	bestSize := 0
	for i, o := range outcomes {
		if o.err != nil {
			return nil, o.err
		}
		size := candidates[trials[i].candidate].overhead + chunkSize(len(o.idat))
		if best < 0 || size < bestSize {
			best, bestSize = i, size
		}
	}

	winner := &candidates[trials[best].candidate]
	slog.Debug("pngopt: selected encoding",
		"representation", winner.name,
		"filter", trials[best].filter.String(),
		"zlib_level", outcomes[best].level,
		"trials", len(trials),
		"input_size_bytes", len(data))

	var buf bytes.Buffer
	buf.Grow(bestSize + 64)
	buf.Write(pngSignature)
	writeChunk(&buf, "IHDR", winner.ihdr)
	for _, c := range before {
		writeChunk(&buf, c.typ, c.data)
	}
	if winner.plte != nil {
		writeChunk(&buf, "PLTE", winner.plte)
	}
	if winner.trns != nil {
		writeChunk(&buf, "tRNS", winner.trns)
	}
	writeChunk(&buf, "IDAT", outcomes[best].idat)
	for _, c := range after {
		writeChunk(&buf, c.typ, c.data)
	}
	writeChunk(&buf, "IEND", nil)

	if !opts.Force && buf.Len() >= len(data) {
		slog.Debug("pngopt: no improvement, keeping input", "output_size_bytes", buf.Len())
		return data, nil
	}
	return buf.Bytes(), nil
}

// prepareCandidate encodes a representation without compression and
// recovers its header, palette chunks and raw scanlines.
func prepareCandidate(rep representation) (candidate, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, rep.image); err != nil {
		return candidate{}, fmt.Errorf("pngopt: encoding %s image: %w", rep.name, err)
	}

	chunks, err := readChunks(buf.Bytes())
	if err != nil {
		return candidate{}, err
	}

	cand := candidate{name: rep.name}
	var idat []byte
	for _, c := range chunks {
		switch c.typ {
		case "IHDR":
			cand.ihdr = c.data
		case "PLTE":
			cand.plte = c.data
		case "tRNS":
			cand.trns = c.data
		case "IDAT":
			idat = append(idat, c.data...)
		}
	}

	cand.hdr, err = parseHeader(cand.ihdr)
	if err != nil {
		return candidate{}, err
	}
	filtered, err := inflate(idat)
	if err != nil {
		return candidate{}, err
	}
	cand.raw, err = unfilterRows(filtered, cand.hdr.rowBytes(), cand.hdr.height, cand.hdr.filterStride())
	if err != nil {
		return candidate{}, err
	}

	if cand.plte != nil {
		cand.overhead += chunkSize(len(cand.plte))
	}
	if cand.trns != nil {
		cand.overhead += chunkSize(len(cand.trns))
	}
	return cand, nil
}

// runTrial filters the candidate's scanlines once and keeps the smallest
// deflate stream over the given levels.
func runTrial(cand *candidate, f Filter, levels []int) outcome {
	filtered := filterRows(cand.raw, cand.hdr.rowBytes(), cand.hdr.height, cand.hdr.filterStride(), f)

	var best outcome
	for _, level := range levels {
		z, err := deflate(filtered, level)
		if err != nil {
			return outcome{err: err}
		}
		if best.idat == nil || len(z) < len(best.idat) {
			best = outcome{idat: z, level: level}
		}
	}
	return best
}
