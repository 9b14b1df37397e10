package pngopt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

var (
	ErrNotPNG    = errors.New("pngopt: not a PNG file")
	ErrTruncated = errors.New("pngopt: truncated chunk stream")
	ErrChecksum  = errors.New("pngopt: chunk checksum mismatch")
	ErrHeader    = errors.New("pngopt: invalid IHDR chunk")
	ErrAnimated  = errors.New("pngopt: animated PNG is not supported")
)

// maxChunkLength is the largest length the PNG format allows (2^31-1).
const maxChunkLength = 1<<31 - 1

type chunk struct {
	typ  string
	data []byte
}

// hasSignature reports whether data starts with the 8-byte PNG signature.
func hasSignature(data []byte) bool {
	return len(data) >= len(pngSignature) && bytes.Equal(data[:len(pngSignature)], pngSignature)
}

// isAncillary reports whether a chunk type has the ancillary bit set
// (lowercase first letter).
func isAncillary(typ string) bool {
	return len(typ) == 4 && typ[0]&0x20 != 0
}

// readChunks splits a PNG byte stream into chunks, verifying lengths and
// CRCs. Reading stops at IEND; trailing bytes are ignored.
func readChunks(data []byte) ([]chunk, error) {
	if !hasSignature(data) {
		return nil, ErrNotPNG
	}

	var chunks []chunk
	pos := len(pngSignature)
	for {
		if len(data)-pos < 12 {
			return nil, fmt.Errorf("%w at offset %d", ErrTruncated, pos)
		}
		length := binary.BigEndian.Uint32(data[pos:])
		if length > maxChunkLength {
			return nil, fmt.Errorf("pngopt: chunk length %d at offset %d exceeds limit", length, pos)
		}
		end := pos + 8 + int(length)
		if end+4 > len(data) || end < pos {
			return nil, fmt.Errorf("%w at offset %d", ErrTruncated, pos)
		}

		typ := string(data[pos+4 : pos+8])
		want := binary.BigEndian.Uint32(data[end:])
		if got := crc32.ChecksumIEEE(data[pos+4 : end]); got != want {
			return nil, fmt.Errorf("%w in %s chunk", ErrChecksum, typ)
		}

		chunks = append(chunks, chunk{typ: typ, data: data[pos+8 : end]})
		pos = end + 4
		if typ == "IEND" {
			break
		}
	}

	if chunks[0].typ != "IHDR" {
		return nil, fmt.Errorf("%w: first chunk is %s", ErrHeader, chunks[0].typ)
	}
	return chunks, nil
}

// writeChunk appends one chunk with its length and CRC to buf.
func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(data)))
	buf.Write(tmp[:])

	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)

	buf.WriteString(typ)
	buf.Write(data)
	binary.BigEndian.PutUint32(tmp[:], crc.Sum32())
	buf.Write(tmp[:])
}

// chunkSize is the encoded size of a chunk with a payload of n bytes.
func chunkSize(n int) int {
	return 12 + n
}

type header struct {
	width     int
	height    int
	bitDepth  uint8
	colorType uint8
	interlace uint8
}

func parseHeader(data []byte) (header, error) {
	if len(data) != 13 {
		return header{}, fmt.Errorf("%w: length %d", ErrHeader, len(data))
	}
	h := header{
		width:     int(binary.BigEndian.Uint32(data[0:4])),
		height:    int(binary.BigEndian.Uint32(data[4:8])),
		bitDepth:  data[8],
		colorType: data[9],
		interlace: data[12],
	}
	if h.width <= 0 || h.height <= 0 {
		return header{}, fmt.Errorf("%w: dimensions %dx%d", ErrHeader, h.width, h.height)
	}
	if h.channels() == 0 {
		return header{}, fmt.Errorf("%w: color type %d", ErrHeader, h.colorType)
	}
	return h, nil
}

func (h header) channels() int {
	switch h.colorType {
	case 0, 3:
		return 1
	case 2:
		return 3
	case 4:
		return 2
	case 6:
		return 4
	}
	return 0
}

func (h header) bitsPerPixel() int {
	return h.channels() * int(h.bitDepth)
}

// rowBytes is the length of one unfiltered scanline.
func (h header) rowBytes() int {
	return (h.width*h.bitsPerPixel() + 7) / 8
}

// filterStride is the byte distance to the corresponding byte of the
// previous pixel, as used by the Sub, Average and Paeth filters.
func (h header) filterStride() int {
	if bpp := h.bitsPerPixel() / 8; bpp > 1 {
		return bpp
	}
	return 1
}
