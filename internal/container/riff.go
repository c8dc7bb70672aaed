// Package container walks the RIFF framing around a WebP payload.
//
// Only the minimal still-image surface is implemented: the 12-byte RIFF
// preamble and enough chunk traversal to locate the 'VP8 ' bitstream.
// Mux-level features (animation, metadata, alpha chunks) are out of
// scope and surface as ErrUnsupported.
package container

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Chunk framing constants.
const (
	RIFFHeaderSize  = 12
	ChunkHeaderSize = 8
)

var (
	// ErrShortData means more bytes are needed to make a decision.
	ErrShortData = errors.New("container: truncated data")
	// ErrNotWebP means the RIFF preamble is absent or malformed.
	ErrNotWebP = errors.New("container: not a WebP stream")
	// ErrUnsupported marks container features outside the still-image
	// VP8 surface.
	ErrUnsupported = errors.New("container: unsupported feature")
)

// fourCC tags used by the still-image path.
var (
	tagRIFF = [4]byte{'R', 'I', 'F', 'F'}
	tagWEBP = [4]byte{'W', 'E', 'B', 'P'}
	tagVP8  = [4]byte{'V', 'P', '8', ' '}
	tagVP8L = [4]byte{'V', 'P', '8', 'L'}
	tagVP8X = [4]byte{'V', 'P', '8', 'X'}
)

func hasTag(data []byte, tag [4]byte) bool {
	return data[0] == tag[0] && data[1] == tag[1] &&
		data[2] == tag[2] && data[3] == tag[3]
}

// CheckHeader validates the RIFF preamble plus the first chunk header
// and returns the offset of the VP8 payload and its declared size.
//
// A plain (container-less) VP8 stream is also accepted with offset 0,
// mirroring the reference decoder's laxness.
func CheckHeader(data []byte) (payloadOff, payloadSize int, err error) {
	if len(data) < ChunkHeaderSize {
		return 0, 0, ErrShortData
	}
	if !hasTag(data, tagRIFF) {
		// Raw VP8 data: hand it over untouched.
		return 0, len(data), nil
	}
	if len(data) < RIFFHeaderSize+ChunkHeaderSize {
		return 0, 0, ErrShortData
	}
	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if !hasTag(data[8:], tagWEBP) {
		return 0, 0, errors.Wrap(ErrNotWebP, "missing WEBP tag")
	}
	chunk := data[RIFFHeaderSize:]
	switch {
	case hasTag(chunk, tagVP8):
		// fall through
	case hasTag(chunk, tagVP8L):
		return 0, 0, errors.Wrap(ErrUnsupported, "lossless bitstream")
	case hasTag(chunk, tagVP8X):
		return 0, 0, errors.Wrap(ErrUnsupported, "extended features")
	default:
		return 0, 0, errors.Wrap(ErrNotWebP, "unknown chunk tag")
	}
	chunkSize := binary.LittleEndian.Uint32(chunk[4:8])
	// The chunk payload plus its header must fit in the RIFF payload
	// ("WEBP" + chunk header + padded payload).
	if uint64(chunkSize)+uint64(ChunkHeaderSize)+4 > uint64(riffSize)+1 {
		return 0, 0, errors.Wrap(ErrNotWebP, "chunk size exceeds RIFF payload")
	}
	return RIFFHeaderSize + ChunkHeaderSize, int(chunkSize), nil
}

// Payload extracts the VP8 bitstream from a complete WebP file.
func Payload(data []byte) ([]byte, error) {
	off, size, err := CheckHeader(data)
	if err != nil {
		return nil, err
	}
	if off == 0 {
		return data, nil
	}
	if off+size > len(data) {
		return nil, errors.Wrap(ErrShortData, "chunk payload truncated")
	}
	return data[off : off+size], nil
}
