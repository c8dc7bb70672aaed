// Package vp8 decodes VP8 intra-frame (keyframe) bitstreams.
//
// The decoder follows the classic reconstruction pipeline: an arithmetic
// reader drives header and residual parsing, macroblocks are predicted
// and inverse-transformed into a small scratch buffer, rows accumulate in
// a cache that the in-loop filter revisits before each finished row is
// handed to the caller through the Io callbacks. An incremental driver
// (idec.go) wraps the same decoder with byte-level suspend/resume.
package vp8

import (
	"github.com/pkg/errors"

	"github.com/pixelwerk/webpcore/internal/bitio"
	"github.com/pixelwerk/webpcore/internal/dsp"
	"github.com/pixelwerk/webpcore/internal/worker"
)

// Status enumerates decoder outcomes, including the recoverable
// suspension states used by the incremental driver.
type Status int

const (
	StatusOk Status = iota
	StatusOutOfMemory
	StatusInvalidParam
	StatusBitstreamError
	StatusUnsupportedFeature
	StatusSuspended
	StatusUserAbort
	StatusNotEnoughData
)

var statusNames = [...]string{
	"ok", "out of memory", "invalid parameter", "bitstream error",
	"unsupported feature", "suspended", "user abort", "not enough data",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown status"
	}
	return statusNames[s]
}

// Error makes a non-ok Status usable as an error value.
func (s Status) Error() string { return "vp8: " + s.String() }

// StatusOf extracts the Status carried by err (possibly wrapped with
// context), defaulting to StatusBitstreamError for foreign errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOk
	}
	if s, ok := errors.Cause(err).(Status); ok {
		return s
	}
	return StatusBitstreamError
}

// Sizes, in macroblock-structure units.
const (
	NumMBSegments      = 4
	MBFeatureTreeProbs = 3
	NumRefLFDeltas     = 4
	NumModeLFDeltas    = 4
	MaxNumPartitions   = 8

	NumTypes  = 4 // coefficient plane types
	NumBands  = 8
	NumCtx    = 3
	NumProbas = 11
)

// Reconstruction scratch-buffer geometry. One macroblock of Y/U/V plus
// one-pixel context strips, at a common stride of BPS bytes.
const (
	BPS     = dsp.BPS
	YSize   = BPS * 17
	UVSize  = BPS * 9
	YUVSize = YSize + UVSize

	YOff = BPS*1 + 8
	UOff = YOff + BPS*16 + BPS
	VOff = UOff + 16
)

// FrameHeader is the uncompressed 3-byte frame tag.
type FrameHeader struct {
	KeyFrame        bool
	Profile         uint8
	Show            bool
	PartitionLength uint32
}

// PictureHeader holds the keyframe picture dimensions and scale hints.
type PictureHeader struct {
	Width, Height  int
	XScale, YScale uint8
	Colorspace     uint8
	ClampType      uint8
}

// SegmentHeader holds segment-based quantizer and filter overrides.
type SegmentHeader struct {
	UseSegment     bool
	UpdateMap      bool
	AbsoluteDelta  bool
	Quantizer      [NumMBSegments]int8
	FilterStrength [NumMBSegments]int8
}

// FilterHeader holds the loop-filter parameters.
type FilterHeader struct {
	Simple      bool
	Level       int // 0..63
	Sharpness   int // 0..7
	UseLFDelta  bool
	RefLFDelta  [NumRefLFDeltas]int
	ModeLFDelta [NumModeLFDeltas]int
}

// MB is the per-column macroblock record: the left/top coefficient
// context plus the filter strength chosen while the block was stored.
// Index 0 of the mbInfo row is the left sentinel; entry x+1 belongs to
// macroblock column x.
type MB struct {
	Skip    bool
	FLevel  uint8 // filter strength, 0..63
	FILevel uint8 // inner limit, 1..63
	FInner  bool
	Nz      uint8 // packed non-zero context, 4 luma + 4 chroma bits
	DCNz    uint8
}

// QuantMatrix holds one segment's dequantization factors as [DC, AC].
type QuantMatrix struct {
	Y1 [2]uint16
	Y2 [2]uint16
	UV [2]uint16
}

// Proba collects the frame-persistent probability tables.
type Proba struct {
	Segments [MBFeatureTreeProbs]uint8
	// Type: 0 = Intra16 AC, 1 = Intra16 DC (WHT), 2 = chroma, 3 = Intra4.
	Coeffs [NumTypes][NumBands][NumCtx][NumProbas]uint8
}

// Decoder is the VP8 keyframe decoder.
type Decoder struct {
	ready   bool
	lastErr error // sticky terminal error

	// incremental relaxes structural checks that assume the whole
	// payload is present (token partitions may still be arriving).
	incremental bool

	br bitio.BoolReader // partition #0 (headers + modes)

	frmHdr    FrameHeader
	picHdr    PictureHeader
	filterHdr FilterHeader
	segHdr    SegmentHeader

	mbW, mbH int

	numParts int
	parts    [MaxNumPartitions]bitio.BoolReader
	// Partition window offsets within the token area (the bytes that
	// follow partition #0), kept so the incremental driver can rebind
	// the readers after its buffer moves.
	partOff [MaxNumPartitions]int

	dqm [NumMBSegments]QuantMatrix

	proba        Proba
	useSkipProba bool
	skipP        uint8

	// Boundary caches.
	intraT []uint8 // top intra modes, 4 per macroblock column
	intraL [4]uint8
	yT     []uint8 // top luma samples, 16 per column
	uT, vT []uint8 // top chroma samples, 8 per column

	mbInfo []MB // mbW+1 entries; entry 0 is the left sentinel

	yuvB   []byte  // reconstruction scratch, YUVSize bytes
	coeffs []int16 // 384 residual coefficients

	// Row cache. cacheY/U/V index row 0 of the current macroblock row;
	// kFilterExtraRows rows of the previous row precede them in the slab
	// so the deblocker can reach above.
	cache         []byte
	cacheY        int // offset of luma row 0 in cache
	cacheU        int
	cacheV        int
	cacheYStride  int
	cacheUVStride int

	// Per-macroblock transient state.
	mbX, mbY  int
	isI4x4    bool
	imodes    [16]uint8
	uvMode    uint8
	segment   uint8
	nonZero   uint32 // 24-bit map of 4x4 blocks with any coefficient
	nonZeroAC uint32 // blocks needing the full transform: coded AC for i16 luma, any coded token otherwise

	filterType   int // 0 = off, 1 = simple, 2 = complex
	filterLevels [NumMBSegments]uint8

	// Optional worker running the deblock-and-emit phase. The decoder
	// syncs before the cache is touched again, so any Interface
	// implementation preserves ordering.
	wrk worker.Interface
}

// workerInterface aliases the monitor contract of the worker package.
type workerInterface = worker.Interface

// SetWorker installs a worker for the deblock-and-emit phase. Call
// before decoding; pass nil to run inline.
func (d *Decoder) SetWorker(w worker.Interface) {
	d.wrk = w
}

// bitReader is the boolean decoder used by every parsing routine.
type bitReader = bitio.BoolReader

// kFilterExtraRows gives the luma rows of deblocking lag per filter type.
var kFilterExtraRows = [3]int{0, 4, 8}

// fail latches err as the decoder's terminal state and returns it.
func (d *Decoder) fail(s Status, msg string) error {
	err := errors.Wrap(s, msg)
	d.lastErr = err
	d.ready = false
	return err
}

// Width returns the picture width parsed from the headers.
func (d *Decoder) Width() int { return d.picHdr.Width }

// Height returns the picture height parsed from the headers.
func (d *Decoder) Height() int { return d.picHdr.Height }

// MBWidth and MBHeight return the frame size in macroblock units.
func (d *Decoder) MBWidth() int  { return d.mbW }
func (d *Decoder) MBHeight() int { return d.mbH }
