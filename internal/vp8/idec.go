package vp8

// Incremental (suspend/resume) decoding driver.
//
// The driver buffers incoming bytes and walks the ordinary decoder one
// macroblock at a time. Before every macroblock the full parsing context
// is snapshotted; when a reader runs dry mid-macroblock the snapshot is
// restored and the driver suspends until more bytes arrive.

import (
	"github.com/pkg/errors"

	"github.com/pixelwerk/webpcore/internal/container"
)

// DriverState is the incremental driver's coarse progress.
type DriverState int

const (
	StateHeader DriverState = iota // waiting for RIFF + frame headers
	StatePart0                     // waiting for all of partition #0
	StateData                      // decoding macroblock data
	StateDone
	StateError
)

// Buffer handling modes. Latched on the first Append or Update call;
// mixing the two afterwards is a caller error.
type memMode int

const (
	memModeNone memMode = iota
	memModeAppend
	memModeMap
)

const (
	riffHeaderSize = 20
	vp8HeaderSize  = 10
	webpHeaderSize = riffHeaderSize + vp8HeaderSize

	// Growth quantum of the append buffer.
	chunkSize = 4096

	// A macroblock never spans more than this many bytes. A reader that
	// still starves with this much lookahead is decoding garbage.
	maxMBSize = 4096
)

// mbContext is the parsing state restored when a macroblock suspends.
// One value copy in, one copy back (the readers are plain values).
type mbContext struct {
	left    MB
	info    MB
	intraT  [4]uint8
	intraL  [4]uint8
	br      bitReader
	tokenBr bitReader
}

func (d *Decoder) saveContext(tokenBr *bitReader, ctx *mbContext) {
	ctx.left = d.mbInfo[0]
	ctx.info = d.mbInfo[1+d.mbX]
	copy(ctx.intraT[:], d.intraT[4*d.mbX:4*d.mbX+4])
	ctx.intraL = d.intraL
	ctx.br = d.br
	ctx.tokenBr = *tokenBr
}

func (d *Decoder) restoreContext(ctx *mbContext, tokenBr *bitReader) {
	d.mbInfo[0] = ctx.left
	d.mbInfo[1+d.mbX] = ctx.info
	copy(d.intraT[4*d.mbX:4*d.mbX+4], ctx.intraT[:])
	d.intraL = ctx.intraL
	d.br = ctx.br
	*tokenBr = ctx.tokenBr
}

// HeaderProbe extracts the frame geometry from the start of a VP8
// payload without building a decoder. Needs FrameHeaderSize bytes.
func HeaderProbe(data []byte) (width, height int, err error) {
	hdr, err := ParseFrameTag(data)
	if err != nil {
		return 0, 0, err
	}
	if !hdr.KeyFrame {
		return 0, 0, errors.Wrap(StatusUnsupportedFeature, "not a keyframe")
	}
	if len(data) < FrameHeaderSize {
		return 0, 0, errors.Wrap(StatusNotEnoughData, "truncated picture header")
	}
	if data[3] != sigByte0 || data[4] != sigByte1 || data[5] != sigByte2 {
		return 0, 0, errors.Wrap(StatusBitstreamError, "bad code word")
	}
	width = int(data[6]) | (int(data[7])&0x3f)<<8
	height = int(data[8]) | (int(data[9])&0x3f)<<8
	return width, height, nil
}

// Driver is the incremental decoder front-end.
type Driver struct {
	state DriverState
	mode  memMode

	dec  *Decoder
	io   Io
	sink Sink
	opts DecodeFrameOptions

	// Buffered input. In append mode buf is owned and grows by copying;
	// in map mode it aliases the caller's ever-growing buffer.
	buf   []byte
	start int // first unconsumed byte (the VP8 payload once in Part0+)
	end   int // total valid bytes

	part0Size int    // bytes of frame tag + partition #0
	part0Buf  []byte // private copy (append mode only)
	tokenOff  int    // offset of the token area within buf[start:]

	err error
}

// NewDriver creates an incremental driver feeding decoded rows to sink.
func NewDriver(sink Sink, opts DecodeFrameOptions) *Driver {
	dec := new(Decoder)
	dec.incremental = true
	return &Driver{
		state: StateHeader,
		dec:   dec,
		sink:  sink,
		opts:  opts,
	}
}

// State returns the driver's current progress state.
func (dr *Driver) State() DriverState { return dr.state }

// SetWorker installs a worker for the deblock-and-emit phase.
func (dr *Driver) SetWorker(w workerInterface) { dr.dec.SetWorker(w) }

// Width and Height are valid once the header state has been passed.
func (dr *Driver) Width() int  { return dr.dec.Width() }
func (dr *Driver) Height() int { return dr.dec.Height() }

// LastRow returns the number of fully decoded and emitted luma rows.
func (dr *Driver) LastRow() int {
	if dr.state < StateData {
		return 0
	}
	y := dr.dec.mbY*16 - kFilterExtraRows[dr.dec.filterType]
	if dr.state == StateDone || y > dr.dec.Height() {
		y = dr.dec.Height()
	}
	if y < 0 {
		y = 0
	}
	return y
}

func (dr *Driver) failDriver(s Status, msg string) Status {
	dr.state = StateError
	dr.err = errors.Wrap(s, msg)
	return s
}

func (dr *Driver) memDataSize() int { return dr.end - dr.start }

// Append copies data into the driver's private buffer and resumes
// decoding. The first call latches append mode.
func (dr *Driver) Append(data []byte) Status {
	if s := dr.checkState(memModeAppend); s != StatusSuspended {
		return s
	}
	if dr.end+len(data) > len(dr.buf) {
		// Grow and compact, then rebind every partition reader.
		need := dr.memDataSize() + len(data)
		newSize := (need + chunkSize - 1) / chunkSize * chunkSize
		newBuf := make([]byte, newSize)
		copy(newBuf, dr.buf[dr.start:dr.end])
		dr.buf = newBuf
		dr.end = dr.memDataSize()
		dr.start = 0
		dr.rebind()
	}
	copy(dr.buf[dr.end:], data)
	dr.end += len(data)
	dr.rebind()
	return dr.decode()
}

// Update hands the driver a caller-owned buffer that holds every byte
// seen so far plus the new tail. The buffer may move between calls but
// must never shrink. The first call latches map mode.
func (dr *Driver) Update(data []byte) Status {
	if s := dr.checkState(memModeMap); s != StatusSuspended {
		return s
	}
	if len(data) < dr.end {
		return dr.failDriver(StatusInvalidParam, "update buffer shrank")
	}
	dr.buf = data
	dr.end = len(data)
	dr.rebind()
	return dr.decode()
}

// Err returns the terminal error, if any, with its context.
func (dr *Driver) Err() error { return dr.err }

func (dr *Driver) checkState(want memMode) Status {
	switch dr.state {
	case StateError:
		return StatusOf(dr.err)
	case StateDone:
		return StatusOk
	}
	if dr.mode == memModeNone {
		dr.mode = want
	} else if dr.mode != want {
		dr.failDriver(StatusInvalidParam, "mixed Append and Update calls")
		return StatusInvalidParam
	}
	return StatusSuspended
}

// rebind re-points the decoder's bit readers after the buffer moved or
// grew. Reader cursors are offsets into their windows, so rebinding is
// pure window arithmetic.
func (dr *Driver) rebind() {
	if dr.state < StateData {
		return
	}
	dr.dec.RebindPartitions(dr.tokenArea())
	if dr.mode == memModeMap {
		// Partition #0 aliases the caller's buffer in map mode.
		payload := dr.buf[dr.start:dr.end]
		dr.dec.br.Rebase(payload[FrameHeaderSize:dr.part0Size])
	}
}

// tokenArea returns the region holding the token partitions.
func (dr *Driver) tokenArea() []byte {
	return dr.buf[dr.start+dr.tokenOff : dr.end]
}

// decode advances through the state machine as far as the buffered
// bytes allow.
func (dr *Driver) decode() Status {
	if dr.state == StateHeader {
		if s := dr.decodeWebPHeader(); s != StatusOk {
			return s
		}
	}
	if dr.state == StatePart0 {
		if s := dr.decodePartition0(); s != StatusOk {
			return s
		}
	}
	if dr.state == StateData {
		return dr.decodeRemaining()
	}
	return StatusSuspended
}

// decodeWebPHeader waits for the RIFF container preamble plus the VP8
// frame tag, then publishes the picture size.
func (dr *Driver) decodeWebPHeader() Status {
	if dr.memDataSize() < webpHeaderSize {
		return StatusSuspended
	}
	data := dr.buf[dr.start:dr.end]

	payloadOff, _, err := container.CheckHeader(data)
	if errors.Cause(err) == container.ErrShortData {
		return StatusSuspended
	}
	if err != nil {
		return dr.failDriver(StatusBitstreamError, "invalid container")
	}
	if len(data) < payloadOff+vp8HeaderSize {
		return StatusSuspended
	}

	payload := data[payloadOff:]
	hdr, err := ParseFrameTag(payload)
	if err != nil {
		return StatusSuspended
	}
	if _, _, err := HeaderProbe(payload); err != nil {
		return dr.failDriver(StatusOf(err), "invalid frame header")
	}
	riffSize := payloadOff

	dr.part0Size = int(hdr.PartitionLength) + vp8HeaderSize
	dr.start += riffSize
	dr.state = StatePart0
	return StatusOk
}

// decodePartition0 waits for the whole of partition #0, parses every
// header and sets up the frame.
func (dr *Driver) decodePartition0() Status {
	if dr.memDataSize() < dr.part0Size {
		return StatusSuspended
	}
	payload := dr.buf[dr.start:dr.end]
	if err := dr.dec.GetHeaders(payload); err != nil {
		s := StatusOf(err)
		if s == StatusSuspended || s == StatusNotEnoughData {
			// Not a bitstream problem, just starvation.
			return StatusSuspended
		}
		dr.state = StateError
		dr.err = err
		return s
	}
	dr.tokenOff = dr.part0Size

	if dr.opts.BypassFiltering {
		dr.dec.filterType = 0
	}
	dr.io.BypassFiltering = dr.opts.BypassFiltering
	dr.io.NoFancyUpsampling = dr.opts.NoFancyUpsampling

	if err := dr.dec.initFrame(&dr.io); err != nil {
		dr.state = StateError
		dr.err = err
		return StatusOf(err)
	}
	if dr.sink != nil && !dr.sink.Setup(&dr.io) {
		return dr.failDriver(StatusUserAbort, "frame setup failed")
	}

	// In append mode, move partition #0 into a private copy so later
	// reallocation of the rolling buffer cannot invalidate its reader.
	if dr.mode == memModeAppend {
		dr.part0Buf = make([]byte, dr.part0Size)
		copy(dr.part0Buf, payload[:dr.part0Size])
		dr.dec.br.Rebase(dr.part0Buf[FrameHeaderSize:dr.part0Size])
	}

	dr.state = StateData
	return StatusOk
}

// decodeRemaining drives the macroblock loop with per-MB checkpointing.
func (dr *Driver) decodeRemaining() Status {
	d := dr.dec
	for ; d.mbY < d.mbH; d.mbY++ {
		if d.mbX == 0 {
			d.initScanline()
		}
		tokenBr := d.tokenReaderFor(d.mbY)
		for ; d.mbX < d.mbW; d.mbX++ {
			var ctx mbContext
			d.saveContext(tokenBr, &ctx)
			if !d.decodeMB(tokenBr) {
				d.restoreContext(&ctx, tokenBr)
				// A macroblock that starves despite a full budget of
				// buffered bytes is a broken stream, not a suspension.
				if d.numParts == 1 {
					remaining := dr.memDataSize() - dr.tokenOff - tokenBr.Pos()
					if remaining > maxMBSize {
						return dr.failDriver(StatusBitstreamError, "stream starved mid-macroblock")
					}
				}
				return StatusSuspended
			}
			d.reconstructBlock()
			d.storeBlock()
		}
		if !d.finishRowAsync(&dr.io, dr.sink) {
			return dr.failDriver(StatusUserAbort, "output sink aborted")
		}
		d.mbX = 0
	}
	if dr.sink != nil {
		dr.sink.Teardown(&dr.io)
	}
	dr.state = StateDone
	return StatusOk
}
