package vp8

import "github.com/pkg/errors"

// Frame memory setup and the main decoding loop.

// initFrame sizes all per-frame buffers and primes the Io views. Safe to
// call again for a new frame; buffers are reused when large enough.
func (d *Decoder) initFrame(io *Io) error {
	mbW := d.mbW
	extraRows := kFilterExtraRows[d.filterType]

	growBytes := func(s []byte, n int) []byte {
		if cap(s) >= n {
			s = s[:n]
			for i := range s {
				s[i] = 0
			}
			return s
		}
		return make([]byte, n)
	}

	if cap(d.intraT) >= 4*mbW {
		d.intraT = d.intraT[:4*mbW]
	} else {
		d.intraT = make([]uint8, 4*mbW)
	}
	for i := range d.intraT {
		d.intraT[i] = 0 // B_DC_PRED
	}
	d.yT = growBytes(d.yT, 16*mbW)
	d.uT = growBytes(d.uT, 8*mbW)
	d.vT = growBytes(d.vT, 8*mbW)

	if cap(d.mbInfo) >= mbW+1 {
		d.mbInfo = d.mbInfo[:mbW+1]
		for i := range d.mbInfo {
			d.mbInfo[i] = MB{}
		}
	} else {
		d.mbInfo = make([]MB, mbW+1)
	}

	d.yuvB = growBytes(d.yuvB, YUVSize)
	if d.coeffs == nil {
		d.coeffs = make([]int16, 384)
	}

	d.cacheYStride = 16 * mbW
	d.cacheUVStride = 8 * mbW
	extraY := extraRows * d.cacheYStride
	extraUV := (extraRows / 2) * d.cacheUVStride
	cacheSize := extraY + 16*d.cacheYStride +
		2*(extraUV+8*d.cacheUVStride)
	if cacheSize <= 0 {
		return d.fail(StatusOutOfMemory, "frame cache size overflow")
	}
	d.cache = growBytes(d.cache, cacheSize)
	d.cacheY = extraY
	d.cacheU = d.cacheY + 16*d.cacheYStride + extraUV
	d.cacheV = d.cacheU + 8*d.cacheUVStride + extraUV

	d.mbX = 0
	d.mbY = 0

	io.Width = d.picHdr.Width
	io.Height = d.picHdr.Height
	io.MBY = 0
	io.YStride = d.cacheYStride
	io.UVStride = d.cacheUVStride
	return nil
}

// initScanline resets the left context at the start of a macroblock row.
func (d *Decoder) initScanline() {
	left := &d.mbInfo[0]
	left.Nz = 0
	left.DCNz = 0
	for i := range d.intraL {
		d.intraL[i] = 0 // B_DC_PRED
	}
}

// parseFrame runs the macroblock loop over the whole frame.
func (d *Decoder) parseFrame(io *Io, sink Sink) error {
	for d.mbY = 0; d.mbY < d.mbH; d.mbY++ {
		d.initScanline()
		tokenBr := d.tokenReaderFor(d.mbY)
		for d.mbX = 0; d.mbX < d.mbW; d.mbX++ {
			if !d.decodeMB(tokenBr) {
				return d.fail(StatusNotEnoughData, "premature end-of-file")
			}
			d.reconstructBlock()
			d.storeBlock()
		}
		if !d.finishRowAsync(io, sink) {
			return d.fail(StatusUserAbort, "output sink aborted")
		}
	}
	return nil
}

// DecodeFrameOptions lets callers disable the in-loop filter or fancy
// upsampling before the frame is decoded.
type DecodeFrameOptions struct {
	BypassFiltering   bool
	NoFancyUpsampling bool
}

// DecodeFrame decodes the whole frame after GetHeaders succeeded,
// pushing finished rows into sink.
func (d *Decoder) DecodeFrame(sink Sink, opts DecodeFrameOptions) error {
	if !d.ready {
		if d.lastErr != nil {
			return d.lastErr
		}
		return errors.Wrap(StatusInvalidParam, "headers not parsed")
	}
	if opts.BypassFiltering {
		d.filterType = 0
	}
	var io Io
	io.BypassFiltering = opts.BypassFiltering
	io.NoFancyUpsampling = opts.NoFancyUpsampling
	if err := d.initFrame(&io); err != nil {
		return err
	}
	if sink != nil && !sink.Setup(&io) {
		return d.fail(StatusUserAbort, "frame setup failed")
	}
	err := d.parseFrame(&io, sink)
	if sink != nil {
		sink.Teardown(&io)
	}
	d.ready = false
	return err
}
