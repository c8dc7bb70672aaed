package vp8

import (
	"github.com/pixelwerk/webpcore/internal/dsp"
)

// Macroblock reconstruction, storage and in-loop filtering.

// kScan maps 4x4 sub-block indices to byte offsets in the scratch buffer.
var kScan = [16]int{
	0 + 0*BPS, 4 + 0*BPS, 8 + 0*BPS, 12 + 0*BPS,
	0 + 4*BPS, 4 + 4*BPS, 8 + 4*BPS, 12 + 4*BPS,
	0 + 8*BPS, 4 + 8*BPS, 8 + 8*BPS, 12 + 8*BPS,
	0 + 12*BPS, 4 + 12*BPS, 8 + 12*BPS, 12 + 12*BPS,
}

func memset(dst []byte, v byte) {
	for i := range dst {
		dst[i] = v
	}
}

// reconstructBlock predicts the current macroblock and adds the decoded
// residuals, all inside the BPS-strided scratch buffer.
func (d *Decoder) reconstructBlock() {
	buf := d.yuvB

	// Rotate in the left samples from the previously decoded block, or
	// seed the left border for the first column.
	if d.mbX > 0 {
		for j := -1; j < 16; j++ {
			copy(buf[YOff+j*BPS-4:YOff+j*BPS], buf[YOff+j*BPS+12:YOff+j*BPS+16])
		}
		for j := -1; j < 8; j++ {
			copy(buf[UOff+j*BPS-4:UOff+j*BPS], buf[UOff+j*BPS+4:UOff+j*BPS+8])
			copy(buf[VOff+j*BPS-4:VOff+j*BPS], buf[VOff+j*BPS+4:VOff+j*BPS+8])
		}
	} else {
		for j := 0; j < 16; j++ {
			buf[YOff+j*BPS-1] = 129
		}
		for j := 0; j < 8; j++ {
			buf[UOff+j*BPS-1] = 129
			buf[VOff+j*BPS-1] = 129
		}
		if d.mbY > 0 {
			buf[YOff-1-BPS] = 129
			buf[UOff-1-BPS] = 129
			buf[VOff-1-BPS] = 129
		}
	}

	// Bring the top samples into the scratch context row.
	topY := d.yT[d.mbX*16 : d.mbX*16+16]
	topU := d.uT[d.mbX*8 : d.mbX*8+8]
	topV := d.vT[d.mbX*8 : d.mbX*8+8]
	if d.mbY > 0 {
		copy(buf[YOff-BPS:], topY)
		copy(buf[UOff-BPS:], topU)
		copy(buf[VOff-BPS:], topV)
	} else if d.mbX == 0 {
		// Top row of the picture: the 127 fill placed once at (0,0)
		// stays valid across the whole first macroblock row.
		memset(buf[YOff-BPS-1:YOff-BPS+16+4], 127)
		memset(buf[UOff-BPS-1:UOff-BPS+8], 127)
		memset(buf[VOff-BPS-1:VOff-BPS+8], 127)
	}

	coeffs := d.coeffs
	if d.isI4x4 {
		topRight := buf[YOff-BPS+16 : YOff-BPS+20]
		if d.mbY > 0 {
			if d.mbX >= d.mbW-1 {
				// Rightmost column: replicate the last top pixel.
				memset(topRight, topY[15])
			} else {
				copy(topRight, d.yT[(d.mbX+1)*16:(d.mbX+1)*16+4])
			}
		}
		// Replicate the top-right context beside each sub-block row.
		for r := 1; r <= 3; r++ {
			copy(buf[YOff-BPS+16+r*4*BPS:YOff-BPS+20+r*4*BPS], topRight)
		}

		for n := 0; n < 16; n++ {
			off := YOff + kScan[n]
			dsp.PredLuma4[d.imodes[n]](buf, off)
			d.addResiduals(n, coeffs[n*16:], buf[off:])
		}
	} else {
		mode := dsp.CheckMode(d.mbX, d.mbY, int(d.imodes[0]))
		dsp.PredLuma16[mode](buf, YOff)
		if d.nonZero != 0 {
			for n := 0; n < 16; n++ {
				d.addResiduals(n, coeffs[n*16:], buf[YOff+kScan[n]:])
			}
		}
	}

	// Chroma.
	mode := dsp.CheckMode(d.mbX, d.mbY, int(d.uvMode))
	dsp.PredChroma8[mode](buf, UOff)
	dsp.PredChroma8[mode](buf, VOff)
	if d.nonZero&0x0f0000 != 0 {
		uCoeffs := coeffs[16*16:]
		if d.nonZeroAC&0x0f0000 != 0 {
			dsp.TransformUV(uCoeffs, buf[UOff:])
		} else {
			dsp.TransformDCUV(uCoeffs, buf[UOff:])
		}
	}
	if d.nonZero&0xf00000 != 0 {
		vCoeffs := coeffs[20*16:]
		if d.nonZeroAC&0xf00000 != 0 {
			dsp.TransformUV(vCoeffs, buf[VOff:])
		} else {
			dsp.TransformDCUV(vCoeffs, buf[VOff:])
		}
	}

	// Stash the bottom row as next row's top context.
	if d.mbY < d.mbH-1 {
		copy(topY, buf[YOff+15*BPS:YOff+15*BPS+16])
		copy(topU, buf[UOff+7*BPS:UOff+7*BPS+8])
		copy(topV, buf[VOff+7*BPS:VOff+7*BPS+8])
	}
}

// addResiduals applies the inverse transform of luma sub-block n when it
// has coefficients.
func (d *Decoder) addResiduals(n int, coeffs []int16, dst []byte) {
	if d.nonZeroAC&(1<<uint(n)) != 0 {
		dsp.Transform(coeffs, dst, false)
	} else if d.nonZero&(1<<uint(n)) != 0 {
		dsp.TransformDC(coeffs, dst)
	}
}

// storeBlock saves the reconstructed macroblock into the row cache and
// fixes the block's filtering parameters.
func (d *Decoder) storeBlock() {
	if d.filterType > 0 {
		mb := &d.mbInfo[1+d.mbX]
		level := int(d.filterLevels[d.segment])
		if d.filterHdr.UseLFDelta {
			level += d.filterHdr.RefLFDelta[0]
			if d.isI4x4 {
				level += d.filterHdr.ModeLFDelta[0]
			}
		}
		level = clip(level, 63)
		mb.FLevel = uint8(level)

		if d.filterHdr.Sharpness > 0 {
			if d.filterHdr.Sharpness > 4 {
				level >>= 2
			} else {
				level >>= 1
			}
			if level > 9-d.filterHdr.Sharpness {
				level = 9 - d.filterHdr.Sharpness
			}
		}
		if level < 1 {
			level = 1
		}
		mb.FILevel = uint8(level)
		mb.FInner = !mb.Skip || d.isI4x4
	}

	yDst := d.cacheY + d.mbX*16
	uDst := d.cacheU + d.mbX*8
	vDst := d.cacheV + d.mbX*8
	for j := 0; j < 16; j++ {
		copy(d.cache[yDst+j*d.cacheYStride:yDst+j*d.cacheYStride+16],
			d.yuvB[YOff+j*BPS:YOff+j*BPS+16])
	}
	for j := 0; j < 8; j++ {
		copy(d.cache[uDst+j*d.cacheUVStride:uDst+j*d.cacheUVStride+8],
			d.yuvB[UOff+j*BPS:UOff+j*BPS+8])
		copy(d.cache[vDst+j*d.cacheUVStride:vDst+j*d.cacheUVStride+8],
			d.yuvB[VOff+j*BPS:VOff+j*BPS+8])
	}
}

// hevThresh maps the filter level to the high-edge-variance threshold.
// Keyframes use the tighter ladder.
func hevThresh(level int, keyframe bool) int {
	if keyframe {
		switch {
		case level >= 40:
			return 2
		case level >= 15:
			return 1
		}
		return 0
	}
	switch {
	case level >= 40:
		return 3
	case level >= 20:
		return 2
	case level >= 15:
		return 1
	}
	return 0
}

// doFilter deblocks one stored macroblock in the row cache.
func (d *Decoder) doFilter(mbX, mbY int) {
	mb := &d.mbInfo[1+mbX]
	level := int(mb.FLevel)
	if level == 0 {
		return
	}
	ilevel := int(mb.FILevel)
	limit := 2*level + ilevel

	yBPS := d.cacheYStride
	yOff := d.cacheY + mbX*16

	if d.filterType == 1 { // simple: luma only
		if mbX > 0 {
			dsp.SimpleHFilter16(d.cache, yOff, yBPS, limit+4)
		}
		if mb.FInner {
			dsp.SimpleHFilter16i(d.cache, yOff, yBPS, limit)
		}
		if mbY > 0 {
			dsp.SimpleVFilter16(d.cache, yOff, yBPS, limit+4)
		}
		if mb.FInner {
			dsp.SimpleVFilter16i(d.cache, yOff, yBPS, limit)
		}
	} else { // complex: luma + chroma
		uvBPS := d.cacheUVStride
		uOff := d.cacheU + mbX*8
		vOff := d.cacheV + mbX*8
		hev := hevThresh(level, d.frmHdr.KeyFrame)
		if mbX > 0 {
			dsp.HFilter16(d.cache, yOff, yBPS, limit+4, ilevel, hev)
			dsp.HFilter8(d.cache, uOff, uvBPS, limit+4, ilevel, hev)
			dsp.HFilter8(d.cache, vOff, uvBPS, limit+4, ilevel, hev)
		}
		if mb.FInner {
			dsp.HFilter16i(d.cache, yOff, yBPS, limit, ilevel, hev)
			dsp.HFilter8i(d.cache, uOff, uvBPS, limit, ilevel, hev)
			dsp.HFilter8i(d.cache, vOff, uvBPS, limit, ilevel, hev)
		}
		if mbY > 0 {
			dsp.VFilter16(d.cache, yOff, yBPS, limit+4, ilevel, hev)
			dsp.VFilter8(d.cache, uOff, uvBPS, limit+4, ilevel, hev)
			dsp.VFilter8(d.cache, vOff, uvBPS, limit+4, ilevel, hev)
		}
		if mb.FInner {
			dsp.VFilter16i(d.cache, yOff, yBPS, limit, ilevel, hev)
			dsp.VFilter8i(d.cache, uOff, uvBPS, limit, ilevel, hev)
			dsp.VFilter8i(d.cache, vOff, uvBPS, limit, ilevel, hev)
		}
	}
}

// finishRow deblocks the completed macroblock row, hands the finished
// rows to the sink (minus the filter lag) and rotates the cache. It
// returns false if the sink aborted.
func (d *Decoder) finishRow(io *Io, sink Sink) bool {
	extraYRows := kFilterExtraRows[d.filterType]
	ySize := extraYRows * d.cacheYStride
	uvSize := (extraYRows / 2) * d.cacheUVStride
	firstRow := d.mbY == 0
	lastRow := d.mbY >= d.mbH-1

	if d.filterType > 0 {
		for mbX := 0; mbX < d.mbW; mbX++ {
			d.doFilter(mbX, d.mbY)
		}
	}

	if sink != nil {
		yStart := d.mbY * 16
		yEnd := yStart + 16
		if !firstRow {
			// Expose the lagging rows of the previous strip now that the
			// filter can no longer touch them.
			yStart -= extraYRows
			io.Y = d.cache[d.cacheY-ySize:]
			io.U = d.cache[d.cacheU-uvSize:]
			io.V = d.cache[d.cacheV-uvSize:]
		} else {
			io.Y = d.cache[d.cacheY:]
			io.U = d.cache[d.cacheU:]
			io.V = d.cache[d.cacheV:]
		}
		if !lastRow {
			yEnd -= extraYRows
		}
		if yEnd > io.Height {
			yEnd = io.Height
		}
		io.MBY = yStart
		io.MBH = yEnd - yStart
		if io.MBH > 0 && !sink.Put(io) {
			return false
		}
	}

	// Rotate the lagging rows to the top of the cache for the next strip.
	if !lastRow {
		copy(d.cache[d.cacheY-ySize:d.cacheY], d.cache[d.cacheY+(16-extraYRows)*d.cacheYStride:d.cacheY+16*d.cacheYStride])
		copy(d.cache[d.cacheU-uvSize:d.cacheU], d.cache[d.cacheU+(8-extraYRows/2)*d.cacheUVStride:d.cacheU+8*d.cacheUVStride])
		copy(d.cache[d.cacheV-uvSize:d.cacheV], d.cache[d.cacheV+(8-extraYRows/2)*d.cacheUVStride:d.cacheV+8*d.cacheUVStride])
	}
	return true
}

// rowJob carries one finishRow invocation to the worker.
type rowJob struct {
	d    *Decoder
	io   *Io
	sink Sink
}

func runRowJob(data interface{}) bool {
	j := data.(*rowJob)
	return j.d.finishRow(j.io, j.sink)
}

// finishRowAsync routes finishRow through the configured worker, or
// runs it inline when none is set. It always syncs before returning:
// the next macroblock row writes into the cache the job reads from.
func (d *Decoder) finishRowAsync(io *Io, sink Sink) bool {
	if d.wrk == nil {
		return d.finishRow(io, sink)
	}
	job := rowJob{d: d, io: io, sink: sink}
	if !d.wrk.Launch(runRowJob, &job) {
		return d.finishRow(io, sink)
	}
	return d.wrk.Sync()
}
