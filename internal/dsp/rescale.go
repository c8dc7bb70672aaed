package dsp

// Row-oriented fixed-point rescaler. Horizontal resampling is a box
// filter when shrinking and bilinear interpolation when expanding;
// vertical resampling accumulates imported rows and emits one output row
// whenever the vertical accumulator crosses zero.

// RFix is the fixed-point precision of the rescaler multiplies.
const RFix = 30

func rescaleMult(x, y int64) int64 {
	return (x*y + 1<<(RFix-1)) >> RFix
}

// Rescaler carries the per-plane rescaling state.
type Rescaler struct {
	xExpand             bool
	srcWidth, srcHeight int
	dstWidth, dstHeight int
	xAdd, xSub          int
	yAccum, yAdd, ySub  int
	fxScale             int64
	fyScale             int64
	fxyScale            int64
	irow, frow          []int32
}

// InitRescaler prepares a rescaler mapping srcWidth x srcHeight onto
// dstWidth x dstHeight. Chroma planes pass their own (halved) sizes.
func InitRescaler(r *Rescaler, srcWidth, srcHeight, dstWidth, dstHeight int) {
	xAdd, xSub := srcWidth, dstWidth
	yAdd, ySub := srcHeight, dstHeight

	r.xExpand = srcWidth < dstWidth
	r.srcWidth = srcWidth
	r.srcHeight = srcHeight
	r.dstWidth = dstWidth
	r.dstHeight = dstHeight
	if r.xExpand {
		r.xAdd = xSub - 1
		r.xSub = xAdd - 1
	} else {
		r.xAdd = xAdd - xSub
		r.xSub = xSub
	}
	r.yAccum = yAdd
	r.yAdd = yAdd
	r.ySub = ySub
	r.fxScale = (1 << RFix) / int64(xSub)
	r.fyScale = (1 << RFix) / int64(ySub)
	if r.xExpand {
		r.fxyScale = (int64(dstHeight) << RFix) / int64(xSub*srcHeight)
	} else {
		r.fxyScale = (int64(dstHeight) << RFix) / int64(xAdd*srcHeight)
	}
	r.irow = make([]int32, dstWidth)
	r.frow = make([]int32, dstWidth)
}

// ImportRow folds one source row into the accumulators.
func (r *Rescaler) ImportRow(src []byte) {
	if !r.xExpand {
		xIn := 0
		accum := 0
		sum := int64(0)
		for xOut := 0; xOut < r.dstWidth; xOut++ {
			accum += r.xAdd
			for ; accum > 0; accum -= r.xSub {
				sum += int64(src[xIn])
				xIn++
			}
			base := int64(src[xIn])
			xIn++
			frac := base * int64(-accum)
			r.frow[xOut] = int32((sum+base)*int64(r.xSub) - frac)
			sum = rescaleMult(frac, r.fxScale) // fractional carry-over
		}
	} else {
		left, right := int32(src[0]), int32(src[0])
		xIn := 0
		accum := 0
		for xOut := 0; xOut < r.dstWidth; xOut++ {
			if accum < 0 {
				left = right
				xIn++
				right = int32(src[xIn])
				accum += r.xAdd
			}
			r.frow[xOut] = right*int32(r.xAdd) + (left-right)*int32(accum)
			accum -= r.xSub
		}
	}
	for x := 0; x < r.dstWidth; x++ {
		r.irow[x] += r.frow[x]
	}
	r.yAccum -= r.ySub
}

// HasRow reports whether a destination row is ready to export.
func (r *Rescaler) HasRow() bool {
	return r.yAccum <= 0
}

// ExportRow emits one destination row into dst and re-arms the vertical
// accumulator, keeping the fractional remainder for the next row.
func (r *Rescaler) ExportRow(dst []byte) {
	yscale := r.fyScale * int64(-r.yAccum)
	for x := 0; x < r.dstWidth; x++ {
		frac := rescaleMult(int64(r.frow[x]), yscale)
		v := rescaleMult(int64(r.irow[x])-frac, r.fxyScale)
		if v&^0xff != 0 {
			if v < 0 {
				v = 0
			} else {
				v = 255
			}
		}
		dst[x] = uint8(v)
		r.irow[x] = int32(frac)
	}
	r.yAccum += r.yAdd
}

// Rescale drives numRows source rows through the rescaler, exporting
// ready rows via emit(dstRow). It returns the number of rows emitted.
func (r *Rescaler) Rescale(src []byte, srcStride, numRows int, emit func() []byte) int {
	out := 0
	for ; numRows > 0; numRows-- {
		r.ImportRow(src[:r.srcWidth])
		src = src[srcStride:]
		for r.HasRow() {
			r.ExportRow(emit())
			out++
		}
	}
	return out
}
