package dsp

// Intra predictors. Every function takes the reconstruction buffer and
// the offset of the block's top-left pixel; the context lives at
// buf[off-BPS+i] (top row), buf[off-1+j*BPS] (left column) and
// buf[off-BPS-1] (top-left corner).

// Prediction mode numbering. The first four double as the 16x16 and
// chroma modes; the DC border variants extend the dispatch tables past
// the coded modes.
const (
	BDCPred = iota // 4x4 and 16x16 DC
	BTMPred        // "true motion"
	BVEPred        // vertical
	BHEPred        // horizontal
	BRDPred        // down-right diagonal
	BVRPred        // vertical-right
	BLDPred        // down-left diagonal
	BVLPred        // vertical-left
	BHDPred        // horizontal-down
	BHUPred        // horizontal-up

	BDCPredNoTop     = 4
	BDCPredNoLeft    = 5
	BDCPredNoTopLeft = 6
)

// 16x16 luma mode aliases.
const (
	DCPred = BDCPred
	TMPred = BTMPred
	VPred  = BVEPred
	HPred  = BHEPred
	BPred  = NumBModes // 4x4 sub-modes follow
)

func avg2(a, b uint8) uint8 { return uint8((int(a) + int(b) + 1) >> 1) }
func avg3(a, b, c uint8) uint8 {
	return uint8((int(a) + 2*int(b) + int(c) + 2) >> 2)
}

func fill(buf []byte, off, w, h int, v uint8) {
	for j := 0; j < h; j++ {
		row := buf[off+j*BPS : off+j*BPS+w]
		for i := range row {
			row[i] = v
		}
	}
}

// ---- square DC/TM/V/H predictors, parameterised by block size ----

func dcBlock(buf []byte, off, size, round, shift int, useTop, useLeft bool) {
	dc := round
	if useTop {
		for i := 0; i < size; i++ {
			dc += int(buf[off+i-BPS])
		}
	}
	if useLeft {
		for j := 0; j < size; j++ {
			dc += int(buf[off-1+j*BPS])
		}
	}
	fill(buf, off, size, size, uint8(dc>>uint(shift)))
}

func tmBlock(buf []byte, off, size int) {
	tl := int(buf[off-BPS-1])
	for j := 0; j < size; j++ {
		base := int(buf[off-1+j*BPS]) - tl
		row := off + j*BPS
		for i := 0; i < size; i++ {
			buf[row+i] = Clip8(base + int(buf[off+i-BPS]))
		}
	}
}

func veBlock(buf []byte, off, size int) {
	for j := 0; j < size; j++ {
		copy(buf[off+j*BPS:off+j*BPS+size], buf[off-BPS:off-BPS+size])
	}
}

func heBlock(buf []byte, off, size int) {
	for j := 0; j < size; j++ {
		fill(buf, off+j*BPS, size, 1, buf[off-1+j*BPS])
	}
}

func dc16(b []byte, o int)       { dcBlock(b, o, 16, 16, 5, true, true) }
func tm16(b []byte, o int)       { tmBlock(b, o, 16) }
func ve16(b []byte, o int)       { veBlock(b, o, 16) }
func he16(b []byte, o int)       { heBlock(b, o, 16) }
func dc16NoTop(b []byte, o int)  { dcBlock(b, o, 16, 8, 4, false, true) }
func dc16NoLeft(b []byte, o int) { dcBlock(b, o, 16, 8, 4, true, false) }
func dc16NoTopLeft(b []byte, o int) {
	fill(b, o, 16, 16, 128)
}

func dc8(b []byte, o int)       { dcBlock(b, o, 8, 8, 4, true, true) }
func tm8(b []byte, o int)       { tmBlock(b, o, 8) }
func ve8(b []byte, o int)       { veBlock(b, o, 8) }
func he8(b []byte, o int)       { heBlock(b, o, 8) }
func dc8NoTop(b []byte, o int)  { dcBlock(b, o, 8, 4, 3, false, true) }
func dc8NoLeft(b []byte, o int) { dcBlock(b, o, 8, 4, 3, true, false) }
func dc8NoTopLeft(b []byte, o int) {
	fill(b, o, 8, 8, 128)
}

// ---- 4x4 predictors ----
//
// Naming of context pixels follows the bitstream description:
// A..D top row, E..H top-right, I..L left column, X top-left corner.

func dc4(b []byte, o int) { dcBlock(b, o, 4, 4, 3, true, true) }
func tm4(b []byte, o int) { tmBlock(b, o, 4) }

func ve4(b []byte, o int) {
	top := o - BPS
	vals := [4]uint8{
		avg3(b[top-1], b[top+0], b[top+1]),
		avg3(b[top+0], b[top+1], b[top+2]),
		avg3(b[top+1], b[top+2], b[top+3]),
		avg3(b[top+2], b[top+3], b[top+4]),
	}
	for j := 0; j < 4; j++ {
		copy(b[o+j*BPS:o+j*BPS+4], vals[:])
	}
}

func he4(b []byte, o int) {
	x := b[o-BPS-1]
	i := b[o-1]
	j := b[o-1+BPS]
	k := b[o-1+2*BPS]
	l := b[o-1+3*BPS]
	put4(b, o+0*BPS, avg3(x, i, j))
	put4(b, o+1*BPS, avg3(i, j, k))
	put4(b, o+2*BPS, avg3(j, k, l))
	put4(b, o+3*BPS, avg3(k, l, l))
}

func put4(b []byte, off int, v uint8) {
	b[off+0] = v
	b[off+1] = v
	b[off+2] = v
	b[off+3] = v
}

func rd4(b []byte, o int) {
	i := b[o-1]
	j := b[o-1+BPS]
	k := b[o-1+2*BPS]
	l := b[o-1+3*BPS]
	x := b[o-BPS-1]
	a := b[o-BPS]
	bb := b[o-BPS+1]
	c := b[o-BPS+2]
	d := b[o-BPS+3]

	dst := func(x, y int, v uint8) { b[o+x+y*BPS] = v }
	dst(0, 3, avg3(j, k, l))
	v := avg3(i, j, k)
	dst(1, 3, v)
	dst(0, 2, v)
	v = avg3(x, i, j)
	dst(2, 3, v)
	dst(1, 2, v)
	dst(0, 1, v)
	v = avg3(a, x, i)
	dst(3, 3, v)
	dst(2, 2, v)
	dst(1, 1, v)
	dst(0, 0, v)
	v = avg3(bb, a, x)
	dst(3, 2, v)
	dst(2, 1, v)
	dst(1, 0, v)
	v = avg3(c, bb, a)
	dst(3, 1, v)
	dst(2, 0, v)
	dst(3, 0, avg3(d, c, bb))
}

func ld4(b []byte, o int) {
	a := b[o-BPS]
	bb := b[o-BPS+1]
	c := b[o-BPS+2]
	d := b[o-BPS+3]
	e := b[o-BPS+4]
	f := b[o-BPS+5]
	g := b[o-BPS+6]
	h := b[o-BPS+7]

	dst := func(x, y int, v uint8) { b[o+x+y*BPS] = v }
	dst(0, 0, avg3(a, bb, c))
	v := avg3(bb, c, d)
	dst(1, 0, v)
	dst(0, 1, v)
	v = avg3(c, d, e)
	dst(2, 0, v)
	dst(1, 1, v)
	dst(0, 2, v)
	v = avg3(d, e, f)
	dst(3, 0, v)
	dst(2, 1, v)
	dst(1, 2, v)
	dst(0, 3, v)
	v = avg3(e, f, g)
	dst(3, 1, v)
	dst(2, 2, v)
	dst(1, 3, v)
	v = avg3(f, g, h)
	dst(3, 2, v)
	dst(2, 3, v)
	dst(3, 3, avg3(g, h, h))
}

func vr4(b []byte, o int) {
	i := b[o-1]
	j := b[o-1+BPS]
	k := b[o-1+2*BPS]
	x := b[o-BPS-1]
	a := b[o-BPS]
	bb := b[o-BPS+1]
	c := b[o-BPS+2]
	d := b[o-BPS+3]

	dst := func(x, y int, v uint8) { b[o+x+y*BPS] = v }
	v := avg2(x, a)
	dst(0, 0, v)
	dst(1, 2, v)
	v = avg2(a, bb)
	dst(1, 0, v)
	dst(2, 2, v)
	v = avg2(bb, c)
	dst(2, 0, v)
	dst(3, 2, v)
	dst(3, 0, avg2(c, d))

	dst(0, 3, avg3(k, j, i))
	dst(0, 2, avg3(j, i, x))
	v = avg3(i, x, a)
	dst(0, 1, v)
	dst(1, 3, v)
	v = avg3(x, a, bb)
	dst(1, 1, v)
	dst(2, 3, v)
	v = avg3(a, bb, c)
	dst(2, 1, v)
	dst(3, 3, v)
	dst(3, 1, avg3(bb, c, d))
}

func vl4(b []byte, o int) {
	a := b[o-BPS]
	bb := b[o-BPS+1]
	c := b[o-BPS+2]
	d := b[o-BPS+3]
	e := b[o-BPS+4]
	f := b[o-BPS+5]
	g := b[o-BPS+6]
	h := b[o-BPS+7]

	dst := func(x, y int, v uint8) { b[o+x+y*BPS] = v }
	dst(0, 0, avg2(a, bb))
	v := avg2(bb, c)
	dst(1, 0, v)
	dst(0, 2, v)
	v = avg2(c, d)
	dst(2, 0, v)
	dst(1, 2, v)
	v = avg2(d, e)
	dst(3, 0, v)
	dst(2, 2, v)

	dst(0, 1, avg3(a, bb, c))
	v = avg3(bb, c, d)
	dst(1, 1, v)
	dst(0, 3, v)
	v = avg3(c, d, e)
	dst(2, 1, v)
	dst(1, 3, v)
	v = avg3(d, e, f)
	dst(3, 1, v)
	dst(2, 3, v)
	dst(3, 2, avg3(e, f, g))
	dst(3, 3, avg3(f, g, h))
}

func hd4(b []byte, o int) {
	i := b[o-1]
	j := b[o-1+BPS]
	k := b[o-1+2*BPS]
	l := b[o-1+3*BPS]
	x := b[o-BPS-1]
	a := b[o-BPS]
	bb := b[o-BPS+1]
	c := b[o-BPS+2]

	dst := func(x, y int, v uint8) { b[o+x+y*BPS] = v }
	v := avg2(i, x)
	dst(0, 0, v)
	dst(2, 1, v)
	v = avg2(j, i)
	dst(0, 1, v)
	dst(2, 2, v)
	v = avg2(k, j)
	dst(0, 2, v)
	dst(2, 3, v)
	dst(0, 3, avg2(l, k))

	dst(3, 0, avg3(a, bb, c))
	dst(2, 0, avg3(x, a, bb))
	v = avg3(i, x, a)
	dst(1, 0, v)
	dst(3, 1, v)
	v = avg3(j, i, x)
	dst(1, 1, v)
	dst(3, 2, v)
	v = avg3(k, j, i)
	dst(1, 2, v)
	dst(3, 3, v)
	dst(1, 3, avg3(l, k, j))
}

func hu4(b []byte, o int) {
	i := b[o-1]
	j := b[o-1+BPS]
	k := b[o-1+2*BPS]
	l := b[o-1+3*BPS]

	dst := func(x, y int, v uint8) { b[o+x+y*BPS] = v }
	dst(0, 0, avg2(i, j))
	v := avg2(j, k)
	dst(2, 0, v)
	dst(0, 1, v)
	v = avg2(k, l)
	dst(2, 1, v)
	dst(0, 2, v)
	dst(1, 0, avg3(i, j, k))
	v = avg3(j, k, l)
	dst(3, 0, v)
	dst(1, 1, v)
	v = avg3(k, l, l)
	dst(3, 1, v)
	dst(1, 2, v)
	dst(3, 2, l)
	dst(2, 2, l)
	dst(0, 3, l)
	dst(1, 3, l)
	dst(2, 3, l)
	dst(3, 3, l)
}

func initPredictors() {
	PredLuma16 = [NumDCModes]PredFunc{
		dc16, tm16, ve16, he16, dc16NoTop, dc16NoLeft, dc16NoTopLeft,
	}
	PredChroma8 = [NumDCModes]PredFunc{
		dc8, tm8, ve8, he8, dc8NoTop, dc8NoLeft, dc8NoTopLeft,
	}
	PredLuma4 = [NumBModes]PredFunc{
		dc4, tm4, ve4, he4, rd4, vr4, ld4, vl4, hd4, hu4,
	}
}

// CheckMode redirects DC prediction to its border variants for blocks on
// the top or left picture edge.
func CheckMode(mbX, mbY, mode int) int {
	if mode == BDCPred {
		if mbX == 0 {
			if mbY == 0 {
				return BDCPredNoTopLeft
			}
			return BDCPredNoLeft
		}
		if mbY == 0 {
			return BDCPredNoTop
		}
	}
	return mode
}
