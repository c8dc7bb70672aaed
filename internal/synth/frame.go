package synth

import (
	"encoding/binary"

	"github.com/pixelwerk/webpcore/internal/vp8"
)

// Coeff describes one non-zero AC coefficient to embed: sub-block n of
// luma (in 4x4 scan order), coefficient position pos (1..15 in decode
// order), magnitude 1.
type Coeff struct {
	Block int
	Pos   int
}

// Frame holds the builder configuration.
type Frame struct {
	Width, Height int
	// QIndex is the base quantizer index (0..127).
	QIndex int
	// FilterLevel and Sharpness feed the loop-filter header.
	FilterLevel, Sharpness int
	// LumaCoeffs places unit AC coefficients into chosen luma blocks of
	// every macroblock (16x16 DC-predicted).
	LumaCoeffs []Coeff
}

// Build assembles a complete RIFF-wrapped stream for the frame.
func (f *Frame) Build() []byte {
	payload := f.BuildVP8()
	riff := make([]byte, 0, len(payload)+20)
	riff = append(riff, 'R', 'I', 'F', 'F')
	riff = binary.LittleEndian.AppendUint32(riff, uint32(4+8+len(payload)+len(payload)&1))
	riff = append(riff, 'W', 'E', 'B', 'P')
	riff = append(riff, 'V', 'P', '8', ' ')
	riff = binary.LittleEndian.AppendUint32(riff, uint32(len(payload)))
	riff = append(riff, payload...)
	if len(payload)&1 != 0 {
		riff = append(riff, 0)
	}
	return riff
}

// BuildVP8 assembles the raw VP8 payload (frame tag + partitions).
func (f *Frame) BuildVP8() []byte {
	part0 := f.buildPart0()
	tokens := f.buildTokens()

	// Uncompressed frame tag: keyframe, profile 0, show, partition size.
	tag := uint32(0)<<0 | 0<<1 | 1<<4 | uint32(len(part0))<<5
	out := []byte{
		byte(tag), byte(tag >> 8), byte(tag >> 16),
		0x9d, 0x01, 0x2a,
		byte(f.Width), byte(f.Width >> 8),
		byte(f.Height), byte(f.Height >> 8),
	}
	out = append(out, part0...)
	out = append(out, tokens...)
	return out
}

// buildPart0 writes the compressed frame header with every feature off.
func (f *Frame) buildPart0() []byte {
	e := NewBoolEncoder()
	e.PutFlag(0) // colorspace
	e.PutFlag(0) // clamp type
	e.PutFlag(0) // use_segment

	// Filter header.
	e.PutFlag(0)                               // simple filter off (complex)
	e.PutValue(uint32(f.FilterLevel), 6)       // level
	e.PutValue(uint32(f.Sharpness), 3)         // sharpness
	e.PutFlag(0)                               // no lf deltas

	e.PutValue(0, 2) // one token partition

	// Quantizer: base index, no deltas.
	e.PutValue(uint32(f.QIndex), 7)
	for i := 0; i < 5; i++ {
		e.PutFlag(0)
	}

	e.PutFlag(0) // update_proba (ignored for keyframes)

	// Keep every default coefficient probability.
	for t := 0; t < vp8.NumTypes; t++ {
		for b := 0; b < vp8.NumBands; b++ {
			for c := 0; c < vp8.NumCtx; c++ {
				for p := 0; p < vp8.NumProbas; p++ {
					e.PutBit(vp8.CoeffsUpdateProba[t][b][c][p], 0)
				}
			}
		}
	}
	e.PutFlag(0) // no skip probability

	// Per-macroblock modes: 16x16 DC luma, DC chroma.
	mbW := (f.Width + 15) >> 4
	mbH := (f.Height + 15) >> 4
	for i := 0; i < mbW*mbH; i++ {
		e.PutBit(145, 1) // not intra 4x4
		e.PutBit(156, 0)
		e.PutBit(163, 0) // DC 16x16
		e.PutBit(142, 0) // DC chroma
	}
	return e.Finish()
}

// coeffProbs picks the decoder's probability row for (type, band, ctx).
func coeffProbs(t, band, ctx int) *[vp8.NumProbas]uint8 {
	return &vp8.CoeffsProba0[t][int(kBands[band])][ctx]
}

var kBands = [17]uint8{0, 1, 2, 3, 6, 4, 5, 6, 6, 6, 6, 6, 6, 6, 6, 7, 0}

// putEmptyBlock writes "no coefficients" for one block.
func putEmptyBlock(e *BoolEncoder, t, firstCoeff, ctx int) {
	p := coeffProbs(t, firstCoeff, ctx)
	e.PutBit(p[0], 0)
}

// putUnitAC writes a single +1 coefficient at decode position pos
// (>= 1) preceded by zero runs, then an end-of-block.
func putUnitAC(e *BoolEncoder, t, firstCoeff, ctx, pos int) {
	n := firstCoeff
	p := coeffProbs(t, n, ctx)
	e.PutBit(p[0], 1) // block has coefficients
	for {
		n++
		if n-1 < pos {
			e.PutBit(p[1], 0) // zero coefficient, keep going
			p = coeffProbs(t, n, 0)
			continue
		}
		e.PutBit(p[1], 1) // non-zero
		e.PutBit(p[2], 0) // magnitude 1
		pNext := coeffProbs(t, n, 1)
		e.PutFlag(0) // positive sign
		if n < 16 {
			e.PutBit(pNext[0], 0) // end of block
		}
		return
	}
}

// buildTokens writes the single token partition. Every macroblock gets
// an empty WHT block and chroma, and the requested luma coefficients.
func (f *Frame) buildTokens() []byte {
	e := NewBoolEncoder()
	mbW := (f.Width + 15) >> 4
	mbH := (f.Height + 15) >> 4

	// Left/top nz contexts, mirroring the decoder's bookkeeping.
	topNz := make([][4]int, mbW)
	topDCNz := make([]int, mbW)

	for y := 0; y < mbH; y++ {
		var leftNz [4]int
		leftDCNz := 0
		for x := 0; x < mbW; x++ {
			// WHT (type 1), context from DC neighbors.
			putEmptyBlock(e, 1, 0, topDCNz[x]+leftDCNz)
			topDCNz[x] = 0
			leftDCNz = 0

			// Luma (type 0, coefficients start at 1).
			for by := 0; by < 4; by++ {
				l := leftNz[by]
				for bx := 0; bx < 4; bx++ {
					n := 4*by + bx
					ctx := l + topNz[x][bx]
					var nz int
					if pos, ok := f.lumaCoeffAt(n); ok {
						putUnitAC(e, 0, 1, ctx, pos)
						nz = 1
					} else {
						putEmptyBlock(e, 0, 1, ctx)
						nz = 0
					}
					l = nz
					topNz[x][bx] = nz
				}
				leftNz[by] = l
			}

			// Chroma (type 2): all empty. Contexts stay zero since
			// nothing ever sets them in these streams.
			for i := 0; i < 8; i++ {
				putEmptyBlock(e, 2, 0, 0)
			}
		}
	}
	return e.Finish()
}

func (f *Frame) lumaCoeffAt(block int) (int, bool) {
	for _, c := range f.LumaCoeffs {
		if c.Block == block {
			return c.Pos, true
		}
	}
	return 0, false
}
