package vp8

import "github.com/pixelwerk/webpcore/internal/dsp"

// Residual decoding (paragraphs 13.2 and 13.3).

// getCoeffs decodes up to 16 zig-zag-ordered coefficients of one 4x4
// block, dequantizing through dq = [DC factor, AC factor]. It returns 0
// for an empty block (end of block before the first token) and 1
// otherwise.
func getCoeffs(br *bitReader, prob *[NumBands][NumCtx][NumProbas]uint8, ctx int, dq *[2]uint16, n int, out []int16) int {
	p := &prob[kBands[n]][ctx]
	if br.GetBit(p[0]) == 0 { // first "EOB" doubles as the CBP bit
		return 0
	}
	for {
		n++
		if br.GetBit(p[1]) == 0 { // zero coefficient
			p = &prob[kBands[n]][0]
		} else { // non-zero coefficient
			var v int
			if br.GetBit(p[2]) == 0 {
				v = 1
				p = &prob[kBands[n]][1]
			} else {
				if br.GetBit(p[3]) == 0 {
					if br.GetBit(p[4]) == 0 {
						v = 2
					} else {
						v = 3 + br.GetBit(p[5])
					}
				} else {
					if br.GetBit(p[6]) == 0 {
						if br.GetBit(p[7]) == 0 {
							v = 5 + br.GetBit(159)
						} else {
							v = 7 + 2*br.GetBit(165) + br.GetBit(145)
						}
					} else {
						bit1 := br.GetBit(p[8])
						bit0 := br.GetBit(p[9+bit1])
						cat := 2*bit1 + bit0
						v = 0
						for _, tp := range kCat3456[cat] {
							if tp == 0 {
								break
							}
							v += v + br.GetBit(tp)
						}
						v += 3 + 8<<uint(cat)
					}
				}
				p = &prob[kBands[n]][2]
			}
			j := kZigzag[n-1]
			dqf := dq[1]
			if j == 0 {
				dqf = dq[0]
			}
			out[j] = int16(br.GetSigned(v) * int(dqf))
			if n == 16 || br.GetBit(p[0]) == 0 { // end of block
				return 1
			}
		}
		if n == 16 {
			return 1
		}
	}
}

// parseResiduals decodes all coefficients of the current macroblock from
// the token partition and updates the left/top non-zero contexts.
func (d *Decoder) parseResiduals(mb *MB, tokenBr *bitReader) {
	left := &d.mbInfo[0]
	q := &d.dqm[d.segment]
	dst := d.coeffs
	for i := range dst {
		dst[i] = 0
	}

	var first int
	var acProb *[NumBands][NumCtx][NumProbas]uint8
	if !d.isI4x4 {
		// The secondary (WHT) transform carries the 16 luma DCs.
		var dc [16]int16
		ctx := int(mb.DCNz) + int(left.DCNz)
		nz := uint8(getCoeffs(tokenBr, &d.proba.Coeffs[1], ctx, &q.Y2, 0, dc[:]))
		mb.DCNz = nz
		left.DCNz = nz
		dsp.TransformWHT(dc[:], dst)
		first = 1
		acProb = &d.proba.Coeffs[0]
	} else {
		first = 0
		acProb = &d.proba.Coeffs[3]
	}

	var nonZero, nonZeroAC uint32
	var nzAC, nzDC, tnz, lnz [4]uint8

	tnz = kUnpackTab[mb.Nz&0x0f]
	lnz = kUnpackTab[left.Nz&0x0f]
	for y := 0; y < 4; y++ {
		l := lnz[y]
		for x := 0; x < 4; x++ {
			ctx := int(l) + int(tnz[x])
			l = uint8(getCoeffs(tokenBr, acProb, ctx, &q.Y1, first, dst))
			nzDC[x] = b2u(dst[0] != 0)
			nzAC[x] = l
			tnz[x] = l
			dst = dst[16:]
		}
		lnz[y] = l
		nonZero |= pack4(&nzDC) << uint(y*4)
		nonZeroAC |= pack4(&nzAC) << uint(y*4)
	}
	outTNz := pack4(&tnz)
	outLNz := pack4(&lnz)

	tnz = kUnpackTab[mb.Nz>>4]
	lnz = kUnpackTab[left.Nz>>4]
	for ch := 0; ch < 4; ch += 2 {
		for y := 0; y < 2; y++ {
			l := lnz[ch+y]
			for x := 0; x < 2; x++ {
				ctx := int(l) + int(tnz[ch+x])
				l = uint8(getCoeffs(tokenBr, &d.proba.Coeffs[2], ctx, &q.UV, 0, dst))
				nzDC[2*y+x] = b2u(dst[0] != 0)
				nzAC[2*y+x] = l
				tnz[ch+x] = l
				dst = dst[16:]
			}
			lnz[ch+y] = l
		}
		nonZero |= pack4(&nzDC) << uint(16+ch*2)
		nonZeroAC |= pack4(&nzAC) << uint(16+ch*2)
	}
	outTNz |= pack4(&tnz) << 4
	outLNz |= pack4(&lnz) << 4

	mb.Nz = uint8(outTNz)
	left.Nz = uint8(outLNz)

	// nonZero holds the DC bits so far; fold in the AC map to flag any
	// coefficient at all, per the 24-bit sub-block layout.
	d.nonZeroAC = nonZeroAC
	d.nonZero = nonZeroAC | nonZero
	mb.Skip = d.nonZero == 0
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// decodeMB parses one macroblock: modes from partition #0, residuals
// from the row's token partition. It returns false when either reader
// over-ran its input, in which case the caller must treat all per-MB
// state as undefined (the incremental driver restores a snapshot).
func (d *Decoder) decodeMB(tokenBr *bitReader) bool {
	mb := &d.mbInfo[1+d.mbX]
	left := &d.mbInfo[0]

	d.parseIntraMode(mb)

	if !mb.Skip {
		d.parseResiduals(mb, tokenBr)
	} else {
		left.Nz = 0
		mb.Nz = 0
		if !d.isI4x4 {
			left.DCNz = 0
			mb.DCNz = 0
		}
		d.nonZero = 0
		d.nonZeroAC = 0
	}
	return !d.br.EOF() && !tokenBr.EOF()
}
