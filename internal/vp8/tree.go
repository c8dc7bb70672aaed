package vp8

import "github.com/pixelwerk/webpcore/internal/dsp"

// Intra prediction mode parsing (paragraph 11).

// parseIntraMode reads the segment id, skip flag and luma/chroma
// prediction modes for the current macroblock from partition #0.
func (d *Decoder) parseIntraMode(mb *MB) {
	br := &d.br

	// Segment id, tree-coded with three probabilities. The map is not
	// persisted across frames since only keyframes are decoded.
	if d.segHdr.UpdateMap {
		if br.GetBit(d.proba.Segments[0]) == 0 {
			d.segment = uint8(br.GetBit(d.proba.Segments[1]))
		} else {
			d.segment = uint8(2 + br.GetBit(d.proba.Segments[2]))
		}
	} else {
		d.segment = 0
	}

	if d.useSkipProba {
		mb.Skip = br.GetBit(d.skipP) != 0
	} else {
		mb.Skip = false
	}

	top := d.intraT[4*d.mbX : 4*d.mbX+4]
	left := d.intraL[:]

	d.isI4x4 = br.GetBit(145) == 0
	if !d.isI4x4 {
		// 16x16 mode, hardcoded keyframe tree.
		var ymode uint8
		if br.GetBit(156) != 0 {
			if br.GetBit(128) != 0 {
				ymode = dsp.TMPred
			} else {
				ymode = dsp.HPred
			}
		} else {
			if br.GetBit(163) != 0 {
				ymode = dsp.VPred
			} else {
				ymode = dsp.DCPred
			}
		}
		d.imodes[0] = ymode
		for i := 0; i < 4; i++ {
			top[i] = ymode
			left[i] = ymode
		}
	} else {
		// Sixteen 4x4 modes, each conditioned on the modes above and to
		// the left of the sub-block.
		for y := 0; y < 4; y++ {
			ymode := left[y]
			for x := 0; x < 4; x++ {
				prob := &kBModesProba[top[x]][ymode]
				switch {
				case br.GetBit(prob[0]) == 0:
					ymode = dsp.BDCPred
				case br.GetBit(prob[1]) == 0:
					ymode = dsp.BTMPred
				case br.GetBit(prob[2]) == 0:
					ymode = dsp.BVEPred
				case br.GetBit(prob[3]) == 0:
					if br.GetBit(prob[4]) == 0 {
						ymode = dsp.BHEPred
					} else if br.GetBit(prob[5]) == 0 {
						ymode = dsp.BRDPred
					} else {
						ymode = dsp.BVRPred
					}
				case br.GetBit(prob[6]) == 0:
					ymode = dsp.BLDPred
				case br.GetBit(prob[7]) == 0:
					ymode = dsp.BVLPred
				case br.GetBit(prob[8]) == 0:
					ymode = dsp.BHDPred
				default:
					ymode = dsp.BHUPred
				}
				top[x] = ymode
				d.imodes[4*y+x] = ymode
			}
			left[y] = ymode
		}
	}

	// Chroma mode, hardcoded keyframe tree.
	if br.GetBit(142) == 0 {
		d.uvMode = dsp.DCPred
	} else if br.GetBit(114) == 0 {
		d.uvMode = dsp.VPred
	} else if br.GetBit(183) != 0 {
		d.uvMode = dsp.TMPred
	} else {
		d.uvMode = dsp.HPred
	}
}
