package vp8

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Signature bytes opening every keyframe picture header.
const (
	sigByte0 = 0x9d
	sigByte1 = 0x01
	sigByte2 = 0x2a
)

// FrameHeaderSize is the byte length of the uncompressed frame tag plus
// the keyframe picture header.
const FrameHeaderSize = 3 + 7

// ParseFrameTag decodes the 3-byte uncompressed frame tag.
func ParseFrameTag(data []byte) (FrameHeader, error) {
	var hdr FrameHeader
	if len(data) < 3 {
		return hdr, errors.Wrap(StatusNotEnoughData, "truncated frame tag")
	}
	bits := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
	hdr.KeyFrame = bits&1 == 0
	hdr.Profile = uint8((bits >> 1) & 7)
	hdr.Show = (bits>>4)&1 != 0
	hdr.PartitionLength = bits >> 5
	return hdr, nil
}

// GetHeaders parses everything up to and including the compressed frame
// header held in partition #0: frame tag, picture header, segment and
// filter settings, token partition layout, quantizers and the
// probability updates. On success the decoder is ready for DecodeFrame.
//
// data must start at the first byte of the VP8 payload and extend at
// least to the end of partition #0.
func (d *Decoder) GetHeaders(data []byte) error {
	hdr, err := ParseFrameTag(data)
	if err != nil {
		return err
	}
	d.frmHdr = hdr

	if d.frmHdr.Profile > 3 {
		return d.fail(StatusBitstreamError, "incorrect keyframe parameters")
	}
	if !d.frmHdr.Show {
		return d.fail(StatusBitstreamError, "frame not displayable")
	}
	if !d.frmHdr.KeyFrame {
		// Intra frames only; inter prediction is not implemented.
		return d.fail(StatusUnsupportedFeature, "not a keyframe")
	}
	buf := data[3:]

	if len(buf) < 7 {
		return d.fail(StatusNotEnoughData, "cannot parse picture header")
	}
	if buf[0] != sigByte0 || buf[1] != sigByte1 || buf[2] != sigByte2 {
		return d.fail(StatusBitstreamError, "bad code word")
	}
	d.picHdr.Width = int(binary.LittleEndian.Uint16(buf[3:5])) & 0x3fff
	d.picHdr.XScale = buf[4] >> 6
	d.picHdr.Height = int(binary.LittleEndian.Uint16(buf[5:7])) & 0x3fff
	d.picHdr.YScale = buf[6] >> 6
	buf = buf[7:]

	if d.picHdr.Width == 0 || d.picHdr.Height == 0 {
		return d.fail(StatusBitstreamError, "zero picture dimension")
	}
	d.mbW = (d.picHdr.Width + 15) >> 4
	d.mbH = (d.picHdr.Height + 15) >> 4

	resetSegmentHeader(&d.segHdr)
	d.segment = 0

	partLen := int(d.frmHdr.PartitionLength)
	if partLen > len(buf) {
		return d.fail(StatusNotEnoughData, "bad partition length")
	}
	d.br.Init(buf[:partLen])
	tokenArea := buf[partLen:]

	d.picHdr.Colorspace = uint8(d.br.Get())
	d.picHdr.ClampType = uint8(d.br.Get())

	if err := d.parseSegmentHeader(); err != nil {
		return err
	}
	d.parseFilterHeader()
	if err := d.parsePartitions(tokenArea); err != nil {
		return err
	}
	d.parseQuant()

	// update_proba flag: probability updates never persist across
	// keyframes, so the bit is read and ignored.
	d.br.Get()

	d.parseProba()

	if d.br.EOF() {
		return d.fail(StatusBitstreamError, "cannot parse partition 0")
	}

	d.ready = true
	d.lastErr = nil
	return nil
}

func resetSegmentHeader(hdr *SegmentHeader) {
	hdr.UseSegment = false
	hdr.UpdateMap = false
	hdr.AbsoluteDelta = true
	for i := range hdr.Quantizer {
		hdr.Quantizer[i] = 0
		hdr.FilterStrength[i] = 0
	}
}

// parseSegmentHeader reads the segment feature data (paragraph 9.3).
func (d *Decoder) parseSegmentHeader() error {
	br := &d.br
	hdr := &d.segHdr

	hdr.UseSegment = br.Get() != 0
	if !hdr.UseSegment {
		hdr.UpdateMap = false
		return nil
	}
	hdr.UpdateMap = br.Get() != 0
	if br.Get() != 0 { // update data
		hdr.AbsoluteDelta = br.Get() != 0
		for s := 0; s < NumMBSegments; s++ {
			if br.Get() != 0 {
				hdr.Quantizer[s] = int8(br.GetSignedValue(7))
			} else {
				hdr.Quantizer[s] = 0
			}
		}
		for s := 0; s < NumMBSegments; s++ {
			if br.Get() != 0 {
				hdr.FilterStrength[s] = int8(br.GetSignedValue(6))
			} else {
				hdr.FilterStrength[s] = 0
			}
		}
	}
	if hdr.UpdateMap {
		for s := 0; s < MBFeatureTreeProbs; s++ {
			if br.Get() != 0 {
				d.proba.Segments[s] = uint8(br.GetValue(8))
			} else {
				d.proba.Segments[s] = 255
			}
		}
	}
	if br.EOF() {
		return d.fail(StatusBitstreamError, "cannot parse segment header")
	}
	return nil
}

// parseFilterHeader reads the loop-filter settings (paragraph 9.4) and
// precomputes the per-segment base levels.
func (d *Decoder) parseFilterHeader() {
	br := &d.br
	hdr := &d.filterHdr

	hdr.Simple = br.Get() != 0
	hdr.Level = int(br.GetValue(6))
	hdr.Sharpness = int(br.GetValue(3))
	hdr.UseLFDelta = br.Get() != 0
	if hdr.UseLFDelta {
		if br.Get() != 0 { // update deltas
			for i := 0; i < NumRefLFDeltas; i++ {
				if br.Get() != 0 {
					hdr.RefLFDelta[i] = int(br.GetSignedValue(6))
				}
			}
			for i := 0; i < NumModeLFDeltas; i++ {
				if br.Get() != 0 {
					hdr.ModeLFDelta[i] = int(br.GetSignedValue(6))
				}
			}
		}
	}
	if hdr.Level == 0 {
		d.filterType = 0
	} else if hdr.Simple {
		d.filterType = 1
	} else {
		d.filterType = 2
	}

	if d.filterType > 0 {
		for s := 0; s < NumMBSegments; s++ {
			level := hdr.Level
			if d.segHdr.UseSegment {
				if d.segHdr.AbsoluteDelta {
					level = int(d.segHdr.FilterStrength[s])
				} else {
					level += int(d.segHdr.FilterStrength[s])
				}
			}
			d.filterLevels[s] = uint8(clip(level, 63))
		}
	}
}

// parsePartitions reads the token partition layout (paragraph 9.5). buf
// is the token area following partition #0. In one-shot mode all the
// partition data is present; in incremental mode the last partition
// grows as bytes arrive and its reader is rebound via RebindPartitions.
func (d *Decoder) parsePartitions(buf []byte) error {
	d.numParts = 1 << d.br.GetValue(2)
	lastPart := d.numParts - 1
	if len(buf) < 3*lastPart {
		return d.fail(StatusNotEnoughData, "cannot parse partitions")
	}

	// Offsets come from the declared sizes so the windows stay valid when
	// the incremental driver rebinds them over a longer buffer later.
	szTab := buf
	off := lastPart * 3
	for p := 0; p < lastPart; p++ {
		psize := int(szTab[0]) | int(szTab[1])<<8 | int(szTab[2])<<16
		d.partOff[p] = off
		off += psize
		szTab = szTab[3:]
	}
	d.partOff[lastPart] = off
	if off > len(buf) && !d.incremental {
		return d.fail(StatusBitstreamError, "partition sizes exceed payload")
	}
	for p := 0; p <= lastPart; p++ {
		d.parts[p].Init(d.partWindow(p, buf))
	}
	return nil
}

// partWindow slices partition p's bytes out of the token area, clamped
// to what has been buffered so far. The last partition is open-ended;
// an empty window is legal and surfaces as end-of-stream in the reader.
func (d *Decoder) partWindow(p int, tokenArea []byte) []byte {
	start := d.partOff[p]
	if start > len(tokenArea) {
		start = len(tokenArea)
	}
	end := len(tokenArea)
	if p < d.numParts-1 && d.partOff[p+1] < end {
		end = d.partOff[p+1]
	}
	return tokenArea[start:end]
}

// RebindPartitions re-points every token-partition reader into tokenArea
// after the backing buffer moved or grew. Reader cursors are offsets, so
// only the windows need recomputing.
func (d *Decoder) RebindPartitions(tokenArea []byte) {
	for p := 0; p < d.numParts; p++ {
		d.parts[p].Rebase(d.partWindow(p, tokenArea))
	}
}

// tokenReaderFor returns the token partition serving macroblock row mbY.
func (d *Decoder) tokenReaderFor(mbY int) *bitReader {
	return &d.parts[mbY&(d.numParts-1)]
}

func clip(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// parseQuant reads the quantizer deltas (paragraph 9.6) and expands the
// per-segment dequantization matrices.
func (d *Decoder) parseQuant() {
	br := &d.br
	baseQ := int(br.GetValue(7))
	dqy1DC := readOptSigned(br, 4)
	dqy2DC := readOptSigned(br, 4)
	dqy2AC := readOptSigned(br, 4)
	dquvDC := readOptSigned(br, 4)
	dquvAC := readOptSigned(br, 4)

	for s := 0; s < NumMBSegments; s++ {
		var q int
		if d.segHdr.UseSegment {
			q = int(d.segHdr.Quantizer[s])
			if !d.segHdr.AbsoluteDelta {
				q += baseQ
			}
		} else {
			if s > 0 {
				d.dqm[s] = d.dqm[0]
				continue
			}
			q = baseQ
		}
		m := &d.dqm[s]
		m.Y1[0] = kDcTable[clip(q+dqy1DC, 127)]
		m.Y1[1] = kAcTable[clip(q, 127)]

		m.Y2[0] = kDcTable[clip(q+dqy2DC, 127)] * 2
		// y2 AC is scaled by 155/100 with a floor of 8.
		y2ac := int(kAcTable[clip(q+dqy2AC, 127)]) * 155 / 100
		if y2ac < 8 {
			y2ac = 8
		}
		m.Y2[1] = uint16(y2ac)

		m.UV[0] = kDcTable[clip(q+dquvDC, 117)]
		m.UV[1] = kAcTable[clip(q+dquvAC, 127)]
	}
}

func readOptSigned(br *bitReader, numBits int) int {
	if br.Get() != 0 {
		return int(br.GetSignedValue(numBits))
	}
	return 0
}

// parseProba reads the coefficient probability updates and the skip
// probability (paragraphs 13.4 and 9.11).
func (d *Decoder) parseProba() {
	br := &d.br
	p := &d.proba
	for t := 0; t < NumTypes; t++ {
		for b := 0; b < NumBands; b++ {
			for c := 0; c < NumCtx; c++ {
				for i := 0; i < NumProbas; i++ {
					if br.GetBit(CoeffsUpdateProba[t][b][c][i]) != 0 {
						p.Coeffs[t][b][c][i] = uint8(br.GetValue(8))
					} else {
						p.Coeffs[t][b][c][i] = CoeffsProba0[t][b][c][i]
					}
				}
			}
		}
	}
	d.useSkipProba = br.Get() != 0
	if d.useSkipProba {
		d.skipP = uint8(br.GetValue(8))
	}
}
