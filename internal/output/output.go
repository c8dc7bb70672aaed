// Package output turns decoded YUV row batches into caller-visible
// pixels. It owns the emit strategy choice (YUV copy, point-sampled
// RGB, fancy-upsampled RGB, or the rescaled variants), cropping and the
// per-strip chroma memory the fancy upsampler needs.
package output

import (
	"github.com/pkg/errors"

	"github.com/pixelwerk/webpcore/internal/dsp"
	"github.com/pixelwerk/webpcore/internal/vp8"
)

// Format enumerates the output colorspaces at the decoder boundary.
type Format int

const (
	FormatRGB Format = iota
	FormatRGBA
	FormatBGR
	FormatBGRA
	FormatARGB
	FormatRGBA4444
	FormatRGB565
	FormatYUV
	FormatYUVA
)

// BytesPerPixel returns the packed pixel width of f, or 0 for planar
// formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGB, FormatBGR:
		return 3
	case FormatRGBA, FormatBGRA, FormatARGB:
		return 4
	case FormatRGBA4444, FormatRGB565:
		return 2
	}
	return 0
}

// IsRGB reports whether f is a packed RGB-family format.
func (f Format) IsRGB() bool { return f.BytesPerPixel() != 0 }

var formatNames = [...]string{
	"RGB", "RGBA", "BGR", "BGRA", "ARGB", "RGBA_4444", "RGB_565", "YUV", "YUVA",
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return "unknown"
	}
	return formatNames[f]
}

func upsamplerFor(f Format) dsp.LinePairFunc {
	switch f {
	case FormatRGB:
		return dsp.UpsampleRGB
	case FormatBGR:
		return dsp.UpsampleBGR
	case FormatRGBA:
		return dsp.UpsampleRGBA
	case FormatBGRA:
		return dsp.UpsampleBGRA
	case FormatARGB:
		return dsp.UpsampleARGB
	case FormatRGBA4444:
		return dsp.UpsampleRGBA4444
	case FormatRGB565:
		return dsp.UpsampleRGB565
	}
	return nil
}

func samplerFor(f Format) dsp.RowFunc {
	switch f {
	case FormatRGB:
		return dsp.SampleRGB
	case FormatBGR:
		return dsp.SampleBGR
	case FormatRGBA:
		return dsp.SampleRGBA
	case FormatBGRA:
		return dsp.SampleBGRA
	case FormatARGB:
		return dsp.SampleARGB
	case FormatRGBA4444:
		return dsp.SampleRGBA4444
	case FormatRGB565:
		return dsp.SampleRGB565
	}
	return nil
}

// Params describes the destination of one decode.
type Params struct {
	Format Format

	// Packed RGB destination (Format.IsRGB()).
	Out       []byte
	OutStride int

	// Planar destination (FormatYUV / FormatYUVA).
	OutY, OutU, OutV, OutA []byte
	YStride, UVStride      int
	AStride                int

	// Cropping, in source coordinates. Left/Top must be even.
	UseCropping           bool
	CropLeft, CropTop     int
	CropWidth, CropHeight int

	// Scaling of the (possibly cropped) source region.
	UseScaling                bool
	ScaledWidth, ScaledHeight int

	NoFancyUpsampling bool

	// TestAbort, when non-nil, is polled after every emitted batch; a
	// true return aborts the decode.
	TestAbort func() bool

	// LastRow is the number of output rows fully emitted so far.
	LastRow int
}

// OutputWidth gives the final pixel width after cropping and scaling.
func (p *Params) OutputWidth() int {
	if p.UseScaling {
		return p.ScaledWidth
	}
	return p.CropWidth
}

// OutputHeight gives the final pixel height after cropping and scaling.
func (p *Params) OutputHeight() int {
	if p.UseScaling {
		return p.ScaledHeight
	}
	return p.CropHeight
}

// CheckParams validates and canonicalizes the cropping/scaling request
// against the picture dimensions.
func CheckParams(width, height int, p *Params) error {
	if !p.UseCropping {
		p.CropLeft, p.CropTop = 0, 0
		p.CropWidth, p.CropHeight = width, height
	}
	if p.CropLeft < 0 || p.CropTop < 0 ||
		p.CropLeft&1 != 0 || p.CropTop&1 != 0 {
		return errors.Wrap(vp8.StatusInvalidParam, "bad crop origin")
	}
	if p.CropWidth <= 0 || p.CropHeight <= 0 ||
		p.CropLeft+p.CropWidth > width || p.CropTop+p.CropHeight > height {
		return errors.Wrap(vp8.StatusInvalidParam, "crop area out of picture")
	}
	if p.UseScaling {
		if p.ScaledWidth <= 0 || p.ScaledHeight <= 0 {
			return errors.Wrap(vp8.StatusInvalidParam, "bad scaled dimensions")
		}
		// The rescaler is a downscaler; refuse to stretch.
		if p.ScaledWidth > p.CropWidth || p.ScaledHeight > p.CropHeight {
			return errors.Wrap(vp8.StatusInvalidParam, "upscaling not supported")
		}
	}
	return nil
}

// ShouldRescale reports whether both output dimensions shrink below ¾
// of the source; the one-shot decode then bypasses the in-loop filter.
func ShouldRescale(srcW, srcH, dstW, dstH int) bool {
	return 4*dstW < 3*srcW && 4*dstH < 3*srcH
}

// Sink adapts Params to the decoder's row callbacks.
type Sink struct {
	p    *Params
	emit func(io *vp8.Io) bool

	// Fancy-upsampler strip memory: the bottom luma/chroma rows of the
	// previous batch, needed to finish its last output row.
	tmpY, tmpU, tmpV []byte
	upsample         dsp.LinePairFunc
	sample           dsp.RowFunc

	// Scratch rows for cropped packed output (two full-width rows).
	rowScratch []byte

	// Rescaler state (UseScaling).
	scalerY, scalerU, scalerV dsp.Rescaler
	scaledY                   []byte // luma export scratch
	scaledU, scaledV          []byte // latest exported chroma rows
	scaledRowY, scaledRowUV   int

	// Scaled luma rows waiting for their chroma row (the three plane
	// rescalers emit at independent cadences).
	pendingY [][]byte
}

// NewSink builds the sink for p. Parameter validation happens in Setup,
// when the picture geometry is known.
func NewSink(p *Params) *Sink {
	return &Sink{p: p}
}

// Setup picks the emit strategy.
func (s *Sink) Setup(io *vp8.Io) bool {
	p := s.p
	if err := CheckParams(io.Width, io.Height, p); err != nil {
		return false
	}
	p.LastRow = 0

	switch {
	case p.UseScaling:
		srcW, srcH := p.CropWidth, p.CropHeight
		uvSrcW := (srcW + 1) >> 1
		uvSrcH := (srcH + 1) >> 1
		uvDstW := (p.ScaledWidth + 1) >> 1
		uvDstH := (p.ScaledHeight + 1) >> 1
		dsp.InitRescaler(&s.scalerY, srcW, srcH, p.ScaledWidth, p.ScaledHeight)
		dsp.InitRescaler(&s.scalerU, uvSrcW, uvSrcH, uvDstW, uvDstH)
		dsp.InitRescaler(&s.scalerV, uvSrcW, uvSrcH, uvDstW, uvDstH)
		s.scaledY = make([]byte, p.ScaledWidth)
		s.scaledU = make([]byte, uvDstW)
		s.scaledV = make([]byte, uvDstW)
		s.scaledRowY = 0
		s.scaledRowUV = 0
		if p.Format.IsRGB() {
			s.sample = samplerFor(p.Format)
			s.emit = s.emitRescaledRGB
		} else {
			s.emit = s.emitRescaledYUV
		}
	case !p.Format.IsRGB():
		s.emit = s.emitYUV
	case p.NoFancyUpsampling || io.NoFancyUpsampling:
		s.sample = samplerFor(p.Format)
		s.rowScratch = make([]byte, io.Width*p.Format.BytesPerPixel())
		s.emit = s.emitSampledRGB
	default:
		s.upsample = upsamplerFor(p.Format)
		uvW := (io.Width + 1) >> 1
		s.tmpY = make([]byte, io.Width)
		s.tmpU = make([]byte, uvW)
		s.tmpV = make([]byte, uvW)
		s.rowScratch = make([]byte, 2*io.Width*p.Format.BytesPerPixel())
		s.emit = s.emitFancyRGB
	}
	return true
}

// Put consumes one batch of decoded rows.
func (s *Sink) Put(io *vp8.Io) bool {
	if io.MBH <= 0 {
		return true
	}
	if !s.emit(io) {
		return false
	}
	if s.p.TestAbort != nil && s.p.TestAbort() {
		return false
	}
	return true
}

// Teardown has nothing to release; every path streams.
func (s *Sink) Teardown(io *vp8.Io) {}

// cropRows clips a batch against the vertical crop window. skip is the
// number of batch rows above the window, outRow the output row of the
// first kept row, n the number of kept rows. Batches always start at
// even source rows and CropTop is even, so skip is even too.
func (s *Sink) cropRows(io *vp8.Io) (skip, outRow, n int) {
	p := s.p
	start := io.MBY
	end := io.MBY + io.MBH
	if start < p.CropTop {
		skip = p.CropTop - start
		start = p.CropTop
	}
	if end > p.CropTop+p.CropHeight {
		end = p.CropTop + p.CropHeight
	}
	if end <= start {
		return 0, 0, 0
	}
	return skip, start - p.CropTop, end - start
}

// emitYUV copies the planes verbatim within the crop window.
func (s *Sink) emitYUV(io *vp8.Io) bool {
	p := s.p
	skip, outRow, n := s.cropRows(io)
	if n == 0 {
		return true
	}
	for j := 0; j < n; j++ {
		srcOff := (skip+j)*io.YStride + p.CropLeft
		dstOff := (outRow + j) * p.YStride
		copy(p.OutY[dstOff:dstOff+p.CropWidth], io.Y[srcOff:srcOff+p.CropWidth])
	}

	uvW := (p.CropWidth + 1) >> 1
	srcUV := skip >> 1
	dstUV := outRow >> 1
	nUV := (skip+n+1)>>1 - srcUV
	for j := 0; j < nUV; j++ {
		srcOff := (srcUV+j)*io.UVStride + p.CropLeft>>1
		dstOff := (dstUV + j) * p.UVStride
		copy(p.OutU[dstOff:dstOff+uvW], io.U[srcOff:srcOff+uvW])
		copy(p.OutV[dstOff:dstOff+uvW], io.V[srcOff:srcOff+uvW])
	}

	if p.Format == FormatYUVA && p.OutA != nil {
		for j := 0; j < n; j++ {
			dstOff := (outRow + j) * p.AStride
			row := p.OutA[dstOff : dstOff+p.CropWidth]
			for i := range row {
				row[i] = 0xff
			}
		}
	}
	p.LastRow = outRow + n
	return true
}

// emitSampledRGB converts with chroma point-sampling.
func (s *Sink) emitSampledRGB(io *vp8.Io) bool {
	p := s.p
	xstep := p.Format.BytesPerPixel()
	skip, outRow, n := s.cropRows(io)
	if n == 0 {
		return true
	}
	for j := 0; j < n; j++ {
		srcRow := skip + j
		y := io.Y[srcRow*io.YStride:]
		u := io.U[(srcRow>>1)*io.UVStride:]
		v := io.V[(srcRow>>1)*io.UVStride:]
		dst := p.Out[(outRow+j)*p.OutStride:]
		if p.CropLeft == 0 && p.CropWidth == io.Width {
			s.sample(y, u, v, dst, io.Width)
		} else {
			s.sample(y, u, v, s.rowScratch, io.Width)
			copy(dst[:p.CropWidth*xstep],
				s.rowScratch[p.CropLeft*xstep:(p.CropLeft+p.CropWidth)*xstep])
		}
	}
	p.LastRow = outRow + n
	return true
}

// emitFancyRGB converts with the 4-tap diamond upsampler. The last row
// of every batch stays pending until the next batch supplies the chroma
// row below it; the very first and last picture rows mirror chroma.
func (s *Sink) emitFancyRGB(io *vp8.Io) bool {
	p := s.p
	xstep := p.Format.BytesPerPixel()
	mbW := io.Width
	uvW := (mbW + 1) >> 1
	yStart := io.MBY
	yEnd := io.MBY + io.MBH
	numLinesOut := io.MBH

	// Batch-local row accessors (abs = absolute picture row).
	yRow := func(abs int) []byte { return io.Y[(abs-yStart)*io.YStride:] }
	uvRowIdx := func(abs int) int { return abs>>1 - yStart>>1 }
	uRow := func(abs int) []byte { return io.U[uvRowIdx(abs)*io.UVStride:] }
	vRow := func(abs int) []byte { return io.V[uvRowIdx(abs)*io.UVStride:] }

	// convert writes output rows topRow and topRow+1 (either may fall
	// outside the crop window and is then skipped).
	convert := func(topY, botY, tU, tV, bU, bV []byte, topRow int) {
		inWindow := func(row int) []byte {
			if row < p.CropTop || row >= p.CropTop+p.CropHeight {
				return nil
			}
			return p.Out[(row-p.CropTop)*p.OutStride:]
		}
		top := inWindow(topRow)
		bot := inWindow(topRow + 1)
		if top == nil {
			topY = nil
		}
		if bot == nil {
			botY = nil
		}
		if topY == nil && botY == nil {
			return
		}
		var topDst, botDst []byte
		if topY != nil {
			topDst = s.rowScratch[:mbW*xstep]
		}
		if botY != nil {
			botDst = s.rowScratch[mbW*xstep:]
		}
		s.upsample(topY, botY, tU, tV, bU, bV, topDst, botDst, mbW)
		w := p.CropWidth * xstep
		off := p.CropLeft * xstep
		if topY != nil {
			copy(top[:w], topDst[off:off+w])
		}
		if botY != nil {
			copy(bot[:w], botDst[off:off+w])
		}
	}

	if yStart == 0 {
		// First picture row: mirror the chroma above it.
		convert(nil, yRow(0), uRow(0), vRow(0), uRow(0), vRow(0), -1)
	} else {
		// Finish the row left pending by the previous batch.
		convert(s.tmpY, yRow(yStart), s.tmpU, s.tmpV, uRow(yStart), vRow(yStart), yStart-1)
		numLinesOut++
	}

	// Interior pairs: rows (y+1, y+2) interpolate chroma rows y/2 and
	// y/2+1.
	y := yStart
	for ; y+2 < yEnd; y += 2 {
		convert(yRow(y+1), yRow(y+2), uRow(y), vRow(y), uRow(y+2), vRow(y+2), y+1)
	}

	if yEnd < io.Height {
		// Keep the unfinished last row for the next batch.
		copy(s.tmpY[:mbW], yRow(yEnd-1)[:mbW])
		copy(s.tmpU[:uvW], uRow(yEnd-1)[:uvW])
		copy(s.tmpV[:uvW], vRow(yEnd-1)[:uvW])
		numLinesOut--
	} else if yEnd&1 == 0 {
		// Even picture height: the last row replicates its own chroma.
		convert(yRow(yEnd-1), nil, uRow(yEnd-1), vRow(yEnd-1), uRow(yEnd-1), vRow(yEnd-1), yEnd-1)
	}

	last := io.MBY + numLinesOut - p.CropTop
	if last < 0 {
		last = 0
	} else if last > p.CropHeight {
		last = p.CropHeight
	}
	if last > p.LastRow {
		p.LastRow = last
	}
	return true
}

// emitRescaledYUV streams the batch through the per-plane rescalers.
func (s *Sink) emitRescaledYUV(io *vp8.Io) bool {
	p := s.p
	skip, _, n := s.cropRows(io)
	if n == 0 {
		return true
	}
	sw := (p.ScaledWidth + 1) >> 1
	for j := 0; j < n; j++ {
		row := io.Y[(skip+j)*io.YStride+p.CropLeft:]
		s.scalerY.ImportRow(row[:p.CropWidth])
		for s.scalerY.HasRow() {
			dst := p.OutY[s.scaledRowY*p.YStride:]
			s.scalerY.ExportRow(dst[:p.ScaledWidth])
			s.scaledRowY++
			p.LastRow = s.scaledRowY
		}
	}
	uvW := (p.CropWidth + 1) >> 1
	srcUV := skip >> 1
	nUV := (skip+n+1)>>1 - srcUV
	for j := 0; j < nUV; j++ {
		uSrc := io.U[(srcUV+j)*io.UVStride+p.CropLeft>>1:]
		vSrc := io.V[(srcUV+j)*io.UVStride+p.CropLeft>>1:]
		s.scalerU.ImportRow(uSrc[:uvW])
		s.scalerV.ImportRow(vSrc[:uvW])
		for s.scalerU.HasRow() {
			uDst := p.OutU[s.scaledRowUV*p.UVStride:]
			vDst := p.OutV[s.scaledRowUV*p.UVStride:]
			s.scalerU.ExportRow(uDst[:sw])
			s.scalerV.ExportRow(vDst[:sw])
			s.scaledRowUV++
		}
	}
	return true
}

// emitRescaledRGB rescales all three planes and packs each finished
// luma row by point-sampling its scaled chroma row. The per-plane
// rescalers emit at independent cadences, so a finished luma row waits
// in pendingY until chroma row (row >> 1) has been exported.
func (s *Sink) emitRescaledRGB(io *vp8.Io) bool {
	p := s.p
	skip, _, n := s.cropRows(io)
	if n == 0 {
		return true
	}
	uvW := (p.CropWidth + 1) >> 1
	drain := func() {
		for len(s.pendingY) > 0 && s.scaledRowY>>1 < s.scaledRowUV {
			dst := p.Out[s.scaledRowY*p.OutStride:]
			s.sample(s.pendingY[0], s.scaledU, s.scaledV, dst, p.ScaledWidth)
			s.pendingY = s.pendingY[1:]
			s.scaledRowY++
			p.LastRow = s.scaledRowY
		}
	}
	for j := 0; j < n; j++ {
		if (skip+j)&1 == 0 {
			cj := (skip + j) >> 1
			uSrc := io.U[cj*io.UVStride+p.CropLeft>>1:]
			vSrc := io.V[cj*io.UVStride+p.CropLeft>>1:]
			s.scalerU.ImportRow(uSrc[:uvW])
			s.scalerV.ImportRow(vSrc[:uvW])
			for s.scalerU.HasRow() {
				s.scalerU.ExportRow(s.scaledU)
				s.scalerV.ExportRow(s.scaledV)
				s.scaledRowUV++
				drain()
			}
		}
		row := io.Y[(skip+j)*io.YStride+p.CropLeft:]
		s.scalerY.ImportRow(row[:p.CropWidth])
		for s.scalerY.HasRow() {
			yRow := make([]byte, p.ScaledWidth)
			s.scalerY.ExportRow(yRow)
			s.pendingY = append(s.pendingY, yRow)
			drain()
		}
	}
	return true
}
