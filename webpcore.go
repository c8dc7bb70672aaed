// Package webpcore decodes still-image WebP (VP8 keyframe) files and
// provides the encode-side sharp RGB->YUV420 converter and the VP8L
// backward-reference engine used by lossless compression.
//
// Decoding is available one-shot (Decode* / DecodeInto) and
// incrementally (NewIncremental + Append/Update) with byte-level
// suspend and resume.
package webpcore

import (
	"github.com/pkg/errors"

	"github.com/pixelwerk/webpcore/internal/container"
	"github.com/pixelwerk/webpcore/internal/output"
	"github.com/pixelwerk/webpcore/internal/vp8"
	"github.com/pixelwerk/webpcore/internal/worker"
)

// Image is a packed-pixel decode result.
type Image struct {
	Width, Height int
	Stride        int
	Pix           []byte
}

// YUVImage is a planar 4:2:0 decode result.
type YUVImage struct {
	Width, Height     int
	Y, U, V           []byte
	YStride, UVStride int
}

// GetInfo returns the picture dimensions without decoding pixel data.
func GetInfo(data []byte) (width, height int, err error) {
	payload, err := container.Payload(data)
	if err != nil {
		return 0, 0, errors.Wrap(StatusBitstreamError, err.Error())
	}
	w, h, err := vp8.HeaderProbe(payload)
	if err != nil {
		return 0, 0, statusOf(err).errOrNil()
	}
	return w, h, nil
}

// allocSink sizes the destination buffers once the picture geometry is
// known, then defers to the output sink.
type allocSink struct {
	p     *output.Params
	inner *output.Sink
	// preallocated is set by DecodeInto: the caller owns Out.
	preallocated bool
}

func (a *allocSink) Setup(io *vp8.Io) bool {
	if err := output.CheckParams(io.Width, io.Height, a.p); err != nil {
		return false
	}
	if !a.preallocated {
		w := a.p.OutputWidth()
		h := a.p.OutputHeight()
		if a.p.Format.IsRGB() {
			a.p.OutStride = w * a.p.Format.BytesPerPixel()
			a.p.Out = make([]byte, h*a.p.OutStride)
		} else {
			uvW := (w + 1) >> 1
			uvH := (h + 1) >> 1
			a.p.YStride = w
			a.p.UVStride = uvW
			a.p.OutY = make([]byte, h*w)
			a.p.OutU = make([]byte, uvH*uvW)
			a.p.OutV = make([]byte, uvH*uvW)
			if a.p.Format == output.FormatYUVA {
				a.p.AStride = w
				a.p.OutA = make([]byte, h*w)
			}
		}
	}
	return a.inner.Setup(io)
}

func (a *allocSink) Put(io *vp8.Io) bool { return a.inner.Put(io) }

func (a *allocSink) Teardown(io *vp8.Io) { a.inner.Teardown(io) }

// decode runs a one-shot decode into params.
func decode(data []byte, p *output.Params, opts *DecoderOptions, preallocated bool) error {
	payload, err := container.Payload(data)
	if err != nil {
		return errors.Wrap(StatusBitstreamError, err.Error())
	}
	var dec vp8.Decoder
	if err := dec.GetHeaders(payload); err != nil {
		return statusOf(err).errOrNil()
	}
	if opts != nil && opts.UseThreads {
		w := worker.New()
		w.Reset()
		defer w.End()
		dec.SetWorker(w)
	}
	// Validate cropping/scaling before any frame memory is touched so
	// caller errors surface as StatusInvalidParam, not as an abort.
	if err := output.CheckParams(dec.Width(), dec.Height(), p); err != nil {
		return statusOf(err).errOrNil()
	}
	sink := &allocSink{p: p, inner: output.NewSink(p), preallocated: preallocated}
	var fopts vp8.DecodeFrameOptions
	if opts != nil {
		fopts.BypassFiltering = opts.BypassFiltering
		fopts.NoFancyUpsampling = opts.NoFancyUpsampling
	}
	if p.UseScaling && output.ShouldRescale(p.CropWidth, p.CropHeight, p.ScaledWidth, p.ScaledHeight) {
		// Heavy downscaling averages the filter's work away.
		fopts.BypassFiltering = true
	}
	if err := dec.DecodeFrame(sink, fopts); err != nil {
		return statusOf(err).errOrNil()
	}
	return nil
}

func decodePacked(data []byte, f output.Format, opts *DecoderOptions) (*Image, error) {
	p := &output.Params{Format: f}
	opts.apply(p)
	if err := decode(data, p, opts, false); err != nil {
		return nil, err
	}
	return &Image{
		Width:  p.OutputWidth(),
		Height: p.OutputHeight(),
		Stride: p.OutStride,
		Pix:    p.Out,
	}, nil
}

// DecodeRGB decodes a WebP file to packed RGB.
func DecodeRGB(data []byte) (*Image, error) { return decodePacked(data, output.FormatRGB, nil) }

// DecodeRGBA decodes a WebP file to packed RGBA (alpha forced opaque).
func DecodeRGBA(data []byte) (*Image, error) { return decodePacked(data, output.FormatRGBA, nil) }

// DecodeBGR decodes a WebP file to packed BGR.
func DecodeBGR(data []byte) (*Image, error) { return decodePacked(data, output.FormatBGR, nil) }

// DecodeBGRA decodes a WebP file to packed BGRA.
func DecodeBGRA(data []byte) (*Image, error) { return decodePacked(data, output.FormatBGRA, nil) }

// DecodeARGB decodes a WebP file to packed ARGB.
func DecodeARGB(data []byte) (*Image, error) { return decodePacked(data, output.FormatARGB, nil) }

// DecodeOptions decodes to the given packed colorspace with options.
func DecodeOptions(data []byte, cs ColorSpace, opts *DecoderOptions) (*Image, error) {
	if !output.Format(cs).IsRGB() {
		return nil, StatusInvalidParam
	}
	return decodePacked(data, output.Format(cs), opts)
}

// DecodeYUV decodes a WebP file to planar YUV 4:2:0.
func DecodeYUV(data []byte) (*YUVImage, error) {
	p := &output.Params{Format: output.FormatYUV}
	if err := decode(data, p, nil, false); err != nil {
		return nil, err
	}
	return &YUVImage{
		Width:    p.OutputWidth(),
		Height:   p.OutputHeight(),
		Y:        p.OutY,
		U:        p.OutU,
		V:        p.OutV,
		YStride:  p.YStride,
		UVStride: p.UVStride,
	}, nil
}

// DecodeInto decodes into a caller-provided packed buffer with the
// given stride. The buffer must hold OutputHeight rows of stride bytes.
func DecodeInto(data []byte, cs ColorSpace, buf []byte, stride int, opts *DecoderOptions) Status {
	f := output.Format(cs)
	if !f.IsRGB() || buf == nil || stride <= 0 {
		return StatusInvalidParam
	}
	p := &output.Params{Format: f, Out: buf, OutStride: stride}
	opts.apply(p)

	// Pre-validate the buffer size before touching the caller's memory.
	payload, err := container.Payload(data)
	if err != nil {
		return StatusBitstreamError
	}
	w, h, err := vp8.HeaderProbe(payload)
	if err != nil {
		return statusOf(err)
	}
	if err := output.CheckParams(w, h, p); err != nil {
		return statusOf(err)
	}
	outH := p.OutputHeight()
	outW := p.OutputWidth()
	if stride < outW*f.BytesPerPixel() || len(buf) < (outH-1)*stride+outW*f.BytesPerPixel() {
		return StatusInvalidParam
	}
	if err := decode(data, p, opts, true); err != nil {
		return statusOf(err)
	}
	return StatusOk
}
