package webpcore

import "github.com/pixelwerk/webpcore/internal/output"

// ColorSpace selects the pixel layout produced by the decoder.
type ColorSpace int

const (
	RGB ColorSpace = iota
	RGBA
	BGR
	BGRA
	ARGB
	RGBA4444
	RGB565
	YUV
	YUVA
)

func (c ColorSpace) String() string { return output.Format(c).String() }

// BytesPerPixel returns the packed pixel width, or 0 for planar output.
func (c ColorSpace) BytesPerPixel() int { return output.Format(c).BytesPerPixel() }

// DecoderOptions tunes the decode-into entry points and the incremental
// decoder. The zero value decodes the full picture with the in-loop
// filter and fancy chroma upsampling enabled.
type DecoderOptions struct {
	BypassFiltering   bool
	NoFancyUpsampling bool

	// Cropping, applied before scaling. Left/Top must be even.
	UseCropping           bool
	CropLeft, CropTop     int
	CropWidth, CropHeight int

	// Output scaling of the (cropped) picture.
	UseScaling                bool
	ScaledWidth, ScaledHeight int

	// UseThreads runs the deblock-and-emit phase on a worker goroutine.
	UseThreads bool
}

// apply copies the options onto the output parameter block.
func (o *DecoderOptions) apply(p *output.Params) {
	if o == nil {
		return
	}
	p.NoFancyUpsampling = o.NoFancyUpsampling
	p.UseCropping = o.UseCropping
	p.CropLeft = o.CropLeft
	p.CropTop = o.CropTop
	p.CropWidth = o.CropWidth
	p.CropHeight = o.CropHeight
	p.UseScaling = o.UseScaling
	p.ScaledWidth = o.ScaledWidth
	p.ScaledHeight = o.ScaledHeight
}
