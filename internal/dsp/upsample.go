package dsp

// Chroma upsampling. The fancy path interpolates each 2x2 chroma
// neighborhood with the weight quadruples {9,3,3,1}/16 (and rotations)
// plus a rounding constant of 8; the point-sampling path replicates each
// chroma sample over its 2x1 luma footprint.
//
// U and V travel together packed into one uint32 (u low, v high) so the
// interpolation arithmetic runs once for both channels.

// ConvFunc writes one converted pixel at dst.
type ConvFunc func(y, u, v int, dst []byte)

// LinePairFunc converts two luma rows sharing a chroma row pair into two
// destination rows. botY (and botDst) may be nil for the last row of an
// even-height image; topY may be nil when converting the first, mirrored
// row of the picture.
type LinePairFunc func(topY, botY, topU, topV, botU, botV, topDst, botDst []byte, width int)

// RowFunc converts a single row using point sampling.
type RowFunc func(y, u, v, dst []byte, width int)

func loadUV(u, v byte) uint32 {
	return uint32(u) | uint32(v)<<16
}

// MakeUpsampler builds the fancy line-pair converter for one pixel
// format, writing xstep bytes per pixel through conv.
func MakeUpsampler(conv ConvFunc, xstep int) LinePairFunc {
	return func(topY, botY, topU, topV, botU, botV, topDst, botDst []byte, width int) {
		if width <= 0 {
			return
		}
		lastPixelPair := (width - 1) >> 1
		tlUV := loadUV(topU[0], topV[0])
		lUV := loadUV(botU[0], botV[0])

		if topY != nil {
			uv0 := (3*tlUV + lUV + 0x00020002) >> 2
			conv(int(topY[0]), int(uv0&0xff), int((uv0>>16)&0xff), topDst)
		}
		if botY != nil {
			uv0 := (3*lUV + tlUV + 0x00020002) >> 2
			conv(int(botY[0]), int(uv0&0xff), int((uv0>>16)&0xff), botDst)
		}

		for x := 1; x <= lastPixelPair; x++ {
			tUV := loadUV(topU[x], topV[x])
			uv := loadUV(botU[x], botV[x])

			// Sum of the diamond plus the two diagonal emphases; each
			// weight quadruple sums to 16.
			avg := tlUV + tUV + lUV + uv + 0x00080008
			diag12 := (avg + 2*(tUV+lUV)) >> 3
			diag03 := (avg + 2*(tlUV+uv)) >> 3

			if topY != nil {
				uv0 := (diag12 + tlUV) >> 1
				uv1 := (diag03 + tUV) >> 1
				conv(int(topY[2*x-1]), int(uv0&0xff), int((uv0>>16)&0xff), topDst[(2*x-1)*xstep:])
				conv(int(topY[2*x]), int(uv1&0xff), int((uv1>>16)&0xff), topDst[(2*x)*xstep:])
			}
			if botY != nil {
				uv0 := (diag03 + lUV) >> 1
				uv1 := (diag12 + uv) >> 1
				conv(int(botY[2*x-1]), int(uv0&0xff), int((uv0>>16)&0xff), botDst[(2*x-1)*xstep:])
				conv(int(botY[2*x]), int(uv1&0xff), int((uv1>>16)&0xff), botDst[(2*x)*xstep:])
			}
			tlUV = tUV
			lUV = uv
		}

		if width&1 == 0 {
			if topY != nil {
				uv0 := (3*tlUV + lUV + 0x00020002) >> 2
				conv(int(topY[width-1]), int(uv0&0xff), int((uv0>>16)&0xff), topDst[(width-1)*xstep:])
			}
			if botY != nil {
				uv0 := (3*lUV + tlUV + 0x00020002) >> 2
				conv(int(botY[width-1]), int(uv0&0xff), int((uv0>>16)&0xff), botDst[(width-1)*xstep:])
			}
		}
	}
}

// MakeSampler builds the point-sampling row converter for one format.
func MakeSampler(conv ConvFunc, xstep int) RowFunc {
	return func(y, u, v, dst []byte, width int) {
		for x := 0; x < width; x++ {
			conv(int(y[x]), int(u[x>>1]), int(v[x>>1]), dst[x*xstep:])
		}
	}
}

// Prebuilt converters per output layout.
var (
	UpsampleRGB      LinePairFunc
	UpsampleBGR      LinePairFunc
	UpsampleRGBA     LinePairFunc
	UpsampleBGRA     LinePairFunc
	UpsampleARGB     LinePairFunc
	UpsampleRGB565   LinePairFunc
	UpsampleRGBA4444 LinePairFunc

	SampleRGB      RowFunc
	SampleBGR      RowFunc
	SampleRGBA     RowFunc
	SampleBGRA     RowFunc
	SampleARGB     RowFunc
	SampleRGB565   RowFunc
	SampleRGBA4444 RowFunc
)

func initUpsamplers() {
	UpsampleRGB = MakeUpsampler(YUVToRGB, 3)
	UpsampleBGR = MakeUpsampler(YUVToBGR, 3)
	UpsampleRGBA = MakeUpsampler(YUVToRGBA, 4)
	UpsampleBGRA = MakeUpsampler(YUVToBGRA, 4)
	UpsampleARGB = MakeUpsampler(YUVToARGB, 4)
	UpsampleRGB565 = MakeUpsampler(YUVToRGB565, 2)
	UpsampleRGBA4444 = MakeUpsampler(YUVToRGBA4444, 2)

	SampleRGB = MakeSampler(YUVToRGB, 3)
	SampleBGR = MakeSampler(YUVToBGR, 3)
	SampleRGBA = MakeSampler(YUVToRGBA, 4)
	SampleBGRA = MakeSampler(YUVToBGRA, 4)
	SampleARGB = MakeSampler(YUVToARGB, 4)
	SampleRGB565 = MakeSampler(YUVToRGB565, 2)
	SampleRGBA4444 = MakeSampler(YUVToRGBA4444, 2)
}
