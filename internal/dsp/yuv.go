package dsp

// Fixed-point BT.601 (limited range) YUV -> RGB conversion.
//
// The chroma contributions are pre-multiplied into per-value ramp tables
// and the final 1.164*(x-16) luma scaling lives in one pre-clipped lookup
// covering the extended intermediate range [-227, 482].

const (
	yuvFix  = 16
	yuvHalf = 1 << (yuvFix - 1)

	yuvRangeMin = -227 // smallest intermediate r/g/b value
	yuvRangeMax = 256 + 226
)

var (
	kVToR [256]int16
	kUToB [256]int16
	kVToG [256]int32
	kUToG [256]int32
	kClip [yuvRangeMax - yuvRangeMin]uint8
)

func initYUVTables() {
	for i := 0; i < 256; i++ {
		kVToR[i] = int16((89858*(i-128) + yuvHalf) >> yuvFix)
		kUToG[i] = int32(-22014*(i-128) + yuvHalf)
		kVToG[i] = int32(-45773 * (i - 128))
		kUToB[i] = int16((113618*(i-128) + yuvHalf) >> yuvFix)
	}
	for i := yuvRangeMin; i < yuvRangeMax; i++ {
		k := ((i-16)*76283 + yuvHalf) >> yuvFix
		if k < 0 {
			k = 0
		} else if k > 255 {
			k = 255
		}
		kClip[i-yuvRangeMin] = uint8(k)
	}
}

// YUVToRGB writes one RGB triple.
func YUVToRGB(y, u, v int, rgb []byte) {
	rOff := int(kVToR[v])
	gOff := int((kVToG[v] + kUToG[u]) >> yuvFix)
	bOff := int(kUToB[u])
	rgb[0] = kClip[y+rOff-yuvRangeMin]
	rgb[1] = kClip[y+gOff-yuvRangeMin]
	rgb[2] = kClip[y+bOff-yuvRangeMin]
}

// YUVToBGR writes one BGR triple.
func YUVToBGR(y, u, v int, bgr []byte) {
	rOff := int(kVToR[v])
	gOff := int((kVToG[v] + kUToG[u]) >> yuvFix)
	bOff := int(kUToB[u])
	bgr[0] = kClip[y+bOff-yuvRangeMin]
	bgr[1] = kClip[y+gOff-yuvRangeMin]
	bgr[2] = kClip[y+rOff-yuvRangeMin]
}

// YUVToRGBA writes RGB plus an opaque alpha byte.
func YUVToRGBA(y, u, v int, rgba []byte) {
	YUVToRGB(y, u, v, rgba)
	rgba[3] = 0xff
}

// YUVToBGRA writes BGR plus an opaque alpha byte.
func YUVToBGRA(y, u, v int, bgra []byte) {
	YUVToBGR(y, u, v, bgra)
	bgra[3] = 0xff
}

// YUVToARGB writes an opaque alpha byte followed by RGB.
func YUVToARGB(y, u, v int, argb []byte) {
	argb[0] = 0xff
	YUVToRGB(y, u, v, argb[1:])
}

// YUVToRGB565 packs the triple as 5+6+5 bits, big-endian within the pair.
func YUVToRGB565(y, u, v int, dst []byte) {
	rOff := int(kVToR[v])
	gOff := int((kVToG[v] + kUToG[u]) >> yuvFix)
	bOff := int(kUToB[u])
	r := kClip[y+rOff-yuvRangeMin]
	g := kClip[y+gOff-yuvRangeMin]
	b := kClip[y+bOff-yuvRangeMin]
	dst[0] = (r & 0xf8) | (g >> 5)
	dst[1] = ((g << 3) & 0xe0) | (b >> 3)
}

// YUVToRGBA4444 packs the triple as 4+4+4 bits plus opaque alpha.
func YUVToRGBA4444(y, u, v int, dst []byte) {
	rOff := int(kVToR[v])
	gOff := int((kVToG[v] + kUToG[u]) >> yuvFix)
	bOff := int(kUToB[u])
	r := kClip[y+rOff-yuvRangeMin]
	g := kClip[y+gOff-yuvRangeMin]
	b := kClip[y+bOff-yuvRangeMin]
	dst[0] = (r & 0xf0) | (g >> 4)
	dst[1] = (b & 0xf0) | 0x0f
}
