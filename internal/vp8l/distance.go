package vp8l

// Short-distance plane codes. Small 2-D offsets (0 <= dy <= 7 with
// -7 <= dx <= 8, and dx >= 1 on the current row) map through a fixed table to the codes 1..120; anything farther is
// sent as raw distance + 120. The table is ported verbatim; there is no
// documented closed form that regenerates it.

// CodeCount is the number of short-distance plane codes.
const CodeCount = 120

// kPlaneToCodeLut maps (dy*16 + 8-dx) to a plane code minus one.
// Unreachable cells hold 255.
var kPlaneToCodeLut = [128]uint8{
	96, 73, 55, 39, 23, 13, 5, 1, 255, 255, 255, 255, 255, 255, 255, 255,
	101, 78, 58, 42, 26, 16, 8, 2, 0, 3, 9, 17, 27, 43, 59, 79,
	102, 86, 62, 46, 32, 20, 10, 6, 4, 7, 11, 21, 33, 47, 63, 87,
	105, 90, 70, 52, 37, 28, 18, 14, 12, 15, 19, 29, 38, 53, 71, 91,
	110, 99, 82, 66, 48, 35, 30, 24, 22, 25, 31, 36, 49, 67, 83, 100,
	115, 108, 94, 76, 64, 50, 44, 40, 34, 41, 45, 51, 65, 77, 95, 109,
	118, 113, 103, 92, 80, 68, 60, 56, 54, 57, 61, 69, 81, 93, 104, 114,
	119, 116, 111, 106, 97, 88, 84, 74, 72, 75, 85, 89, 98, 107, 112, 117,
}

// kCodeToPlane is the inverse mapping: entry i encodes the offset of
// plane code i+1 as (yoffset << 4) | (8 - xoffset).
var kCodeToPlane = [CodeCount]uint8{
	0x18, 0x07, 0x17, 0x19, 0x28, 0x06, 0x27, 0x29, 0x16, 0x1a,
	0x26, 0x2a, 0x38, 0x05, 0x37, 0x39, 0x15, 0x1b, 0x36, 0x3a,
	0x25, 0x2b, 0x48, 0x04, 0x47, 0x49, 0x14, 0x1c, 0x35, 0x3b,
	0x46, 0x4a, 0x24, 0x2c, 0x58, 0x45, 0x4b, 0x34, 0x3c, 0x03,
	0x57, 0x59, 0x13, 0x1d, 0x56, 0x5a, 0x23, 0x2d, 0x44, 0x4c,
	0x55, 0x5b, 0x33, 0x3d, 0x68, 0x02, 0x67, 0x69, 0x12, 0x1e,
	0x66, 0x6a, 0x22, 0x2e, 0x54, 0x5c, 0x43, 0x4d, 0x65, 0x6b,
	0x32, 0x3e, 0x78, 0x01, 0x77, 0x79, 0x53, 0x5d, 0x11, 0x1f,
	0x64, 0x6c, 0x42, 0x4e, 0x76, 0x7a, 0x21, 0x2f, 0x75, 0x7b,
	0x31, 0x3f, 0x63, 0x6d, 0x52, 0x5e, 0x00, 0x74, 0x7c, 0x41,
	0x4f, 0x10, 0x20, 0x62, 0x6e, 0x30, 0x73, 0x7d, 0x51, 0x5f,
	0x40, 0x72, 0x7e, 0x61, 0x6f, 0x50, 0x71, 0x7f, 0x60, 0x70,
}

// DistanceToPlaneCode converts a pixel distance to its transmitted
// code: a short 2-D code in [1, 120] when the offset is small, or the
// raw distance biased by 120.
func DistanceToPlaneCode(xsize, dist int) int {
	yoffset := dist / xsize
	xoffset := dist - yoffset*xsize
	if xoffset <= 8 && yoffset < 8 {
		return int(kPlaneToCodeLut[yoffset*16+8-xoffset]) + 1
	} else if xoffset > xsize-8 && yoffset < 7 {
		return int(kPlaneToCodeLut[(yoffset+1)*16+8+(xsize-xoffset)]) + 1
	}
	return dist + CodeCount
}

// PlaneCodeToDistance is the inverse of DistanceToPlaneCode.
func PlaneCodeToDistance(xsize, planeCode int) int {
	if planeCode > CodeCount {
		return planeCode - CodeCount
	}
	v := kCodeToPlane[planeCode-1]
	yoffset := int(v >> 4)
	xoffset := 8 - int(v&0xf)
	dist := yoffset*xsize + xoffset
	if dist < 1 {
		return 1
	}
	return dist
}

// PrefixEncode splits a 1-based value into its prefix code, the number
// of extra bits, and their value.
func PrefixEncode(n int) (code, extraBits, extraBitsValue int) {
	n--
	if n < 2 {
		return n, 0, 0
	}
	highest := log2Floor(n)
	second := (n >> uint(highest-1)) & 1
	extraBits = highest - 1
	extraBitsValue = n & ((1 << uint(extraBits)) - 1)
	code = 2*highest + second
	return code, extraBits, extraBitsValue
}

func log2Floor(n int) int {
	log := 0
	for n > 1 {
		n >>= 1
		log++
	}
	return log
}
