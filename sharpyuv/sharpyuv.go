// Package sharpyuv converts RGB to YUV 4:2:0 while preserving luma
// detail. Instead of plain 2x2 averaging, it alternates gamma-linear
// downsampling with per-pixel luma corrections over a few passes, so
// sharp chroma edges do not bleed into the subsampled planes.
//
// All arithmetic is fixed-point; the working representation is a
// full-resolution W (luma-like) plane plus half-resolution signed
// residuals of R, G and B against W.
package sharpyuv

import (
	"image"

	"github.com/pkg/errors"
)

const (
	numIterations = 4
	// MinDimension is the smallest width or height the iterative
	// conversion accepts; callers must fall back to ConvertAveraging
	// below it.
	MinDimension = 4

	yuvFix  = 16
	yuvHalf = 1 << (yuvFix - 1)

	// sfix adds fractional precision to the imported RGB samples and
	// the working Y plane; plain 8-bit intermediates band visibly.
	sfix     = 2
	sHalf    = 1 << sfix >> 1
	maxYT    = 256<<sfix - 1
	sRounder = 1 << (yuvFix + sfix - 1)
)

// ErrTooSmall is returned when either dimension is below MinDimension.
var ErrTooSmall = errors.New("sharpyuv: picture too small for iterative conversion")

func clip8(v int) uint8 {
	if v&^0xff == 0 {
		return uint8(v)
	}
	if v < 0 {
		return 0
	}
	return 255
}

func clipY(v int) uint16 {
	if v&^maxYT == 0 {
		return uint16(v)
	}
	if v < 0 {
		return 0
	}
	return maxYT
}

// rgbToGray computes the fixed-point luminance W of a linear R, G, B
// triple with the coefficients {13933, 46871, 4732}/65536.
func rgbToGray(r, g, b int) int {
	return (13933*r + 46871*g + 4732*b + yuvHalf) >> yuvFix
}

// scaleDown averages four gamma-space samples in the linear domain.
func scaleDown(a, b, c, d uint16) int {
	la := gammaToLinear(int(a))
	lb := gammaToLinear(int(b))
	lc := gammaToLinear(int(c))
	ld := gammaToLinear(int(d))
	return int(linearToGamma((la + lb + lc + ld + 2) >> 2))
}

// updateW recomputes the gamma-aware luma of one imported R/G/B row.
// src holds the three w-wide channel segments back to back.
func updateW(src []uint16, dst []uint16, w int) {
	for i := 0; i < w; i++ {
		r := gammaToLinear(int(src[0*w+i]))
		g := gammaToLinear(int(src[1*w+i]))
		b := gammaToLinear(int(src[2*w+i]))
		y := rgbToGray(int(r), int(g), int(b))
		dst[i] = uint16(linearToGamma(uint32(y)))
	}
}

// updateChroma folds two imported rows into one row of half-resolution
// (R-W, G-W, B-W) residuals.
func updateChroma(src1, src2 []uint16, dst []int16, uvW int) {
	w := 2 * uvW
	for i := 0; i < uvW; i++ {
		r := scaleDown(src1[2*i], src1[2*i+1], src2[2*i], src2[2*i+1])
		g := scaleDown(src1[w+2*i], src1[w+2*i+1], src2[w+2*i], src2[w+2*i+1])
		b := scaleDown(src1[2*w+2*i], src1[2*w+2*i+1], src2[2*w+2*i], src2[2*w+2*i+1])
		gray := rgbToGray(r, g, b)
		dst[0*uvW+i] = int16(r - gray)
		dst[1*uvW+i] = int16(g - gray)
		dst[2*uvW+i] = int16(b - gray)
	}
}

// storeGray seeds the working Y plane with the plain gray of the row.
func storeGray(rgb []uint16, y []uint16, w int) {
	for i := 0; i < w; i++ {
		y[i] = uint16(rgbToGray(int(rgb[0*w+i]), int(rgb[1*w+i]), int(rgb[2*w+i])))
	}
}

// filter2 is the (3*A + B + 2) >> 2 edge filter used at horizontal
// extremes of the interpolation.
func filter2(a, b, w0 int) uint16 {
	return clipY(((a*3 + b + 2) >> 2) + w0)
}

// filterRow applies the 3-tap bilinear chroma filter to one channel
// segment: output pixel pairs mix the straddling chroma samples of the
// current row (a) and a vertical neighbor row (b) with weights 9:3:3:1.
func filterRow(a, b []int16, length int, bestY []uint16, out []uint16) {
	for i := 0; i < length; i++ {
		v0 := (int(a[i])*9 + int(a[i+1])*3 + int(b[i])*3 + int(b[i+1]) + 8) >> 4
		v1 := (int(a[i+1])*9 + int(a[i])*3 + int(b[i+1])*3 + int(b[i]) + 8) >> 4
		out[2*i+0] = clipY(int(bestY[2*i+0]) + v0)
		out[2*i+1] = clipY(int(bestY[2*i+1]) + v1)
	}
}

// updateY folds the per-pixel luma error back into dst and returns the
// accumulated absolute error of this pass.
func updateY(ref, src, dst []uint16, length int) uint64 {
	var diff uint64
	for i := 0; i < length; i++ {
		diffY := int(ref[i]) - int(src[i])
		dst[i] = clipY(int(dst[i]) + diffY)
		if diffY < 0 {
			diffY = -diffY
		}
		diff += uint64(diffY)
	}
	return diff
}

// updateRGB folds the chroma-residual error back into dst, unclipped.
func updateRGB(ref, src, dst []int16, length int) {
	for i := 0; i < length; i++ {
		dst[i] += ref[i] - src[i]
	}
}

// upLift widens an 8-bit sample to the working precision.
func upLift(a uint8) uint16 {
	return uint16(a)<<sfix | sHalf
}

// importOneRow up-shifts one picture row into the three-segment layout,
// replicating the rightmost pixel when the width is odd.
func importOneRow(r, g, b []byte, step, picWidth int, dst []uint16) {
	w := (picWidth + 1) &^ 1
	for i := 0; i < picWidth; i++ {
		off := i * step
		dst[i+0*w] = upLift(r[off])
		dst[i+1*w] = upLift(g[off])
		dst[i+2*w] = upLift(b[off])
	}
	if picWidth&1 != 0 {
		dst[picWidth+0*w] = dst[picWidth+0*w-1]
		dst[picWidth+1*w] = dst[picWidth+1*w-1]
		dst[picWidth+2*w] = dst[picWidth+2*w-1]
	}
}

// interpolateTwoRows reconstructs two trial RGB rows from the working Y
// plane and the chroma residuals of the neighboring strips.
func interpolateTwoRows(bestY []uint16, prevUV, curUV, nextUV []int16, w int, out1, out2 []uint16) {
	uvW := w >> 1
	length := (w - 1) >> 1
	for k := 0; k < 3; k++ {
		cu := curUV[k*uvW:]
		pu := prevUV[k*uvW:]
		nu := nextUV[k*uvW:]
		o1 := out1[k*w:]
		o2 := out2[k*w:]

		o1[0] = filter2(int(cu[0]), int(pu[0]), int(bestY[0]))
		o2[0] = filter2(int(cu[0]), int(nu[0]), int(bestY[w]))

		filterRow(cu, pu, length, bestY[1:], o1[1:])
		filterRow(cu, nu, length, bestY[w+1:], o2[1:])

		if w&1 == 0 {
			o1[w-1] = filter2(int(cu[uvW-1]), int(pu[uvW-1]), int(bestY[w-1]))
			o2[w-1] = filter2(int(cu[uvW-1]), int(nu[uvW-1]), int(bestY[2*w-1]))
		}
	}
}

// Final fixed-point RGB->YUV pack (ITU-R BT.601, limited range).

func convertRGBToY(r, g, b int) uint8 {
	luma := 16839*r + 33059*g + 6420*b + sRounder
	return clip8(16 + luma>>(yuvFix+sfix))
}

func convertRGBToU(r, g, b int) uint8 {
	u := -9719*r - 19081*g + 28800*b + sRounder
	return clip8(128 + u>>(yuvFix+sfix))
}

func convertRGBToV(r, g, b int) uint8 {
	v := 28800*r - 24116*g - 4684*b + sRounder
	return clip8(128 + v>>(yuvFix+sfix))
}

// convertWRGBToYUV packs the converged W/residual representation into
// the destination planes.
func convertWRGBToYUV(bestY []uint16, bestUV []int16,
	dstY []byte, strideY int, dstU []byte, strideU int, dstV []byte, strideV int,
	width, height int) {
	w := (width + 1) &^ 1
	h := (height + 1) &^ 1
	uvW := w >> 1
	uvH := h >> 1

	for j := 0; j < height; j++ {
		uv := bestUV[(j>>1)*3*uvW:]
		for i := 0; i < width; i++ {
			off := i >> 1
			wVal := int(bestY[j*w+i])
			r := int(uv[off+0*uvW]) + wVal
			g := int(uv[off+1*uvW]) + wVal
			b := int(uv[off+2*uvW]) + wVal
			dstY[j*strideY+i] = convertRGBToY(r, g, b)
		}
	}
	for j := 0; j < uvH; j++ {
		uv := bestUV[j*3*uvW:]
		for i := 0; i < uvW; i++ {
			r := int(uv[i+0*uvW])
			g := int(uv[i+1*uvW])
			b := int(uv[i+2*uvW])
			dstU[j*strideU+i] = convertRGBToU(r, g, b)
			dstV[j*strideV+i] = convertRGBToV(r, g, b)
		}
	}
}

// Convert runs the sharp iterative RGB->YUV420 conversion over planar
// channel pointers: r, g and b address the first sample of each
// channel, step is the byte distance between horizontal neighbors and
// rgbStride between rows (so packed RGB uses step 3, RGBA step 4).
//
// It fails only on dimensions below MinDimension; the caller is then
// expected to fall back to ConvertAveraging.
func Convert(r, g, b []byte, step, rgbStride int,
	dstY []byte, strideY int, dstU []byte, strideU int, dstV []byte, strideV int,
	width, height int) error {
	if width < MinDimension || height < MinDimension {
		return ErrTooSmall
	}
	initGammaTables()

	// Round the working grid up to even dimensions; the last row and
	// column replicate.
	w := (width + 1) &^ 1
	h := (height + 1) &^ 1
	uvW := w >> 1
	uvH := h >> 1

	tmp := make([]uint16, 2*3*w) // two imported rows
	bestY := make([]uint16, w*h)
	targetY := make([]uint16, w*h)
	bestRGBY := make([]uint16, 2*w)
	bestUV := make([]int16, 3*uvW*uvH)
	targetUV := make([]int16, 3*uvW*uvH)
	bestRGBUV := make([]int16, 3*uvW)

	// Import to the W/residual representation and build the targets.
	for j := 0; j < height; j += 2 {
		src1 := tmp[:3*w]
		src2 := tmp[3*w:]
		rowOff := j * rgbStride
		importOneRow(r[rowOff:], g[rowOff:], b[rowOff:], step, width, src1)
		if j != height-1 {
			rowOff += rgbStride
			importOneRow(r[rowOff:], g[rowOff:], b[rowOff:], step, width, src2)
		} else {
			copy(src2, src1)
		}
		yOff := (j >> 1) * 2 * w
		uvOff := (j >> 1) * 3 * uvW
		storeGray(src1, bestY[yOff:], w)
		storeGray(src2, bestY[yOff+w:], w)
		updateW(src1, targetY[yOff:], w)
		updateW(src2, targetY[yOff+w:], w)
		updateChroma(src1, src2, targetUV[uvOff:], uvW)
		copy(bestUV[uvOff:uvOff+3*uvW], targetUV[uvOff:uvOff+3*uvW])
	}

	// Iterate and resolve clipping conflicts. Each pass rebuilds trial
	// rows from the current solution, measures the luma error against
	// the target, and folds the error back in.
	diffYThreshold := uint64(3 * w * h)
	prevDiffYSum := ^uint64(0)
	for iter := 0; iter < numIterations; iter++ {
		var diffYSum uint64
		curUV := 0
		prevUV := 0
		for j := 0; j < h; j += 2 {
			src1 := tmp[:3*w]
			src2 := tmp[3*w:]
			nextUV := curUV
			if j < h-2 {
				nextUV = curUV + 3*uvW
			}
			yOff := j * w
			interpolateTwoRows(bestY[yOff:], bestUV[prevUV:], bestUV[curUV:],
				bestUV[nextUV:], w, src1, src2)
			prevUV = curUV
			curUV = nextUV

			updateW(src1, bestRGBY[:w], w)
			updateW(src2, bestRGBY[w:], w)
			updateChroma(src1, src2, bestRGBUV, uvW)

			uvOff := (j >> 1) * 3 * uvW
			diffYSum += updateY(targetY[yOff:], bestRGBY, bestY[yOff:], 2*w)
			updateRGB(targetUV[uvOff:], bestRGBUV, bestUV[uvOff:], 3*uvW)
		}
		if iter > 0 {
			if diffYSum < diffYThreshold {
				break
			}
			if diffYSum > prevDiffYSum {
				break
			}
		}
		prevDiffYSum = diffYSum
	}

	convertWRGBToYUV(bestY, bestUV, dstY, strideY, dstU, strideU, dstV, strideV,
		width, height)
	return nil
}

// ConvertImage is a convenience wrapper for packed RGB input into an
// image.YCbCr with 4:2:0 subsampling.
func ConvertImage(rgb []byte, width, height, rgbStride int, yuv *image.YCbCr) error {
	if yuv == nil || yuv.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		return errors.New("sharpyuv: output must be YCbCr 4:2:0")
	}
	return Convert(rgb, rgb[1:], rgb[2:], 3, rgbStride,
		yuv.Y, yuv.YStride, yuv.Cb, yuv.CStride, yuv.Cr, yuv.CStride,
		width, height)
}

// ConvertAveraging is the plain non-iterative conversion: full-res Y
// plus box-averaged chroma. It is the mandated fallback when either
// dimension is below MinDimension, and has no size restriction.
func ConvertAveraging(r, g, b []byte, step, rgbStride int,
	dstY []byte, strideY int, dstU []byte, strideU int, dstV []byte, strideV int,
	width, height int) {
	rgbToY := func(ri, gi, bi int) uint8 {
		return clip8(16 + (16839*ri+33059*gi+6420*bi+yuvHalf)>>yuvFix)
	}
	for j := 0; j < height; j++ {
		off := j * rgbStride
		for i := 0; i < width; i++ {
			o := off + i*step
			dstY[j*strideY+i] = rgbToY(int(r[o]), int(g[o]), int(b[o]))
		}
	}
	uvW := (width + 1) >> 1
	uvH := (height + 1) >> 1
	for j := 0; j < uvH; j++ {
		for i := 0; i < uvW; i++ {
			var sr, sg, sb, cnt int
			for dy := 0; dy < 2; dy++ {
				yy := 2*j + dy
				if yy >= height {
					continue
				}
				for dx := 0; dx < 2; dx++ {
					xx := 2*i + dx
					if xx >= width {
						continue
					}
					o := yy*rgbStride + xx*step
					sr += int(r[o])
					sg += int(g[o])
					sb += int(b[o])
					cnt++
				}
			}
			sr = (sr + cnt/2) / cnt
			sg = (sg + cnt/2) / cnt
			sb = (sb + cnt/2) / cnt
			u := (-9719*sr - 19081*sg + 28800*sb + yuvHalf) >> yuvFix
			v := (28800*sr - 24116*sg - 4684*sb + yuvHalf) >> yuvFix
			dstU[j*strideU+i] = clip8(128 + u)
			dstV[j*strideV+i] = clip8(128 + v)
		}
	}
}
