// Package dsp holds the scalar signal-processing kernels of the codec:
// inverse transforms, intra predictors, the in-loop deblocking filter,
// YUV<->RGB conversion, chroma upsampling and the fixed-point rescaler.
//
// Every kernel is exposed through a package-level function variable so a
// platform build can swap in an equivalent SIMD version at init time; the
// scalar implementations here define the reference behaviour.
package dsp

import "sync"

// BPS is the stride of the per-macroblock reconstruction scratch buffer.
const BPS = 32

// Transform function variables (decode side).
var (
	Transform     func(coeffs []int16, dst []byte, doTwo bool)
	TransformAC3  func(coeffs []int16, dst []byte)
	TransformDC   func(coeffs []int16, dst []byte)
	TransformUV   func(coeffs []int16, dst []byte)
	TransformDCUV func(coeffs []int16, dst []byte)
	TransformWHT  func(in, out []int16)
)

// PredFunc predicts one block into buf at offset off. Context pixels sit
// at negative offsets relative to off (top row at off-BPS, left column at
// off-1), which the offset convention keeps as valid indices.
type PredFunc func(buf []byte, off int)

// Prediction dispatch tables, indexed by prediction mode.
var (
	PredLuma16  [NumDCModes]PredFunc
	PredChroma8 [NumDCModes]PredFunc
	PredLuma4   [NumBModes]PredFunc
)

// NumDCModes counts the 16x16/chroma modes including the three DC border
// variants; NumBModes counts the 4x4 sub-block modes.
const (
	NumDCModes = 7
	NumBModes  = 10
)

var initOnce sync.Once

// Init installs the scalar reference kernels and builds the lookup
// tables. It is idempotent and safe for concurrent first callers.
func Init() {
	initOnce.Do(func() {
		initClipTables()
		initYUVTables()

		Transform = transformTwo
		TransformAC3 = transformAC3
		TransformDC = transformDC
		TransformUV = transformUV
		TransformDCUV = transformDCUV
		TransformWHT = transformWHT

		initPredictors()
		initUpsamplers()
	})
}

func init() {
	Init()
}
