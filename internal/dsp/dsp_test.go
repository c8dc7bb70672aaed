package dsp

import "testing"

// TestTransformDCUniform checks that a DC-only block adds the same
// rounded value to every pixel.
func TestTransformDCUniform(t *testing.T) {
	buf := make([]byte, 4*BPS)
	for i := range buf {
		buf[i] = 100
	}
	coeffs := make([]int16, 16)
	coeffs[0] = 40 // (40 + 4) >> 3 = 5
	TransformDC(coeffs, buf)
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			if got := buf[j*BPS+i]; got != 105 {
				t.Fatalf("pixel (%d,%d) = %d, want 105", i, j, got)
			}
		}
	}
}

// TestTransformMatchesDCOnly verifies that the full inverse transform
// agrees with the DC-only fast path when all AC coefficients are zero.
func TestTransformMatchesDCOnly(t *testing.T) {
	for _, dc := range []int16{-80, -1, 0, 7, 123, 500} {
		full := make([]byte, 4*BPS)
		fast := make([]byte, 4*BPS)
		for i := range full {
			full[i] = 128
			fast[i] = 128
		}
		coeffs := make([]int16, 16)
		coeffs[0] = dc
		Transform(coeffs, full, false)
		TransformDC(coeffs, fast)
		for i := range full {
			if full[i] != fast[i] {
				t.Fatalf("dc=%d: mismatch at %d: %d vs %d", dc, i, full[i], fast[i])
			}
		}
	}
}

// TestTransformAC3MatchesFull checks the 3-coefficient fast path against
// the full inverse transform on its exact sparsity pattern.
func TestTransformAC3MatchesFull(t *testing.T) {
	cases := []struct{ dc, c1, c4 int16 }{
		{100, 30, -20},
		{-50, 0, 17},
		{0, -128, 128},
		{500, 1, 1},
	}
	for _, c := range cases {
		full := make([]byte, 4*BPS)
		fast := make([]byte, 4*BPS)
		for i := range full {
			full[i] = 128
			fast[i] = 128
		}
		coeffs := make([]int16, 16)
		coeffs[0], coeffs[1], coeffs[4] = c.dc, c.c1, c.c4
		Transform(coeffs, full, false)
		TransformAC3(coeffs, fast)
		for i := range full {
			if full[i] != fast[i] {
				t.Fatalf("coeffs %+v: mismatch at %d: %d vs %d", c, i, full[i], fast[i])
			}
		}
	}
}

// TestTransformWHTUniformDC spreads a uniform WHT DC over the 16 luma
// blocks: every block must receive the same DC value.
func TestTransformWHTUniformDC(t *testing.T) {
	in := make([]int16, 16)
	in[0] = 64
	out := make([]int16, 256)
	TransformWHT(in, out)
	want := out[0]
	for n := 0; n < 16; n++ {
		if out[n*16] != want {
			t.Fatalf("block %d DC = %d, want %d", n, out[n*16], want)
		}
	}
	// A lone WHT DC of 64 descales to (64 + 3) >> 3 = 8 per block.
	if want != 8 {
		t.Errorf("uniform DC = %d, want 8", want)
	}
}

// TestUpsampleWeights verifies the 2x2 interpolation against a direct
// evaluation of the {9,3,3,1}/16 kernel on a random-ish gradient.
func TestUpsampleWeights(t *testing.T) {
	const width = 8
	topY := make([]byte, width)
	botY := make([]byte, width)
	for i := range topY {
		topY[i] = 128
		botY[i] = 128
	}
	topU := []byte{10, 50, 90, 130}
	topV := []byte{200, 160, 120, 80}
	botU := []byte{30, 70, 110, 150}
	botV := []byte{180, 140, 100, 60}

	var got [2][width]struct{ u, v int }
	rec := func(row int) ConvFunc {
		i := 0
		return func(y, u, v int, dst []byte) {
			_ = y
			got[row][i].u = u
			got[row][i].v = v
			i++
			dst[0] = 0
		}
	}
	up := MakeUpsampler(rec(0), 1)
	// Convert only the top row to keep the recorder's column counter
	// simple, then the bottom row separately.
	up(topY, nil, topU, topV, botU, botV, make([]byte, width), nil, width)
	up2 := MakeUpsampler(rec(1), 1)
	up2(nil, botY, topU, topV, botU, botV, nil, make([]byte, width), width)

	// Direct evaluation. Output column 2x+1 and 2x+2 straddle chroma
	// columns x and x+1.
	check := func(row int, a, b []byte) {
		for x := 0; x+1 < len(a); x++ {
			tl, tr := int(a[x]), int(a[x+1])
			bl, brr := int(b[x]), int(b[x+1])
			w1 := (9*tl + 3*tr + 3*bl + brr + 8) >> 4
			w2 := (3*tl + 9*tr + bl + 3*brr + 8) >> 4
			if g := got[row][2*x+1].u; g != w1 {
				t.Errorf("row %d col %d: u = %d, want %d", row, 2*x+1, g, w1)
			}
			if g := got[row][2*x+2].u; g != w2 {
				t.Errorf("row %d col %d: u = %d, want %d", row, 2*x+2, g, w2)
			}
		}
	}
	check(0, topU, botU)
	check(1, botU, topU)
}

// TestUpsampleConstant checks that a constant chroma plane survives
// interpolation exactly (the weight quadruples sum to 16).
func TestUpsampleConstant(t *testing.T) {
	const width = 16
	y := make([]byte, width)
	u := make([]byte, width/2)
	v := make([]byte, width/2)
	for i := range y {
		y[i] = 90
	}
	for i := range u {
		u[i] = 77
		v[i] = 202
	}
	seen := 0
	conv := func(_, uu, vv int, dst []byte) {
		if uu != 77 || vv != 202 {
			seen++
		}
		dst[0] = 0
	}
	up := MakeUpsampler(conv, 1)
	dst := make([]byte, width)
	up(y, y, u, v, u, v, dst, dst, width)
	if seen != 0 {
		t.Errorf("%d interpolated samples deviated from the constant", seen)
	}
}

// TestRescalerConstantRows feeds constant rows through a fractional
// downscale; every output sample must equal the input within 1.
func TestRescalerConstantRows(t *testing.T) {
	cases := []struct{ sw, sh, dw, dh int }{
		{10, 10, 7, 7},
		{16, 16, 5, 9},
		{33, 7, 8, 3},
		{64, 64, 48, 48},
	}
	for _, c := range cases {
		var r Rescaler
		InitRescaler(&r, c.sw, c.sh, c.dw, c.dh)
		src := make([]byte, c.sw)
		for i := range src {
			src[i] = 161
		}
		rows := 0
		dst := make([]byte, c.dw)
		for j := 0; j < c.sh; j++ {
			r.ImportRow(src)
			for r.HasRow() {
				r.ExportRow(dst)
				rows++
				for i, v := range dst {
					if d := int(v) - 161; d < -1 || d > 1 {
						t.Fatalf("%dx%d->%dx%d: out[%d] = %d, want 161±1",
							c.sw, c.sh, c.dw, c.dh, i, v)
					}
				}
			}
		}
		if rows != c.dh {
			t.Errorf("%dx%d->%dx%d: exported %d rows, want %d",
				c.sw, c.sh, c.dw, c.dh, rows, c.dh)
		}
	}
}

// TestYUVGray checks the BT.601 limited-range mapping on neutral gray.
func TestYUVGray(t *testing.T) {
	var rgb [3]byte
	YUVToRGB(128, 128, 128, rgb[:])
	// 1.164 * (128 - 16) = 130.4
	for i, v := range rgb {
		if v < 129 || v > 131 {
			t.Errorf("channel %d = %d, want ~130", i, v)
		}
	}
	YUVToRGB(16, 128, 128, rgb[:])
	for i, v := range rgb {
		if v != 0 {
			t.Errorf("black: channel %d = %d", i, v)
		}
	}
	YUVToRGB(235, 128, 128, rgb[:])
	for i, v := range rgb {
		if v != 255 {
			t.Errorf("white: channel %d = %d", i, v)
		}
	}
}

// TestPackedFormats checks the 2-byte pixel packings against the 3-byte
// conversion of the same sample.
func TestPackedFormats(t *testing.T) {
	samples := [][3]int{{128, 128, 128}, {80, 200, 60}, {235, 30, 220}, {16, 128, 128}}
	for _, s := range samples {
		var rgb [3]byte
		var p565, p4444 [2]byte
		YUVToRGB(s[0], s[1], s[2], rgb[:])
		YUVToRGB565(s[0], s[1], s[2], p565[:])
		YUVToRGBA4444(s[0], s[1], s[2], p4444[:])

		r, g, b := rgb[0], rgb[1], rgb[2]
		want565 := [2]byte{(r & 0xf8) | (g >> 5), ((g << 3) & 0xe0) | (b >> 3)}
		if p565 != want565 {
			t.Errorf("yuv%v: RGB565 = %x, want %x", s, p565, want565)
		}
		want4444 := [2]byte{(r & 0xf0) | (g >> 4), (b & 0xf0) | 0x0f}
		if p4444 != want4444 {
			t.Errorf("yuv%v: RGBA4444 = %x, want %x", s, p4444, want4444)
		}
	}
}

// TestPredictorsDC checks the DC predictors against hand-computed
// context sums.
func TestPredictorsDC(t *testing.T) {
	buf := make([]byte, 20*BPS)
	off := 2*BPS + 8
	// Top row 40s, left column 60s.
	for i := 0; i < 4; i++ {
		buf[off-BPS+i] = 40
		buf[off-1+i*BPS] = 60
	}
	PredLuma4[BDCPred](buf, off)
	want := uint8((4*40 + 4*60 + 4) >> 3)
	if got := buf[off]; got != want {
		t.Errorf("dc4 = %d, want %d", got, want)
	}

	// TM: clip(top + left - topleft).
	buf[off-BPS-1] = 50
	PredLuma4[BTMPred](buf, off)
	if got, want := buf[off], Clip8(40+60-50); got != want {
		t.Errorf("tm4 = %d, want %d", got, want)
	}
}

// TestFilterFlatUnchanged checks that every deblocking kernel leaves
// perfectly flat content alone.
func TestFilterFlatUnchanged(t *testing.T) {
	mk := func() []byte {
		p := make([]byte, 32*32)
		for i := range p {
			p[i] = 77
		}
		return p
	}
	check := func(name string, p []byte) {
		for i, v := range p {
			if v != 77 {
				t.Fatalf("%s changed flat pixel %d to %d", name, i, v)
			}
		}
	}
	off := 8*32 + 8
	p := mk()
	SimpleVFilter16(p, off, 32, 35)
	check("SimpleVFilter16", p)
	p = mk()
	SimpleHFilter16(p, off, 32, 35)
	check("SimpleHFilter16", p)
	p = mk()
	VFilter16(p, off, 32, 40, 10, 2)
	check("VFilter16", p)
	p = mk()
	HFilter16(p, off, 32, 40, 10, 2)
	check("HFilter16", p)
	p = mk()
	VFilter8(p, off, 32, 40, 10, 2)
	check("VFilter8", p)
}
