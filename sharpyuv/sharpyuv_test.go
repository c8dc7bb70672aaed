package sharpyuv

import (
	"math"
	"testing"
)

// bt601 computes the reference float conversion for a single pixel.
func bt601(r, g, b float64) (y, u, v float64) {
	y = 16 + (16839*r+33059*g+6420*b)/65536
	u = 128 + (-9719*r-19081*g+28800*b)/65536
	v = 128 + (28800*r-24116*g-4684*b)/65536
	return
}

func planes(w, h int) (y, u, v []byte) {
	return make([]byte, w*h),
		make([]byte, ((w+1)/2)*((h+1)/2)),
		make([]byte, ((w+1)/2)*((h+1)/2))
}

// TestTooSmallRejected checks the minimum-dimension precondition.
func TestTooSmallRejected(t *testing.T) {
	rgb := make([]byte, 3*3*3)
	y, u, v := planes(3, 3)
	err := Convert(rgb, rgb[1:], rgb[2:], 3, 9, y, 3, u, 2, v, 2, 3, 3)
	if err != ErrTooSmall {
		t.Fatalf("err = %v, want ErrTooSmall", err)
	}
	// The fallback must handle the same input.
	ConvertAveraging(rgb, rgb[1:], rgb[2:], 3, 9, y, 3, u, 2, v, 2, 3, 3)
}

// TestUniformColor converts a flat field: Y must match the per-pixel
// BT.601 value and chroma must be flat too.
func TestUniformColor(t *testing.T) {
	const w, h = 16, 16
	rgb := make([]byte, w*h*3)
	for i := 0; i < len(rgb); i += 3 {
		rgb[i+0] = 200
		rgb[i+1] = 100
		rgb[i+2] = 50
	}
	y, u, v := planes(w, h)
	if err := Convert(rgb, rgb[1:], rgb[2:], 3, w*3, y, w, u, w/2, v, w/2, w, h); err != nil {
		t.Fatal(err)
	}
	wantY, wantU, wantV := bt601(200, 100, 50)
	for i, val := range y {
		if d := float64(val) - wantY; d < -2 || d > 2 {
			t.Fatalf("y[%d] = %d, want %.1f", i, val, wantY)
		}
	}
	for i := range u {
		if d := float64(u[i]) - wantU; d < -2 || d > 2 {
			t.Fatalf("u[%d] = %d, want %.1f", i, u[i], wantU)
		}
		if d := float64(v[i]) - wantV; d < -2 || d > 2 {
			t.Fatalf("v[%d] = %d, want %.1f", i, v[i], wantV)
		}
	}
}

// TestCheckerboard converts the red/green checkerboard: per-pixel Y must
// track the BT.601 luma of each source pixel, and the chroma planes must
// average out to the chroma of the 50/50 mix.
func TestCheckerboard(t *testing.T) {
	const w, h = 8, 8
	rgb := make([]byte, w*h*3)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			off := (j*w + i) * 3
			if (i+j)&1 == 0 {
				rgb[off] = 255 // red
			} else {
				rgb[off+1] = 255 // green
			}
		}
	}
	y, u, v := planes(w, h)
	if err := Convert(rgb, rgb[1:], rgb[2:], 3, w*3, y, w, u, w/2, v, w/2, w, h); err != nil {
		t.Fatal(err)
	}

	// The point of the sharp converter is that the checkerboard's luma
	// contrast survives subsampling: green cells must stay consistently
	// brighter than red cells, and the pattern must not wash out.
	var redSum, greenSum float64
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			v := float64(y[j*w+i])
			if (i+j)&1 == 0 {
				redSum += v
			} else {
				greenSum += v
			}
		}
	}
	redMean := redSum / float64(w*h/2)
	greenMean := greenSum / float64(w*h/2)
	if greenMean-redMean < 20 {
		t.Errorf("luma contrast washed out: red mean %.1f, green mean %.1f",
			redMean, greenMean)
	}
	redY, _, _ := bt601(255, 0, 0)
	greenY, _, _ := bt601(0, 255, 0)
	wantMean := (redY + greenY) / 2
	if d := (redMean+greenMean)/2 - wantMean; d < -8 || d > 8 {
		t.Errorf("mean luma %.1f, want %.1f±8", (redMean+greenMean)/2, wantMean)
	}

	// Each 2x2 block mixes red and green evenly in the linear domain, so
	// the average chroma must sit near the BT.601 chroma of the
	// gamma-encoded 50/50 mix.
	mixC := 255 * (1.09929682680944*math.Pow(0.5, 0.45) - 0.09929682680944)
	_, mixU, mixV := bt601(mixC, mixC, 0)
	var sumU, sumV float64
	for i := range u {
		sumU += float64(u[i])
		sumV += float64(v[i])
	}
	n := float64(len(u))
	if d := sumU/n - mixU; d < -4 || d > 4 {
		t.Errorf("mean U = %.1f, want %.1f±4", sumU/n, mixU)
	}
	if d := sumV/n - mixV; d < -4 || d > 4 {
		t.Errorf("mean V = %.1f, want %.1f±4", sumV/n, mixV)
	}
}

// TestOddDimensions makes sure the right/bottom replication paths run.
func TestOddDimensions(t *testing.T) {
	const w, h = 7, 5
	rgb := make([]byte, w*h*3)
	for i := range rgb {
		rgb[i] = byte(37 * i)
	}
	y, u, v := planes(w, h)
	if err := Convert(rgb, rgb[1:], rgb[2:], 3, w*3, y, w, u, (w+1)/2, v, (w+1)/2, w, h); err != nil {
		t.Fatal(err)
	}
}

// TestAveragingMatchesSharpOnFlat checks that both converters agree on
// content with no chroma detail to preserve.
func TestAveragingMatchesSharpOnFlat(t *testing.T) {
	const w, h = 8, 8
	rgb := make([]byte, w*h*3)
	for i := 0; i < len(rgb); i += 3 {
		rgb[i], rgb[i+1], rgb[i+2] = 90, 90, 90
	}
	y1, u1, v1 := planes(w, h)
	y2, u2, v2 := planes(w, h)
	if err := Convert(rgb, rgb[1:], rgb[2:], 3, w*3, y1, w, u1, w/2, v1, w/2, w, h); err != nil {
		t.Fatal(err)
	}
	ConvertAveraging(rgb, rgb[1:], rgb[2:], 3, w*3, y2, w, u2, w/2, v2, w/2, w, h)
	for i := range y1 {
		if d := int(y1[i]) - int(y2[i]); d < -2 || d > 2 {
			t.Fatalf("y[%d]: sharp %d vs averaging %d", i, y1[i], y2[i])
		}
	}
	for i := range u1 {
		if d := int(u1[i]) - int(u2[i]); d < -2 || d > 2 {
			t.Fatalf("u[%d]: sharp %d vs averaging %d", i, u1[i], u2[i])
		}
	}
}
