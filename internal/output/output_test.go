package output

import (
	"testing"

	"github.com/pixelwerk/webpcore/internal/vp8"
)

func TestFormatProperties(t *testing.T) {
	tests := []struct {
		f   Format
		bpp int
	}{
		{FormatRGB, 3}, {FormatBGR, 3},
		{FormatRGBA, 4}, {FormatBGRA, 4}, {FormatARGB, 4},
		{FormatRGB565, 2}, {FormatRGBA4444, 2},
		{FormatYUV, 0}, {FormatYUVA, 0},
	}
	for _, tt := range tests {
		if got := tt.f.BytesPerPixel(); got != tt.bpp {
			t.Errorf("%v.BytesPerPixel() = %d, want %d", tt.f, got, tt.bpp)
		}
		if tt.f.IsRGB() != (tt.bpp != 0) {
			t.Errorf("%v.IsRGB() inconsistent", tt.f)
		}
	}
}

func TestCheckParams(t *testing.T) {
	ok := func(p *Params) {
		t.Helper()
		if err := CheckParams(64, 48, p); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	bad := func(p *Params) {
		t.Helper()
		err := CheckParams(64, 48, p)
		if err == nil {
			t.Error("expected error")
			return
		}
		if vp8.StatusOf(err) != vp8.StatusInvalidParam {
			t.Errorf("status = %v, want invalid param", vp8.StatusOf(err))
		}
	}

	p := &Params{Format: FormatRGB}
	ok(p)
	if p.CropWidth != 64 || p.CropHeight != 48 {
		t.Errorf("defaulted crop %dx%d", p.CropWidth, p.CropHeight)
	}

	bad(&Params{UseCropping: true, CropLeft: 1, CropTop: 0, CropWidth: 4, CropHeight: 4})
	bad(&Params{UseCropping: true, CropLeft: 0, CropTop: 3, CropWidth: 4, CropHeight: 4})
	bad(&Params{UseCropping: true, CropLeft: 62, CropTop: 0, CropWidth: 4, CropHeight: 4})
	bad(&Params{UseScaling: true, ScaledWidth: 0, ScaledHeight: 9})
	bad(&Params{UseScaling: true, ScaledWidth: 65, ScaledHeight: 9})
	ok(&Params{UseScaling: true, ScaledWidth: 32, ScaledHeight: 24})
	ok(&Params{UseCropping: true, CropLeft: 2, CropTop: 2, CropWidth: 8, CropHeight: 8,
		UseScaling: true, ScaledWidth: 4, ScaledHeight: 4})
}

// TestAbortPolling checks that a true TestAbort return stops the sink.
func TestAbortPolling(t *testing.T) {
	calls := 0
	p := &Params{
		Format:    FormatYUV,
		TestAbort: func() bool { calls++; return calls >= 2 },
	}
	s := NewSink(p)
	io := &vp8.Io{Width: 16, Height: 32, YStride: 16, UVStride: 8}
	p.OutY = make([]byte, 16*32)
	p.OutU = make([]byte, 8*16)
	p.OutV = make([]byte, 8*16)
	p.YStride, p.UVStride = 16, 8
	if !s.Setup(io) {
		t.Fatal("Setup failed")
	}
	io.Y = make([]byte, 16*16)
	io.U = make([]byte, 8*8)
	io.V = make([]byte, 8*8)
	io.MBY, io.MBH = 0, 16
	if !s.Put(io) {
		t.Fatal("first Put aborted early")
	}
	io.MBY = 16
	if s.Put(io) {
		t.Fatal("second Put ignored the abort")
	}
}

func TestShouldRescale(t *testing.T) {
	if !ShouldRescale(100, 100, 70, 70) {
		t.Error("70% scale should rescale")
	}
	if ShouldRescale(100, 100, 80, 80) {
		t.Error("80% scale should keep filtering")
	}
}
