package webpcore_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	webpcore "github.com/pixelwerk/webpcore"
	"github.com/pixelwerk/webpcore/internal/synth"
)

func uniformStream(w, h int) []byte {
	f := synth.Frame{Width: w, Height: h, QIndex: 20}
	return f.Build()
}

func TestGetInfo(t *testing.T) {
	data := uniformStream(48, 32)
	w, h, err := webpcore.GetInfo(data)
	if err != nil {
		t.Fatal(err)
	}
	if w != 48 || h != 32 {
		t.Fatalf("got %dx%d, want 48x32", w, h)
	}
	if _, _, err := webpcore.GetInfo([]byte("RIFFxxxxJUNK")); err == nil {
		t.Fatal("junk accepted")
	}
}

// TestDecodeUniformRGB checks the full pipeline on a flat picture: the
// decoded mid-level YUV maps to the BT.601 gray ~130 in every channel.
func TestDecodeUniformRGB(t *testing.T) {
	img, err := webpcore.DecodeRGB(uniformStream(32, 32))
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 32 || img.Height != 32 {
		t.Fatalf("bad dims %dx%d", img.Width, img.Height)
	}
	for i, v := range img.Pix {
		if v < 129 || v > 131 {
			t.Fatalf("pix[%d] = %d, want ~130", i, v)
		}
	}
}

// TestFancyEqualsPointOnConstant compares the two upsampling paths on a
// constant-color picture; they must agree pixel for pixel.
func TestFancyEqualsPointOnConstant(t *testing.T) {
	data := uniformStream(36, 20)
	fancy, err := webpcore.DecodeOptions(data, webpcore.RGBA, nil)
	if err != nil {
		t.Fatal(err)
	}
	point, err := webpcore.DecodeOptions(data, webpcore.RGBA,
		&webpcore.DecoderOptions{NoFancyUpsampling: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fancy.Pix, point.Pix); diff != "" {
		t.Errorf("fancy vs point (-fancy +point):\n%s", diff)
	}
}

// TestColorspaceVariants checks the channel ordering of the packed
// one-shot decoders against each other.
func TestColorspaceVariants(t *testing.T) {
	data := uniformStream(16, 16)
	rgb, err := webpcore.DecodeRGB(data)
	if err != nil {
		t.Fatal(err)
	}
	bgr, err := webpcore.DecodeBGR(data)
	if err != nil {
		t.Fatal(err)
	}
	rgba, err := webpcore.DecodeRGBA(data)
	if err != nil {
		t.Fatal(err)
	}
	argb, err := webpcore.DecodeARGB(data)
	if err != nil {
		t.Fatal(err)
	}
	for p := 0; p < 16*16; p++ {
		r, g, b := rgb.Pix[p*3], rgb.Pix[p*3+1], rgb.Pix[p*3+2]
		if bgr.Pix[p*3] != b || bgr.Pix[p*3+1] != g || bgr.Pix[p*3+2] != r {
			t.Fatalf("BGR mismatch at pixel %d", p)
		}
		if rgba.Pix[p*4] != r || rgba.Pix[p*4+3] != 0xff {
			t.Fatalf("RGBA mismatch at pixel %d", p)
		}
		if argb.Pix[p*4] != 0xff || argb.Pix[p*4+1] != r {
			t.Fatalf("ARGB mismatch at pixel %d", p)
		}
	}
}

func TestDecodeYUVPlanes(t *testing.T) {
	img, err := webpcore.DecodeYUV(uniformStream(20, 12))
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 20 || img.Height != 12 {
		t.Fatalf("bad dims")
	}
	for i, v := range img.Y {
		if v != 128 {
			t.Fatalf("y[%d] = %d", i, v)
		}
	}
	for i := range img.U {
		if img.U[i] != 128 || img.V[i] != 128 {
			t.Fatalf("chroma[%d] = %d/%d", i, img.U[i], img.V[i])
		}
	}
}

// TestIncrementalPublicAPI drives the byte-at-a-time path through the
// public surface and compares with one-shot output.
func TestIncrementalPublicAPI(t *testing.T) {
	data := uniformStream(32, 32)
	want, err := webpcore.DecodeRGBA(data)
	if err != nil {
		t.Fatal(err)
	}

	inc := webpcore.NewIncremental(webpcore.RGBA, nil)
	var status webpcore.Status
	lastRowSeen := 0
	for i := range data {
		status = inc.Append(data[i : i+1])
		if status != webpcore.StatusSuspended && status != webpcore.StatusOk {
			t.Fatalf("Append %d: %v", i, status)
		}
		if _, lastRow, _, _, _ := inc.GetRGB(); lastRow < lastRowSeen {
			t.Fatalf("last row went backwards: %d -> %d", lastRowSeen, lastRow)
		} else {
			lastRowSeen = lastRow
		}
	}
	if status != webpcore.StatusOk {
		t.Fatalf("final status %v", status)
	}
	if inc.State() != webpcore.StateDone {
		t.Fatalf("state %v, want done", inc.State())
	}
	pix, lastRow, w, h, stride := inc.GetRGB()
	if w != 32 || h != 32 || lastRow != 32 || stride != want.Stride {
		t.Fatalf("geometry: %dx%d lastRow=%d stride=%d", w, h, lastRow, stride)
	}
	if diff := cmp.Diff(want.Pix, pix); diff != "" {
		t.Errorf("incremental pixels differ:\n%s", diff)
	}
}

func TestDecodeIntoValidation(t *testing.T) {
	data := uniformStream(16, 16)

	if s := webpcore.DecodeInto(data, webpcore.YUV, make([]byte, 16), 16, nil); s != webpcore.StatusInvalidParam {
		t.Errorf("planar colorspace: %v", s)
	}
	if s := webpcore.DecodeInto(data, webpcore.RGB, make([]byte, 10), 48, nil); s != webpcore.StatusInvalidParam {
		t.Errorf("short buffer: %v", s)
	}
	if s := webpcore.DecodeInto(data, webpcore.RGB, make([]byte, 16*48), 40, nil); s != webpcore.StatusInvalidParam {
		t.Errorf("narrow stride: %v", s)
	}

	buf := make([]byte, 16*48)
	if s := webpcore.DecodeInto(data, webpcore.RGB, buf, 48, nil); s != webpcore.StatusOk {
		t.Fatalf("valid decode: %v", s)
	}
	for i, v := range buf {
		if v < 129 || v > 131 {
			t.Fatalf("buf[%d] = %d", i, v)
		}
	}

	// Odd crop origin is a caller error.
	bad := &webpcore.DecoderOptions{UseCropping: true, CropLeft: 1, CropTop: 0,
		CropWidth: 8, CropHeight: 8}
	if s := webpcore.DecodeInto(data, webpcore.RGB, buf, 48, bad); s != webpcore.StatusInvalidParam {
		t.Errorf("odd crop: %v", s)
	}
}

func TestCroppedDecode(t *testing.T) {
	opts := &webpcore.DecoderOptions{
		UseCropping: true,
		CropLeft:    8, CropTop: 4,
		CropWidth: 16, CropHeight: 12,
	}
	img, err := webpcore.DecodeOptions(uniformStream(32, 32), webpcore.RGB, opts)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 16 || img.Height != 12 {
		t.Fatalf("cropped dims %dx%d", img.Width, img.Height)
	}
	for i, v := range img.Pix {
		if v < 129 || v > 131 {
			t.Fatalf("pix[%d] = %d", i, v)
		}
	}
}

// TestThreadedDecodeMatches runs the worker-backed deblock/emit path
// and compares against the inline result.
func TestThreadedDecodeMatches(t *testing.T) {
	data := uniformStream(48, 48)
	plain, err := webpcore.DecodeRGBA(data)
	if err != nil {
		t.Fatal(err)
	}
	threaded, err := webpcore.DecodeOptions(data, webpcore.RGBA,
		&webpcore.DecoderOptions{UseThreads: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(plain.Pix, threaded.Pix); diff != "" {
		t.Errorf("threaded decode differs:\n%s", diff)
	}
}

func TestScaledDecode(t *testing.T) {
	opts := &webpcore.DecoderOptions{
		UseScaling:  true,
		ScaledWidth: 13, ScaledHeight: 9,
	}
	img, err := webpcore.DecodeOptions(uniformStream(32, 32), webpcore.RGB, opts)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 13 || img.Height != 9 {
		t.Fatalf("scaled dims %dx%d", img.Width, img.Height)
	}
	// Constant input must rescale to the same constant (±1) and then
	// convert like any other mid-gray.
	for i, v := range img.Pix {
		if v < 128 || v > 132 {
			t.Fatalf("pix[%d] = %d", i, v)
		}
	}

	up := &webpcore.DecoderOptions{UseScaling: true, ScaledWidth: 64, ScaledHeight: 64}
	if _, err := webpcore.DecodeOptions(uniformStream(32, 32), webpcore.RGB, up); err == nil {
		t.Error("upscaling accepted")
	}
}
