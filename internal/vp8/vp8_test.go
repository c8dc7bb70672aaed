package vp8_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pixelwerk/webpcore/internal/synth"
	"github.com/pixelwerk/webpcore/internal/vp8"
)

// planeSink collects the decoded YUV planes for inspection.
type planeSink struct {
	w, h     int
	y, u, v  []byte
	setup    bool
	teardown bool
}

func (s *planeSink) Setup(io *vp8.Io) bool {
	s.w, s.h = io.Width, io.Height
	s.y = make([]byte, s.w*s.h)
	uvW := (s.w + 1) / 2
	uvH := (s.h + 1) / 2
	s.u = make([]byte, uvW*uvH)
	s.v = make([]byte, uvW*uvH)
	s.setup = true
	return true
}

func (s *planeSink) Put(io *vp8.Io) bool {
	uvW := (s.w + 1) / 2
	for j := 0; j < io.MBH; j++ {
		row := io.MBY + j
		if row >= s.h {
			break
		}
		copy(s.y[row*s.w:row*s.w+s.w], io.Y[j*io.YStride:])
	}
	for j := 0; j < (io.MBH+1)/2; j++ {
		row := io.MBY/2 + j
		if row >= (s.h+1)/2 {
			break
		}
		copy(s.u[row*uvW:row*uvW+uvW], io.U[j*io.UVStride:])
		copy(s.v[row*uvW:row*uvW+uvW], io.V[j*io.UVStride:])
	}
	return true
}

func (s *planeSink) Teardown(io *vp8.Io) { s.teardown = true }

func decodePayload(t *testing.T, payload []byte) *planeSink {
	t.Helper()
	var dec vp8.Decoder
	if err := dec.GetHeaders(payload); err != nil {
		t.Fatalf("GetHeaders: %v", err)
	}
	sink := &planeSink{}
	if err := dec.DecodeFrame(sink, vp8.DecodeFrameOptions{}); err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !sink.setup || !sink.teardown {
		t.Fatal("sink setup/teardown not called")
	}
	return sink
}

func TestParseFrameTagErrors(t *testing.T) {
	tests := []struct {
		name    string
		mangle  func([]byte) []byte
		wantErr vp8.Status
	}{
		{"bad magic", func(b []byte) []byte { b[3] = 0x00; return b }, vp8.StatusBitstreamError},
		{"profile too high", func(b []byte) []byte { b[0] |= 7 << 1; return b }, vp8.StatusBitstreamError},
		{"invisible frame", func(b []byte) []byte { b[0] &^= 1 << 4; return b }, vp8.StatusBitstreamError},
		{"interframe", func(b []byte) []byte { b[0] |= 1; return b }, vp8.StatusUnsupportedFeature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := synth.Frame{Width: 16, Height: 16, QIndex: 20}
			payload := tt.mangle(f.BuildVP8())
			var dec vp8.Decoder
			err := dec.GetHeaders(payload)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := vp8.StatusOf(err); got != tt.wantErr {
				t.Errorf("status = %v, want %v", got, tt.wantErr)
			}
		})
	}
}

func TestPartitionLengthOverrun(t *testing.T) {
	f := synth.Frame{Width: 16, Height: 16, QIndex: 20}
	payload := f.BuildVP8()
	// Declare a partition 0 far larger than the available data.
	huge := uint32(1 << 18)
	tag := uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16
	tag = tag&0x1f | huge<<5
	payload[0], payload[1], payload[2] = byte(tag), byte(tag>>8), byte(tag>>16)
	var dec vp8.Decoder
	if err := dec.GetHeaders(payload); vp8.StatusOf(err) != vp8.StatusNotEnoughData {
		t.Errorf("status = %v, want %v", vp8.StatusOf(err), vp8.StatusNotEnoughData)
	}
}

// TestDecodeUniform decodes an empty-residual frame: pure DC prediction,
// whose edge variants fill 128 where a neighbor is missing, must give a
// uniform mid-level picture.
func TestDecodeUniform(t *testing.T) {
	for _, size := range []int{4, 16, 48} {
		f := synth.Frame{Width: size, Height: size, QIndex: 20}
		sink := decodePayload(t, f.BuildVP8())
		for i, v := range sink.y {
			if v != 128 {
				t.Fatalf("size %d: y[%d] = %d, want 128", size, i, v)
			}
		}
		for i, v := range sink.u {
			if v != 128 {
				t.Fatalf("size %d: u[%d] = %d, want 128", size, i, v)
			}
		}
		for i, v := range sink.v {
			if v != 128 {
				t.Fatalf("size %d: v[%d] = %d, want 128", size, i, v)
			}
		}
	}
}

// TestSingleACCoefficient places one AC coefficient in the top-left
// luma block of a 16x16 picture; only that block's pixels may differ
// from the DC level.
func TestSingleACCoefficient(t *testing.T) {
	f := synth.Frame{
		Width: 16, Height: 16, QIndex: 20,
		LumaCoeffs: []synth.Coeff{{Block: 0, Pos: 1}},
	}
	sink := decodePayload(t, f.BuildVP8())

	changed := false
	for row := 0; row < 16; row++ {
		for col := 0; col < 16; col++ {
			v := sink.y[row*16+col]
			inside := row < 4 && col < 4
			if !inside && v != 128 {
				t.Fatalf("pixel (%d,%d) = %d outside the AC block", col, row, v)
			}
			if inside && v != 128 {
				changed = true
			}
		}
	}
	if !changed {
		t.Fatal("AC coefficient had no effect inside its block")
	}
}

// TestFilteredDecodeStaysUniform runs the complex in-loop filter over a
// uniform picture; filtering flat content must not change it.
func TestFilteredDecodeStaysUniform(t *testing.T) {
	f := synth.Frame{Width: 32, Height: 32, QIndex: 20, FilterLevel: 32}
	sink := decodePayload(t, f.BuildVP8())
	for i, v := range sink.y {
		if v != 128 {
			t.Fatalf("y[%d] = %d after filtering uniform content", i, v)
		}
	}
}

// TestIncrementalMatchesOneShot feeds the stream one byte at a time and
// requires byte-identical planes plus the documented state walk.
func TestIncrementalMatchesOneShot(t *testing.T) {
	f := synth.Frame{Width: 48, Height: 32, QIndex: 30,
		LumaCoeffs: []synth.Coeff{{Block: 5, Pos: 2}}}
	payload := f.BuildVP8()
	want := decodePayload(t, payload)

	stream := f.Build() // RIFF-wrapped
	sink := &planeSink{}
	drv := vp8.NewDriver(sink, vp8.DecodeFrameOptions{})

	sawStates := map[vp8.DriverState]bool{vp8.StateHeader: true}
	var status vp8.Status
	for i := 0; i < len(stream); i++ {
		status = drv.Append(stream[i : i+1])
		sawStates[drv.State()] = true
		if status != vp8.StatusSuspended && status != vp8.StatusOk {
			t.Fatalf("Append byte %d: %v", i, status)
		}
	}
	if status != vp8.StatusOk {
		t.Fatalf("final status %v, want ok", status)
	}
	for _, st := range []vp8.DriverState{vp8.StatePart0, vp8.StateData, vp8.StateDone} {
		if !sawStates[st] {
			t.Errorf("driver never reported state %d", st)
		}
	}

	if diff := cmp.Diff(want.y, sink.y); diff != "" {
		t.Errorf("luma differs (-oneshot +incremental):\n%s", diff)
	}
	if diff := cmp.Diff(want.u, sink.u); diff != "" {
		t.Errorf("chroma U differs:\n%s", diff)
	}
	if diff := cmp.Diff(want.v, sink.v); diff != "" {
		t.Errorf("chroma V differs:\n%s", diff)
	}
}

// TestIncrementalMapMode drives the Update entry point with a growing
// caller-owned buffer.
func TestIncrementalMapMode(t *testing.T) {
	f := synth.Frame{Width: 32, Height: 16, QIndex: 10}
	stream := f.Build()
	want := decodePayload(t, f.BuildVP8())

	sink := &planeSink{}
	drv := vp8.NewDriver(sink, vp8.DecodeFrameOptions{})
	buf := make([]byte, 0, len(stream))
	var status vp8.Status
	for i := 0; i < len(stream); i += 7 {
		end := i + 7
		if end > len(stream) {
			end = len(stream)
		}
		buf = append(buf, stream[i:end]...)
		status = drv.Update(buf)
		if status != vp8.StatusSuspended && status != vp8.StatusOk {
			t.Fatalf("Update at %d: %v", i, status)
		}
	}
	if status != vp8.StatusOk {
		t.Fatalf("final status %v", status)
	}
	if diff := cmp.Diff(want.y, sink.y); diff != "" {
		t.Errorf("map-mode luma differs:\n%s", diff)
	}
}

// TestMixedModesRejected checks the Append/Update latch.
func TestMixedModesRejected(t *testing.T) {
	f := synth.Frame{Width: 16, Height: 16}
	stream := f.Build()
	drv := vp8.NewDriver(&planeSink{}, vp8.DecodeFrameOptions{})
	if s := drv.Append(stream[:10]); s != vp8.StatusSuspended {
		t.Fatalf("Append: %v", s)
	}
	if s := drv.Update(stream); s != vp8.StatusInvalidParam {
		t.Fatalf("Update after Append = %v, want invalid param", s)
	}
}

// TestTruncatedStreamSuspends checks that byte starvation is the
// recoverable Suspended condition: completing the stream later still
// yields the full picture.
func TestTruncatedStreamSuspends(t *testing.T) {
	f := synth.Frame{Width: 48, Height: 48, QIndex: 20}
	stream := f.Build()
	want := decodePayload(t, f.BuildVP8())

	sink := &planeSink{}
	drv := vp8.NewDriver(sink, vp8.DecodeFrameOptions{})
	cut := len(stream) - 4
	if s := drv.Append(stream[:cut]); s != vp8.StatusSuspended {
		t.Fatalf("truncated append = %v, want suspended", s)
	}
	if s := drv.Append(stream[cut:]); s != vp8.StatusOk {
		t.Fatalf("completing append = %v, want ok", s)
	}
	if diff := cmp.Diff(want.y, sink.y); diff != "" {
		t.Errorf("resumed luma differs:\n%s", diff)
	}
}
