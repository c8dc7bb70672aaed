package webpcore

import (
	"github.com/pixelwerk/webpcore/internal/output"
	"github.com/pixelwerk/webpcore/internal/vp8"
	"github.com/pixelwerk/webpcore/internal/worker"
)

// Incremental decodes a WebP stream from partial byte deliveries.
//
// Feed bytes with either Append (the decoder keeps its own copy) or
// Update (the caller re-presents one growing buffer); the first call
// latches the mode and the two must not be mixed. Both return
// StatusSuspended while more bytes are needed, StatusOk once the
// picture is complete, and a hard status on error.
type Incremental struct {
	drv    *vp8.Driver
	params *output.Params
	wrk    *worker.Worker
}

// NewIncremental creates an incremental decoder emitting cs pixels.
func NewIncremental(cs ColorSpace, opts *DecoderOptions) *Incremental {
	p := &output.Params{Format: output.Format(cs)}
	opts.apply(p)
	sink := &allocSink{p: p, inner: output.NewSink(p)}
	var fopts vp8.DecodeFrameOptions
	if opts != nil {
		fopts.BypassFiltering = opts.BypassFiltering
		fopts.NoFancyUpsampling = opts.NoFancyUpsampling
	}
	inc := &Incremental{
		drv:    vp8.NewDriver(sink, fopts),
		params: p,
	}
	if opts != nil && opts.UseThreads {
		inc.wrk = worker.New()
		inc.wrk.Reset()
		inc.drv.SetWorker(inc.wrk)
	}
	return inc
}

// Append feeds a copy of data to the decoder and resumes it.
func (inc *Incremental) Append(data []byte) Status {
	return Status(inc.drv.Append(data))
}

// Update re-presents the caller's whole buffer (old bytes plus new
// tail) and resumes the decoder. The buffer may move between calls but
// must never shrink.
func (inc *Incremental) Update(data []byte) Status {
	return Status(inc.drv.Update(data))
}

// Dimensions returns the picture size, valid once the header cleared.
func (inc *Incremental) Dimensions() (width, height int) {
	return inc.drv.Width(), inc.drv.Height()
}

// GetRGB exposes the packed output decoded so far. lastRow is the
// number of fully finished output rows. Returns nil before the headers
// have been decoded or for planar colorspaces.
func (inc *Incremental) GetRGB() (pix []byte, lastRow, width, height, stride int) {
	if !inc.params.Format.IsRGB() || inc.params.Out == nil {
		return nil, 0, 0, 0, 0
	}
	return inc.params.Out, inc.params.LastRow,
		inc.params.OutputWidth(), inc.params.OutputHeight(), inc.params.OutStride
}

// GetYUV exposes the planar output decoded so far.
func (inc *Incremental) GetYUV() (y, u, v []byte, lastRow, width, height, yStride, uvStride int) {
	if inc.params.Format.IsRGB() || inc.params.OutY == nil {
		return nil, nil, nil, 0, 0, 0, 0, 0
	}
	return inc.params.OutY, inc.params.OutU, inc.params.OutV,
		inc.params.LastRow,
		inc.params.OutputWidth(), inc.params.OutputHeight(),
		inc.params.YStride, inc.params.UVStride
}

// DecodeState mirrors the incremental driver's progress.
type DecodeState int

const (
	StateHeader DecodeState = iota // waiting for container + frame headers
	StatePart0                     // waiting for all of partition #0
	StateData                      // decoding macroblock data
	StateDone
	StateError
)

// State reports the driver's progress (header / part0 / data / done).
func (inc *Incremental) State() DecodeState { return DecodeState(inc.drv.State()) }

// Err returns the terminal error with context, if any.
func (inc *Incremental) Err() error { return inc.drv.Err() }

// Close releases the decoder's worker, if any. Buffers are
// garbage-collected.
func (inc *Incremental) Close() {
	if inc.wrk != nil {
		inc.wrk.End()
		inc.wrk = nil
	}
}
