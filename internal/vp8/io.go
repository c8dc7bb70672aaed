package vp8

// Io carries the decoded rows from the decoder to the output stage.
//
// After each finished (and filtered) batch of rows the decoder fills in
// the Y/U/V views and calls Sink.Put. The sink owns colorspace
// conversion, cropping, scaling and the destination buffer.
type Io struct {
	// Picture dimensions, set before Setup is called.
	Width, Height int

	// Current row batch: MBY is the first luma row, MBH the number of
	// luma rows available in Y/U/V.
	MBY, MBH int

	Y, U, V  []byte
	YStride  int
	UVStride int

	// Set by the driver when the caller disabled in-loop filtering or
	// fancy chroma upsampling.
	BypassFiltering   bool
	NoFancyUpsampling bool

	// Opaque is free for the sink's own bookkeeping.
	Opaque interface{}
}

// Sink receives decoded rows. Setup is called once after the headers are
// parsed and frame memory exists. Teardown is called once at the end of
// a one-shot decode, error or not; the incremental driver calls it only
// after the last row has been emitted. Put consumes one row batch and
// returns false to abort decoding.
type Sink interface {
	Setup(io *Io) bool
	Put(io *Io) bool
	Teardown(io *Io)
}
