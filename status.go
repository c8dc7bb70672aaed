package webpcore

import (
	"github.com/pixelwerk/webpcore/internal/vp8"
)

// Status is the decoder outcome code shared by every entry point.
type Status int

const (
	StatusOk Status = iota
	StatusOutOfMemory
	StatusInvalidParam
	StatusBitstreamError
	StatusUnsupportedFeature
	StatusSuspended
	StatusUserAbort
	StatusNotEnoughData
)

var statusNames = [...]string{
	"ok", "out of memory", "invalid parameter", "bitstream error",
	"unsupported feature", "suspended", "user abort", "not enough data",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown status"
	}
	return statusNames[s]
}

// Error makes a failing Status usable as an error value.
func (s Status) Error() string { return "webpcore: " + s.String() }

// statusOf converts an internal error chain to the public Status.
func statusOf(err error) Status {
	return Status(vp8.StatusOf(err))
}

// errOrNil turns a non-ok status into an error (nil for StatusOk).
func (s Status) errOrNil() error {
	if s == StatusOk {
		return nil
	}
	return s
}
