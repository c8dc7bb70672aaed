package container

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
)

func buildFile(tag string, payload []byte) []byte {
	out := []byte("RIFF")
	out = binary.LittleEndian.AppendUint32(out, uint32(4+8+len(payload)))
	out = append(out, "WEBP"...)
	out = append(out, tag...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

func TestCheckHeader(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6}
	data := buildFile("VP8 ", payload)
	off, size, err := CheckHeader(data)
	if err != nil {
		t.Fatal(err)
	}
	if off != 20 || size != len(payload) {
		t.Fatalf("off=%d size=%d", off, size)
	}
	got, err := Payload(data)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Fatal("payload mismatch")
	}
}

func TestCheckHeaderErrors(t *testing.T) {
	if _, _, err := CheckHeader([]byte("RIFF")); errors.Cause(err) != ErrShortData {
		t.Errorf("short: %v", err)
	}

	bad := buildFile("VP8 ", []byte{1, 2, 3})
	copy(bad[8:], "JUNK")
	if _, _, err := CheckHeader(bad); errors.Cause(err) != ErrNotWebP {
		t.Errorf("bad form tag: %v", err)
	}

	if _, _, err := CheckHeader(buildFile("VP8L", []byte{1})); errors.Cause(err) != ErrUnsupported {
		t.Errorf("lossless: %v", err)
	}
	if _, _, err := CheckHeader(buildFile("VP8X", make([]byte, 10))); errors.Cause(err) != ErrUnsupported {
		t.Errorf("extended: %v", err)
	}

	// Chunk claims more than the RIFF payload holds.
	lie := buildFile("VP8 ", []byte{1, 2, 3, 4})
	binary.LittleEndian.PutUint32(lie[16:], 1<<20)
	if _, _, err := CheckHeader(lie); errors.Cause(err) != ErrNotWebP {
		t.Errorf("oversized chunk: %v", err)
	}
}

func TestRawVP8Accepted(t *testing.T) {
	raw := []byte{0x10, 0x00, 0x00, 0x9d, 0x01, 0x2a, 0, 0, 0, 0}
	off, _, err := CheckHeader(raw)
	if err != nil || off != 0 {
		t.Fatalf("raw stream: off=%d err=%v", off, err)
	}
}
