package layers

import (
	"github.com/pkg/errors"
)

var (
	// ErrTruncatedBuffer is returned when a buffer is shorter than the fixed
	// part of the layer being decoded.
	ErrTruncatedBuffer = errors.New("truncated buffer")
	// ErrChecksumMismatch is only returned by explicit verification, never by
	// a lenient decode.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

func errTruncated(layer string, need, got int) error {
	return errors.Wrapf(ErrTruncatedBuffer, "%s needs at least %d bytes, got %d", layer, need, got)
}

func errMismatch(layer string, got, want uint16) error {
	return errors.Wrapf(ErrChecksumMismatch, "%s checksum is 0x%04x, want 0x%04x", layer, got, want)
}
