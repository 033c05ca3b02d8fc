// Package framing implements the length-prefixed frame codec over the
// transport's byte stream: a 4-byte big-endian length followed by that
// many payload bytes, with a 16 MiB ceiling on a single frame.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the configured constant ceiling on a single frame's
// payload: 16 MiB.
const MaxFrameSize = 16 * 1024 * 1024

const lengthPrefixSize = 4

// ErrProtocolOverflow is returned when a frame's declared length exceeds
// MaxFrameSize.
var ErrProtocolOverflow = errors.New("framing: frame length exceeds protocol maximum")

// ErrStreamClosed is returned by ReadFrame when the stream closes cleanly
// before any bytes of a new frame arrive.
var ErrStreamClosed = errors.New("framing: stream closed")

// ReadFrame reads exactly one length-prefixed frame from r. It returns
// ErrStreamClosed for a clean EOF at a frame boundary, ErrProtocolOverflow
// for an oversized declared length, and a wrapped error for any other I/O
// failure (including EOF mid-frame).
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrStreamClosed
		}
		return nil, fmt.Errorf("framing: read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxFrameSize {
		return nil, ErrProtocolOverflow
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		// EOF or ErrUnexpectedEOF here both land mid-frame: always an error.
		return nil, fmt.Errorf("framing: read payload: %w", err)
	}

	return payload, nil
}

// WriteFrame writes one length-prefixed frame to w: verifies len(payload)
// is within MaxFrameSize, then the 4-byte big-endian length, then the
// payload, then flushes w if it has a Flush() error method (e.g. a
// buffered writer). WriteFrame performs a single Write call per section
// so a partial write is visible to the caller.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrProtocolOverflow
	}

	var buf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(buf[:], uint32(len(payload)))

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("framing: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("framing: write payload: %w", err)
	}

	if f, ok := w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("framing: flush: %w", err)
		}
	}

	return nil
}
