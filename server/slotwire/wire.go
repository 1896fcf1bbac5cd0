// Package slotwire is the line protocol of the slotdb server: JSON frames
// prefixed by a 4-byte big-endian length, one request/response pair per
// statement.
package slotwire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tuanpm/slotdb/pkg/bx"
	"github.com/tuanpm/slotdb/server"
)

const (
	frameHeaderSize = 4

	// MaxFrameSize limits memory usage on malformed/hostile input. A whole
	// buffered result set rides in one frame, so the cap is generous.
	MaxFrameSize = 8 << 20 // 8 MiB
)

var (
	// ErrFrameTooLarge is returned when a header announces (or a payload
	// produces) a frame beyond MaxFrameSize.
	ErrFrameTooLarge = errors.New("slotwire: frame exceeds size cap")

	// ErrEmptyFrame is returned for a zero-length frame; every protocol
	// message is a non-empty JSON object.
	ErrEmptyFrame = errors.New("slotwire: empty frame")

	// ErrFrameCorrupt is returned when the payload is not valid JSON for
	// the expected message.
	ErrFrameCorrupt = errors.New("slotwire: corrupt frame payload")
)

// ExecuteRequest is a single SQL statement request.
type ExecuteRequest struct {
	ID  uint64 `json:"id"`
	SQL string `json:"sql"`
}

// ExecuteResponse is the response for a request ID.
type ExecuteResponse struct {
	ID     uint64         `json:"id"`
	Result *server.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// ReadFrame reads one frame and decodes it into v. The payload size is
// validated against MaxFrameSize before any payload allocation.
func ReadFrame(r io.Reader, v any) error {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}

	n := bx.U32BE(hdr[:])
	switch {
	case n == 0:
		return ErrEmptyFrame
	case n > MaxFrameSize:
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, MaxFrameSize)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrFrameCorrupt, err)
	}
	return nil
}

// WriteFrame encodes v and writes header plus payload as a single frame.
// The frame is assembled in one buffer so the transport sees one write.
func WriteFrame(w io.Writer, v any) error {
	frame, err := encodeFrame(v)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

func encodeFrame(v any) ([]byte, error) {
	frame := make([]byte, frameHeaderSize, frameHeaderSize+256)
	frame, err := appendJSON(frame, v)
	if err != nil {
		return nil, fmt.Errorf("slotwire: marshal: %w", err)
	}
	payloadLen := len(frame) - frameHeaderSize
	if payloadLen == 0 {
		return nil, ErrEmptyFrame
	}
	if payloadLen > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, payloadLen, MaxFrameSize)
	}
	bx.PutU32BE(frame, uint32(payloadLen))
	return frame, nil
}

func appendJSON(dst []byte, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}
