package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex is returned for a relay index outside 0..RelayCount-1.
	ErrInvalidIndex = errors.New("relay: invalid relay index")
	// ErrInvalidFrame is the parent of every frame validation failure.
	ErrInvalidFrame = errors.New("relay: invalid frame")
	// ErrNotConnected is returned when writing before Open or after Close.
	ErrNotConnected = errors.New("relay: not connected")
)

// FrameError describes why an inbound frame was rejected.
type FrameError struct {
	Reason string
	Frame  []byte
}

// Error implements error.
func (e *FrameError) Error() string {
	return fmt.Sprintf("relay: invalid frame (%s): % x", e.Reason, e.Frame)
}

// Is makes every FrameError match ErrInvalidFrame.
func (e *FrameError) Is(target error) bool {
	return target == ErrInvalidFrame
}

// TransportError wraps an I/O failure of the underlying port.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("relay: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying I/O error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
