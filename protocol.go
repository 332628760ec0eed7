// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package relay

import (
	"context"
	"fmt"
)

const (
	// FrameSize is the length of every request and response frame.
	FrameSize = 8
	// RelayCount is the number of relays on the board.
	RelayCount = 4

	// RequestHeader marks frames sent to the board.
	RequestHeader byte = 0x55
	// ResponseHeader marks status frames pushed by the board (decimal 34).
	ResponseHeader byte = 0x22
	// DefaultSlaveId is the fixed sub-address of the board.
	DefaultSlaveId byte = 0x01

	FunctionQuery byte = 0x00
	FunctionSet   byte = 0x01
)

// RelayState is the operand byte requested for one relay in a set frame.
type RelayState byte

const (
	Closed RelayState = 0x01
	Open   RelayState = 0x02
)

func (s RelayState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	}
	return fmt.Sprintf("RelayState(%#02x)", byte(s))
}

// Frame is one 8-byte wire frame:
//
//	Header          : 1 byte
//	Slave Address   : 1 byte
//	Function        : 1 byte
//	Data            : 4 bytes, one per relay
//	Checksum        : 1 byte
type Frame [FrameSize]byte

// Bytes returns a copy of the frame as a slice, ready for writing.
func (f Frame) Bytes() []byte {
	b := make([]byte, FrameSize)
	copy(b, f[:])
	return b
}

// Checksum computes the checksum over bytes 0..6.
func (f Frame) Checksum() byte {
	return Sign(f[:])
}

// Valid reports whether byte 7 carries the checksum of bytes 0..6.
func (f Frame) Valid() bool {
	return f[7] == f.Checksum()
}

func (f Frame) String() string {
	return fmt.Sprintf("% x", f[:])
}

// ProtocolDataUnit (PDU) is independent of underlying communication layers.
type ProtocolDataUnit struct {
	Address      byte
	FunctionCode byte
	Data         [RelayCount]byte
}

// Packager specifies the communication layer.
type Packager interface {
	Encode(pdu *ProtocolDataUnit) (adu Frame, err error)
	Decode(adu []byte) (pdu *ProtocolDataUnit, err error)
	Verify(adu []byte) (err error)
}

// Transporter specifies the transport layer. Responses are not read back by
// Send; the board pushes status frames which Listen hands to onData.
type Transporter interface {
	Connect() error
	Send(aduRequest []byte) error
	Listen(ctx context.Context, onData func([]byte)) error
	Close() error
}

// Handler groups the Packager and Transporter a Client talks through.
type Handler interface {
	Packager
	Transporter
}
