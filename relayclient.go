// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package relay

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/goburrow/serial"
	"go.uber.org/zap"
)

const (
	serialBaudRate = 9600
	serialTimeout  = 500 * time.Millisecond

	readBufferSize = 64
)

// ClientHandler implements Packager and Transporter interface.
type ClientHandler struct {
	relayPackager
	relaySerialTransporter
}

// NewClientHandler allocates a ClientHandler for the port at address,
// using the board's fixed 9600 8N1 settings.
func NewClientHandler(address string) *ClientHandler {
	handler := &ClientHandler{}
	handler.SlaveId = DefaultSlaveId
	handler.Address = address
	handler.BaudRate = serialBaudRate
	handler.DataBits = 8
	handler.StopBits = 1
	handler.Parity = "N"
	handler.Timeout = serialTimeout
	handler.Logger = zap.NewNop()
	return handler
}

// relayPackager implements Packager interface.
type relayPackager struct {
	SlaveId byte
}

// Encode encodes PDU in a request frame.
func (mb *relayPackager) Encode(pdu *ProtocolDataUnit) (adu Frame, err error) {
	p := *pdu
	if mb.SlaveId != 0 {
		p.Address = mb.SlaveId
	}
	return encodeFrame(&p), nil
}

// Verify checks length, header and checksum of a status frame.
// The address byte is informational and not part of the check.
func (mb *relayPackager) Verify(adu []byte) (err error) {
	if len(adu) != FrameSize {
		return &FrameError{Reason: "length", Frame: adu}
	}
	if adu[0] != ResponseHeader {
		return &FrameError{Reason: "marker", Frame: adu}
	}
	if adu[7] != Sign(adu) {
		return &FrameError{Reason: "checksum", Frame: adu}
	}
	return nil
}

// Decode verifies a status frame and extracts its PDU.
func (mb *relayPackager) Decode(adu []byte) (pdu *ProtocolDataUnit, err error) {
	if err = mb.Verify(adu); err != nil {
		return
	}
	pdu = &ProtocolDataUnit{
		Address:      adu[1],
		FunctionCode: adu[2],
	}
	copy(pdu.Data[:], adu[3:7])
	return
}

// relaySerialTransporter implements Transporter interface.
type relaySerialTransporter struct {
	serialPort
}

func (mb *relaySerialTransporter) Send(aduRequest []byte) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.port == nil {
		return ErrNotConnected
	}
	mb.serialPort.Logger.Debug("serial: sending", zap.Binary("frame", aduRequest))
	if _, err := mb.port.Write(aduRequest); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Listen reads from the port until ctx is done, the port is closed or a read
// fails, passing every chunk read to onData. Read timeouts only re-check ctx.
func (mb *relaySerialTransporter) Listen(ctx context.Context, onData func([]byte)) error {
	mb.mu.Lock()
	port := mb.port
	mb.mu.Unlock()
	if port == nil {
		return ErrNotConnected
	}
	return readLoop(ctx, port, onData, mb.serialPort.Logger)
}

func readLoop(ctx context.Context, r io.Reader, onData func([]byte), logger *zap.Logger) error {
	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		n, err := r.Read(buf)
		if n > 0 {
			logger.Debug("serial: received", zap.Binary("data", buf[:n]))
			onData(append([]byte(nil), buf[:n]...))
		}
		switch {
		case err == nil:
		case errors.Is(err, serial.ErrTimeout):
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe):
			return nil
		default:
			if ctx.Err() != nil {
				// Close unblocks a pending read with an error.
				return nil
			}
			return &TransportError{Op: "read", Err: err}
		}
	}
}

// Sign computes the checksum of a frame: the sum of bytes 0..6 modulo 256.
func Sign(data []byte) byte {
	sum := byte(0)
	for i := 0; i < FrameSize-1 && i < len(data); i++ {
		sum += data[i]
	}
	return sum
}
