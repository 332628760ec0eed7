// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package relay

import (
	"io"
	"sync"

	"github.com/goburrow/serial"
	"go.uber.org/zap"
)

// openPort is replaced in tests.
var openPort = func(c *serial.Config) (io.ReadWriteCloser, error) {
	return serial.Open(c)
}

// serialPort has configuration and I/O controller.
// The port stays open for the whole session: status frames arrive unsolicited.
type serialPort struct {
	// Serial port configuration.
	serial.Config

	Logger *zap.Logger

	mu sync.Mutex
	// port is platform-dependent data structure for serial port.
	port io.ReadWriteCloser
}

func (mb *serialPort) Connect() (err error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	return mb.connect()
}

// connect connects to the serial port if it is not connected. Caller must hold the mutex.
func (mb *serialPort) connect() error {
	if mb.Logger == nil {
		mb.Logger = zap.NewNop()
	}
	if mb.port == nil {
		port, err := openPort(&mb.Config)
		if err != nil {
			return &TransportError{Op: "open " + mb.Address, Err: err}
		}
		mb.port = port
		mb.Logger.Info("serial: port opened",
			zap.String("address", mb.Address),
			zap.Int("baudRate", mb.BaudRate),
			zap.Int("dataBits", mb.DataBits),
			zap.Int("stopBits", mb.StopBits),
			zap.String("parity", mb.Parity))
	}
	return nil
}

func (mb *serialPort) Close() (err error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	return mb.close()
}

// close closes the serial port if it is connected. Caller must hold the mutex.
func (mb *serialPort) close() (err error) {
	if mb.port != nil {
		err = mb.port.Close()
		mb.port = nil
		mb.Logger.Info("serial: port closed", zap.String("address", mb.Address))
	}
	if err != nil {
		err = &TransportError{Op: "close", Err: err}
	}
	return
}
