package relay

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches traffic counters.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithStatusHandler registers the observer for status frames. It runs on the
// listen goroutine and must not call Close.
func WithStatusHandler(h StatusHandler) Option {
	return func(c *Client) {
		c.handler = h
	}
}

// Client drives one relay board: it writes request frames and decodes the
// status frames the board pushes back.
type Client struct {
	packager    Packager
	transporter Transporter
	decoder     *Decoder
	handler     StatusHandler
	logger      *zap.Logger
	metrics     *Metrics

	// mu covers building and writing a command, so frames of two commands never interleave.
	mu sync.Mutex

	lmu    sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

// NewClient creates a client talking through handler.
func NewClient(handler Handler, opts ...Option) *Client {
	c := &Client{
		packager:    handler,
		transporter: handler,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.decoder = NewDecoder(c.handler,
		DecoderLogger(c.logger),
		DecoderMetrics(c.metrics),
		DecoderPackager(handler))
	return c
}

// Open connects the port, starts decoding status frames in the background
// and asks the board for its current state.
func (c *Client) Open(ctx context.Context) error {
	c.lmu.Lock()
	defer c.lmu.Unlock()

	if c.cancel != nil {
		return nil
	}
	if err := c.transporter.Connect(); err != nil {
		return err
	}
	c.decoder.Reset()
	listenCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		err := c.transporter.Listen(listenCtx, func(p []byte) {
			c.decoder.Feed(p)
		})
		if err != nil {
			c.logger.Warn("relay: listen stopped, no more status frames", zap.Error(err))
		}
		done <- err
	}()

	if err := c.Query(); err != nil {
		c.logger.Warn("relay: initial status query failed", zap.Error(err))
		cancel()
		_ = c.transporter.Close()
		<-done
		return err
	}
	c.cancel, c.done = cancel, done
	return nil
}

// Close stops the background decoding and closes the port.
// It returns the error that ended the listen loop, if any.
func (c *Client) Close() error {
	c.lmu.Lock()
	defer c.lmu.Unlock()

	if c.cancel == nil {
		return c.transporter.Close()
	}
	c.cancel()
	closeErr := c.transporter.Close()
	listenErr := <-c.done
	c.cancel, c.done = nil, nil
	return errors.Join(closeErr, listenErr)
}

// OnStatus replaces the status observer.
func (c *Client) OnStatus(h StatusHandler) {
	c.decoder.SetHandler(h)
}

// Query asks the board to push its relay states.
func (c *Client) Query() error {
	return c.Send(QueryStatus())
}

// Set moves relay i to desired.
func (c *Client) Set(i int, desired RelayState) error {
	return c.Send(SetRelay(i, desired))
}

// OpenRelay opens relay i.
func (c *Client) OpenRelay(i int) error {
	return c.Set(i, Open)
}

// CloseRelay closes relay i.
func (c *Client) CloseRelay(i int) error {
	return c.Set(i, Closed)
}

// Pulse opens relay i and closes it again right away. Both frames are
// written back to back; no other command can slip between them.
func (c *Client) Pulse(i int) error {
	return c.Send(SetRelay(i, Open), SetRelay(i, Closed))
}

// Send encodes cmds and writes them in order as one exclusive unit.
// Nothing is written if any command fails to encode. A write failure stops
// the sequence and is returned as is; it is not retried.
func (c *Client) Send(cmds ...Command) error {
	frames := make([]Frame, 0, len(cmds))
	for _, cmd := range cmds {
		pdu, err := cmd.PDU()
		if err != nil {
			return err
		}
		frame, err := c.packager.Encode(pdu)
		if err != nil {
			return err
		}
		frames = append(frames, frame)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, frame := range frames {
		if err := c.transporter.Send(frame.Bytes()); err != nil {
			c.metrics.writeFailed()
			c.logger.Warn("relay: write failed",
				zap.Stringer("command", cmds[i]),
				zap.Stringer("frame", frame),
				zap.Error(err))
			return err
		}
		c.metrics.sent(frame[2])
		c.logger.Debug("relay: sent", zap.Stringer("command", cmds[i]), zap.Stringer("frame", frame))
	}
	return nil
}
