package relay

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// StateVector holds one entry per relay; true means the relay is closed.
type StateVector [RelayCount]bool

// Closed reports the state of relay i. Out of range indices report false.
func (v StateVector) Closed(i int) bool {
	if i < 0 || i >= RelayCount {
		return false
	}
	return v[i]
}

func (v StateVector) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, closed := range v {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if closed {
			sb.WriteString("closed")
		} else {
			sb.WriteString("open")
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// StatusHandler is called with every valid status frame.
type StatusHandler func(StateVector)

// maxIdleBuffer is the capacity kept between feeds.
const maxIdleBuffer = 4 * FrameSize

// stateClosed is the per-relay status byte of a closed relay.
const stateClosed byte = 0x02

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// DecoderLogger sets the logger used for dropped frames.
func DecoderLogger(logger *zap.Logger) DecoderOption {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// DecoderMetrics sets the metrics updated by the decoder.
func DecoderMetrics(m *Metrics) DecoderOption {
	return func(d *Decoder) {
		d.metrics = m
	}
}

// DecoderPackager replaces the packager used to validate frames.
func DecoderPackager(p Packager) DecoderOption {
	return func(d *Decoder) {
		if p != nil {
			d.packager = p
		}
	}
}

// Decoder turns a fragmented inbound byte stream into StateVector notifications.
//
// Bytes accumulate until a full frame is buffered. Every complete frame is
// validated; invalid frames are dropped without resynchronization, so the
// next frame is taken from the following 8 bytes as they come.
type Decoder struct {
	packager Packager
	logger   *zap.Logger
	metrics  *Metrics

	mu  sync.Mutex
	buf []byte

	hmu     sync.RWMutex
	handler StatusHandler
}

// NewDecoder creates a decoder delivering to handler, which may be nil.
func NewDecoder(handler StatusHandler, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		packager: &relayPackager{},
		logger:   zap.NewNop(),
		handler:  handler,
		buf:      make([]byte, 0, FrameSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetHandler replaces the status handler. Safe to call while bytes are being fed.
func (d *Decoder) SetHandler(handler StatusHandler) {
	d.hmu.Lock()
	d.handler = handler
	d.hmu.Unlock()
}

// Feed consumes p and returns the number of status vectors delivered.
// The handler runs on the calling goroutine, after the buffer lock is released.
func (d *Decoder) Feed(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	d.metrics.received(len(p))

	var vectors []StateVector
	d.mu.Lock()
	d.buf = append(d.buf, p...)
	off := 0
	for len(d.buf)-off >= FrameSize {
		var frame Frame
		copy(frame[:], d.buf[off:off+FrameSize])
		off += FrameSize
		if v, ok := d.decode(frame); ok {
			vectors = append(vectors, v)
		}
	}
	n := copy(d.buf, d.buf[off:])
	d.buf = d.buf[:n]
	if cap(d.buf) > maxIdleBuffer {
		// a large chunk grew the buffer; only a partial frame is left
		d.buf = append(make([]byte, 0, FrameSize), d.buf...)
	}
	d.mu.Unlock()

	if len(vectors) == 0 {
		return 0
	}
	d.hmu.RLock()
	handler := d.handler
	d.hmu.RUnlock()
	if handler == nil {
		return 0
	}
	for _, v := range vectors {
		handler(v)
	}
	return len(vectors)
}

// Write implements io.Writer so a decoder can sit at the end of an io.Copy.
func (d *Decoder) Write(p []byte) (int, error) {
	d.Feed(p)
	return len(p), nil
}

// Buffered returns the number of bytes waiting for the rest of their frame.
func (d *Decoder) Buffered() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buf)
}

// Reset discards any partial frame.
func (d *Decoder) Reset() {
	d.mu.Lock()
	d.buf = d.buf[:0]
	d.mu.Unlock()
}

func (d *Decoder) decode(frame Frame) (v StateVector, ok bool) {
	pdu, err := d.packager.Decode(frame[:])
	if err != nil {
		reason := "invalid"
		var fe *FrameError
		if errors.As(err, &fe) {
			reason = fe.Reason
		}
		d.metrics.dropped(reason)
		d.logger.Debug("relay: frame dropped", zap.String("reason", reason), zap.Stringer("frame", frame))
		return
	}
	d.metrics.decoded()
	return vectorOf(pdu), true
}

// DecodeStatus validates a single status frame and returns its state vector.
func DecodeStatus(adu []byte) (StateVector, error) {
	pdu, err := (&relayPackager{}).Decode(adu)
	if err != nil {
		return StateVector{}, err
	}
	return vectorOf(pdu), nil
}

func vectorOf(pdu *ProtocolDataUnit) (v StateVector) {
	for i, b := range pdu.Data {
		v[i] = b == stateClosed
	}
	return
}
