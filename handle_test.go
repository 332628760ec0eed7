package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeTransporter records written frames and replays injected bytes to Listen.
type fakeTransporter struct {
	mu         sync.Mutex
	connected  bool
	closed     int
	sent       [][]byte
	sendErr    error
	connectErr error
	listenErr  error
	data       chan []byte
}

func newFakeTransporter() *fakeTransporter {
	return &fakeTransporter{data: make(chan []byte, 16)}
}

func (f *fakeTransporter) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransporter) Send(adu []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	if f.sendErr != nil {
		return &TransportError{Op: "write", Err: f.sendErr}
	}
	f.sent = append(f.sent, append([]byte(nil), adu...))
	return nil
}

func (f *fakeTransporter) Listen(ctx context.Context, onData func([]byte)) error {
	f.mu.Lock()
	err := f.listenErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-f.data:
			onData(p)
		}
	}
}

func (f *fakeTransporter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.closed++
	return nil
}

func (f *fakeTransporter) isConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransporter) push(p []byte) {
	f.data <- p
}

func (f *fakeTransporter) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

type fakeHandler struct {
	relayPackager
	*fakeTransporter
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeTransporter) {
	t.Helper()
	tr := newFakeTransporter()
	c := NewClient(&fakeHandler{relayPackager{SlaveId: DefaultSlaveId}, tr}, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, tr
}

// statusFrame builds a valid status frame carrying the given relay status bytes.
func statusFrame(address byte, states ...byte) []byte {
	f := Frame{ResponseHeader, address, FunctionQuery}
	copy(f[3:7], states)
	f[7] = f.Checksum()
	return f.Bytes()
}

func receive(t *testing.T, ch <-chan StateVector) StateVector {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		require.FailNow(t, "no status delivered")
	}
	return StateVector{}
}
