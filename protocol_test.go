package relay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeQuery(t *testing.T) {
	f := EncodeQuery()
	assert.Equal(t, []byte{0x55, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x56}, f.Bytes())
	assert.True(t, f.Valid())
}

func TestEncodeSet(t *testing.T) {
	f, err := EncodeSet(1, Open)
	require.NoError(t, err)
	// 0x55+0x01+0x01+0x01+0x02+0x01+0x01 = 0x5c
	assert.Equal(t, []byte{0x55, 0x01, 0x01, 0x01, 0x02, 0x01, 0x01, 0x5c}, f.Bytes())
}

func TestEncodeSet_AllRelays(t *testing.T) {
	for i := 0; i < RelayCount; i++ {
		for _, desired := range []RelayState{Open, Closed} {
			t.Run(fmt.Sprintf("%d/%s", i, desired), func(t *testing.T) {
				f, err := EncodeSet(i, desired)
				require.NoError(t, err)
				assert.Equal(t, RequestHeader, f[0])
				assert.Equal(t, DefaultSlaveId, f[1])
				assert.Equal(t, FunctionSet, f[2])
				for j := 0; j < RelayCount; j++ {
					want := byte(Closed)
					if j == i {
						want = byte(desired)
					}
					assert.Equal(t, want, f[3+j], "operand %d", j)
				}
				var sum byte
				for _, b := range f[:7] {
					sum += b
				}
				assert.Equal(t, sum, f[7])
				assert.True(t, f.Valid())
			})
		}
	}
}

func TestEncodeSet_InvalidIndex(t *testing.T) {
	for _, i := range []int{-1, RelayCount, 100} {
		_, err := EncodeSet(i, Open)
		assert.ErrorIs(t, err, ErrInvalidIndex, "index %d", i)
	}
}

func TestEncodeSet_UnknownState(t *testing.T) {
	_, err := EncodeSet(0, RelayState(0x07))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidIndex)
}

func TestEncodePulse(t *testing.T) {
	frames, err := EncodePulse(2)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	on, _ := EncodeSet(2, Open)
	off, _ := EncodeSet(2, Closed)
	assert.Equal(t, on, frames[0])
	assert.Equal(t, off, frames[1])

	_, err = EncodePulse(4)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestSign(t *testing.T) {
	assert.Equal(t, byte(0x56), Sign([]byte{0x55, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff}))
	// wraps modulo 256
	assert.Equal(t, byte(0x01), Sign([]byte{0xff, 0x02, 0, 0, 0, 0, 0, 0}))
	// byte 7 is never part of the sum
	assert.Equal(t, Sign([]byte{1, 2, 3, 4, 5, 6, 7, 0}), Sign([]byte{1, 2, 3, 4, 5, 6, 7, 99}))
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "query", QueryStatus().String())
	assert.Equal(t, "set relay 3 open", SetRelay(3, Open).String())
	assert.Equal(t, "set relay 0 closed", SetRelay(0, Closed).String())
}

func TestPackager_EncodeSlaveId(t *testing.T) {
	p := &relayPackager{SlaveId: 0x02}
	pdu, err := QueryStatus().PDU()
	require.NoError(t, err)
	f, err := p.Encode(pdu)
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), f[1])
	assert.Equal(t, byte(0x57), f[7])
}

func TestPackager_Decode(t *testing.T) {
	p := &relayPackager{}

	pdu, err := p.Decode(statusFrame(0x09, 0x02, 0x01, 0x02, 0x01))
	require.NoError(t, err)
	assert.Equal(t, byte(0x09), pdu.Address, "address byte is informational")
	assert.Equal(t, [RelayCount]byte{0x02, 0x01, 0x02, 0x01}, pdu.Data)

	tests := []struct {
		name   string
		adu    []byte
		reason string
	}{
		{"short", []byte{0x22, 0x01, 0x01}, "length"},
		{"long", append(statusFrame(1, 1, 1, 1, 1), 0x00), "length"},
		{"request header", EncodeQuery().Bytes(), "marker"},
		{"checksum", []byte{0x22, 0x01, 0x01, 0x02, 0x01, 0x01, 0x01, 0x2a}, "checksum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Decode(tt.adu)
			require.ErrorIs(t, err, ErrInvalidFrame)
			var fe *FrameError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.reason, fe.Reason)
		})
	}
}
