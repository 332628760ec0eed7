package relay

import "fmt"

// CommandKind distinguishes the two request frames the board accepts.
type CommandKind int

const (
	KindQueryStatus CommandKind = iota
	KindSetRelay
)

// Command is a request to the board: either a status query or a set of one relay.
type Command struct {
	Kind    CommandKind
	Index   int
	Desired RelayState
}

// QueryStatus asks the board to push its current relay states.
func QueryStatus() Command {
	return Command{Kind: KindQueryStatus}
}

// SetRelay requests relay index to move to desired.
func SetRelay(index int, desired RelayState) Command {
	return Command{Kind: KindSetRelay, Index: index, Desired: desired}
}

func (c Command) String() string {
	if c.Kind == KindQueryStatus {
		return "query"
	}
	return fmt.Sprintf("set relay %d %s", c.Index, c.Desired)
}

// PDU builds the protocol data unit for the command.
// Operand bytes of a set request default to Closed; only the addressed relay differs.
func (c Command) PDU() (*ProtocolDataUnit, error) {
	switch c.Kind {
	case KindQueryStatus:
		return &ProtocolDataUnit{Address: DefaultSlaveId, FunctionCode: FunctionQuery}, nil
	case KindSetRelay:
		if err := checkIndex(c.Index); err != nil {
			return nil, err
		}
		if c.Desired != Open && c.Desired != Closed {
			return nil, fmt.Errorf("relay: unknown relay state %#02x", byte(c.Desired))
		}
		pdu := &ProtocolDataUnit{Address: DefaultSlaveId, FunctionCode: FunctionSet}
		for i := range pdu.Data {
			pdu.Data[i] = byte(Closed)
		}
		pdu.Data[c.Index] = byte(c.Desired)
		return pdu, nil
	}
	return nil, fmt.Errorf("relay: unknown command kind %d", c.Kind)
}

var queryFrame = Frame{RequestHeader, DefaultSlaveId, FunctionQuery, 0x00, 0x00, 0x00, 0x00, 0x56}

// EncodeQuery returns the constant status query frame.
func EncodeQuery() Frame {
	return queryFrame
}

// EncodeSet returns the frame that moves relay index to desired.
func EncodeSet(index int, desired RelayState) (Frame, error) {
	pdu, err := SetRelay(index, desired).PDU()
	if err != nil {
		return Frame{}, err
	}
	return encodeFrame(pdu), nil
}

// EncodePulse returns the open frame followed by the close frame for index.
// The frames are meant to be written back to back, with no delay.
func EncodePulse(index int) ([]Frame, error) {
	on, err := EncodeSet(index, Open)
	if err != nil {
		return nil, err
	}
	off, err := EncodeSet(index, Closed)
	if err != nil {
		return nil, err
	}
	return []Frame{on, off}, nil
}

func encodeFrame(pdu *ProtocolDataUnit) (f Frame) {
	f[0] = RequestHeader
	f[1] = pdu.Address
	f[2] = pdu.FunctionCode
	copy(f[3:7], pdu.Data[:])
	f[7] = f.Checksum()
	return
}

func checkIndex(i int) error {
	if i < 0 || i >= RelayCount {
		return fmt.Errorf("%w: %d not in 0..%d", ErrInvalidIndex, i, RelayCount-1)
	}
	return nil
}
