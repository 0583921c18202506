package ec

import (
	"errors"
	"fmt"
	"time"
)

const (
	// StatusPort is the EC status/command port.
	StatusPort = 0x66
	// DataPort is the EC data port.
	DataPort = 0x62

	// flagOBF is the output-buffer-full bit of the status port,
	// expected 1 before a read of the data port.
	flagOBF = 0
	// flagIBF is the input-buffer-full bit of the status port,
	// expected 0 before a write to either port.
	flagIBF = 1

	// CmdRead initiates a register read.
	CmdRead = 0x80
	// CmdWriteFanDuty initiates a fan duty write (together with PortFanDuty).
	CmdWriteFanDuty = 0x99
	// PortFanDuty is the EC-internal port of the fan duty actuator.
	PortFanDuty = 0x01

	// handshake spin bound: at most maxPolls polls of pollInterval each
	maxPolls     = 100
	pollInterval = 1 * time.Millisecond
)

var (
	ErrTimeout   = errors.New("ec handshake timeout")
	ErrShortRead = errors.New("short read of ec register image")
)

// PortIO is byte-wide access to the legacy I/O port space.
type PortIO interface {
	InB(port uint16) (byte, error)
	OutB(port uint16, value byte) error
}

// Transport is the port-level EC protocol.
//
// All calls must come from a single thread of control, the EC ports
// cannot be shared.
type Transport interface {
	// ReadRegister reads a single byte from the given EC register.
	ReadRegister(addr byte) (byte, error)
	// WriteRegister performs a command transaction writing value to
	// the given EC-internal port.
	WriteRegister(cmd byte, port byte, value byte) error
}

type portTransport struct {
	io PortIO
}

func NewPortTransport(io PortIO) Transport {
	return &portTransport{
		io: io,
	}
}

// waitFlag polls the given bit of the status port until it reads want,
// for at most maxPolls polls of pollInterval each.
func (t *portTransport) waitFlag(flag uint, want byte) error {
	for i := 0; i < maxPolls; i++ {
		data, err := t.io.InB(StatusPort)
		if err != nil {
			return err
		}
		if (data>>flag)&0x1 == want {
			return nil
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("%w: flag=%d, want=%d", ErrTimeout, flag, want)
}

func (t *portTransport) ReadRegister(addr byte) (byte, error) {
	if err := t.waitFlag(flagIBF, 0); err != nil {
		return 0, err
	}
	if err := t.io.OutB(StatusPort, CmdRead); err != nil {
		return 0, err
	}

	if err := t.waitFlag(flagIBF, 0); err != nil {
		return 0, err
	}
	if err := t.io.OutB(DataPort, addr); err != nil {
		return 0, err
	}

	if err := t.waitFlag(flagOBF, 1); err != nil {
		return 0, err
	}
	return t.io.InB(DataPort)
}

func (t *portTransport) WriteRegister(cmd byte, port byte, value byte) error {
	if err := t.waitFlag(flagIBF, 0); err != nil {
		return err
	}
	if err := t.io.OutB(StatusPort, cmd); err != nil {
		return err
	}

	if err := t.waitFlag(flagIBF, 0); err != nil {
		return err
	}
	if err := t.io.OutB(DataPort, port); err != nil {
		return err
	}

	if err := t.waitFlag(flagIBF, 0); err != nil {
		return err
	}
	if err := t.io.OutB(DataPort, value); err != nil {
		return err
	}

	return t.waitFlag(flagIBF, 0)
}
