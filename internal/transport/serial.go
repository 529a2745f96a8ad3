package transport

import (
	"time"

	"github.com/tarm/serial"
)

// serialBackend wraps a physical serial port via github.com/tarm/serial.
//
// tarm/serial has no per-call read/write deadline API (the read timeout is
// fixed at OpenPort time). Reads go through Connection's background pump
// goroutine (see connection.go) as they do for every backend; unlike the
// socket and RFC2217 backends, writes are not bounded by a deadline.
type serialBackend struct {
	port *serial.Port
}

// pumpReadGranularity bounds how long a single underlying Read blocks, so
// the pump goroutine notices connection Close promptly. ReadLine's own
// timeout is enforced by its timer, independently of this value.
const pumpReadGranularity = 100 * time.Millisecond

func openSerial(path string, baud int) (*serialBackend, error) {
	cfg := &serial.Config{
		Name:        path,
		Baud:        baud,
		ReadTimeout: pumpReadGranularity,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		Size:        8,
	}

	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return &serialBackend{port: port}, nil
}

func (b *serialBackend) Read(p []byte) (int, error)  { return b.port.Read(p) }
func (b *serialBackend) Write(p []byte) (int, error) { return b.port.Write(p) }
func (b *serialBackend) Close() error                { return b.port.Close() }

// setFlowControl is a best-effort no-op: tarm/serial exposes no RTS/CTS or
// DSR/DTR configuration. Connection still tracks the requested flags for
// HasFlowControl()/CanStreamCommands() so callers can reason about them
// even though this backend cannot enforce them on the wire.
func (b *serialBackend) setFlowControl(rtscts, dsrdtr bool) error {
	return nil
}
