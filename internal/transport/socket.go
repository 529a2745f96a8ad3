package transport

import (
	"net"
	"time"
)

// socketBackend is a plain TCP backend for socket://host:port URLs, used
// when the controller exposes a raw TCP bridge to its serial UART (common
// on network-attached CNC controllers and 3D-printer boards running
// network firmware) rather than a physical port on the host.
type socketBackend struct {
	conn net.Conn
}

func openSocket(addr string) (*socketBackend, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &socketBackend{conn: conn}, nil
}

func (b *socketBackend) Read(p []byte) (int, error)  { return b.conn.Read(p) }
func (b *socketBackend) Write(p []byte) (int, error) { return b.conn.Write(p) }
func (b *socketBackend) Close() error                { return b.conn.Close() }

func (b *socketBackend) SetWriteDeadline(t time.Time) error {
	return b.conn.SetWriteDeadline(t)
}
