package transport

import (
	"net"
	"time"
)

// RFC2217 implements just enough of the Telnet COM-PORT-OPTION protocol
// (RFC 2217) to negotiate binary mode and push flow-control settings over
// an otherwise ordinary TCP stream, using the Telnet command-byte
// constants below.
const (
	telnetIAC  = 0xFF
	telnetDONT = 0xFE
	telnetDO   = 0xFD
	telnetWONT = 0xFC
	telnetWILL = 0xFB
	telnetSB   = 0xFA
	telnetSE   = 0xF0

	telnetOptBinary = 0x00
	telnetOptComPort = 0x2C

	comPortSetControl = 5
	comPortControlRTSCTSOn = 13
	comPortControlRTSCTSOff = 14
	comPortControlDSRDTROn = 9
	comPortControlDSRDTROff = 10
)

// rfc2217Backend is a TCP backend that negotiates Telnet binary mode and
// the COM-PORT-OPTION at connect time, then behaves like a plain stream:
// IAC bytes appearing in subsequent application data are rare in ASCII
// G-code and are passed through unescaped; a minimal subset beats a fully
// general Telnet state machine here.
type rfc2217Backend struct {
	conn net.Conn
}

func openRFC2217(addr string) (*rfc2217Backend, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	b := &rfc2217Backend{conn: conn}
	if err := b.negotiate(); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

func (b *rfc2217Backend) negotiate() error {
	// Request binary mode both directions; a controller that doesn't
	// understand COM-PORT-OPTION still works as a plain binary-clean pipe.
	_, err := b.conn.Write([]byte{
		telnetIAC, telnetWILL, telnetOptBinary,
		telnetIAC, telnetDO, telnetOptBinary,
		telnetIAC, telnetWILL, telnetOptComPort,
		telnetIAC, telnetDO, telnetOptComPort,
	})
	return err
}

func (b *rfc2217Backend) Read(p []byte) (int, error)  { return b.conn.Read(p) }
func (b *rfc2217Backend) Write(p []byte) (int, error) { return b.conn.Write(p) }
func (b *rfc2217Backend) Close() error                { return b.conn.Close() }

func (b *rfc2217Backend) SetWriteDeadline(t time.Time) error {
	return b.conn.SetWriteDeadline(t)
}

// setFlowControl sends a COM-PORT-OPTION SET-CONTROL subnegotiation for
// each requested flag. A controller that ignores COM-PORT-OPTION (most do,
// in practice) simply never applies it; that degrades to no flow control
// rather than failing the connection.
func (b *rfc2217Backend) setFlowControl(rtscts, dsrdtr bool) error {
	rtsctsValue := byte(comPortControlRTSCTSOff)
	if rtscts {
		rtsctsValue = comPortControlRTSCTSOn
	}
	dsrdtrValue := byte(comPortControlDSRDTROff)
	if dsrdtr {
		dsrdtrValue = comPortControlDSRDTROn
	}

	msg := []byte{
		telnetIAC, telnetSB, telnetOptComPort, comPortSetControl, rtsctsValue, telnetIAC, telnetSE,
		telnetIAC, telnetSB, telnetOptComPort, comPortSetControl, dsrdtrValue, telnetIAC, telnetSE,
	}
	_, err := b.conn.Write(msg)
	return err
}
