package transport

import (
	"net"
	"testing"
	"time"
)

// newTestConnection wraps one half of an in-memory net.Pipe as a
// Connection, avoiding any real serial/socket I/O. The other half is
// returned so the test can act as the "device" side.
func newTestConnection(t *testing.T, network bool) (*Connection, net.Conn) {
	t.Helper()
	device, host := net.Pipe()
	conn := newConnection("test://", host, network, false, network)
	t.Cleanup(func() { conn.Close() })
	return conn, device
}

func TestConnectionReadLineAssemblesBufferedLines(t *testing.T) {
	conn, device := newTestConnection(t, false)

	go device.Write([]byte("ok\n"))

	line, err := conn.ReadLine(time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "ok" {
		t.Fatalf("got %q, want %q", line, "ok")
	}
}

func TestConnectionReadLineTimesOutWithoutData(t *testing.T) {
	conn, _ := newTestConnection(t, false)

	line, err := conn.ReadLine(30 * time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "" {
		t.Fatalf("expected empty line on timeout, got %q", line)
	}
}

func TestConnectionReadLineStripsCR(t *testing.T) {
	conn, device := newTestConnection(t, false)

	go device.Write([]byte("ok\r\n"))

	line, err := conn.ReadLine(time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "ok" {
		t.Fatalf("got %q, want %q", line, "ok")
	}
}

func TestConnectionReadLineStripsSurroundingWhitespace(t *testing.T) {
	conn, device := newTestConnection(t, false)

	go device.Write([]byte("  ok  \n"))

	line, err := conn.ReadLine(time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "ok" {
		t.Fatalf("got %q, want %q", line, "ok")
	}
}

func TestConnectionOpenFailsWhenAlreadyOpen(t *testing.T) {
	conn, _ := newTestConnection(t, false)

	if err := conn.Open(); err != ErrAlreadyOpen {
		t.Fatalf("expected ErrAlreadyOpen, got %v", err)
	}
}

func TestConnectionReadLineSplitsAcrossChunks(t *testing.T) {
	conn, device := newTestConnection(t, false)

	go func() {
		device.Write([]byte("o"))
		device.Write([]byte("k\n"))
	}()

	line, err := conn.ReadLine(time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "ok" {
		t.Fatalf("got %q, want %q", line, "ok")
	}
}

func TestConnectionReadLineReplacesNonASCIIBytes(t *testing.T) {
	conn, device := newTestConnection(t, false)

	go device.Write([]byte{'o', 'k', ' ', 0xFF, '\n'})

	line, err := conn.ReadLine(time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "ok ?" {
		t.Fatalf("got %q, want %q", line, "ok ?")
	}
}

func TestConnectionWriteLineRejectsNonASCII(t *testing.T) {
	conn, _ := newTestConnection(t, false)

	err := conn.WriteLine("G0 Xé", time.Second)
	if err != ErrEncode {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
}

func TestConnectionWriteLineDeliversToPeer(t *testing.T) {
	conn, device := newTestConnection(t, true)

	go conn.WriteLine("G0 X1", time.Second)

	buf := make([]byte, 16)
	device.SetReadDeadline(time.Now().Add(time.Second))
	n, err := device.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf[:n]) != "G0 X1\n" {
		t.Fatalf("got %q, want %q", buf[:n], "G0 X1\n")
	}
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	conn, _ := newTestConnection(t, false)

	if err := conn.Close(); err != nil {
		t.Fatalf("unexpected error on first close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
	if conn.IsOpen() {
		t.Fatal("expected connection to report closed")
	}
}

func TestConnectionReadLineAfterCloseReturnsErrNotOpen(t *testing.T) {
	conn, _ := newTestConnection(t, false)
	conn.Close()

	_, err := conn.ReadLine(10 * time.Millisecond)
	if err != ErrNotOpen {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}

func TestConnectionCapabilityAccessors(t *testing.T) {
	conn, _ := newTestConnection(t, true)
	if !conn.IsNetworkTransport() {
		t.Fatal("expected network transport")
	}
	if !conn.CanStreamCommands() {
		t.Fatal("expected streaming support")
	}
}
