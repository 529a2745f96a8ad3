package transport

import (
	"errors"
	"io"
	"net"
	"testing"
)

// newLoopbackListener accepts and immediately discards every connection
// made to it, standing in for a device-side TCP bridge so Open("socket://...")
// has something to dial successfully.
func newLoopbackListener(t *testing.T) (net.Listener, error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go io.Copy(io.Discard, c)
		}
	}()
	return ln, nil
}

func TestOpenRejectsUnsupportedScheme(t *testing.T) {
	_, err := Open("ftp://example.com", Options{})
	if err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestOpenSocketCanStreamCommands(t *testing.T) {
	ln, err := newLoopbackListener(t)
	if err != nil {
		t.Fatalf("listener: %v", err)
	}
	defer ln.Close()

	conn, err := Open("socket://"+ln.Addr().String(), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	if !conn.CanStreamCommands() {
		t.Fatal("expected a network transport to report CanStreamCommands=true")
	}
	if conn.HasFlowControl() {
		t.Fatal("socket transport without RTSCTS/DSRDTR requested should not report flow control")
	}
}

func TestOpenBareSerialPathDialsSerialBackend(t *testing.T) {
	// No real /dev/ttyUSB0 exists in this environment; the point is that a
	// bare path is routed to the serial backend (and fails there) instead
	// of being rejected as an "unsupported transport scheme".
	_, err := Open("/dev/ttyUSB0-does-not-exist", Options{})
	if err == nil {
		t.Fatal("expected error opening a nonexistent serial device")
	}
	var connectErr *ConnectError
	if errors.As(err, &connectErr) && connectErr.Err.Error() == `unsupported transport scheme ""` {
		t.Fatalf("bare device path was rejected as an unsupported scheme: %v", err)
	}
}

func TestConnectionReopenAfterClose(t *testing.T) {
	ln, err := newLoopbackListener(t)
	if err != nil {
		t.Fatalf("listener: %v", err)
	}
	defer ln.Close()

	conn, err := Open("socket://"+ln.Addr().String(), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if conn.IsOpen() {
		t.Fatal("expected connection to report closed")
	}

	if err := conn.Open(); err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	defer conn.Close()

	if !conn.IsOpen() {
		t.Fatal("expected connection to report open after reopen")
	}
}

func TestOpenRejectsUnreachableSocket(t *testing.T) {
	// Port 0 on localhost never accepts; Dial should fail promptly.
	_, err := Open("socket://127.0.0.1:0", Options{})
	if err == nil {
		t.Fatal("expected error dialing an unreachable socket")
	}
	var connectErr *ConnectError
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected *ConnectError, got %T: %v", err, err)
	}
}
