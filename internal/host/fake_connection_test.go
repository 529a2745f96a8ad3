package host

import (
	"sync"
	"time"
)

// fakeConnection is an in-memory stand-in for *transport.Connection: lines
// pushed via push() are what ReadLine returns, and lines passed to
// WriteLine are recorded for assertions. It never touches real I/O.
type fakeConnection struct {
	mu       sync.Mutex
	inbox    []string
	sent     []string
	streamOK bool
	writeErr error
	// autoAck, when true, appends "ok" to inbox every time WriteLine is
	// called, simulating a device that immediately acknowledges everything.
	autoAck bool
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{}
}

func (f *fakeConnection) push(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = append(f.inbox, line)
}

func (f *fakeConnection) ReadLine(timeout time.Duration) (string, error) {
	f.mu.Lock()
	if len(f.inbox) > 0 {
		line := f.inbox[0]
		f.inbox = f.inbox[1:]
		f.mu.Unlock()
		return line, nil
	}
	f.mu.Unlock()
	time.Sleep(timeout)
	return "", nil
}

func (f *fakeConnection) WriteLine(line string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.sent = append(f.sent, line)
	if f.autoAck {
		f.inbox = append(f.inbox, "ok")
	}
	return nil
}

func (f *fakeConnection) CanStreamCommands() bool { return f.streamOK }

func (f *fakeConnection) sentLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}
