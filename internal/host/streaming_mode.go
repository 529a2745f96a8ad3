package host

import "fmt"

// StreamingMode selects whether the sender waits for a device
// acknowledgment between writes, independent of what the underlying
// connection can physically sustain.
type StreamingMode int32

const (
	// ModeAutomatic streams continuously when the connection reports it
	// can sustain multiple unacknowledged commands in flight
	// (Connection.CanStreamCommands), and otherwise waits for an
	// acknowledgment after every write. This is the default.
	ModeAutomatic StreamingMode = iota
	// ModeAsynchronous never waits for an acknowledgment, regardless of
	// what the connection supports. Useful for framed transports with
	// their own flow control (e.g. TCP) where waiting would only add
	// latency.
	ModeAsynchronous
	// ModeSynchronous always waits for an acknowledgment after every
	// write, even over a connection that could sustain streaming. Useful
	// for half-duplex serial links with an undersized or unknown input
	// buffer.
	ModeSynchronous
)

func (m StreamingMode) String() string {
	switch m {
	case ModeAutomatic:
		return "automatic"
	case ModeAsynchronous:
		return "asynchronous"
	case ModeSynchronous:
		return "synchronous"
	default:
		return fmt.Sprintf("StreamingMode(%d)", int32(m))
	}
}

func (m StreamingMode) valid() bool {
	switch m {
	case ModeAutomatic, ModeAsynchronous, ModeSynchronous:
		return true
	default:
		return false
	}
}
