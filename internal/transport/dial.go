package transport

import (
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Options configures how Open establishes a Connection and what
// capabilities it reports once open.
type Options struct {
	// BaudRate applies to serial connections. Defaults to 115200.
	BaudRate int
	// RTSCTS and DSRDTR request hardware flow control on backends that
	// support it (physical serial and RFC2217).
	RTSCTS bool
	DSRDTR bool
}

// Open parses rawURL and dials the matching backend: a bare device path
// (/dev/ttyUSB0, COM3) or an explicit serial:// URL dials physical serial,
// socket://host:port dials a raw TCP bridge, and rfc2217://host:port
// negotiates RFC2217 serial-over-network. It does not retry; callers that
// want reconnect-with-backoff semantics use DialWithBackoff.
func Open(rawURL string, opts Options) (*Connection, error) {
	baud := opts.BaudRate
	if baud <= 0 {
		baud = 115200
	}

	b, network, dialErr := dialBackend(rawURL, baud)
	if dialErr != nil {
		return nil, &ConnectError{URL: rawURL, Err: dialErr}
	}

	flowControl, fcErr := applyFlowControl(b, opts)
	if fcErr != nil {
		return nil, &ConnectError{URL: rawURL, Err: fcErr}
	}

	// A network transport is always framed, and a physical serial link can
	// only sustain multiple unacknowledged commands in flight once hardware
	// flow control is actually in effect.
	streamCommands := network || flowControl

	conn := newConnection(rawURL, b, network, flowControl, streamCommands)
	time.Sleep(openSettleDelay)
	conn.redial = func() (backend, bool, bool, error) {
		rb, rnetwork, rerr := dialBackend(rawURL, baud)
		if rerr != nil {
			return nil, false, false, rerr
		}
		rflow, rerr := applyFlowControl(rb, opts)
		if rerr != nil {
			rb.Close()
			return nil, false, false, rerr
		}
		return rb, rnetwork, rflow, nil
	}
	return conn, nil
}

// splitTransportURL recognizes the network schemes socket:// and
// rfc2217://, an explicit serial:// scheme, and bare device paths with no
// scheme at all (/dev/ttyUSB0, COM3, ...). It returns the scheme ("" for
// a bare serial path) and the remainder to dial.
func splitTransportURL(rawURL string) (scheme, rest string) {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		s := rawURL[:i]
		if s == "socket" || s == "rfc2217" || s == "serial" {
			return s, rawURL[i+len("://"):]
		}
	}
	return "", rawURL
}

// dialBackend opens the backend named by rawURL. network reports whether
// it is a framed network transport (socket/rfc2217) as opposed to a
// physical serial port.
func dialBackend(rawURL string, baud int) (b backend, network bool, err error) {
	scheme, rest := splitTransportURL(rawURL)
	switch scheme {
	case "", "serial":
		b, err = openSerial(rest, baud)
		return b, false, err
	case "socket":
		b, err = openSocket(rest)
		return b, true, err
	case "rfc2217":
		b, err = openRFC2217(rest)
		return b, true, err
	default:
		return nil, false, fmt.Errorf("unsupported transport scheme %q", scheme)
	}
}

// applyFlowControl pushes the requested flow-control flags down to b, if it
// supports them and the caller asked for at least one. It reports whether
// flow control is now in effect.
func applyFlowControl(b backend, opts Options) (bool, error) {
	fc, ok := b.(flowControlBackend)
	if !ok || (!opts.RTSCTS && !opts.DSRDTR) {
		return false, nil
	}
	if err := fc.setFlowControl(opts.RTSCTS, opts.DSRDTR); err != nil {
		return false, err
	}
	return true, nil
}

// DialWithBackoff retries Open with exponential backoff (capped at
// maxElapsed, or retried forever if maxElapsed <= 0) until it succeeds or
// maxElapsed has passed. notify, if non-nil, is called after
// every failed attempt with the error and the delay before the next one,
// so a host can log "retrying connection in Ns" without DialWithBackoff
// itself depending on a logger.
func DialWithBackoff(rawURL string, opts Options, maxElapsed time.Duration, notify func(err error, next time.Duration)) (*Connection, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	if maxElapsed <= 0 {
		bo.MaxElapsedTime = 0 // backoff treats 0 as "never stop"
	}

	var conn *Connection
	operation := func() error {
		c, err := Open(rawURL, opts)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	err := backoff.RetryNotify(operation, bo, func(err error, next time.Duration) {
		if notify != nil {
			notify(err, next)
		}
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
