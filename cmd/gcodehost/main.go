// Command gcodehost connects to a G-code device over serial, socket, or
// RFC2217, streams G-code from stdin, and prints device events
// to stdout until the input is exhausted and the device has acknowledged
// everything.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gscrib-go/gcodehost/internal/discovery"
	"github.com/gscrib-go/gcodehost/internal/host"
	"github.com/gscrib-go/gcodehost/internal/logging"
	"github.com/gscrib-go/gcodehost/internal/protocol"
	"github.com/gscrib-go/gcodehost/internal/transport"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stdin, os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, in io.Reader, getenv func(string) string) error {
	fs := flag.NewFlagSet("gcodehost", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	defaultURL := strings.TrimSpace(getenv("GCODEHOST_URL"))

	url := fs.String("url", defaultURL, "device URL (/dev/ttyUSB0, COM3, socket://host:port, rfc2217://host:port)")
	baud := fs.Int("baud", 115200, "baud rate for serial connections")
	sign := fs.Bool("sign", false, "checksum and number outgoing commands")
	mode := fs.String("mode", "automatic", "streaming mode: automatic, asynchronous, synchronous")
	discover := fs.Bool("discover", false, "discover devices via mDNS and exit")
	logLevel := fs.String("log-level", strings.TrimSpace(getenv("GCODEHOST_LOG_LEVEL")), "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", strings.TrimSpace(getenv("GCODEHOST_LOG_FORMAT")), "log format: text, json")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := configureLogging(*logLevel, *logFormat); err != nil {
		return err
	}

	if *discover {
		return runDiscover(out)
	}

	if *url == "" {
		return fmt.Errorf("gcodehost: -url is required (or set GCODEHOST_URL)")
	}

	conn, err := transport.Open(*url, transport.Options{BaudRate: *baud})
	if err != nil {
		return err
	}
	defer conn.Close()

	streamingMode, err := parseStreamingMode(*mode)
	if err != nil {
		return err
	}

	h := host.New(conn)
	h.SetSignCommands(*sign)
	if err := h.SetStreamingMode(streamingMode); err != nil {
		return err
	}

	h.Subscribe(protocol.DeviceEvents(), func(e protocol.Event) {
		de := e.(protocol.DeviceEvent)
		fmt.Fprintf(out, "< %s\n", de.Message)
	})
	h.Subscribe(protocol.HostExceptions(), func(e protocol.Event) {
		he := e.(protocol.HostException)
		fmt.Fprintf(out, "! %v\n", he.Err)
	})

	if err := h.Start(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if _, err := h.Enqueue(scanner.Text()); err != nil {
			h.Stop()
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		h.Stop()
		return err
	}

	h.JoinQueue()
	return h.Stop()
}

func parseStreamingMode(s string) (host.StreamingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "automatic":
		return host.ModeAutomatic, nil
	case "asynchronous":
		return host.ModeAsynchronous, nil
	case "synchronous":
		return host.ModeSynchronous, nil
	default:
		return 0, fmt.Errorf("gcodehost: unrecognized -mode %q", s)
	}
}

func runDiscover(out io.Writer) error {
	devices, err := discovery.Discover(3*time.Second, nil)
	if err != nil {
		return err
	}
	for _, d := range devices {
		fmt.Fprintf(out, "%s\t%s\t%s\n", d.Instance, d.URL(), strconv.Itoa(d.Port))
	}
	return nil
}

func configureLogging(level, format string) error {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	logFormat, err := logging.ParseFormat(format)
	if err != nil {
		return err
	}
	logging.SetDefault(logging.New(lvl, logFormat, os.Stderr))
	return nil
}
