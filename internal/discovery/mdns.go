// Package discovery finds G-code controllers advertising themselves on the
// local network so callers can build a "socket://host:port" URL for
// transport.Connection without the user typing an address in by hand.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/gscrib-go/gcodehost/internal/logging"
)

// serviceName is the mDNS service type G-code hosts (OctoPrint/Klipper-style
// network bridges) are expected to advertise themselves under.
const serviceName = "_gcode._tcp"

// Device describes a G-code controller discovered over mDNS.
type Device struct {
	Instance  string // Advertised name, e.g. "ender3 on octoprint"
	Hostname  string // DNS hostname, e.g. "octoprint.local."
	Addresses []net.IP
	Port      int
	TXT       []string
}

// URL returns a "socket://host:port" connection string for the device,
// preferring the first IPv4 address if one was advertised.
func (d Device) URL() string {
	host := d.Hostname
	for _, addr := range d.Addresses {
		if v4 := addr.To4(); v4 != nil {
			host = v4.String()
			break
		}
	}
	host = strings.TrimSuffix(host, ".")
	return fmt.Sprintf("socket://%s:%d", host, d.Port)
}

// Discover performs a blocking mDNS browse for devices advertising
// serviceName, for up to the given timeout. Results are de-duplicated by
// hostname and port. A nil log falls back to the process-wide default
// logger.
func Discover(timeout time.Duration, log logging.Logger) ([]Device, error) {
	if log == nil {
		log = logging.Default()
	}
	log = log.With(logging.Field{Key: "component", Value: "discovery"})

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	results := make(map[string]Device)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				if e == nil {
					continue
				}
				addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
				addrs = append(addrs, e.AddrIPv4...)
				addrs = append(addrs, e.AddrIPv6...)
				key := fmt.Sprintf("%s|%d", e.HostName, e.Port)
				d := Device{
					Instance:  cleanInstance(e.Instance),
					Hostname:  e.HostName,
					Addresses: addrs,
					Port:      e.Port,
					TXT:       append([]string{}, e.Text...),
				}
				results[key] = d
				log.Debug("discovered device",
					logging.Field{Key: "instance", Value: d.Instance},
					logging.Field{Key: "url", Value: d.URL()})
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Debug("browsing", logging.Field{Key: "service", Value: serviceName})
	if err := resolver.Browse(ctx, serviceName, "local.", entries); err != nil {
		return nil, fmt.Errorf("discovery: browse: %w", err)
	}

	<-done

	out := make([]Device, 0, len(results))
	for _, d := range results {
		out = append(out, d)
	}
	return out, nil
}

// cleanInstance removes Zeroconf escape sequences: "\ " => " ".
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}
