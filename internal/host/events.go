package host

import (
	"github.com/gscrib-go/gcodehost/internal/logging"
	"github.com/gscrib-go/gcodehost/internal/protocol"
)

// handleIncomingMessage classifies a raw device line and reacts to it
// before fanning it out to subscribers, so internal state (online flag,
// flow control, resend re-queueing) is always consistent before external
// handlers observe the event. A resend for a line the history no longer
// holds is a host-level failure, not a device condition: its error
// propagates to the caller instead of being dispatched as an event,
// matching the receiver's read-error handling.
func (h *Host) handleIncomingMessage(line string) error {
	event := h.parser.Parse(line)

	switch event.Kind {
	case protocol.KindOnline, protocol.KindReady:
		h.handleDeviceReady()
	case protocol.KindResend:
		if err := h.handleDeviceResend(event); err != nil {
			return err
		}
	case protocol.KindError:
		h.handleDeviceError()
	case protocol.KindFault:
		h.handleDeviceFault()
	}

	h.events.Dispatch(event)
	return nil
}

func (h *Host) handleDeviceReady() {
	h.sendQuota.Reclaim()
	h.onlineFlag.Store(true)
	h.signalClear()
}

func (h *Host) handleDeviceError() {
	h.sendQuota.Reclaim()
	h.signalClear()
}

// handleDeviceResend re-queues the requested line from history. If the
// line was never sent or has since been evicted, the lookup failure is
// returned rather than absorbed, so the caller forces a shutdown instead
// of quietly reclaiming quota and continuing as if nothing happened. A
// message with no parseable line number extracts as -1, which wraps to a
// line number the bounded history can never hold and lands on that same
// error path.
func (h *Host) handleDeviceResend(event protocol.DeviceEvent) error {
	line := event.LineNumber()
	if err := h.enqueueResend(uint32(line)); err != nil {
		return err
	}
	h.sendQuota.Reclaim()
	h.signalClear()
	return nil
}

func (h *Host) handleDeviceFault() {
	h.log.Error("device fault, shutting down")
	h.forceShutdown()
}

// handleHostException is invoked when a worker goroutine hits an
// unexpected error it cannot recover from: it forces a shutdown and
// surfaces the failure as an event so subscribers learn why the host
// stopped.
func (h *Host) handleHostException(err error) {
	h.forceShutdown()
	h.events.Dispatch(protocol.HostException{Err: err})
	h.log.Error("host exception", logging.Field{Key: "error", Value: err})
}
