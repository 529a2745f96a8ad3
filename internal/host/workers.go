package host

import (
	"errors"
	"time"

	"github.com/gscrib-go/gcodehost/internal/logging"
	"github.com/gscrib-go/gcodehost/internal/scheduler"
)

// runReceiver continuously reads lines from the connection and turns them
// into dispatched events until shutdown. It never blocks for longer than
// pollTimeout per iteration, so it notices shutdown promptly.
func (h *Host) runReceiver() {
	defer h.wg.Done()
	h.log.Info("starting receiver")

	pollTimeout := h.pollTimeout

	for {
		select {
		case <-h.shutdownCh:
			h.log.Info("receiver exiting")
			return
		default:
		}

		line, err := h.conn.ReadLine(pollTimeout)
		if err != nil {
			h.log.Error("receiver exception", logging.Field{Key: "error", Value: err})
			h.handleHostException(err)
			continue
		}
		if line != "" {
			if err := h.handleIncomingMessage(line); err != nil {
				h.log.Error("receiver exception", logging.Field{Key: "error", Value: err})
				h.handleHostException(err)
				continue
			}
		}
	}
}

// runSender performs the handshake sequence, then repeatedly dequeues and
// sends commands under flow control until shutdown. If the device becomes
// unresponsive this may block indefinitely; Stop is the forced way out.
func (h *Host) runSender() {
	defer h.wg.Done()
	h.log.Info("starting sender")

	writeTimeout := h.writeTimeout
	pollTimeout := h.pollTimeout

	h.waitOnline()
	h.enqueueHandshake()

	for {
		select {
		case <-h.shutdownCh:
			h.log.Info("sender exiting")
			return
		default:
		}

		h.sendOneTask(pollTimeout, writeTimeout)
	}
}

// waitOnline blocks until the device sends its initial handshake or
// onlineTimeout elapses, whichever comes first; either way the sender
// proceeds, trusting the protocol's resend/retry machinery to recover
// communication if the handshake was missed.
func (h *Host) waitOnline() {
	deadline := time.NewTimer(h.onlineTimeout)
	defer deadline.Stop()

	poll := time.NewTicker(h.pollTimeout)
	defer poll.Stop()

	for !h.IsOnline() {
		select {
		case <-h.shutdownCh:
			return
		case <-deadline.C:
			return
		case <-poll.C:
		}
	}
}

func (h *Host) sendOneTask(pollTimeout, writeTimeout time.Duration) {
	if err := h.waitForAcknowledgment(pollTimeout); err != nil {
		return
	}

	task, ok := h.sendQueue.Get(pollTimeout)
	if !ok {
		return
	}

	line := task.Command.FormatLine()
	size := 1 + len(line)

	if err := h.sendQuota.Consume(size, pollTimeout); err != nil {
		if errors.Is(err, scheduler.ErrConsumeTimeout) {
			h.sendQueue.Put(task)
			h.sendQueue.TaskDone()
			return
		}
		h.sendQueue.TaskDone()
		if h.isShuttingDown() {
			return
		}
		h.log.Error("sender exception", logging.Field{Key: "error", Value: err})
		h.handleHostException(err)
		return
	}

	h.prepareForAcknowledgment()

	if err := h.conn.WriteLine(line, writeTimeout); err != nil {
		h.sendQueue.TaskDone()
		if h.isShuttingDown() {
			return
		}
		h.log.Error("sender exception", logging.Field{Key: "error", Value: err})
		h.handleHostException(err)
		return
	}

	h.sendHistory.Record(task.Command)
	h.sendQueue.TaskDone()
}

// prepareForAcknowledgment forces the sender to wait for the device's
// acknowledgment of the command it is about to send, per the configured
// StreamingMode: ModeAsynchronous never waits, ModeSynchronous always
// waits, and ModeAutomatic waits only when the connection can't sustain
// multiple unacknowledged commands in flight.
func (h *Host) prepareForAcknowledgment() {
	if h.mustWaitForAcknowledgment() {
		h.resetClear()
	}
}

func (h *Host) mustWaitForAcknowledgment() bool {
	switch h.StreamingMode() {
	case ModeAsynchronous:
		return false
	case ModeSynchronous:
		return true
	default:
		return !h.conn.CanStreamCommands()
	}
}

func (h *Host) isShuttingDown() bool {
	select {
	case <-h.shutdownCh:
		return true
	default:
		return false
	}
}
