// Package host runs the background sender/receiver pipeline that talks
// G-code to a connected device: a sender goroutine that drains a priority
// send queue under flow control, and a receiver goroutine that parses
// device responses into events and reacts to them.
package host

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gscrib-go/gcodehost/internal/logging"
	"github.com/gscrib-go/gcodehost/internal/protocol"
	"github.com/gscrib-go/gcodehost/internal/scheduler"
)

const (
	defaultWriteTimeout  = 10 * time.Second
	defaultOnlineTimeout = 10 * time.Second
	defaultPollTimeout   = 200 * time.Millisecond
)

// connection is the subset of *transport.Connection that Host depends on.
// Depending on this interface rather than the concrete type lets tests
// exercise Host against a lightweight fake instead of a real transport.
type connection interface {
	ReadLine(timeout time.Duration) (string, error)
	WriteLine(line string, timeout time.Duration) error
	CanStreamCommands() bool
}

// Host manages asynchronous communication with a single G-code device over
// an already-open Connection: sending queued commands in a background
// goroutine, receiving and parsing responses in another, applying flow
// control (waiting for "ok", line numbering, checksums), and dispatching
// events for device status changes.
type Host struct {
	conn   connection
	parser *protocol.Parser
	events *protocol.Dispatcher
	log    logging.Logger

	sendQueue   *scheduler.SendQueue
	sendHistory *scheduler.CommandTracker
	sendQuota   *scheduler.QuotaTracker

	lineCounter uint32
	taskCounter uint64

	clearCh    chan struct{} // closed+replaced to broadcast "clear to send"
	clearMu    sync.Mutex
	onlineFlag atomic.Bool
	shutdownCh chan struct{}

	writeTimeout  time.Duration
	onlineTimeout time.Duration
	pollTimeout   time.Duration
	signCommands  atomic.Bool
	streamingMode atomic.Int32

	wg         sync.WaitGroup
	startOnce  sync.Once
	wasStarted atomic.Bool
}

// New constructs a Host around an already-open connection. It does not
// start the background goroutines; call Start for that.
func New(conn connection) *Host {
	h := &Host{
		conn:          conn,
		parser:        protocol.NewParser(),
		events:        protocol.NewDispatcher(),
		log:           logging.Default().With(logging.Field{Key: "component", Value: "host"}),
		sendQueue:     scheduler.NewSendQueue(),
		sendHistory:   scheduler.NewCommandTracker(scheduler.DefaultTrackerLimit),
		sendQuota:     scheduler.NewQuotaTracker(defaultQuotaBytes),
		shutdownCh:    make(chan struct{}),
		writeTimeout:  defaultWriteTimeout,
		onlineTimeout: defaultOnlineTimeout,
		pollTimeout:   defaultPollTimeout,
	}
	h.clearCh = make(chan struct{})
	close(h.clearCh) // clear to send until the first command goes out
	return h
}

// defaultQuotaBytes matches DefaultTrackerLimit: one tracked command per
// byte of assumed device buffer.
const defaultQuotaBytes = 127

// SetLogger replaces the host's logger.
func (h *Host) SetLogger(l logging.Logger) {
	if l != nil {
		h.log = l
	}
}

// IsBusy reports whether there are pending commands to send or
// acknowledge.
func (h *Host) IsBusy() bool {
	select {
	case <-h.shutdownCh:
		return false
	default:
	}
	return !h.sendQueue.Empty() || h.sendQuota.Pending()
}

// IsOnline reports whether the device has responded to the initial
// handshake.
func (h *Host) IsOnline() bool { return h.onlineFlag.Load() }

// SignCommands reports whether outgoing commands are checksummed and
// numbered.
func (h *Host) SignCommands() bool { return h.signCommands.Load() }

// SetSignCommands enables or disables command signing.
func (h *Host) SetSignCommands(enabled bool) { h.signCommands.Store(enabled) }

// StreamingMode reports the current acknowledgment-waiting policy.
func (h *Host) StreamingMode() StreamingMode {
	return StreamingMode(h.streamingMode.Load())
}

// SetStreamingMode sets the acknowledgment-waiting policy. It rejects
// unrecognized values.
func (h *Host) SetStreamingMode(mode StreamingMode) error {
	if !mode.valid() {
		return fmt.Errorf("host: unrecognized streaming mode %d", mode)
	}
	h.streamingMode.Store(int32(mode))
	return nil
}

// WriteTimeout returns the current write timeout.
func (h *Host) WriteTimeout() time.Duration { return h.writeTimeout }

// SetWriteTimeout sets the maximum time to wait when writing a command to
// the device.
func (h *Host) SetWriteTimeout(d time.Duration) error {
	if err := validatePositive(d, "write timeout"); err != nil {
		return err
	}
	h.writeTimeout = d
	return nil
}

// OnlineTimeout returns the current online-handshake timeout.
func (h *Host) OnlineTimeout() time.Duration { return h.onlineTimeout }

// SetOnlineTimeout sets the maximum time to wait for the device's initial
// handshake before proceeding anyway.
func (h *Host) SetOnlineTimeout(d time.Duration) error {
	if err := validatePositive(d, "online timeout"); err != nil {
		return err
	}
	h.onlineTimeout = d
	return nil
}

// PollTimeout returns the current polling interval.
func (h *Host) PollTimeout() time.Duration { return h.pollTimeout }

// SetPollTimeout sets the polling interval used for queue and connection
// reads.
func (h *Host) SetPollTimeout(d time.Duration) error {
	if err := validatePositive(d, "poll timeout"); err != nil {
		return err
	}
	h.pollTimeout = d
	return nil
}

// SetTrackerLimit sets the capacity of the send-history FIFO used to
// satisfy firmware resend requests. It must be called before Start: the
// history is read by the receiver and written by the sender, and swapping
// it out from under a running goroutine is not safe.
func (h *Host) SetTrackerLimit(limit int) error {
	if h.wasStarted.Load() {
		return ErrAlreadyStarted
	}
	if limit <= 0 {
		return fmt.Errorf("host: tracker limit must be positive")
	}
	h.sendHistory = scheduler.NewCommandTracker(limit)
	return nil
}

// SetQuotaBytes sets the assumed device input-buffer capacity the quota
// tracker reserves against. It must be called before Start, for the same
// reason as SetTrackerLimit.
func (h *Host) SetQuotaBytes(maxBytes int) error {
	if h.wasStarted.Load() {
		return ErrAlreadyStarted
	}
	if maxBytes <= 0 {
		return fmt.Errorf("host: quota bytes must be positive")
	}
	h.sendQuota = scheduler.NewQuotaTracker(maxBytes)
	return nil
}

func validatePositive(d time.Duration, name string) error {
	if d <= 0 {
		return fmt.Errorf("host: %s must be positive", name)
	}
	return nil
}

// Subscribe registers handler for every future event matching selector.
// The returned Subscription can be passed to Unsubscribe.
func (h *Host) Subscribe(selector protocol.Selector, handler protocol.Handler) *protocol.Subscription {
	return h.events.Subscribe(selector, handler)
}

// Unsubscribe removes a registration previously returned by Subscribe.
func (h *Host) Unsubscribe(sub *protocol.Subscription) {
	h.events.Unsubscribe(sub)
}

// Start launches the background sender and receiver goroutines. It may be
// called only once per Host.
func (h *Host) Start() error {
	if !h.wasStarted.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	h.wg.Add(2)
	go h.runReceiver()
	go h.runSender()
	return nil
}

// Stop signals both worker goroutines to exit and waits for them to
// finish. Pending commands are discarded; callers wanting pending work to
// drain first should call JoinQueue before Stop.
func (h *Host) Stop() error {
	if !h.wasStarted.Load() {
		return ErrNotStarted
	}
	h.forceShutdown()
	h.wg.Wait()
	return nil
}

// JoinQueue blocks until the send queue is empty and every sent command
// has been acknowledged. It may block indefinitely against an
// unresponsive device; callers should have a plan to call Stop from
// another goroutine if that's a concern.
func (h *Host) JoinQueue() {
	h.sendQueue.Join()
	h.sendQuota.Join()
}

// Enqueue normalizes and queues a raw G-code instruction for sending. It
// returns false (with a nil error) if the instruction was empty or
// comment-only after normalization, which is treated as "nothing to send"
// rather than an error.
func (h *Host) Enqueue(rawGCode string) (bool, error) {
	select {
	case <-h.shutdownCh:
		return false, ErrShuttingDown
	default:
	}

	cmd, err := h.buildCommand(rawGCode)
	switch err {
	case nil:
		return h.enqueueTask(cmd, scheduler.PriorityNormal), nil
	case scheduler.ErrEmptyCommand:
		return false, nil
	case scheduler.ErrMultipleCommands:
		return false, ErrMultipleCommands
	default:
		return false, err
	}
}

func (h *Host) buildCommand(raw string) (scheduler.Command, error) {
	lineNumber := atomic.AddUint32(&h.lineCounter, 1)
	return scheduler.NewCommand(lineNumber, raw, h.SignCommands())
}

func (h *Host) enqueueTask(cmd scheduler.Command, priority scheduler.Priority) bool {
	select {
	case <-h.shutdownCh:
		return false
	default:
	}
	seq := atomic.AddUint64(&h.taskCounter, 1)
	h.sendQueue.Put(scheduler.SendTask{Priority: priority, Sequence: seq, Command: cmd})
	return true
}

// enqueueResend looks up lineNumber in send history and re-queues it with
// system priority. A resend for a line not in history (evicted or never
// sent) is not recoverable here: the error is returned so the
// receiver can route it to handleHostException and force a shutdown,
// instead of being logged and absorbed.
func (h *Host) enqueueResend(lineNumber uint32) error {
	cmd, err := h.sendHistory.Fetch(lineNumber)
	if err != nil {
		return err
	}
	h.enqueueTask(cmd, scheduler.PrioritySystem)
	return nil
}

func (h *Host) enqueueLineReset() {
	cmd, _ := scheduler.NewCommand(0, "M110 N0", false)
	h.enqueueTask(cmd, scheduler.PrioritySystem)
}

func (h *Host) enqueueSynch() {
	cmd, err := h.buildCommand("G4 P0")
	if err != nil {
		return
	}
	h.enqueueTask(cmd, scheduler.PrioritySystem)
}

func (h *Host) enqueueHandshake() {
	if h.SignCommands() {
		h.enqueueLineReset()
	}
	h.enqueueSynch()
}

func (h *Host) forceShutdown() {
	select {
	case <-h.shutdownCh:
		return
	default:
		close(h.shutdownCh)
	}
	h.onlineFlag.Store(false)
	h.signalClear()
	h.sendQueue.Purge()
	h.sendQuota.Flush()
}

// signalClear broadcasts "clear to send" to any goroutine blocked in
// waitForAcknowledgment. A channel that is closed-then-replaced under a
// mutex gives one-shot broadcast semantics without a sync.Cond, since only
// the sender goroutine ever waits on it.
func (h *Host) signalClear() {
	h.clearMu.Lock()
	select {
	case <-h.clearCh:
	default:
		close(h.clearCh)
	}
	h.clearMu.Unlock()
}

func (h *Host) resetClear() {
	h.clearMu.Lock()
	select {
	case <-h.clearCh:
		h.clearCh = make(chan struct{})
	default:
	}
	h.clearMu.Unlock()
}

func (h *Host) waitForAcknowledgment(pollTimeout time.Duration) error {
	for {
		h.clearMu.Lock()
		ch := h.clearCh
		h.clearMu.Unlock()

		select {
		case <-ch:
			return nil
		case <-h.shutdownCh:
			return errShutdown
		case <-time.After(pollTimeout):
		}
	}
}
