package protocol

import "sync"

// Handler receives a dispatched Event.
type Handler func(Event)

// Selector decides whether a Handler registered against it should receive
// a given Event. A subscriber that wants every device event subscribes
// with DeviceEvents() instead of type-switching on each dispatched value.
type Selector interface {
	matches(Event) bool
}

type selectorFunc func(Event) bool

func (f selectorFunc) matches(e Event) bool { return f(e) }

// Any selects every event, device events and HostException alike.
func Any() Selector {
	return selectorFunc(func(Event) bool { return true })
}

// DeviceEvents selects every DeviceEvent regardless of Kind.
func DeviceEvents() Selector {
	return selectorFunc(func(e Event) bool {
		_, ok := e.(DeviceEvent)
		return ok
	})
}

// OfKind selects DeviceEvent values of exactly the given Kind.
func OfKind(k Kind) Selector {
	return selectorFunc(func(e Event) bool {
		de, ok := e.(DeviceEvent)
		return ok && de.Kind == k
	})
}

// HostExceptions selects only host-internal HostException events.
func HostExceptions() Selector {
	return selectorFunc(func(e Event) bool {
		_, ok := e.(HostException)
		return ok
	})
}

// Subscription is an opaque handle returned by Subscribe, passed back to
// Unsubscribe to remove the registration. Its zero value matches nothing.
type Subscription struct {
	selector Selector
	handler  Handler
}

// Dispatcher is a thread-safe registry of (Selector, Handler) pairs.
// Subscribe, Unsubscribe, and Dispatch are serialized by a mutex; handlers
// run outside the lock, in registration order, and a panicking handler is
// recovered so it cannot prevent its siblings from running.
type Dispatcher struct {
	mu   sync.Mutex
	regs []*Subscription
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers handler to be invoked for every future event that
// matches selector. The returned Subscription can be passed to Unsubscribe.
func (d *Dispatcher) Subscribe(selector Selector, handler Handler) *Subscription {
	reg := &Subscription{selector: selector, handler: handler}
	d.mu.Lock()
	d.regs = append(d.regs, reg)
	d.mu.Unlock()
	return reg
}

// Unsubscribe removes a registration previously returned by Subscribe. It
// is a no-op if reg is nil or already removed.
func (d *Dispatcher) Unsubscribe(reg *Subscription) {
	if reg == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, r := range d.regs {
		if r == reg {
			d.regs = append(d.regs[:i], d.regs[i+1:]...)
			return
		}
	}
}

// Dispatch invokes, in registration order, every handler whose selector
// matches event. Handlers run outside the dispatcher's lock so a handler
// calling back into Subscribe/Unsubscribe cannot deadlock.
func (d *Dispatcher) Dispatch(event Event) {
	d.mu.Lock()
	targets := make([]Handler, 0, len(d.regs))
	for _, r := range d.regs {
		if r.selector.matches(event) {
			targets = append(targets, r.handler)
		}
	}
	d.mu.Unlock()

	for _, handler := range targets {
		invokeSafely(handler, event)
	}
}

func invokeSafely(handler Handler, event Event) {
	defer func() {
		recover() //nolint:errcheck // a handler panic must not stop its siblings
	}()
	handler(event)
}
