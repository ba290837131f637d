package wsconsole

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type (
	// Controller owns the lifecycle of at most one tracked transport connection. User commands (Connect,
	// Disconnect, Send, ClearLog) and transport callbacks both go through it, and every mutation of the status and
	// the event log happens under a single lock.
	//
	// Each Connect is tagged with a generation. Callbacks coming from a transport that has been replaced or
	// dropped carry an old generation and are ignored.
	Controller struct {
		mu sync.Mutex

		transport      Transport
		log            *EventLog
		logger         logger
		closeAbandoned bool

		status     Status
		target     string
		handle     TransportHandle
		generation uint64

		statusEmitter *EventEmitterCallback[Status, Status]
		entryEmitter  *EventEmitterCallback[Category, LogEntry]
	}

	ControllerOption func(*Controller)

	// notifications collects subscriber calls while the lock is held, so they can be fired once it is released.
	notifications []func()
)

// WithLogger sets the operational logger. Defaults to a no-op logger.
func WithLogger(l logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l.WithField("type", "controller")
	}
}

// WithEventLog replaces the default unbounded event log.
func WithEventLog(log *EventLog) ControllerOption {
	return func(c *Controller) {
		c.log = log
	}
}

// WithCloseAbandoned makes the controller close transports it stops tracking, either on Disconnect or when a new
// Connect replaces them. By default they are only forgotten, which may leave a live connection behind.
func WithCloseAbandoned(v bool) ControllerOption {
	return func(c *Controller) {
		c.closeAbandoned = v
	}
}

func NewController(transport Transport, opts ...ControllerOption) *Controller {
	c := &Controller{
		transport:     transport,
		logger:        noopLogger{},
		status:        StatusDisconnected,
		statusEmitter: NewEventEmitter[Status, Status](),
		entryEmitter:  NewEventEmitter[Category, LogEntry](),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = NewEventLog(0)
	}

	return c
}

// NewControllerFromConfig builds a controller with a websocket transport configured from cfg.
func NewControllerFromConfig(l logger, cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := NewWebsocketTransport(
		l,
		NewDialer(cfg),
		NewDialParamsRepo(l, StaticHeaderDialParamsGetter(cfg.Header)),
		WebsocketTransportOptions{
			WriteTimeout:  cfg.WriteTimeout,
			PingInterval:  cfg.PingInterval,
			SendQueueSize: cfg.SendQueueSize,
		},
	)

	return NewController(
		transport,
		WithLogger(l),
		WithEventLog(NewEventLog(cfg.LogCapacity)),
		WithCloseAbandoned(cfg.CloseAbandoned),
	), nil
}

// Status returns the current connection status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// TargetAddress returns the address of the current, or most recent, connection attempt.
func (c *Controller) TargetAddress() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.target
}

// Log exposes the event log for read-only consumption.
func (c *Controller) Log() *EventLog {
	return c.log
}

// OnStatusChange registers fn to be called with the new status on every status transition.
func (c *Controller) OnStatusChange(fn func(Status)) {
	for _, s := range []Status{StatusDisconnected, StatusConnecting, StatusConnected} {
		c.statusEmitter.On(s, fn)
	}
}

// OnLogEntry registers fn to be called for every entry appended to the log.
func (c *Controller) OnLogEntry(fn func(LogEntry)) {
	for _, cat := range []Category{CategoryInfo, CategorySuccess, CategoryError, CategoryNeutral} {
		c.entryEmitter.On(cat, fn)
	}
}

// OnCategory registers fn to be called for entries of the given category only.
func (c *Controller) OnCategory(cat Category, fn func(LogEntry)) {
	c.entryEmitter.On(cat, fn)
}

// Connect starts a new connection attempt to address and returns without waiting for its outcome. A previously
// tracked transport is abandoned. An error is returned only when the transport rejects the address outright, in
// which case nothing changes.
func (c *Controller) Connect(ctx context.Context, address ValidAddress) error {
	if address.IsZero() {
		return &ValidationError{Kind: ValidationEmpty}
	}

	var n notifications

	c.mu.Lock()

	gen := c.generation + 1
	handle, err := c.transport.Open(ctx, address.String(), generationCallbacks{c: c, generation: gen})
	if err != nil {
		c.mu.Unlock()
		c.logger.Errorf("cannot open transport to %s: %s", address, err)
		return errors.Wrap(err, "cannot open transport")
	}

	c.abandon()
	c.generation = gen
	c.handle = handle
	c.target = address.String()
	c.setStatus(StatusConnecting, &n)

	c.logger.Debugf("connecting to %s (generation %d)", address, gen)
	c.mu.Unlock()

	n.fire()
	return nil
}

// Disconnect stops tracking the current transport and records a disconnection, whatever the previous status
// was. The transport itself is only closed when WithCloseAbandoned is set, otherwise it is simply forgotten.
func (c *Controller) Disconnect() {
	var n notifications

	c.mu.Lock()
	c.abandon()
	c.generation++
	c.setStatus(StatusDisconnected, &n)
	c.appendEntry(CategoryError, EventDisconnectRequested, "disconnected", &n)
	c.mu.Unlock()

	n.fire()
}

// Send writes text verbatim to the connected peer. It fails with ErrNotConnected unless the status is
// StatusConnected. Successful sends are not recorded in the log.
func (c *Controller) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusConnected || c.handle == nil {
		return ErrNotConnected
	}

	if err := c.handle.Send(text); err != nil {
		c.logger.Warnf("cannot send to %s: %s", c.target, err)
		return errors.Wrap(err, "cannot send")
	}

	return nil
}

// ClearLog empties the event log.
func (c *Controller) ClearLog() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Clear()
}

// Close releases the tracked transport, if any, and drops every subscriber. Nothing is logged.
func (c *Controller) Close() {
	var n notifications

	c.mu.Lock()
	if c.handle != nil {
		c.handle.Close()
		c.handle = nil
	}
	c.generation++
	c.setStatus(StatusDisconnected, &n)
	c.mu.Unlock()

	n.fire()

	c.statusEmitter.Close()
	c.entryEmitter.Close()
}

func (c *Controller) handleOpen(gen uint64) {
	var n notifications

	c.mu.Lock()
	if c.isStale(gen, "open") {
		c.mu.Unlock()
		return
	}

	c.setStatus(StatusConnected, &n)
	c.appendEntry(CategorySuccess, EventOpened, "connected: "+c.target, &n)
	c.mu.Unlock()

	n.fire()
}

func (c *Controller) handleClose(gen uint64) {
	var n notifications

	c.mu.Lock()
	if c.isStale(gen, "close") {
		c.mu.Unlock()
		return
	}

	c.handle = nil
	c.setStatus(StatusDisconnected, &n)
	c.appendEntry(CategoryError, EventClosed, "disconnected", &n)
	c.mu.Unlock()

	n.fire()
}

func (c *Controller) handleError(gen uint64, err error) {
	var n notifications

	c.mu.Lock()
	if c.isStale(gen, "error") {
		c.mu.Unlock()
		return
	}

	c.appendEntry(CategoryError, EventErrored, "error: "+errorText(err), &n)
	c.mu.Unlock()

	n.fire()
}

func (c *Controller) handleMessage(gen uint64, data string) {
	var n notifications

	c.mu.Lock()
	if c.isStale(gen, "message") {
		c.mu.Unlock()
		return
	}

	c.appendEntry(CategoryNeutral, EventReceived, "received: "+data, &n)
	c.mu.Unlock()

	n.fire()
}

// isStale must be called with the lock held.
func (c *Controller) isStale(gen uint64, what string) bool {
	if gen == c.generation && c.handle != nil {
		return false
	}

	c.logger.Debugf("ignoring %s from stale transport (generation %d, current %d)", what, gen, c.generation)
	return true
}

// abandon must be called with the lock held.
func (c *Controller) abandon() {
	if c.handle == nil {
		return
	}

	if c.closeAbandoned {
		c.handle.Close()
	}

	c.handle = nil
}

func (c *Controller) setStatus(s Status, n *notifications) {
	if c.status == s {
		return
	}

	c.logger.Infof("status %s -> %s", c.status, s)
	c.status = s
	*n = append(*n, func() { c.statusEmitter.Emit(s, s) })
}

func (c *Controller) appendEntry(cat Category, event EventType, text string, n *notifications) {
	entry := c.log.Append(cat, event, text)
	*n = append(*n, func() { c.entryEmitter.Emit(entry.Category, entry) })
}

func (n notifications) fire() {
	for _, fn := range n {
		fn()
	}
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// generationCallbacks binds transport callbacks to the connection attempt that registered them.
type generationCallbacks struct {
	c          *Controller
	generation uint64
}

func (g generationCallbacks) OnOpen() { g.c.handleOpen(g.generation) }

func (g generationCallbacks) OnClose() { g.c.handleClose(g.generation) }

func (g generationCallbacks) OnError(err error) { g.c.handleError(g.generation, err) }

func (g generationCallbacks) OnMessage(data string) { g.c.handleMessage(g.generation, data) }
