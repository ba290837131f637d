package wsconsole

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAddress(t *testing.T, raw string) ValidAddress {
	t.Helper()
	addr, err := ValidateAddress(raw)
	require.NoError(t, err)
	return addr
}

func lastEntry(t *testing.T, c *Controller) LogEntry {
	t.Helper()
	entries := c.Log().Snapshot()
	require.NotEmpty(t, entries)
	return entries[len(entries)-1]
}

func TestControllerInitialState(t *testing.T) {
	c := NewController(newFakeTransport())

	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Empty(t, c.TargetAddress())
	assert.Empty(t, c.Log().Snapshot())
}

func TestControllerConnectThenOpen(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, EchoAddress)))
	assert.Equal(t, StatusConnecting, c.Status())
	assert.Equal(t, EchoAddress, c.TargetAddress())
	assert.Equal(t, []string{EchoAddress}, tr.addresses)
	assert.Empty(t, c.Log().Snapshot(), "connecting is not logged")

	tr.last().OnOpen()

	assert.Equal(t, StatusConnected, c.Status())
	e := lastEntry(t, c)
	assert.Equal(t, CategorySuccess, e.Category)
	assert.Equal(t, EventOpened, e.Event)
	assert.Equal(t, "connected: "+EchoAddress, e.Text)
}

func TestControllerConnectedThenClose(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://localhost:1")))
	tr.last().OnOpen()
	tr.last().OnClose()

	assert.Equal(t, StatusDisconnected, c.Status())
	e := lastEntry(t, c)
	assert.Equal(t, CategoryError, e.Category)
	assert.Equal(t, EventClosed, e.Event)
	assert.Equal(t, "disconnected", e.Text)
}

func TestControllerCloseWhileConnecting(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://localhost:1")))
	tr.last().OnError(errors.New("boom"))
	tr.last().OnClose()

	assert.Equal(t, StatusDisconnected, c.Status())
	entries := c.Log().Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, "error: boom", entries[0].Text)
	assert.Equal(t, EventErrored, entries[0].Event)
	assert.Equal(t, "disconnected", entries[1].Text)
}

func TestControllerErrorDoesNotChangeStatus(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://localhost:1")))
	tr.last().OnOpen()
	tr.last().OnError(errors.New("read tcp: connection reset"))

	assert.Equal(t, StatusConnected, c.Status())
	e := lastEntry(t, c)
	assert.Equal(t, CategoryError, e.Category)
	assert.Equal(t, EventErrored, e.Event)
	assert.Equal(t, "error: read tcp: connection reset", e.Text)
}

func TestControllerNilError(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://localhost:1")))
	tr.last().OnError(nil)

	assert.Equal(t, "error: unknown error", lastEntry(t, c).Text)
}

func TestControllerMessage(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://localhost:1")))
	tr.last().OnOpen()
	tr.last().OnMessage("hello")

	assert.Equal(t, StatusConnected, c.Status())
	e := lastEntry(t, c)
	assert.Equal(t, CategoryNeutral, e.Category)
	assert.Equal(t, "received: hello", e.Text)
}

func TestControllerSendRequiresConnected(t *testing.T) {
	h := &mockHandle{}
	tr := newFakeTransport(h)
	c := NewController(tr)

	assert.ErrorIs(t, c.Send("hi"), ErrNotConnected)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://localhost:1")))
	assert.ErrorIs(t, c.Send("hi"), ErrNotConnected, "connecting is not connected")

	tr.last().OnOpen()
	before := c.Log().Snapshot()

	h.On("Send", "hi").Return(nil).Once()
	assert.NoError(t, c.Send("hi"))
	assert.Equal(t, before, c.Log().Snapshot(), "successful sends are not logged")

	c.Disconnect()
	before = c.Log().Snapshot()
	assert.ErrorIs(t, c.Send("hi"), ErrNotConnected)
	assert.Equal(t, before, c.Log().Snapshot())

	h.AssertExpectations(t)
}

func TestControllerSendFailure(t *testing.T) {
	h := &mockHandle{}
	tr := newFakeTransport(h)
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://localhost:1")))
	tr.last().OnOpen()

	h.On("Send", "hi").Return(ErrSendQueueFull).Once()
	err := c.Send("hi")
	assert.ErrorIs(t, err, ErrSendQueueFull)
	assert.Equal(t, StatusConnected, c.Status())
}

func TestControllerDisconnectAlwaysLogsOnce(t *testing.T) {
	for _, prior := range []Status{StatusDisconnected, StatusConnecting, StatusConnected} {
		t.Run(prior.String(), func(t *testing.T) {
			tr := newFakeTransport()
			c := NewController(tr)

			if prior != StatusDisconnected {
				require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://localhost:1")))
			}
			if prior == StatusConnected {
				tr.last().OnOpen()
			}
			require.Equal(t, prior, c.Status())
			n := c.Log().Len()

			c.Disconnect()

			assert.Equal(t, StatusDisconnected, c.Status())
			entries := c.Log().Snapshot()
			require.Len(t, entries, n+1)
			e := entries[n]
			assert.Equal(t, CategoryError, e.Category)
			assert.Equal(t, EventDisconnectRequested, e.Event)
			assert.Equal(t, "disconnected", e.Text)
		})
	}
}

func TestControllerDisconnectForgetsTransportByDefault(t *testing.T) {
	h := &mockHandle{}
	tr := newFakeTransport(h)
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://localhost:1")))
	tr.last().OnOpen()
	c.Disconnect()

	h.AssertNotCalled(t, "Close")
}

func TestControllerDisconnectClosesWhenConfigured(t *testing.T) {
	h := &mockHandle{}
	h.On("Close").Return().Once()
	tr := newFakeTransport(h)
	c := NewController(tr, WithCloseAbandoned(true))

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://localhost:1")))
	c.Disconnect()

	h.AssertExpectations(t)
}

func TestControllerReconnectAbandonsPreviousHandle(t *testing.T) {
	first, second := &mockHandle{}, &mockHandle{}
	tr := newFakeTransport(first, second)
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://one")))
	tr.last().OnOpen()
	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://two")))

	assert.Equal(t, StatusConnecting, c.Status())
	assert.Equal(t, "ws://two", c.TargetAddress())
	first.AssertNotCalled(t, "Close")

	second.On("Send", "hi").Return(nil).Once()
	tr.last().OnOpen()
	require.NoError(t, c.Send("hi"))
	second.AssertExpectations(t)
	first.AssertNotCalled(t, "Send", "hi")
}

func TestControllerReconnectClosesPreviousWhenConfigured(t *testing.T) {
	first, second := &mockHandle{}, &mockHandle{}
	first.On("Close").Return().Once()
	tr := newFakeTransport(first, second)
	c := NewController(tr, WithCloseAbandoned(true))

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://one")))
	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://two")))

	first.AssertExpectations(t)
	second.AssertNotCalled(t, "Close")
}

func TestControllerIgnoresStaleCallbacks(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://one")))
	stale := tr.attempt(0)
	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://two")))
	current := tr.attempt(1)

	stale.OnOpen()
	stale.OnMessage("late")
	stale.OnError(errors.New("late"))
	stale.OnClose()

	assert.Equal(t, StatusConnecting, c.Status())
	assert.Empty(t, c.Log().Snapshot())

	current.OnOpen()
	assert.Equal(t, StatusConnected, c.Status())
	assert.Equal(t, "connected: ws://two", lastEntry(t, c).Text)
}

func TestControllerIgnoresCallbacksAfterDisconnect(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://one")))
	tr.last().OnOpen()
	c.Disconnect()
	n := c.Log().Len()

	tr.last().OnMessage("still here")
	tr.last().OnClose()

	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, n, c.Log().Len())
}

func TestControllerIgnoresCallbacksAfterClose(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://one")))
	tr.last().OnOpen()
	tr.last().OnClose()
	n := c.Log().Len()

	tr.last().OnMessage("after close")
	tr.last().OnError(errors.New("after close"))

	assert.Equal(t, n, c.Log().Len())
}

func TestControllerConnectTransportFailure(t *testing.T) {
	tr := &fakeTransport{
		OpenFunc: func(context.Context, string) (TransportHandle, error) {
			return nil, errors.New("parse error")
		},
	}
	c := NewController(tr)

	err := c.Connect(context.Background(), mustAddress(t, "ws://one"))
	assert.Error(t, err)
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Empty(t, c.TargetAddress())
	assert.Empty(t, c.Log().Snapshot())
}

func TestControllerConnectRejectsZeroAddress(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	err := c.Connect(context.Background(), ValidAddress{})
	assert.ErrorIs(t, err, ErrEmptyAddress)
	assert.Empty(t, tr.addresses)
}

func TestControllerClearLog(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://one")))
	tr.last().OnOpen()
	tr.last().OnMessage("a")

	c.ClearLog()
	assert.Empty(t, c.Log().Snapshot())
	assert.Equal(t, StatusConnected, c.Status())

	tr.last().OnMessage("b")
	entries := c.Log().Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "received: b", entries[0].Text)
}

func TestControllerNotifiesSubscribers(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	var statuses []Status
	var entries []LogEntry
	var errorsOnly []LogEntry
	c.OnStatusChange(func(s Status) { statuses = append(statuses, s) })
	c.OnLogEntry(func(e LogEntry) { entries = append(entries, e) })
	c.OnCategory(CategoryError, func(e LogEntry) { errorsOnly = append(errorsOnly, e) })

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://one")))
	tr.last().OnOpen()
	tr.last().OnMessage("x")
	c.Disconnect()

	assert.Equal(t, []Status{StatusConnecting, StatusConnected, StatusDisconnected}, statuses)
	assert.Equal(t, c.Log().Snapshot(), entries)
	require.Len(t, errorsOnly, 1)
	assert.Equal(t, EventDisconnectRequested, errorsOnly[0].Event)
}

func TestControllerSubscriberMayReadState(t *testing.T) {
	tr := newFakeTransport()
	c := NewController(tr)

	var seen []Status
	c.OnLogEntry(func(LogEntry) { seen = append(seen, c.Status()) })

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://one")))
	tr.last().OnOpen()

	assert.Equal(t, []Status{StatusConnected}, seen)
}

func TestControllerClose(t *testing.T) {
	h := &mockHandle{}
	h.On("Close").Return().Once()
	tr := newFakeTransport(h)
	c := NewController(tr)

	var statuses []Status
	c.OnStatusChange(func(s Status) { statuses = append(statuses, s) })

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "ws://one")))
	c.Close()

	h.AssertExpectations(t)
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Empty(t, c.Log().Snapshot())
	assert.Equal(t, []Status{StatusConnecting, StatusDisconnected}, statuses)

	// Listeners are gone and late callbacks are ignored.
	tr.last().OnOpen()
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Len(t, statuses, 2)
}

func TestControllerEndToEnd(t *testing.T) {
	h := &mockHandle{}
	h.On("Send", "hi").Return(nil).Once()
	tr := newFakeTransport(h)
	c := NewController(tr)

	require.NoError(t, c.Connect(context.Background(), mustAddress(t, "wss://echo.websocket.org")))
	tr.last().OnOpen()
	require.NoError(t, c.Send("hi"))
	tr.last().OnMessage("hi")
	c.Disconnect()

	entries := c.Log().Snapshot()
	require.Len(t, entries, 3)

	type got struct {
		Category Category
		Text     string
	}
	assert.Equal(t, []got{
		{CategorySuccess, "connected: wss://echo.websocket.org"},
		{CategoryNeutral, "received: hi"},
		{CategoryError, "disconnected"},
	}, []got{
		{entries[0].Category, entries[0].Text},
		{entries[1].Category, entries[1].Text},
		{entries[2].Category, entries[2].Text},
	})
	assert.Equal(t, StatusDisconnected, c.Status())
	h.AssertExpectations(t)
}
