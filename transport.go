package wsconsole

import "context"

type (
	// Callbacks receives the asynchronous outcome of a transport opened with Transport.Open.
	// For a single handle, callbacks are delivered in the order the transport observes them: OnOpen comes before
	// any OnMessage or OnClose.
	Callbacks interface {
		// OnOpen is called once the connection is established.
		OnOpen()
		// OnClose is called when the connection is gone, either closed by the peer, by us, or after a failure.
		OnClose()
		// OnError reports a non fatal transport error. It may be followed by OnClose.
		OnError(err error)
		// OnMessage is called for every message received from the peer.
		OnMessage(data string)
	}

	// TransportHandle is a live, or soon to be live, connection.
	TransportHandle interface {
		// Send queues text to be written to the peer. It must not block.
		Send(text string) error
		// Close releases the connection without blocking nor invoking callbacks synchronously. OnClose will
		// eventually be called if it was not already.
		Close()
	}

	// Transport opens text connections to websocket addresses.
	Transport interface {
		// Open starts connecting to address and returns immediately. It only fails for malformed input, every
		// other outcome is delivered through cb, which must never be invoked from within Open itself.
		Open(ctx context.Context, address string, cb Callbacks) (TransportHandle, error)
	}

	// TransportFunc adapts a function to the Transport interface.
	TransportFunc func(ctx context.Context, address string, cb Callbacks) (TransportHandle, error)
)

func (f TransportFunc) Open(ctx context.Context, address string, cb Callbacks) (TransportHandle, error) {
	return f(ctx, address, cb)
}
