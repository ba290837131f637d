package wsconsole

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

type (
	ErrAdapter func(*websocket.Conn, *http.Response, error) error

	ErrorAdapters struct {
		OnDial ErrAdapter
	}

	WebsocketTransportOptions struct {
		WriteTimeout  time.Duration
		PingInterval  time.Duration
		SendQueueSize int
		// PingPayload builds the payload of active keep-alive pings. Defaults to an empty payload.
		PingPayload   KeepAliveMessageFactory
		ErrorAdapters ErrorAdapters
	}

	// WebsocketTransport opens text connections with a fasthttp/websocket dialer.
	// It implements the Transport interface.
	WebsocketTransport struct {
		logger     logger
		dialer     *websocket.Dialer
		paramsRepo DialParamsRepo
		opts       WebsocketTransportOptions
	}

	// wsConnection is a single connection attempt. It implements the TransportHandle interface.
	// OnOpen, OnMessage and OnClose come from the goroutine running run, write failures are reported from the
	// writer goroutine. OnClose is always the last callback.
	wsConnection struct {
		logger          logger
		dialer          *websocket.Dialer
		params          DialParams
		cb              Callbacks
		opts            WebsocketTransportOptions
		send            chan string
		closeC          chan struct{}
		closeOnce       sync.Once
		closeReason     error
		closeReasonOnce sync.Once
	}
)

// NewDialer returns a dialer honouring the proxy environment and the handshake timeout of cfg.
func NewDialer(cfg Config) *websocket.Dialer {
	return &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
}

func NewWebsocketTransport(
	logger logger,
	dialer *websocket.Dialer,
	paramsRepo DialParamsRepo,
	opts WebsocketTransportOptions,
) *WebsocketTransport {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = DefaultSendQueueSize
	}
	if opts.PingPayload == nil {
		opts.PingPayload = func() []byte { return nil }
	}

	return &WebsocketTransport{
		logger:     logger.WithField("net", "ws_transport"),
		dialer:     dialer,
		paramsRepo: paramsRepo,
		opts:       opts,
	}
}

// Open resolves the dial parameters and starts connecting in the background.
func (t *WebsocketTransport) Open(ctx context.Context, address string, cb Callbacks) (TransportHandle, error) {
	params, err := t.paramsRepo.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	w := &wsConnection{
		logger: t.logger.WithField("url", params.URL.String()),
		dialer: t.dialer,
		params: params,
		cb:     cb,
		opts:   t.opts,
		send:   make(chan string, t.opts.SendQueueSize),
		closeC: make(chan struct{}),
	}

	go w.run(ctx)

	return w, nil
}

// Send queues text for the writer. It never blocks: a full queue yields ErrSendQueueFull.
func (w *wsConnection) Send(text string) error {
	select {
	case <-w.closeC:
		return ErrConnectionClosed
	default:
	}

	select {
	case w.send <- text:
		return nil
	case <-w.closeC:
		return ErrConnectionClosed
	default:
		return ErrSendQueueFull
	}
}

// Close terminates the connection. It only signals the background goroutines and returns immediately.
func (w *wsConnection) Close() {
	w.closeOnce.Do(func() {
		close(w.closeC)
	})
}

func (w *wsConnection) run(parent context.Context) {
	defer func() {
		w.logger.Debugf("connection gone: %v", w.closeReason)
		w.cb.OnClose()
	}()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	go func() {
		select {
		case <-w.closeC:
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, resp, err := w.dialer.DialContext(ctx, w.params.URL.String(), w.params.Header)
	if ctx.Err() != nil {
		// Closed, or parent context done, while dialing.
		if conn != nil {
			_ = conn.Close()
		}
		w.setCloseReason(ErrTerminated)
		return
	}

	err = w.handleDialError(conn, resp, err)
	if err == nil && conn == nil {
		err = ErrCannotConnect
	}
	if err != nil {
		w.logger.Errorf("connection err: %s", err)
		if conn != nil {
			_ = conn.Close()
		}
		w.setCloseReason(err)
		w.cb.OnError(WrapErrorUnrecoverableConnection(err, w.params.URL))
		return
	}

	w.logger.Debugf("success opening connection")
	w.cb.OnOpen()

	conn.SetPingHandler(replyPingWithPong(w.logger, conn, w.opts.WriteTimeout))
	conn.SetPongHandler(func(string) error {
		w.logger.Debugln("<= [PONG]")
		return nil
	})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		w.write(ctx, conn)
	}()

	w.read(conn)

	cancel()
	<-writerDone
	_ = conn.Close()
}

func (w *wsConnection) read(conn *websocket.Conn) {
	for {
		messageType, bts, err := conn.ReadMessage()
		if err != nil {
			w.handleReadError(err)
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			w.logger.Debugln("<= [BIN]")
		default:
			w.logger.Debugf("<= [DATA] %s", string(bts))
		}

		w.cb.OnMessage(string(bts))
	}
}

func (w *wsConnection) handleReadError(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		w.logger.Infof("connection closed by peer: %s", err)
		w.setCloseReason(ErrConnectionClosed)
		return
	}

	if !w.setCloseReason(errors.Wrap(ErrConnectionClosed, "error occurred on websocket read: "+err.Error())) {
		// Closed from our side or after a write failure, already accounted for.
		return
	}

	w.logger.Errorf("error occurred on websocket read: %s", err)
	w.cb.OnError(err)
}

func (w *wsConnection) write(ctx context.Context, conn *websocket.Conn) {
	var ping <-chan time.Time
	if w.opts.PingInterval > 0 {
		ticker := time.NewTicker(w.opts.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if w.setCloseReason(ErrTerminated) {
				w.logger.Infoln("closing connection from our side")
				deadline := time.Now().Add(w.opts.WriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			}
			_ = conn.Close()
			return
		case <-ping:
			w.logger.Debugln("=> [PING]")
			deadline := time.Now().Add(w.opts.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, w.opts.PingPayload(), deadline); err != nil {
				if isTemporary(err) {
					continue
				}
				w.failWrite(conn, err)
				return
			}
		case text := <-w.send:
			w.logger.Infof("=> [DATA] %s", text)
			_ = conn.SetWriteDeadline(time.Now().Add(w.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				w.failWrite(conn, err)
				return
			}
		}
	}
}

func (w *wsConnection) failWrite(conn *websocket.Conn, err error) {
	var reason error
	if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		reason = ErrConnectionClosed
	} else {
		reason = errors.Wrap(ErrConnectionClosed, err.Error())
	}

	if w.setCloseReason(reason) {
		w.logger.Errorf("error occurred on websocket write: %s", err)
		w.cb.OnError(err)
	}

	// Unblocks the reader.
	_ = conn.Close()
}

// setCloseReason records the first reason only and reports whether err was it.
func (w *wsConnection) setCloseReason(err error) (first bool) {
	w.closeReasonOnce.Do(func() {
		w.closeReason = err
		first = true
	})
	return
}

func (w *wsConnection) handleDialError(conn *websocket.Conn, resp *http.Response, err error) error {
	if w.opts.ErrorAdapters.OnDial != nil {
		return w.opts.ErrorAdapters.OnDial(conn, resp, err)
	}

	// 1. Check HTTP errors first
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, err := io.ReadAll(resp.Body)
			if err == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	// 2. Network errors
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	return nil
}
