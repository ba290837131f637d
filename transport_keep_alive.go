package wsconsole

import (
	"net"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

// KeepAliveMessageFactory builds the payload of the pings sent every PingInterval.
type KeepAliveMessageFactory func() []byte

// NewKeepAliveMessageFactory returns a factory sending the current unix time in milliseconds, which makes pongs
// easy to correlate in debug logs.
func NewKeepAliveMessageFactory(now func() time.Time) KeepAliveMessageFactory {
	if now == nil {
		now = time.Now
	}
	return func() []byte {
		return []byte(now().UTC().Format(time.RFC3339Nano))
	}
}

// replyPingWithPong answers the peer pings, keeping the connection alive on servers that expect it.
func replyPingWithPong(l logger, conn *websocket.Conn, timeout time.Duration) func(string) error {
	return func(appData string) error {
		l.Debugln("<= [PING]")

		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(timeout))
		if err == nil {
			l.Debugln("=> [PONG]")
			return nil
		}
		if errors.Is(err, websocket.ErrCloseSent) || isTemporary(err) {
			return nil
		}
		return err
	}
}

func isTemporary(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
