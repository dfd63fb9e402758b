package broadcast

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures a websocket transport.
type WSConfig struct {
	WriteTimeout time.Duration // Write deadline for sends
	ReadLimit    int64         // Max inbound message size in bytes
}

// DefaultWSConfig returns sensible defaults.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		WriteTimeout: 5 * time.Second,
		ReadLimit:    4096,
	}
}

// wsTransport adapts a gorilla websocket connection to the Transport
// interface. A dedicated reader goroutine owns all reads on the
// connection; ReceiveText drains its output. Reading inline with a
// deadline is not an option because a deadline error poisons the
// connection for every later read.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	messages chan string
	errs     chan error
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewWSTransport wraps an upgraded websocket connection.
func NewWSTransport(conn *websocket.Conn, cfg WSConfig) Transport {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWSConfig().WriteTimeout
	}
	if cfg.ReadLimit > 0 {
		conn.SetReadLimit(cfg.ReadLimit)
	}

	t := &wsTransport{
		conn:         conn,
		writeTimeout: cfg.WriteTimeout,
		messages:     make(chan string, 16),
		errs:         make(chan error, 1),
		done:         make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// readLoop reads inbound messages until the connection fails or the
// transport is closed.
func (t *wsTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case t.errs <- mapReadError(err):
			default:
			}
			return
		}

		select {
		case t.messages <- string(data):
		case <-t.done:
			return
		}
	}
}

// mapReadError folds the websocket close handshake into ErrClosed.
func mapReadError(err error) error {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return ErrClosed
	}
	return err
}

// ReceiveText waits up to timeout for one inbound text message.
func (t *wsTransport) ReceiveText(timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-t.messages:
		return msg, nil
	case err := <-t.errs:
		return "", err
	case <-t.done:
		return "", ErrClosed
	case <-timer.C:
		return "", ErrTimeout
	}
}

// SendJSON writes v as a single JSON message.
func (t *wsTransport) SendJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.conn.WriteJSON(v)
}

// SendText writes a single text message.
func (t *wsTransport) SendText(text string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Close sends a close frame and tears the connection down.
func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.writeMu.Lock()
		t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		t.writeMu.Unlock()

		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
