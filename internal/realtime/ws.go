package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

var ErrObserverClosed = errors.New("observer closed")

// WSObserver adapts a websocket connection to Observer. Writes are
// serialized and bounded by a write deadline.
type WSObserver struct {
	conn         *websocket.Conn
	id           string
	writeTimeout time.Duration

	writeMux sync.Mutex
	closed   bool
	done     chan struct{}
}

func NewWSObserver(conn *websocket.Conn, writeTimeout time.Duration) *WSObserver {
	return &WSObserver{
		conn:         conn,
		id:           "staff-" + uuid.NewString(),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

func (o *WSObserver) ID() string {
	return o.id
}

func (o *WSObserver) Send(msg []byte) error {
	return o.write(websocket.TextMessage, msg)
}

// Ping writes a keepalive ping frame.
func (o *WSObserver) Ping() error {
	return o.write(websocket.PingMessage, nil)
}

func (o *WSObserver) write(messageType int, data []byte) error {
	o.writeMux.Lock()
	defer o.writeMux.Unlock()

	if o.closed {
		return ErrObserverClosed
	}
	o.conn.SetWriteDeadline(time.Now().Add(o.writeTimeout))
	return o.conn.WriteMessage(messageType, data)
}

// Done is closed once the observer is closed.
func (o *WSObserver) Done() <-chan struct{} {
	return o.done
}

func (o *WSObserver) Close() error {
	o.writeMux.Lock()
	defer o.writeMux.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	close(o.done)
	return o.conn.Close()
}
