package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = time.Minute
	pingPeriod = pongWait / 2
)

// connection serializes writes to a gorilla socket. Reads happen on a single goroutine of their own.
type connection struct {
	socket *websocket.Conn
}

func newConnection(socket *websocket.Conn) *connection {
	_ = socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &connection{socket: socket}
}

func (that *connection) write(data []byte) error {
	if err := that.socket.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return that.socket.WriteMessage(websocket.TextMessage, data)
}

func (that *connection) ping() error {
	return that.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// drain discards client frames until the peer goes away, then closes done.
func (that *connection) drain(done chan<- struct{}) {
	defer close(done)

	for {
		if _, _, err := that.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (that *connection) close(reason string) {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = that.socket.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
	_ = that.socket.Close()
}
