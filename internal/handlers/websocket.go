package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/anonto42/dongne-market/backend/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var errSlowClient = errors.New("websocket client is not keeping up")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware already governs which origins reach the API
		return true
	},
}

// streamFunc produces server-pushed frames until ctx ends; push queues one frame
type streamFunc func(ctx context.Context, push func(v any) error) error

// serveStream upgrades the request and runs stream until the client goes away
// or stream returns. Clients only listen, so inbound frames are discarded.
func serveStream(c echo.Context, stream streamFunc) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the error response
		return nil
	}

	// The hijacked connection outlives the request's own lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := make(chan []byte, sendBuffer)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writePump(conn, send, cancel)
	}()
	go readPump(conn, cancel)

	err = stream(ctx, func(v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		select {
		case send <- b:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			return errSlowClient
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn().Err(err).Str("path", c.Path()).Msg("websocket stream ended")
	}

	close(send)
	<-writerDone
	return nil
}

func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, send <-chan []byte, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
