package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"wordwire/internal/dispatch"
	"wordwire/internal/ipc"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
)

// Handler upgrades to a websocket and bridges it to the dispatcher: a writer
// goroutine drains the connection's outbox while the reader loop feeds
// inbound envelopes in. Envelopes ride binary frames as tag byte + payload.
func Handler(d *dispatch.Dispatcher, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		username := r.URL.Query().Get("username")
		anonymous := false
		if userID == "" {
			userID = "anon-" + username
			anonymous = true
		}
		if username == "" {
			http.Error(w, "missing username", http.StatusBadRequest)
			return
		}
		var rating int32
		if v, err := strconv.Atoi(r.URL.Query().Get("rating")); err == nil {
			rating = int32(v)
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := d.Register(userID, username, anonymous, rating)
		defer d.Unregister(c)

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for env := range c.Outbox() {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err := conn.Write(ctx, websocket.MessageBinary, env.Bytes())
				cancel()
				if err != nil {
					return
				}
			}
		}()

		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read error", zap.String("connId", c.ID), zap.Error(err))
				}
				return
			}

			env, err := ipc.Unmarshal(data)
			if err != nil {
				c.Send(ipc.MustWrap(ipc.ErrorMessage{Message: "unreadable envelope"}))
				continue
			}
			d.Dispatch(r.Context(), c, env)
		}
	}
}
