package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kalambet/nutriwheel/internal/session"
)

const wsWriteTimeout = 5 * time.Second

// handleEvents streams session events as JSON text messages. The first
// message is a snapshot of the whole state. Client messages are ignored.
func handleEvents(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Debug("websocket accept failed", "error", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "")

		ctx := c.CloseRead(r.Context())
		events, cancel := deps.Session.Subscribe(256)
		defer cancel()

		st := deps.Session.Snapshot()
		if err := writeEvent(ctx, c, session.Event{Type: session.EventSnapshot, Time: time.Now().UTC(), State: &st}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					c.Close(websocket.StatusGoingAway, "server shutting down")
					return
				}
				if err := writeEvent(ctx, c, ev); err != nil {
					slog.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}

func writeEvent(ctx context.Context, c *websocket.Conn, ev session.Event) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, ev)
}
