package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Resinat/Portwatch/internal/hub"
	"github.com/Resinat/Portwatch/internal/telemetry"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const streamWriteTimeout = 10 * time.Second

// HandleStream returns a handler for GET /api/v1/stream. After the upgrade
// the client receives one snapshot frame with every series, then one update
// frame per processed controller event. A client that fell behind and lost
// frames is sent a fresh snapshot.
func HandleStream(registry *telemetry.Registry, h *hub.Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			log.Printf("[api] stream upgrade failed: %v", err)
			return
		}
		defer conn.CloseNow()

		sub := h.Subscribe()
		defer h.Unsubscribe(sub.ID)

		// Clients only listen; CloseRead handles control frames and cancels
		// ctx when the peer goes away.
		ctx := conn.CloseRead(r.Context())

		sess := hub.NewSession(registry, sub)
		if err := writeFrame(ctx, conn, sess.Start()); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case in, ok := <-sub.C:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "server shutting down")
					return
				}
				for _, frame := range sess.Next(in) {
					if err := writeFrame(ctx, conn, frame); err != nil {
						if !errors.Is(err, context.Canceled) {
							log.Printf("[api] stream subscriber %s: %v", sub.ID, err)
						}
						return
					}
				}
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame hub.Frame) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, frame)
}
