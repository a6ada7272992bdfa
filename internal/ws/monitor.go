package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"extwatch/internal/auth"
	"extwatch/internal/status"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// Monitor streams the live snapshot to a browser: one snapshot frame on
// connect, then an update frame per coalesced store notification. The
// connection registers as an engine listener and detaches on close, so
// a forced logout (which clears the registry) silences it immediately.
func Monitor(svc *status.Service, secret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		// Browsers cannot set headers on websocket dial, token rides
		// the query string.
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "token required", http.StatusUnauthorized)
			return
		}

		principal, err := auth.ParseToken(token, secret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		logger.Info("ws connect",
			zap.String("user", principal.UserID),
			zap.String("owner", principal.OwnerID),
		)

		// =======================
		// SNAPSHOT
		// =======================
		snap := svc.GetLastStatus()
		if snap == nil {
			snap = &status.Snapshot{Extensions: map[string]status.ExtensionStatus{}}
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(map[string]any{
			"type": "snapshot",
			"data": snap,
		}); err != nil {
			return
		}

		// =======================
		// SUBSCRIBE
		// =======================
		updates := make(chan status.Snapshot, 8)
		unsubscribe := svc.AddListener(func(s status.Snapshot) {
			select {
			case updates <- s:
			default:
				// Slow consumer: drop the frame, the next one carries
				// the full state anyway.
			}
		})
		defer unsubscribe()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		// =======================
		// LOOP
		// =======================
		for {
			select {
			case <-closed:
				logger.Debug("ws disconnect", zap.String("user", principal.UserID))
				return
			case s := <-updates:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(map[string]any{
					"type": "status_update",
					"data": s,
				}); err != nil {
					return
				}
			}
		}
	}
}
