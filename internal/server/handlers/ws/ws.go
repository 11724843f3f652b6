package ws

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/statusplay/statusplay/internal/server/websocket"
	"github.com/statusplay/statusplay/internal/utils/jwt"
	"github.com/statusplay/statusplay/internal/utils/response"
)

// Handler upgrades GET /ws connections. The bearer token rides in the
// token query parameter because browser WebSocket clients cannot set
// an Authorization header.
func Handler(hub *websocket.Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			slog.Warn("WebSocket connection attempted without token")
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("token required")))
			return
		}

		userID, err := jwt.ExtractUserIDFromToken(token, jwtSecret)
		if err != nil {
			slog.Warn("WebSocket connection attempted with invalid token", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("invalid token")))
			return
		}

		conn, err := websocket.Upgrade(w, r)
		if err != nil {
			slog.Error("Failed to upgrade WebSocket connection", slog.String("error", err.Error()))
			return
		}

		client := websocket.NewClient(conn, userID, hub)
		hub.RegisterClient(client)
		client.Start()

		slog.Info("WebSocket connection established", slog.String("user_id", userID))
	}
}
