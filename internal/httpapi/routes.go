package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wordduel/word-duel-backend/internal/ws"
)

// SetupRoutes wires the lobby API and the websocket endpoint. Paths mirror
// what the web client calls.
func SetupRoutes(a *API, wsHandler *ws.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Group(func(r chi.Router) {
		// The websocket route stays outside: a timeout middleware would
		// kill long-lived connections.
		r.Use(chimw.Timeout(10 * time.Second))

		r.Post("/create-lobby", a.CreateLobby)
		r.Post("/join-lobby", a.JoinLobby)
		r.Get("/list-lobbies", a.ListLobbies)
		r.Post("/leave-lobby", a.LeaveLobby)
		r.Get("/player-role", a.PlayerRole)
		r.Get("/lobby-state", a.LobbyState)
		r.Get("/recent-matches", a.RecentMatches)
		r.Get("/healthz", Healthz)
	})

	r.Get("/ws", wsHandler.ServeHTTP)
	return r
}
