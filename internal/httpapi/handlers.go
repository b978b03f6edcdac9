package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wordduel/word-duel-backend/internal/archive"
	"github.com/wordduel/word-duel-backend/internal/engine"
	"github.com/wordduel/word-duel-backend/internal/hub"
	"github.com/wordduel/word-duel-backend/internal/lobby"
)

// API bundles the dependencies the HTTP handlers need.
type API struct {
	Hub *hub.Hub
	Rec archive.Recorder
	Log *zap.Logger
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createLobbyRequest struct {
	Name       string `json:"name"`
	PlayerName string `json:"player_name"`
}

type joinLobbyRequest struct {
	Lobby      string `json:"lobby"`
	PlayerName string `json:"player_name"`
}

type leaveLobbyRequest struct {
	Lobby    string `json:"lobby"`
	PlayerID string `json:"player_id"`
}

type seatResponse struct {
	Lobby    string `json:"lobby"`
	PlayerID string `json:"player_id"`
}

type lobbySummary struct {
	Lobby   string `json:"lobby"`
	Name    string `json:"name"`
	Players int    `json:"players"`
}

// CreateLobby allocates a fresh lobby, seats the caller as host, and issues
// their durable player id.
func (a *API) CreateLobby(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.PlayerName == "" {
		http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
		return
	}

	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			http.Error(w, `{"error":"code_generation_failed"}`, http.StatusInternalServerError)
			return
		}
		if a.getLobby(c) == nil {
			code = c
			break
		}
		a.Log.Warn("collision on lobby code, regenerating", zap.String("lobby", c))
	}

	playerID := uuid.NewString()
	reply := make(chan *lobby.Lobby, 1)
	a.Hub.Inbox() <- hub.CreateLobby{
		Code:  code,
		Name:  req.Name,
		State: engine.NewState(playerID, req.PlayerName),
		Reply: reply,
	}
	if <-reply == nil {
		http.Error(w, `{"error":"create_failed"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, seatResponse{Lobby: code, PlayerID: playerID})
}

// JoinLobby seats the caller in the guest slot of an existing lobby.
func (a *API) JoinLobby(w http.ResponseWriter, r *http.Request) {
	var req joinLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lobby == "" || req.PlayerName == "" {
		http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
		return
	}

	lb := a.getLobby(req.Lobby)
	if lb == nil {
		writeError(w, errLobbyNotFound)
		return
	}

	playerID := uuid.NewString()
	reply := make(chan error, 1)
	lb.Inbox() <- lobby.Do{
		Cmd:   engine.Command{Type: engine.CmdBindGuest, PlayerID: playerID, Name: req.PlayerName},
		Reply: reply,
	}
	select {
	case err := <-reply:
		if err != nil {
			writeError(w, err)
			return
		}
	case <-lb.Done():
		writeError(w, lobby.ErrLobbyClosed)
		return
	}

	writeJSON(w, http.StatusOK, seatResponse{Lobby: req.Lobby, PlayerID: playerID})
}

// ListLobbies reports every live lobby with its occupancy.
func (a *API) ListLobbies(w http.ResponseWriter, r *http.Request) {
	reply := make(chan []*lobby.Lobby, 1)
	a.Hub.Inbox() <- hub.ListLobbies{Reply: reply}

	out := []lobbySummary{}
	for _, lb := range <-reply {
		info := make(chan lobby.Info, 1)
		lb.Inbox() <- lobby.GetInfo{Reply: info}
		select {
		case i := <-info:
			out = append(out, lobbySummary{Lobby: i.Code, Name: i.Name, Players: i.Players})
		case <-lb.Done():
			// Died between listing and query; it is already unlisted.
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// LeaveLobby vacates the caller's slot; the lobby destroys itself once both
// slots are empty.
func (a *API) LeaveLobby(w http.ResponseWriter, r *http.Request) {
	var req leaveLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lobby == "" || req.PlayerID == "" {
		http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
		return
	}

	lb := a.getLobby(req.Lobby)
	if lb == nil {
		writeError(w, errLobbyNotFound)
		return
	}

	reply := make(chan error, 1)
	lb.Inbox() <- lobby.Do{
		Cmd:   engine.Command{Type: engine.CmdLeave, PlayerID: req.PlayerID},
		Reply: reply,
	}
	select {
	case err := <-reply:
		if err != nil {
			writeError(w, err)
			return
		}
	case <-lb.Done():
		writeError(w, lobby.ErrLobbyClosed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// PlayerRole answers which seat a player id holds, so a reconnecting client
// can re-derive its side without re-joining.
func (a *API) PlayerRole(w http.ResponseWriter, r *http.Request) {
	snap, err := a.snapshot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	info := roleInfoFromSnapshot(snap)
	writeJSON(w, http.StatusOK, info)
}

// LobbyState is the reconciliation endpoint: the full role-scoped view of the
// latest committed state. Safe to call repeatedly.
func (a *API) LobbyState(w http.ResponseWriter, r *http.Request) {
	snap, err := a.snapshot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// RecentMatches serves the archive listing; 204 when no archive is wired.
func (a *API) RecentMatches(w http.ResponseWriter, r *http.Request) {
	if a.Rec == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	matches, err := a.Rec.Recent(r.Context(), 20)
	if err != nil {
		a.Log.Error("archive query failed", zap.Error(err))
		http.Error(w, `{"error":"archive_unavailable"}`, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
