package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wordduel/word-duel-backend/internal/engine"
	"github.com/wordduel/word-duel-backend/internal/hub"
	"github.com/wordduel/word-duel-backend/internal/lobby"
	"github.com/wordduel/word-duel-backend/internal/types"
)

var errLobbyNotFound = errors.New("lobby not found")

func (a *API) getLobby(code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	a.Hub.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
	return <-reply
}

// snapshot resolves the lobby and player from query params and pulls the
// role-scoped view through the lobby's serialization point.
func (a *API) snapshot(r *http.Request) (types.Snapshot, error) {
	code := r.URL.Query().Get("lobby")
	playerID := r.URL.Query().Get("id")
	if code == "" || playerID == "" {
		return types.Snapshot{}, errBadRequest
	}

	lb := a.getLobby(code)
	if lb == nil {
		return types.Snapshot{}, errLobbyNotFound
	}

	reply := make(chan lobby.ViewReply, 1)
	lb.Inbox() <- lobby.GetView{PlayerID: playerID, Reply: reply}
	select {
	case v := <-reply:
		return v.Snapshot, v.Err
	case <-lb.Done():
		return types.Snapshot{}, lobby.ErrLobbyClosed
	}
}

var errBadRequest = errors.New("missing lobby or player id")

func roleInfoFromSnapshot(snap types.Snapshot) types.RoleInfo {
	info := types.RoleInfo{Role: snap.Role, Name: snap.You.Name}
	if snap.Opponent != nil {
		info.OpponentName = snap.Opponent.Name
	}
	return info
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine rejections to HTTP statuses; every rejection carries
// a machine-readable reason.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	switch {
	case errors.Is(err, errBadRequest):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, errLobbyNotFound), errors.Is(err, lobby.ErrLobbyClosed):
		status, code = http.StatusNotFound, "lobby_not_found"
	case errors.Is(err, engine.ErrUnknownPlayer):
		status, code = http.StatusNotFound, "unknown_player"
	case errors.Is(err, engine.ErrLobbyFull):
		status, code = http.StatusConflict, "lobby_full"
	case errors.Is(err, engine.ErrAlreadySubmitted):
		status, code = http.StatusConflict, "already_submitted"
	case errors.Is(err, engine.ErrNotPlaying):
		status, code = http.StatusConflict, "not_playing"
	case errors.Is(err, engine.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, engine.ErrEmptyWord), errors.Is(err, engine.ErrBadLetter):
		status, code = http.StatusBadRequest, "invalid_word"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
