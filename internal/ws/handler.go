package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/wordduel/word-duel-backend/internal/engine"
	"github.com/wordduel/word-duel-backend/internal/hub"
	"github.com/wordduel/word-duel-backend/internal/lobby"
	"github.com/wordduel/word-duel-backend/internal/types"
)

// Handler bridges one websocket connection to a lobby's inbox. The lobby does
// the thinking; this layer only frames, forwards, and cleans up.
type Handler struct {
	Hub            *hub.Hub
	Log            *zap.Logger
	OriginPatterns []string
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("lobby")
	playerID := r.URL.Query().Get("id")
	if code == "" || playerID == "" {
		http.Error(w, "missing lobby or id", http.StatusBadRequest)
		return
	}

	// A connection for a lobby that doesn't exist fails fast, it never waits.
	reply := make(chan *lobby.Lobby, 1)
	h.Hub.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
	lb := <-reply
	if lb == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.OriginPatterns,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	log := h.Log.With(zap.String("lobby", code), zap.String("player", playerID))

	out := make(chan types.ServerEvent, 16)
	attached := make(chan error, 1)
	lb.Inbox() <- lobby.Attach{PlayerID: playerID, Outbox: out, Reply: attached}
	select {
	case err := <-attached:
		if err != nil {
			log.Warn("attach rejected", zap.Error(err))
			conn.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}
	case <-lb.Done():
		log.Warn("lobby closed during attach")
		conn.Close(websocket.StatusPolicyViolation, lobby.ErrLobbyClosed.Error())
		return
	}
	defer func() { lb.Inbox() <- lobby.Detach{PlayerID: playerID, Outbox: out} }()

	// Writer goroutine: drains the outbox until the lobby closes it.
	writeCtx, writeCancel := context.WithCancel(r.Context())
	defer writeCancel()
	go func() {
		for frame := range out {
			payload, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
			_ = conn.Write(ctx, websocket.MessageText, payload)
			cancel()
		}
		// Lobby dropped or closed us; unblock the reader.
		conn.Close(websocket.StatusGoingAway, "lobby closed connection")
	}()

	// Reader loop
	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			// Treat clean close/going-away as normal:
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			// Otherwise, just exit (lobby.Detach in defer):
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			h.writeError(r.Context(), conn, "bad json")
			continue
		}

		cmd, ok := toEngineCommand(cm, playerID)
		if !ok {
			h.writeError(r.Context(), conn, "unknown type")
			continue
		}

		lb.Inbox() <- lobby.FromClient{PlayerID: playerID, Cmd: cmd}
	}
}

func (h *Handler) writeError(ctx context.Context, conn *websocket.Conn, reason string) {
	payload, _ := json.Marshal(types.ErrorEvent(reason))
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

func toEngineCommand(m types.ClientMessage, playerID string) (engine.Command, bool) {
	switch m.Type {
	case "submit":
		var word string
		if err := json.Unmarshal(m.Payload, &word); err != nil {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdSubmitWord, PlayerID: playerID, Word: word}, true

	case "guess":
		var letter string
		if err := json.Unmarshal(m.Payload, &letter); err != nil || letter == "" {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdGuessLetter, PlayerID: playerID, Letter: []rune(letter)[0]}, true

	case "restart":
		return engine.Command{Type: engine.CmdRequestRestart, PlayerID: playerID}, true

	case "instruction":
		var p types.InstructionPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdSetNote, PlayerID: playerID, NoteKey: p.Player, Note: p.Instruction}, true

	default:
		return engine.Command{}, false
	}
}
