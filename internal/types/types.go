package types

import (
	"encoding/json"
	"strconv"

	"github.com/wordduel/word-duel-backend/internal/engine"
)

// ClientMessage is one frame from a live connection. Payload shape depends on
// Type: "submit" and "guess" carry a bare string, "restart" carries nothing,
// "instruction" carries an InstructionPayload.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InstructionPayload relays a status line one client wants mirrored on the
// other's screen.
type InstructionPayload struct {
	Player      string `json:"player"`
	Instruction string `json:"instruction"`
}

// ServerEvent is one pushed frame. Fields beyond Type are populated per event
// kind; zero fields are omitted on the wire.
type ServerEvent struct {
	Type                   string `json:"type"`
	Version                int    `json:"version,omitempty"`
	Revealed               string `json:"revealed,omitempty"`
	OpponentRevealed       string `json:"opponent_revealed,omitempty"`
	Attempts               string `json:"attempts,omitempty"`
	OpponentAttempts       string `json:"opponent_attempts,omitempty"`
	GuessedLetters         string `json:"guessed_letters,omitempty"`
	OpponentGuessedLetters string `json:"opponent_guessed_letters,omitempty"`
	Player                 string `json:"player,omitempty"`
	Word                   string `json:"word,omitempty"`
	Message                string `json:"message,omitempty"`
	Instruction            string `json:"instruction,omitempty"`
	Error                  string `json:"error,omitempty"`
}

// PlayerNumber is the wire label for a seat: host is "1", guest is "2".
func PlayerNumber(role engine.Role) string {
	if role == engine.RoleHost {
		return "1"
	}
	return "2"
}

// RenderEvent converts one engine event into the frame the given viewer
// should receive. ok is false for events with no wire representation
// (LobbyEmptied is a registry signal, not a client frame).
func RenderEvent(evt engine.Event, st engine.State, viewer engine.Role, version int) (ServerEvent, bool) {
	switch evt.Type {
	case engine.EvtGameStarted:
		return ServerEvent{
			Type:             "start_game",
			Version:          version,
			Revealed:         st.SlotFor(viewer.Opponent()).Board.Mask(),
			OpponentRevealed: st.SlotFor(viewer).Board.Mask(),
		}, true

	case engine.EvtBoardUpdated, engine.EvtRoundReset:
		return renderUpdate(st, viewer, version), true

	case engine.EvtRoundWon:
		return ServerEvent{Type: "win", Version: version, Player: PlayerNumber(evt.Role), Word: evt.Word}, true

	case engine.EvtRoundLost:
		return ServerEvent{Type: "lost", Version: version, Player: PlayerNumber(evt.Role), Word: evt.Word}, true

	case engine.EvtRoundEnded:
		return ServerEvent{Type: "end", Version: version}, true

	case engine.EvtGuestJoined:
		return ServerEvent{Type: "join", Version: version, Message: evt.Name}, true

	case engine.EvtWordSubmitted:
		return ServerEvent{Type: "submit", Version: version, Player: PlayerNumber(evt.Role)}, true

	case engine.EvtRestartRequested:
		return ServerEvent{Type: "restart", Version: version, Player: PlayerNumber(evt.Role)}, true

	case engine.EvtPlayerConnected:
		return ServerEvent{Type: "connect", Version: version, Player: PlayerNumber(evt.Role)}, true

	case engine.EvtPlayerDisconnected:
		return ServerEvent{Type: "disconnect", Version: version, Player: PlayerNumber(evt.Role)}, true

	case engine.EvtPlayerLeft:
		return ServerEvent{Type: "close", Version: version, Player: PlayerNumber(evt.Role)}, true

	case engine.EvtNoteSet:
		return ServerEvent{Type: "instruction", Version: version, Player: evt.NoteKey, Instruction: evt.Note}, true

	default:
		return ServerEvent{}, false
	}
}

// renderUpdate paints the full guessing picture from the viewer's side:
// "revealed" is the viewer's progress on the opponent's word,
// "opponent_revealed" the opponent's progress on the viewer's.
func renderUpdate(st engine.State, viewer engine.Role, version int) ServerEvent {
	mine := st.SlotFor(viewer.Opponent()).Board // viewer guesses this board
	theirs := st.SlotFor(viewer).Board          // opponent guesses this one
	return ServerEvent{
		Type:                   "update",
		Version:                version,
		Revealed:               mine.Mask(),
		OpponentRevealed:       theirs.Mask(),
		Attempts:               strconv.Itoa(mine.AttemptsLeft),
		OpponentAttempts:       strconv.Itoa(theirs.AttemptsLeft),
		GuessedLetters:         mine.GuessedString(),
		OpponentGuessedLetters: theirs.GuessedString(),
	}
}

// ErrorEvent is the frame for a rejected command; every rejection carries a
// distinguishable reason.
func ErrorEvent(reason string) ServerEvent {
	return ServerEvent{Type: "error", Error: reason}
}

// Snapshot is the full, role-scoped lobby view served by the reconciliation
// endpoint. The opponent's secret word only appears once the round has ended.
type Snapshot struct {
	Version  int           `json:"version"`
	Lobby    string        `json:"lobby"`
	Name     string        `json:"name"`
	State    string        `json:"state"`
	Role     string        `json:"role"`
	You      PlayerView    `json:"you"`
	Opponent *OpponentView `json:"opponent,omitempty"`
}

// PlayerView is the caller's own side: their guessing progress plus the word
// they set for the opponent.
type PlayerView struct {
	Name             string `json:"name"`
	Word             string `json:"word,omitempty"`
	Revealed         string `json:"revealed"`
	Attempts         int    `json:"attempts"`
	GuessedLetters   string `json:"guessed_letters"`
	Submitted        bool   `json:"submitted"`
	RestartRequested bool   `json:"restart_requested"`
	Connected        bool   `json:"connected"`
	Instruction      string `json:"instruction,omitempty"`
	OppInstruction   string `json:"opp_instruction,omitempty"`
}

// OpponentView is the cross-player projection: progress counters are public,
// the secret word is withheld until the round ends.
type OpponentView struct {
	Name             string `json:"name"`
	Word             string `json:"word,omitempty"`
	Revealed         string `json:"revealed"`
	Attempts         int    `json:"attempts"`
	GuessedLetters   string `json:"guessed_letters"`
	Submitted        bool   `json:"submitted"`
	RestartRequested bool   `json:"restart_requested"`
	Connected        bool   `json:"connected"`
}

// RenderSnapshot builds the reconciliation view for one seat.
func RenderSnapshot(code, name string, st engine.State, viewer engine.Role, version int) Snapshot {
	self := st.SlotFor(viewer)
	opp := st.SlotFor(viewer.Opponent())

	noteSelf, noteOpp := "host", "host_opp"
	if viewer == engine.RoleGuest {
		noteSelf, noteOpp = "guest", "guest_opp"
	}

	snap := Snapshot{
		Version: version,
		Lobby:   code,
		Name:    name,
		State:   string(st.Phase),
		Role:    string(viewer),
		You: PlayerView{
			Name:             self.Name,
			Word:             self.Board.Word,
			Revealed:         opp.Board.Mask(),
			Attempts:         opp.Board.AttemptsLeft,
			GuessedLetters:   opp.Board.GuessedString(),
			Submitted:        self.Board.HasWord(),
			RestartRequested: self.RestartRequested,
			Connected:        self.Connected,
			Instruction:      st.Notes[noteSelf],
			OppInstruction:   st.Notes[noteOpp],
		},
	}

	if opp.Occupied() {
		ov := &OpponentView{
			Name:             opp.Name,
			Revealed:         self.Board.Mask(),
			Attempts:         self.Board.AttemptsLeft,
			GuessedLetters:   self.Board.GuessedString(),
			Submitted:        opp.Board.HasWord(),
			RestartRequested: opp.RestartRequested,
			Connected:        opp.Connected,
		}
		if st.Phase == engine.PhaseEnded {
			ov.Word = opp.Board.Word
		}
		snap.Opponent = ov
	}
	return snap
}

// RoleInfo answers the player-role lookup used by reconnecting clients.
type RoleInfo struct {
	Role         string `json:"role"`
	Name         string `json:"name"`
	OpponentName string `json:"opponent_name,omitempty"`
}
