package engine

import (
	"errors"
	"maps"
)

var ErrLobbyFull = errors.New("lobby already full")
var ErrAlreadySubmitted = errors.New("word already submitted")
var ErrNotPlaying = errors.New("round not in progress")
var ErrInvalidState = errors.New("command not legal in current state")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrEmptyWord = errors.New("word must be at least 1 letter")
var ErrBadLetter = errors.New("must be an english letter")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

func (r Role) Opponent() Role {
	if r == RoleHost {
		return RoleGuest
	}
	return RoleHost
}

type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseReady   Phase = "ready"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// Slot is one player's seat: identity plus the board holding the word they
// set for their opponent. The opponent's guessing progress lives on this
// slot's board, not on the guesser's.
type Slot struct {
	PlayerID         string
	Name             string
	Connected        bool
	RestartRequested bool
	Board            Board
}

func (s Slot) Occupied() bool { return s.PlayerID != "" }

type State struct {
	Phase Phase
	Host  Slot
	Guest Slot
	// Notes carries the free-form status lines the clients relay to each
	// other, keyed host|host_opp|guest|guest_opp.
	Notes map[string]string
}

// NewState seats the creator as host. The guest slot stays empty until a
// BindGuest command claims it.
func NewState(hostID, hostName string) State {
	return State{
		Phase: PhaseWaiting,
		Host:  Slot{PlayerID: hostID, Name: hostName, Board: NewEmptyBoard()},
		Guest: Slot{Board: NewEmptyBoard()},
		Notes: map[string]string{},
	}
}

// RoleOf resolves a player id to its seat.
func (s State) RoleOf(playerID string) (Role, bool) {
	switch {
	case s.Host.Occupied() && s.Host.PlayerID == playerID:
		return RoleHost, true
	case s.Guest.Occupied() && s.Guest.PlayerID == playerID:
		return RoleGuest, true
	default:
		return "", false
	}
}

func (s State) SlotFor(role Role) Slot {
	if role == RoleHost {
		return s.Host
	}
	return s.Guest
}

func (s *State) slot(role Role) *Slot {
	if role == RoleHost {
		return &s.Host
	}
	return &s.Guest
}

func (s State) clone() State {
	ns := s
	ns.Host.Board = s.Host.Board.clone()
	ns.Guest.Board = s.Guest.Board.clone()
	ns.Notes = maps.Clone(s.Notes)
	return ns
}

type CommandType string

const (
	CmdBindGuest        CommandType = "BindGuest"
	CmdSubmitWord       CommandType = "SubmitWord"
	CmdGuessLetter      CommandType = "GuessLetter"
	CmdRequestRestart   CommandType = "RequestRestart"
	CmdSetNote          CommandType = "SetNote"
	CmdMarkConnected    CommandType = "MarkConnected"
	CmdMarkDisconnected CommandType = "MarkDisconnected"
	CmdLeave            CommandType = "Leave"
)

type Command struct {
	Type     CommandType
	PlayerID string
	Name     string // BindGuest
	Word     string // SubmitWord
	Letter   rune   // GuessLetter
	NoteKey  string // SetNote
	Note     string // SetNote
}

type EventType string

const (
	EvtGuestJoined        EventType = "GuestJoined"
	EvtWordSubmitted      EventType = "WordSubmitted"
	EvtGameStarted        EventType = "GameStarted"
	EvtBoardUpdated       EventType = "BoardUpdated"
	EvtRoundWon           EventType = "RoundWon"
	EvtRoundLost          EventType = "RoundLost"
	EvtRoundEnded         EventType = "RoundEnded"
	EvtRestartRequested   EventType = "RestartRequested"
	EvtRoundReset         EventType = "RoundReset"
	EvtNoteSet            EventType = "NoteSet"
	EvtPlayerConnected    EventType = "PlayerConnected"
	EvtPlayerDisconnected EventType = "PlayerDisconnected"
	EvtPlayerLeft         EventType = "PlayerLeft"
	EvtLobbyEmptied       EventType = "LobbyEmptied"
)

type Event struct {
	Type    EventType
	Role    Role
	Name    string
	Word    string
	NoteKey string
	Note    string
}

// Apply runs one command against the lobby state and returns the events it
// produced plus the successor state. On error the returned state is the input
// state, unchanged. Apply never blocks; all ordering guarantees come from the
// caller feeding it commands one at a time.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdBindGuest:
		return applyBindGuest(s, cmd)
	case CmdSubmitWord:
		return applySubmitWord(s, cmd)
	case CmdGuessLetter:
		return applyGuessLetter(s, cmd)
	case CmdRequestRestart:
		return applyRequestRestart(s, cmd)
	case CmdSetNote:
		return applySetNote(s, cmd)
	case CmdMarkConnected, CmdMarkDisconnected:
		return applyMarkConnection(s, cmd)
	case CmdLeave:
		return applyLeave(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// applyBindGuest seats a joiner in whichever slot is free. The guest slot is
// the usual one, but a lobby whose host left keeps the host seat bindable so
// the survivor can get a fresh opponent.
func applyBindGuest(s State, cmd Command) ([]Event, State, error) {
	var role Role
	switch {
	case !s.Guest.Occupied():
		role = RoleGuest
	case !s.Host.Occupied():
		role = RoleHost
	default:
		return nil, s, ErrLobbyFull
	}
	ns := s.clone()
	*ns.slot(role) = Slot{PlayerID: cmd.PlayerID, Name: cmd.Name, Board: NewEmptyBoard()}
	return []Event{{Type: EvtGuestJoined, Role: role, Name: cmd.Name}}, ns, nil
}

func applySubmitWord(s State, cmd Command) ([]Event, State, error) {
	role, ok := s.RoleOf(cmd.PlayerID)
	if !ok {
		return nil, s, ErrUnknownPlayer
	}
	if s.Phase != PhaseWaiting && s.Phase != PhaseReady {
		return nil, s, ErrInvalidState
	}
	if s.SlotFor(role).Board.HasWord() {
		return nil, s, ErrAlreadySubmitted
	}

	word, err := NormalizeWord(cmd.Word)
	if err != nil {
		return nil, s, err
	}

	ns := s.clone()
	ns.slot(role).Board = NewBoard(word)

	events := []Event{{Type: EvtWordSubmitted, Role: role}}
	if ns.Host.Board.HasWord() && ns.Guest.Board.HasWord() {
		ns.Phase = PhasePlaying
		events = append(events, Event{Type: EvtGameStarted})
	} else {
		ns.Phase = PhaseReady
	}
	return events, ns, nil
}

func applyGuessLetter(s State, cmd Command) ([]Event, State, error) {
	role, ok := s.RoleOf(cmd.PlayerID)
	if !ok {
		return nil, s, ErrUnknownPlayer
	}
	if s.Phase != PhasePlaying {
		return nil, s, ErrNotPlaying
	}

	letter, err := NormalizeLetter(cmd.Letter)
	if err != nil {
		return nil, s, err
	}

	// The guesser plays against the word on the opponent's board.
	if s.SlotFor(role.Opponent()).Board.Terminal() {
		return nil, s, ErrInvalidState
	}
	if s.SlotFor(role.Opponent()).Board.HasGuessed(letter) {
		// Repeated guesses are idempotent: acknowledge, change nothing.
		return []Event{{Type: EvtBoardUpdated}}, s, nil
	}

	ns := s.clone()
	target := ns.slot(role.Opponent())
	target.Board.Guess(letter)

	events := []Event{{Type: EvtBoardUpdated}}
	switch target.Board.Status {
	case BoardWon:
		events = append(events, Event{Type: EvtRoundWon, Role: role, Word: target.Board.Word})
	case BoardLost:
		events = append(events, Event{Type: EvtRoundLost, Role: role, Word: target.Board.Word})
	}

	// The round ends the moment either guesser finishes; the slower side's
	// word is force-revealed rather than played out.
	if target.Board.Terminal() {
		ns.Host.Board.RevealAll()
		ns.Guest.Board.RevealAll()
		ns.Phase = PhaseEnded
		events = append(events, Event{Type: EvtRoundEnded})
	}
	return events, ns, nil
}

func applyRequestRestart(s State, cmd Command) ([]Event, State, error) {
	role, ok := s.RoleOf(cmd.PlayerID)
	if !ok {
		return nil, s, ErrUnknownPlayer
	}
	if s.Phase != PhaseEnded {
		return nil, s, ErrInvalidState
	}

	ns := s.clone()
	ns.slot(role).RestartRequested = true
	events := []Event{{Type: EvtRestartRequested, Role: role}}

	// Two-of-two gate: only a mutual request resets the round.
	if ns.Host.RestartRequested && ns.Guest.RestartRequested {
		ns.resetRound()
		events = append(events, Event{Type: EvtRoundReset})
	}
	return events, ns, nil
}

func (s *State) resetRound() {
	s.Phase = PhaseWaiting
	s.Host.RestartRequested = false
	s.Guest.RestartRequested = false
	s.Host.Board = NewEmptyBoard()
	s.Guest.Board = NewEmptyBoard()
	s.Notes = map[string]string{}
}

func applySetNote(s State, cmd Command) ([]Event, State, error) {
	if _, ok := s.RoleOf(cmd.PlayerID); !ok {
		return nil, s, ErrUnknownPlayer
	}
	switch cmd.NoteKey {
	case "host", "host_opp", "guest", "guest_opp":
	default:
		return nil, s, ErrUnsupportedCommand
	}
	ns := s.clone()
	ns.Notes[cmd.NoteKey] = cmd.Note
	return []Event{{Type: EvtNoteSet, NoteKey: cmd.NoteKey, Note: cmd.Note}}, ns, nil
}

func applyMarkConnection(s State, cmd Command) ([]Event, State, error) {
	role, ok := s.RoleOf(cmd.PlayerID)
	if !ok {
		return nil, s, ErrUnknownPlayer
	}
	ns := s.clone()
	evt := EvtPlayerConnected
	connected := true
	if cmd.Type == CmdMarkDisconnected {
		evt = EvtPlayerDisconnected
		connected = false
	}
	ns.slot(role).Connected = connected
	return []Event{{Type: evt, Role: role}}, ns, nil
}

func applyLeave(s State, cmd Command) ([]Event, State, error) {
	role, ok := s.RoleOf(cmd.PlayerID)
	if !ok {
		return nil, s, ErrUnknownPlayer
	}

	ns := s.clone()
	*ns.slot(role) = Slot{Board: NewEmptyBoard()}
	// A departure ends any round in flight; whoever stays needs a fresh
	// opponent and a fresh word.
	ns.Phase = PhaseWaiting
	ns.slot(role.Opponent()).RestartRequested = false
	ns.slot(role.Opponent()).Board = NewEmptyBoard()
	ns.Notes = map[string]string{}

	events := []Event{{Type: EvtPlayerLeft, Role: role}}
	if !ns.Host.Occupied() && !ns.Guest.Occupied() {
		events = append(events, Event{Type: EvtLobbyEmptied})
	}
	return events, ns, nil
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
