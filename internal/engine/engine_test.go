package engine

import (
	"errors"
	"testing"
)

func seatedState(t *testing.T) State {
	t.Helper()
	s := NewState("p1", "Alice")
	_, s, err := Apply(s, Command{Type: CmdBindGuest, PlayerID: "p2", Name: "Bob"})
	if err != nil {
		t.Fatalf("bind guest: %v", err)
	}
	return s
}

func playingState(t *testing.T, hostWord, guestWord string) State {
	t.Helper()
	s := seatedState(t)
	var err error
	_, s, err = Apply(s, Command{Type: CmdSubmitWord, PlayerID: "p1", Word: hostWord})
	if err != nil {
		t.Fatalf("host submit: %v", err)
	}
	_, s, err = Apply(s, Command{Type: CmdSubmitWord, PlayerID: "p2", Word: guestWord})
	if err != nil {
		t.Fatalf("guest submit: %v", err)
	}
	return s
}

func guess(t *testing.T, s State, playerID string, letter rune) ([]Event, State) {
	t.Helper()
	events, ns, err := Apply(s, Command{Type: CmdGuessLetter, PlayerID: playerID, Letter: letter})
	if err != nil {
		t.Fatalf("guess %q by %s: %v", letter, playerID, err)
	}
	return events, ns
}

func TestSubmitWord_PhaseTransitions(t *testing.T) {
	s := seatedState(t)
	if s.Phase != PhaseWaiting {
		t.Fatalf("want waiting after join, got %v", s.Phase)
	}

	events, s, err := Apply(s, Command{Type: CmdSubmitWord, PlayerID: "p1", Word: "cat"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Phase != PhaseReady {
		t.Fatalf("one word in: want ready, got %v", s.Phase)
	}
	if ContainsEvent(events, EvtGameStarted) {
		t.Fatalf("game must not start with one word")
	}

	events, s, err = Apply(s, Command{Type: CmdSubmitWord, PlayerID: "p2", Word: "dog"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Phase != PhasePlaying {
		t.Fatalf("both words in: want playing, got %v", s.Phase)
	}
	if !ContainsEvent(events, EvtGameStarted) {
		t.Fatalf("expected EvtGameStarted")
	}
	if s.Host.Board.AttemptsLeft != MaxAttempts || s.Guest.Board.AttemptsLeft != MaxAttempts {
		t.Fatalf("attempts not reset: host=%d guest=%d", s.Host.Board.AttemptsLeft, s.Guest.Board.AttemptsLeft)
	}
}

func TestSubmitWord_Rejections(t *testing.T) {
	ready := seatedState(t)
	_, ready, _ = Apply(ready, Command{Type: CmdSubmitWord, PlayerID: "p1", Word: "cat"})

	cases := []struct {
		name    string
		state   State
		cmd     Command
		wantErr error
	}{
		{
			name:    "second submit from same player",
			state:   ready,
			cmd:     Command{Type: CmdSubmitWord, PlayerID: "p1", Word: "dog"},
			wantErr: ErrAlreadySubmitted,
		},
		{
			name:    "unknown player",
			state:   ready,
			cmd:     Command{Type: CmdSubmitWord, PlayerID: "nobody", Word: "dog"},
			wantErr: ErrUnknownPlayer,
		},
		{
			name:    "empty word",
			state:   seatedState(t),
			cmd:     Command{Type: CmdSubmitWord, PlayerID: "p2", Word: "   "},
			wantErr: ErrEmptyWord,
		},
		{
			name:    "non-alphabetic word",
			state:   seatedState(t),
			cmd:     Command{Type: CmdSubmitWord, PlayerID: "p2", Word: "c4t"},
			wantErr: ErrBadLetter,
		},
		{
			name:    "submit while playing",
			state:   playingState(t, "cat", "dog"),
			cmd:     Command{Type: CmdSubmitWord, PlayerID: "p1", Word: "owl"},
			wantErr: ErrInvalidState,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ns, err := Apply(tc.state, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if ns.Phase != tc.state.Phase {
				t.Fatalf("rejected command changed phase: %v -> %v", tc.state.Phase, ns.Phase)
			}
		})
	}
}

func TestBindGuest_FullLobbyRejected(t *testing.T) {
	s := seatedState(t)
	_, _, err := Apply(s, Command{Type: CmdBindGuest, PlayerID: "p3", Name: "Carol"})
	if !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("want ErrLobbyFull, got %v", err)
	}
}

// A lobby whose host walked out must not advertise a seat nobody can take:
// the next joiner fills the vacated host slot.
func TestBindGuest_RefillsVacatedHostSlot(t *testing.T) {
	s := seatedState(t)
	_, s, err := Apply(s, Command{Type: CmdLeave, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("host leave: %v", err)
	}

	events, s, err := Apply(s, Command{Type: CmdBindGuest, PlayerID: "p3", Name: "Carol"})
	if err != nil {
		t.Fatalf("join after host left: %v", err)
	}
	if !ContainsEvent(events, EvtGuestJoined) {
		t.Fatalf("expected EvtGuestJoined")
	}
	if role, ok := s.RoleOf("p3"); !ok || role != RoleHost {
		t.Fatalf("joiner should take the empty host seat, got role=%v ok=%v", role, ok)
	}
	if s.Host.Name != "Carol" || !s.Guest.Occupied() {
		t.Fatalf("slots wrong after refill: host=%+v guest=%+v", s.Host, s.Guest)
	}

	// Both seats taken again: the next join bounces.
	_, _, err = Apply(s, Command{Type: CmdBindGuest, PlayerID: "p4", Name: "Dave"})
	if !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("want ErrLobbyFull with both seats taken, got %v", err)
	}

	// The refilled pair can play a round.
	_, s, err = Apply(s, Command{Type: CmdSubmitWord, PlayerID: "p3", Word: "owl"})
	if err != nil {
		t.Fatalf("submit after refill: %v", err)
	}
	_, s, err = Apply(s, Command{Type: CmdSubmitWord, PlayerID: "p2", Word: "fox"})
	if err != nil || s.Phase != PhasePlaying {
		t.Fatalf("refilled lobby must reach playing: phase=%v err=%v", s.Phase, err)
	}
}

func TestGuess_BeforePlayingRejected(t *testing.T) {
	s := seatedState(t)
	_, _, err := Apply(s, Command{Type: CmdGuessLetter, PlayerID: "p1", Letter: 'a'})
	if !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("want ErrNotPlaying, got %v", err)
	}
}

func TestGuess_CorrectRevealsAllPositions(t *testing.T) {
	s := playingState(t, "cat", "dodo")

	// Host guesses 'o' against the guest's "dodo": two positions reveal.
	_, s = guess(t, s, "p1", 'o')
	if got := s.Guest.Board.Mask(); got != "_o_o" {
		t.Fatalf("mask: want _o_o, got %q", got)
	}
	if s.Guest.Board.AttemptsLeft != MaxAttempts {
		t.Fatalf("correct guess burned an attempt")
	}
}

func TestGuess_DuplicateLetterIsIdempotent(t *testing.T) {
	s := playingState(t, "cat", "dog")

	// Wrong guess burns one attempt.
	_, s = guess(t, s, "p1", 'z')
	if s.Guest.Board.AttemptsLeft != MaxAttempts-1 {
		t.Fatalf("want %d attempts, got %d", MaxAttempts-1, s.Guest.Board.AttemptsLeft)
	}

	// The same wrong guess again burns nothing.
	events, s := guess(t, s, "p1", 'z')
	if s.Guest.Board.AttemptsLeft != MaxAttempts-1 {
		t.Fatalf("duplicate wrong guess decremented attempts: %d", s.Guest.Board.AttemptsLeft)
	}
	if !ContainsEvent(events, EvtBoardUpdated) {
		t.Fatalf("duplicate guess should still acknowledge")
	}

	// Duplicate correct guess neither double-reveals nor double-counts.
	_, s = guess(t, s, "p1", 'o')
	before := s.Guest.Board.Mask()
	_, s = guess(t, s, "p1", 'o')
	if got := s.Guest.Board.Mask(); got != before {
		t.Fatalf("duplicate correct guess changed mask: %q -> %q", before, got)
	}
	if got := s.Guest.Board.GuessedString(); got != "zo" {
		t.Fatalf("guessed letters: want zo, got %q", got)
	}
}

func TestGuess_WinEndsRoundAndRevealsBothWords(t *testing.T) {
	s := playingState(t, "cat", "dog")

	// Guest has an unfinished game in flight.
	_, s = guess(t, s, "p2", 'c')

	_, s = guess(t, s, "p1", 'd')
	_, s = guess(t, s, "p1", 'o')
	events, s := guess(t, s, "p1", 'g')

	if !ContainsEvent(events, EvtRoundWon) {
		t.Fatalf("expected EvtRoundWon")
	}
	if !ContainsEvent(events, EvtRoundEnded) {
		t.Fatalf("expected EvtRoundEnded")
	}
	if s.Phase != PhaseEnded {
		t.Fatalf("want ended, got %v", s.Phase)
	}
	// The unfinished side's word is force-revealed too.
	if got := s.Host.Board.Mask(); got != "cat" {
		t.Fatalf("host word not revealed: %q", got)
	}
	if got := s.Guest.Board.Mask(); got != "dog" {
		t.Fatalf("guest word not revealed: %q", got)
	}

	// No further guessing once ended.
	_, _, err := Apply(s, Command{Type: CmdGuessLetter, PlayerID: "p2", Letter: 'a'})
	if !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("want ErrNotPlaying after end, got %v", err)
	}
}

func TestGuess_SixMissesLosesRound(t *testing.T) {
	s := playingState(t, "cat", "dog")

	var events []Event
	for i, letter := range []rune{'q', 'w', 'e', 'r', 'u', 'z'} {
		events, s, _ = Apply(s, Command{Type: CmdGuessLetter, PlayerID: "p1", Letter: letter})
		wantAttempts := MaxAttempts - (i + 1)
		if s.Guest.Board.AttemptsLeft != wantAttempts {
			t.Fatalf("after miss %d: want %d attempts, got %d", i+1, wantAttempts, s.Guest.Board.AttemptsLeft)
		}
	}

	if !ContainsEvent(events, EvtRoundLost) {
		t.Fatalf("expected EvtRoundLost on sixth miss")
	}
	if s.Phase != PhaseEnded {
		t.Fatalf("want ended, got %v", s.Phase)
	}
	if s.Guest.Board.Status != BoardLost {
		t.Fatalf("want lost board, got %v", s.Guest.Board.Status)
	}
}

func endedState(t *testing.T) State {
	t.Helper()
	s := playingState(t, "cat", "dog")
	_, s = guess(t, s, "p1", 'd')
	_, s = guess(t, s, "p1", 'o')
	_, s = guess(t, s, "p1", 'g')
	if s.Phase != PhaseEnded {
		t.Fatalf("setup: want ended, got %v", s.Phase)
	}
	return s
}

func TestRestart_TwoOfTwoGate(t *testing.T) {
	s := endedState(t)

	events, s, err := Apply(s, Command{Type: CmdRequestRestart, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Phase != PhaseEnded {
		t.Fatalf("single restart request flipped phase: %v", s.Phase)
	}
	if !s.Host.RestartRequested {
		t.Fatalf("host restart flag not set")
	}
	if ContainsEvent(events, EvtRoundReset) {
		t.Fatalf("round reset on one-sided request")
	}

	events, s, err = Apply(s, Command{Type: CmdRequestRestart, PlayerID: "p2"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !ContainsEvent(events, EvtRoundReset) {
		t.Fatalf("expected EvtRoundReset on second request")
	}
	if s.Phase != PhaseWaiting {
		t.Fatalf("want waiting after mutual restart, got %v", s.Phase)
	}
	for _, slot := range []Slot{s.Host, s.Guest} {
		if slot.RestartRequested {
			t.Fatalf("restart flag survived reset")
		}
		if slot.Board.HasWord() || len(slot.Board.Guessed) != 0 || slot.Board.AttemptsLeft != MaxAttempts {
			t.Fatalf("round fields not reset: %+v", slot.Board)
		}
	}
}

func TestRestart_OutsideEndedRejected(t *testing.T) {
	s := playingState(t, "cat", "dog")
	_, _, err := Apply(s, Command{Type: CmdRequestRestart, PlayerID: "p1"})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestLeave_ClearsSlotAndEmptiesLobby(t *testing.T) {
	s := playingState(t, "cat", "dog")

	events, s, err := Apply(s, Command{Type: CmdLeave, PlayerID: "p2"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Guest.Occupied() {
		t.Fatalf("guest slot not cleared")
	}
	if !s.Host.Occupied() {
		t.Fatalf("host slot must survive opponent leaving")
	}
	if s.Phase != PhaseWaiting {
		t.Fatalf("want waiting after leave, got %v", s.Phase)
	}
	if ContainsEvent(events, EvtLobbyEmptied) {
		t.Fatalf("lobby emptied with host still seated")
	}

	events, s, err = Apply(s, Command{Type: CmdLeave, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !ContainsEvent(events, EvtLobbyEmptied) {
		t.Fatalf("expected EvtLobbyEmptied once both slots empty")
	}
}

func TestConnectionFlags(t *testing.T) {
	s := seatedState(t)

	_, s, err := Apply(s, Command{Type: CmdMarkConnected, PlayerID: "p2"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !s.Guest.Connected {
		t.Fatalf("guest not marked connected")
	}

	events, s, err := Apply(s, Command{Type: CmdMarkDisconnected, PlayerID: "p2"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Guest.Connected {
		t.Fatalf("guest still marked connected")
	}
	if !ContainsEvent(events, EvtPlayerDisconnected) {
		t.Fatalf("expected EvtPlayerDisconnected")
	}
	// Disconnect is not a leave: the slot and its board survive.
	if !s.Guest.Occupied() {
		t.Fatalf("disconnect cleared the slot")
	}
}

func TestSetNote_StoresAndValidatesKey(t *testing.T) {
	s := seatedState(t)

	_, s, err := Apply(s, Command{Type: CmdSetNote, PlayerID: "p1", NoteKey: "host_opp", Note: "Ready. Waiting for you..."})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Notes["host_opp"] != "Ready. Waiting for you..." {
		t.Fatalf("note not stored: %+v", s.Notes)
	}

	_, _, err = Apply(s, Command{Type: CmdSetNote, PlayerID: "p1", NoteKey: "bogus", Note: "x"})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand for bad key, got %v", err)
	}
}

// Full round: create, join, submit both, host guesses guest's word to a win,
// round ends with both words revealed.
func TestFullRoundScenario(t *testing.T) {
	s := NewState("alice", "Alice")

	_, s, err := Apply(s, Command{Type: CmdBindGuest, PlayerID: "bob", Name: "Bob"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	_, s, err = Apply(s, Command{Type: CmdSubmitWord, PlayerID: "alice", Word: "cat"})
	if err != nil || s.Phase != PhaseReady {
		t.Fatalf("after Alice submits: phase=%v err=%v", s.Phase, err)
	}

	_, s, err = Apply(s, Command{Type: CmdSubmitWord, PlayerID: "bob", Word: "dog"})
	if err != nil || s.Phase != PhasePlaying {
		t.Fatalf("after Bob submits: phase=%v err=%v", s.Phase, err)
	}

	// Alice guesses 'x' against Bob's "dog": wrong, attempts drop to 5.
	_, s = guess(t, s, "alice", 'x')
	if s.Guest.Board.AttemptsLeft != 5 {
		t.Fatalf("want 5 attempts after miss, got %d", s.Guest.Board.AttemptsLeft)
	}

	_, s = guess(t, s, "alice", 'o')
	if got := s.Guest.Board.Mask(); got != "_o_" {
		t.Fatalf("partial mask: want _o_, got %q", got)
	}

	_, s = guess(t, s, "alice", 'd')
	events, s := guess(t, s, "alice", 'g')

	var won *Event
	for i := range events {
		if events[i].Type == EvtRoundWon {
			won = &events[i]
		}
	}
	if won == nil {
		t.Fatalf("expected a win event")
	}
	if won.Role != RoleHost || won.Word != "dog" {
		t.Fatalf("win event: got %+v", won)
	}
	if s.Phase != PhaseEnded {
		t.Fatalf("want ended, got %v", s.Phase)
	}
	if s.Host.Board.Mask() != "cat" || s.Guest.Board.Mask() != "dog" {
		t.Fatalf("words not revealed: host=%q guest=%q", s.Host.Board.Mask(), s.Guest.Board.Mask())
	}
}
