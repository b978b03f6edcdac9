package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wordduel/word-duel-backend/internal/archive"
	"github.com/wordduel/word-duel-backend/internal/engine"
	"github.com/wordduel/word-duel-backend/internal/types"
)

// ErrLobbyClosed answers messages that reach a lobby after it has shut down.
// Callers holding a stale pointer must also select on Done so a message that
// arrives after the final drain cannot strand them.
var ErrLobbyClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

// Attach registers a live connection for a seated player. The reply carries
// engine.ErrUnknownPlayer when the id belongs to neither slot, so a stray
// connection fails fast instead of waiting.
type Attach struct {
	PlayerID string
	Outbox   chan types.ServerEvent
	Reply    chan error
}

func (Attach) isLobbyMsg() {}

// Detach reports a lost connection. Outbox identifies the connection so a
// reconnect racing the old connection's teardown is not knocked back offline.
type Detach struct {
	PlayerID string
	Outbox   chan types.ServerEvent
}

func (Detach) isLobbyMsg() {}

// FromClient is a command arriving over a live connection. Rejections are
// reported back on the sender's outbox as an error frame.
type FromClient struct {
	PlayerID string
	Cmd      engine.Command
}

func (FromClient) isLobbyMsg() {}

// Do is a command from an HTTP caller (join, leave) that wants a synchronous
// verdict.
type Do struct {
	Cmd   engine.Command
	Reply chan error
}

func (Do) isLobbyMsg() {}

// GetView asks for the reconciliation snapshot scoped to one player.
type GetView struct {
	PlayerID string
	Reply    chan ViewReply
}

func (GetView) isLobbyMsg() {}

type ViewReply struct {
	Snapshot types.Snapshot
	Err      error
}

// GetInfo asks for the listing summary.
type GetInfo struct{ Reply chan Info }

func (GetInfo) isLobbyMsg() {}

type Info struct {
	Code    string
	Name    string
	Players int
}

// GetState reflects internal state without data races; test-only.
type GetState struct{ Reply chan StateView }

func (GetState) isLobbyMsg() {}

type StateView struct {
	Version    int
	NumClients int
	State      engine.State
}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

// Lobby is the authoritative serialization point for one session: a single
// goroutine drains the inbox, so commands from both players apply atomically
// and in arrival order.
type Lobby struct {
	code    string
	name    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan types.ServerEvent
	rec     archive.Recorder
	onEmpty func()
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewLobby starts the actor. onEmpty fires once when both slots have been
// vacated by explicit leaves; rec may be nil.
func NewLobby(parent context.Context, code, name string, initial engine.State, rec archive.Recorder, onEmpty func(), log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		code:    code,
		name:    name,
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]chan types.ServerEvent),
		rec:     rec,
		onEmpty: onEmpty,
		log:     log.With(zap.String("lobby", code)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

// Inbox exposes the message channel to the transport layer and tests.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has shut down. Anyone waiting on a reply
// must select on it; the actor stops reading its inbox when it dies.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) loop() {
	defer l.drain()
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Attach:
				msg.Reply <- l.attach(msg)

			case Detach:
				l.detach(msg)

			case FromClient:
				events, ns, err := engine.Apply(l.state, msg.Cmd)
				if err != nil {
					l.rejectClient(msg.PlayerID, err)
					break
				}
				l.commit(ns, events)

			case Do:
				events, ns, err := engine.Apply(l.state, msg.Cmd)
				msg.Reply <- err
				if err != nil {
					break
				}
				if l.commit(ns, events) {
					return
				}

			case GetView:
				msg.Reply <- l.view(msg.PlayerID)

			case GetInfo:
				players := 0
				if l.state.Host.Occupied() {
					players++
				}
				if l.state.Guest.Occupied() {
					players++
				}
				msg.Reply <- Info{Code: l.code, Name: l.name, Players: players}

			case GetState:
				msg.Reply <- StateView{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) attach(msg Attach) error {
	if _, ok := l.state.RoleOf(msg.PlayerID); !ok {
		return engine.ErrUnknownPlayer
	}
	// A reconnect under the same player id supersedes the old connection.
	if old, ok := l.clients[msg.PlayerID]; ok {
		close(old)
	}
	l.clients[msg.PlayerID] = msg.Outbox

	events, ns, err := engine.Apply(l.state, engine.Command{Type: engine.CmdMarkConnected, PlayerID: msg.PlayerID})
	if err != nil {
		return err
	}
	l.commit(ns, events)
	return nil
}

func (l *Lobby) detach(msg Detach) {
	if cur, ok := l.clients[msg.PlayerID]; ok {
		if cur != msg.Outbox {
			// A newer connection already took the seat; the stale
			// teardown must not mark it offline.
			return
		}
		close(cur)
		delete(l.clients, msg.PlayerID)
	}

	// The player may have left (slot cleared) before the socket died.
	if _, ok := l.state.RoleOf(msg.PlayerID); !ok {
		return
	}
	if !l.state.SlotFor(mustRole(l.state, msg.PlayerID)).Connected {
		return
	}
	events, ns, err := engine.Apply(l.state, engine.Command{Type: engine.CmdMarkDisconnected, PlayerID: msg.PlayerID})
	if err != nil {
		return
	}
	l.commit(ns, events)
}

func mustRole(s engine.State, playerID string) engine.Role {
	role, _ := s.RoleOf(playerID)
	return role
}

// commit installs the new state, bumps the version, fans the events out, and
// runs the side effects a terminal or emptied round triggers. It reports
// whether the lobby shut itself down.
func (l *Lobby) commit(ns engine.State, events []engine.Event) bool {
	l.state = ns
	l.version++
	l.broadcast(events)

	if engine.ContainsEvent(events, engine.EvtRoundEnded) {
		l.record(events)
	}
	if engine.ContainsEvent(events, engine.EvtLobbyEmptied) {
		l.log.Info("lobby emptied, shutting down",
			zap.String("name", l.name),
			zap.Int("version", l.version))
		if l.onEmpty != nil {
			l.onEmpty()
		}
		l.shutdown()
		return true
	}
	return false
}

func (l *Lobby) broadcast(events []engine.Event) {
	for id, ch := range l.clients {
		role, ok := l.state.RoleOf(id)
		if !ok {
			// Seat was cleared by this very command (leave); drop the
			// connection with it.
			close(ch)
			delete(l.clients, id)
			continue
		}
		dropped := false
		for _, evt := range events {
			frame, ok := types.RenderEvent(evt, l.state, role, l.version)
			if !ok {
				continue
			}
			select {
			case ch <- frame:
			default:
				// Client is slow/full - drop them.
				dropped = true
			}
			if dropped {
				break
			}
		}
		if dropped {
			close(ch)
			delete(l.clients, id)
		}
	}
}

func (l *Lobby) rejectClient(playerID string, err error) {
	ch, ok := l.clients[playerID]
	if !ok {
		return
	}
	select {
	case ch <- types.ErrorEvent(err.Error()):
	default:
		close(ch)
		delete(l.clients, playerID)
	}
}

func (l *Lobby) view(playerID string) ViewReply {
	role, ok := l.state.RoleOf(playerID)
	if !ok {
		return ViewReply{Err: engine.ErrUnknownPlayer}
	}
	return ViewReply{Snapshot: types.RenderSnapshot(l.code, l.name, l.state, role, l.version)}
}

func (l *Lobby) record(events []engine.Event) {
	if l.rec == nil {
		return
	}
	m := archive.Match{
		LobbyCode: l.code,
		LobbyName: l.name,
		HostName:  l.state.Host.Name,
		GuestName: l.state.Guest.Name,
		HostWord:  l.state.Host.Board.Word,
		GuestWord: l.state.Guest.Board.Word,
	}
	for _, evt := range events {
		if evt.Type == engine.EvtRoundWon {
			m.Winner = string(evt.Role)
		}
	}

	rec := l.rec
	log := l.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rec.Record(ctx, m); err != nil {
			log.Warn("failed to archive match", zap.Error(err))
		}
	}()
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more frames
		delete(l.clients, id)
	}
	l.cancel()
}

// drain answers whatever piled up in the inbox while the lobby was dying, so
// a caller that raced the shutdown gets a verdict instead of a hang.
func (l *Lobby) drain() {
	for {
		select {
		case m := <-l.inbox:
			switch msg := m.(type) {
			case Attach:
				msg.Reply <- ErrLobbyClosed
			case Do:
				msg.Reply <- ErrLobbyClosed
			case GetView:
				msg.Reply <- ViewReply{Err: ErrLobbyClosed}
			}
		default:
			return
		}
	}
}
