package lobby

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/truco-backend/internal/engine"
)

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	ClientID string
	Action   engine.Action
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Snapshot is what a client receives. Err is set only on the copy sent back to the client
// whose action was rejected; State is then the unchanged current state.
type Snapshot struct {
	Version int
	State   engine.State
	Events  []engine.Event
	Err     error
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// Applier is the engine surface a lobby drives.
type Applier interface {
	Apply(s engine.State, a engine.Action) ([]engine.Event, engine.State, error)
}

// CompleteFunc is called once, off the lobby goroutine, when the match reaches game_end.
type CompleteFunc func(final engine.State)

type Option func(*Lobby)

func WithEngine(a Applier) Option { return func(l *Lobby) { l.engine = a } }

func WithLogger(log *zap.Logger) Option { return func(l *Lobby) { l.log = log } }

func OnComplete(f CompleteFunc) Option { return func(l *Lobby) { l.onComplete = f } }

// Lobby owns one match. Every action goes through the inbox and is applied in arrival order.
type Lobby struct {
	inbox      chan Msg
	engine     Applier
	state      engine.State
	version    int
	clients    map[string]chan Snapshot
	onComplete CompleteFunc
	completed  bool
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewLobby(parent context.Context, initial engine.State, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:   make(chan Msg, 64), // Small buffer
		engine:  engine.New(),
		state:   initial,
		version: 0,
		clients: make(map[string]chan Snapshot),
		log:     zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(zap.String("room_id", initial.RoomID), zap.String("game_id", initial.ID))

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				l.send(msg.ClientID, msg.Outbox, Snapshot{Version: l.version, State: l.state})

			case Leave:
				delete(l.clients, msg.ClientID)

			case FromClient:
				l.handleAction(msg)

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state.Clone(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handleAction(msg FromClient) {
	events, next, err := l.engine.Apply(l.state, msg.Action)
	if err != nil {
		l.log.Debug("action rejected",
			zap.String("client_id", msg.ClientID),
			zap.String("user_id", msg.Action.Actor()),
			zap.String("action", string(msg.Action.Type())),
			zap.Error(err))
		if ch, ok := l.clients[msg.ClientID]; ok {
			l.send(msg.ClientID, ch, Snapshot{Version: l.version, State: l.state, Err: err})
		}
		return
	}

	l.state = next
	l.version++
	l.broadcast(Snapshot{Version: l.version, State: l.state, Events: events})

	if l.state.Phase == engine.PhaseGameEnd && !l.completed {
		l.completed = true
		l.log.Info("match finished",
			zap.Int("score_a", l.state.Score(engine.TeamA)),
			zap.Int("score_b", l.state.Score(engine.TeamB)),
			zap.Int("hands", l.state.HandNumber))
		if l.onComplete != nil {
			go l.onComplete(l.state)
		}
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		l.send(id, ch, snap)
	}
}

func (l *Lobby) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		//ok
	default:
		// Client is slow/full - drop them.
		l.log.Warn("dropping slow client", zap.String("client_id", id))
		close(ch)
		delete(l.clients, id)
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }
