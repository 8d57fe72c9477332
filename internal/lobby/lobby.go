package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

// FromClient applies Cmd. Reply, when set, must have room for one Result.
type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
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

// Replace swaps in a state produced elsewhere. Last writer wins.
type Replace struct {
	State engine.State
}

func (Replace) isLobbyMsg() {}

type persistWarning struct{ err error }

func (persistWarning) isLobbyMsg() {}

// Snapshot is what clients receive. Warning is set when the snapshot
// carries a non-fatal persistence failure instead of a state change.
type Snapshot struct {
	Version int
	State   engine.State
	Warning string
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Result struct {
	Version int
	State   engine.State
	Events  []engine.Event
	Err     error
}

type Store interface {
	Load(ctx context.Context) (engine.State, bool, error)
	Save(ctx context.Context, s engine.State) error
	Clear(ctx context.Context) error
}

type Archiver interface {
	Record(ctx context.Context, runID string, teams []engine.Team) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, code string, s engine.State) error
}

type Config struct {
	Code           string
	Engine         *engine.Engine
	Store          Store     // optional
	Archive        Archiver  // optional
	Publisher      Publisher // optional
	Logger         *zap.Logger
	PersistTimeout time.Duration
	Clock          clockwork.Clock // schedules archive retries
}

type Lobby struct {
	code    string
	eng     *engine.Engine
	log     *zap.Logger
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	persist *persister
	store   Store
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// New starts the actor, which first loads the session from cfg.Store on
// its own goroutine. A missing or unreadable blob starts a fresh run.
func New(parent context.Context, cfg Config) *Lobby {
	if cfg.Engine == nil {
		cfg.Engine = engine.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(parent)
	log := cfg.Logger.With(zap.String("lobby", cfg.Code))

	l := &Lobby{
		code:    cfg.Code,
		eng:     cfg.Engine,
		log:     log,
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan Snapshot),
		store:   cfg.Store,
		timeout: cfg.PersistTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	l.persist = newPersister(cfg, log, l.warn)

	go l.persist.run(ctx)
	go l.loop()
	return l
}

func (l *Lobby) load() engine.State {
	if l.store == nil {
		return l.eng.NewState()
	}
	loadCtx, cancel := context.WithTimeout(l.ctx, l.timeout)
	defer cancel()

	s, ok, err := l.store.Load(loadCtx)
	switch {
	case err != nil:
		l.log.Warn("load state failed, starting fresh", zap.Error(err))
		return l.eng.NewState()
	case !ok:
		return l.eng.NewState()
	}
	s.Interstitial = nil
	l.log.Info("resumed auction", zap.String("run_id", s.RunID), zap.String("stage", string(s.Stage)))
	return s
}

func (l *Lobby) loop() {
	l.state = l.load()
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = msg.Outbox
				l.send(msg.ClientID, msg.Outbox, Snapshot{Version: l.version, State: l.state})

			case Leave:
				delete(l.clients, msg.ClientID)

			case FromClient:
				res := l.apply(msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- res
				}

			case Replace:
				l.state = msg.State
				l.version++
				l.persist.supersede()
				l.log.Info("state replaced externally", zap.String("run_id", l.state.RunID))
				l.broadcast(Snapshot{Version: l.version, State: l.state})

			case persistWarning:
				l.broadcast(Snapshot{Version: l.version, State: l.state, Warning: msg.err.Error()})

			case GetState:
				msg.Reply <- View{
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

// apply runs cmd against the in-memory state first; persistence is queued
// afterwards and never delays the reply.
func (l *Lobby) apply(cmd engine.Command) Result {
	events, next, err := l.eng.Apply(l.state, cmd)
	if err != nil {
		l.log.Debug("command rejected", zap.String("cmd", string(cmd.Type)), zap.Error(err))
		return Result{Version: l.version, State: l.state, Err: err}
	}
	if len(events) == 0 {
		return Result{Version: l.version, State: l.state}
	}
	l.state = next
	l.version++
	l.broadcast(Snapshot{Version: l.version, State: l.state})

	if engine.ContainsEvent(events, engine.EvtAuctionRestarted) {
		l.persist.clear(l.state)
	} else {
		l.persist.save(l.state)
	}
	if engine.ContainsEvent(events, engine.EvtAuctionCompleted) {
		l.log.Info("auction completed", zap.String("run_id", l.state.RunID))
		l.persist.archive(l.state)
	}
	return Result{Version: l.version, State: l.state, Events: events}
}

func (l *Lobby) warn(err error) {
	select {
	case l.inbox <- persistWarning{err: err}:
	case <-l.ctx.Done():
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
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(l.clients, id)
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Code() string { return l.code }

// Done is closed once the lobby has stopped and flushed pending writes.
func (l *Lobby) Done() <-chan struct{} { return l.persist.done }

// Do applies cmd and waits for the outcome.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case l.inbox <- FromClient{Cmd: cmd, Reply: reply}:
	case <-l.ctx.Done():
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case res := <-reply:
		return res, nil
	case <-l.ctx.Done():
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (l *Lobby) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
