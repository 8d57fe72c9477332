package hub

import (
	"context"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/DoyleJ11/league-auction-backend/internal/lobby"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

// CreateLobby replies nil when Code is already taken.
type CreateLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// EnsureLobby returns the running lobby for Code, resuming it from the
// store when it is not in memory yet.
type EnsureLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type ShutdownHub struct {
	Reply chan []<-chan struct{}
}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// StoreFactory returns the durable store for one lobby, or nil for none.
type StoreFactory func(code string) lobby.Store

type Config struct {
	Engine         *engine.Engine
	Stores         StoreFactory
	Archive        lobby.Archiver
	Publisher      lobby.Publisher
	Logger         *zap.Logger
	PersistTimeout time.Duration
}

type Hub struct {
	cfg     Config
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		cfg:     cfg,
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if h.lobbies[msg.Code] != nil {
					msg.Reply <- nil
					break
				}
				msg.Reply <- h.open(msg.Code)

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					msg.Reply <- lb
					break
				}
				msg.Reply <- h.open(msg.Code)

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					stop(lb)
					delete(h.lobbies, msg.Code)
				}

			case ShutdownHub:
				msg.Reply <- h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

// open never touches the store; the new lobby loads on its own goroutine.
func (h *Hub) open(code string) *lobby.Lobby {
	var st lobby.Store
	if h.cfg.Stores != nil {
		st = h.cfg.Stores(code)
	}
	lb := lobby.New(h.ctx, lobby.Config{
		Code:           code,
		Engine:         h.cfg.Engine,
		Store:          st,
		Archive:        h.cfg.Archive,
		Publisher:      h.cfg.Publisher,
		Logger:         h.cfg.Logger,
		PersistTimeout: h.cfg.PersistTimeout,
	})
	h.lobbies[code] = lb
	h.cfg.Logger.Info("lobby opened", zap.String("lobby", code))
	return lb
}

// saved runs on the caller's goroutine so a slow store stalls only that
// request, never the hub loop.
func (h *Hub) saved(code string) bool {
	if h.cfg.Stores == nil {
		return false
	}
	st := h.cfg.Stores(code)
	if st == nil {
		return false
	}
	timeout := h.cfg.PersistTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(h.ctx, timeout)
	defer cancel()
	_, ok, err := st.Load(ctx)
	if err != nil {
		h.cfg.Logger.Warn("look up saved lobby failed", zap.String("lobby", code), zap.Error(err))
	}
	return ok
}

func (h *Hub) shutdown() []<-chan struct{} {
	done := make([]<-chan struct{}, 0, len(h.lobbies))
	for _, lb := range h.lobbies {
		stop(lb)
		done = append(done, lb.Done())
	}
	clear(h.lobbies)
	return done
}

func stop(lb *lobby.Lobby) {
	select {
	case lb.Inbox() <- lobby.Shutdown{}:
	case <-lb.Done():
	}
}

// ask sends one request to the loop and waits for its reply. It returns nil
// once the hub is shut down.
func (h *Hub) ask(msg HubMsg, reply chan *lobby.Lobby) *lobby.Lobby {
	select {
	case h.inbox <- msg:
	case <-h.ctx.Done():
		return nil
	}
	select {
	case lb := <-reply:
		return lb
	case <-h.ctx.Done():
		return nil
	}
}

// Get is a blocking helper around GetLobby.
func (h *Hub) Get(code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	return h.ask(GetLobby{Code: code, Reply: reply}, reply)
}

func (h *Hub) Ensure(code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	return h.ask(EnsureLobby{Code: code, Reply: reply}, reply)
}

// Resume is Ensure restricted to codes that are running or saved. It
// returns nil for a code the store has never seen.
func (h *Hub) Resume(code string) *lobby.Lobby {
	if lb := h.Get(code); lb != nil {
		return lb
	}
	if !h.saved(code) {
		return nil
	}
	return h.Ensure(code)
}

func (h *Hub) Create(code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	return h.ask(CreateLobby{Code: code, Reply: reply}, reply)
}

// Replace forwards an external update to the running lobby for code.
// Lobbies that are not loaded pick the shared state up from the store
// instead. It gives up once the lobby or the hub stops.
func (h *Hub) Replace(code string, s engine.State) {
	lb := h.Get(code)
	if lb == nil {
		return
	}
	select {
	case lb.Inbox() <- lobby.Replace{State: s}:
	case <-lb.Done():
	case <-h.ctx.Done():
	}
}

// Shutdown stops every lobby and waits for their pending writes.
func (h *Hub) Shutdown(ctx context.Context) error {
	reply := make(chan []<-chan struct{}, 1)
	select {
	case h.inbox <- ShutdownHub{Reply: reply}:
	case <-h.ctx.Done():
		return nil
	}
	var done []<-chan struct{}
	select {
	case done = <-reply:
	case <-h.ctx.Done():
		return nil
	}
	for _, d := range done {
		select {
		case <-d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
