package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/hub"
	"github.com/DoyleJ11/league-auction-backend/internal/lobby"
	"github.com/DoyleJ11/league-auction-backend/internal/types"
	wire "github.com/DoyleJ11/league-auction-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	writeTimeout = 3 * time.Second
	pingInterval = 30 * time.Second
	outboxSize   = 8
)

type Options struct {
	// AllowedOrigins uses the CORS form ("https://host:port" or "*").
	AllowedOrigins []string
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	patterns := originPatterns(opts.AllowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(r.URL.Query().Get("code"))
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		lb := h.Resume(code)
		if lb == nil {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: patterns})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan lobby.Snapshot, outboxSize)
		clientID := uuid.NewString()
		log := log.With(zap.String("lobby", code), zap.String("client", clientID))

		lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Leave{ClientID: clientID}:
			case <-lb.Done():
			}
		}()

		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// Dropped as too slow, or the lobby stopped.
						conn.Close(websocket.StatusTryAgainLater, "snapshot stream closed")
						return
					}
					if err := write(ctx, conn, toServerMessage(code, snap)); err != nil {
						return
					}
				}
			}
		}()

		go func() {
			t := time.NewTicker(pingInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					pingCtx, pingCancel := context.WithTimeout(ctx, writeTimeout)
					err := conn.Ping(pingCtx)
					pingCancel()
					if err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if !errors.Is(err, context.Canceled) {
						log.Debug("websocket read ended", zap.Error(err))
					}
				}
				return
			}

			var cm wire.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(ctx, conn, wire.ServerMessage{Type: wire.MsgError, Error: "bad json"})
				continue
			}

			cmd, err := types.ToCommand(ctx, cm)
			if err != nil {
				_ = write(ctx, conn, wire.ServerMessage{Type: wire.MsgError, Error: err.Error()})
				continue
			}

			res, err := lb.Do(ctx, cmd)
			if err != nil {
				return
			}
			if res.Err != nil {
				// Only the sender hears about a rejected command.
				_ = write(ctx, conn, wire.ServerMessage{Type: wire.MsgError, Version: res.Version, Error: res.Err.Error()})
			}
		}
	}
}

func toServerMessage(code string, snap lobby.Snapshot) wire.ServerMessage {
	view := types.NewSnapshot(code, snap.Version, snap.State)
	if snap.Warning != "" {
		return wire.ServerMessage{Type: wire.MsgWarning, Version: snap.Version, Snapshot: &view, Warning: snap.Warning}
	}
	return wire.ServerMessage{Type: wire.MsgStateSnapshot, Version: snap.Version, Snapshot: &view}
}

func write(ctx context.Context, conn *websocket.Conn, msg wire.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

// originPatterns maps CORS origins to the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
