// Package replication shares full auction states between instances that use
// the same durable store. Receivers replace their state wholesale.
package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type Envelope struct {
	Origin string       `json:"origin"`
	Code   string       `json:"code"`
	At     time.Time    `json:"at"`
	State  engine.State `json:"state"`
}

// Handler receives states published by other instances.
type Handler func(code string, s engine.State)

type NATS struct {
	nc      *nats.Conn
	subject string
	origin  string
	clock   clockwork.Clock
	log     *zap.Logger
}

func Connect(url, subject string, log *zap.Logger) (*NATS, error) {
	opts := []nats.Option{
		nats.Name("league-auction"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newNATS(nc, subject, log, clockwork.NewRealClock()), nil
}

func newNATS(nc *nats.Conn, subject string, log *zap.Logger, clock clockwork.Clock) *NATS {
	return &NATS{
		nc:      nc,
		subject: strings.TrimSuffix(subject, "."),
		origin:  uuid.NewString(),
		clock:   clock,
		log:     log,
	}
}

func (n *NATS) Origin() string { return n.origin }

func (n *NATS) Publish(_ context.Context, code string, s engine.State) error {
	data, err := n.encode(code, s)
	if err != nil {
		return err
	}
	if err := n.nc.Publish(n.subject+"."+code, data); err != nil {
		return fmt.Errorf("publish %s: %w", code, err)
	}
	return nil
}

func (n *NATS) Subscribe(h Handler) (*nats.Subscription, error) {
	sub, err := n.nc.Subscribe(n.subject+".*", func(msg *nats.Msg) {
		n.handle(msg.Data, h)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", n.subject, err)
	}
	return sub, nil
}

func (n *NATS) encode(code string, s engine.State) ([]byte, error) {
	data, err := json.Marshal(Envelope{Origin: n.origin, Code: code, At: n.clock.Now().UTC(), State: s})
	if err != nil {
		return nil, fmt.Errorf("encode state for %s: %w", code, err)
	}
	return data, nil
}

// handle drops our own echoes and undecodable payloads.
func (n *NATS) handle(data []byte, h Handler) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		n.log.Warn("drop replication message", zap.Error(err))
		return
	}
	if env.Origin == n.origin || env.Code == "" {
		return
	}
	h(env.Code, env.State)
}

// Close drains the subscription and the connection.
func (n *NATS) Close() error {
	if n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}
