package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
)

var ErrCorrupt = errors.New("stored auction state is unreadable")

// Backend keeps opaque blobs by key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}

// StateStore persists one auction's state under a fixed key.
type StateStore struct {
	backend Backend
	key     string
}

func New(backend Backend, key string) *StateStore {
	return &StateStore{backend: backend, key: key}
}

func (s *StateStore) Load(ctx context.Context) (engine.State, bool, error) {
	blob, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return engine.State{}, false, fmt.Errorf("load %s: %w", s.key, err)
	}
	if !ok {
		return engine.State{}, false, nil
	}

	var st engine.State
	if err := json.Unmarshal(blob, &st); err != nil {
		return engine.State{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.key, err)
	}
	if st.Stage == "" {
		return engine.State{}, false, fmt.Errorf("%w: %s: missing stage", ErrCorrupt, s.key)
	}
	return st, true, nil
}

func (s *StateStore) Save(ctx context.Context, st engine.State) error {
	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	if err := s.backend.Put(ctx, s.key, blob); err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	return nil
}

func (s *StateStore) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear %s: %w", s.key, err)
	}
	return nil
}
