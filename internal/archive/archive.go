package archive

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
)

var ErrNotFound = errors.New("archived auction not found")

// Record is the immutable summary of one completed auction run.
type Record struct {
	ID    string        `json:"id"`
	RunID string        `json:"run_id"`
	Date  time.Time     `json:"date"`
	Teams []engine.Team `json:"teams"`
}

type Repository interface {
	// Append stores r unless a record for r.RunID already exists; the bool
	// reports whether a new record was written.
	Append(ctx context.Context, r Record) (bool, error)
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
}
