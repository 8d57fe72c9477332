package archive

import (
	"context"
	"slices"
	"sync"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Recorder writes at most one Record per run token. The token is the
// auction's RunID, never the record's own ID.
type Recorder struct {
	repo  Repository
	clock clockwork.Clock
	newID func() string

	mu   sync.Mutex
	done map[string]bool
}

func NewRecorder(repo Repository, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{
		repo:  repo,
		clock: clock,
		newID: uuid.NewString,
		done:  make(map[string]bool),
	}
}

// Record archives teams for runID. A repeated call for the same run is
// a no-op that reports false.
func (r *Recorder) Record(ctx context.Context, runID string, teams []engine.Team) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done[runID] {
		return false, nil
	}

	snapshot := make([]engine.Team, len(teams))
	for i, t := range teams {
		t.Players = slices.Clone(t.Players)
		snapshot[i] = t
	}

	written, err := r.repo.Append(ctx, Record{
		ID:    r.newID(),
		RunID: runID,
		Date:  r.clock.Now().UTC(),
		Teams: snapshot,
	})
	if err != nil {
		return false, err
	}
	r.done[runID] = true
	return written, nil
}

func (r *Recorder) Repository() Repository { return r.repo }
