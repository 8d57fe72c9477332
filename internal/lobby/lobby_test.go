package lobby

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/DoyleJ11/league-auction-backend/internal/shuffle"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	blob     *engine.State
	loadErr  error
	saveErr  error
	saves    []engine.State
	clears   int
	gate     chan struct{} // Save waits on it when set
	loadGate chan struct{} // Load waits on it when set
}

func (f *fakeStore) Load(context.Context) (engine.State, bool, error) {
	if f.loadGate != nil {
		<-f.loadGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return engine.State{}, false, f.loadErr
	}
	if f.blob == nil {
		return engine.State{}, false, nil
	}
	return *f.blob, true, nil
}

func (f *fakeStore) Save(_ context.Context, s engine.State) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, s)
	f.blob = &s
	return nil
}

func (f *fakeStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.blob = nil
	return nil
}

func (f *fakeStore) saved() []engine.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.State(nil), f.saves...)
}

func (f *fakeStore) stored() *engine.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blob
}

type fakeArchive struct {
	mu       sync.Mutex
	runs     []string
	failures int // Record fails this many times before succeeding
	calls    int
}

func (f *fakeArchive) Record(_ context.Context, runID string, _ []engine.Team) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return false, errors.New("archive unavailable")
	}
	f.runs = append(f.runs, runID)
	return true, nil
}

func (f *fakeArchive) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runs...)
}

type fakePublisher struct {
	mu     sync.Mutex
	states []engine.State
}

func (f *fakePublisher) Publish(_ context.Context, _ string, s engine.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, s)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.states)
}

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func newTestLobby(t *testing.T, cfg Config) *Lobby {
	t.Helper()
	if cfg.Engine == nil {
		cfg.Engine = engine.New(engine.WithShuffler(shuffle.Identity{}))
	}
	if cfg.Code == "" {
		cfg.Code = "ABC123"
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, cfg)
}

func do(t *testing.T, l *Lobby, cmd engine.Command) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := l.Do(ctx, cmd)
	require.NoError(t, err)
	return res
}

var setTeams = engine.Command{Type: engine.CmdSetTeams, Teams: []engine.TeamSetup{{Name: "Lions", Purse: 100}}}

func setPlayers(n int) engine.Command {
	normal := make([]engine.Player, n)
	for i := range normal {
		normal[i] = engine.Player{Name: "P", Position: "MID"}
	}
	return engine.Command{Type: engine.CmdSetPlayers, Normal: normal}
}

func TestLobby_CommandBroadcastsAndSaves(t *testing.T) {
	st := &fakeStore{}
	pub := &fakePublisher{}
	l := newTestLobby(t, Config{Store: st, Publisher: pub})

	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}

	first := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, engine.StageTeamSetup, first.State.Stage)

	res := do(t, l, setTeams)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Version)

	next := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, engine.StagePlayerUpload, next.State.Stage)

	require.Eventually(t, func() bool {
		s := st.stored()
		return s != nil && s.Stage == engine.StagePlayerUpload
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLobby_RejectedCommandKeepsState(t *testing.T) {
	st := &fakeStore{}
	l := newTestLobby(t, Config{Store: st})

	res := do(t, l, engine.Command{Type: engine.CmdSetTeams, Teams: []engine.TeamSetup{{Name: "Lions", Purse: 0}}})
	require.ErrorIs(t, res.Err, engine.ErrValidation)
	assert.Equal(t, 0, res.Version)
	assert.Equal(t, engine.StageTeamSetup, res.State.Stage)

	assert.Never(t, func() bool { return len(st.saved()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestLobby_NoopCommandDoesNotBumpVersion(t *testing.T) {
	l := newTestLobby(t, Config{})

	res := do(t, l, engine.Command{Type: engine.CmdUndoLastAssignment})
	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.Version)
}

func TestLobby_LoadResetsInterstitial(t *testing.T) {
	saved := engine.State{
		Stage:        engine.StageAuction,
		RunID:        "run-1",
		Teams:        []engine.Team{{ID: 0, Name: "Lions", InitialPurse: 100, Purse: 100}},
		Queue:        []engine.QueuedPlayer{{ID: 0, Player: engine.Player{Name: "A"}}},
		Mode:         engine.ModeNormal,
		Interstitial: &engine.Interstitial{Title: "Normal Players Round"},
	}
	l := newTestLobby(t, Config{Store: &fakeStore{blob: &saved}})

	v, err := l.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", v.State.RunID)
	assert.Equal(t, engine.StageAuction, v.State.Stage)
	assert.Nil(t, v.State.Interstitial)
}

func TestLobby_LoadFailureStartsFresh(t *testing.T) {
	l := newTestLobby(t, Config{Store: &fakeStore{loadErr: errors.New("corrupt")}})

	v, err := l.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.StageTeamSetup, v.State.Stage)
	assert.NotEmpty(t, v.State.RunID)
}

func TestLobby_DropSlowClient(t *testing.T) {
	l := newTestLobby(t, Config{})

	clientOut := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}
	do(t, l, setTeams)

	v, err := l.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, v.NumClients, "expected slow client to be dropped")
}

func TestLobby_RestartClearsStore(t *testing.T) {
	st := &fakeStore{}
	l := newTestLobby(t, Config{Store: st})

	first := do(t, l, setTeams)
	require.Eventually(t, func() bool { return st.stored() != nil }, time.Second, 5*time.Millisecond)

	res := do(t, l, engine.Command{Type: engine.CmdRestartAuction})
	require.NoError(t, res.Err)
	assert.Equal(t, engine.StageTeamSetup, res.State.Stage)
	assert.NotEqual(t, first.State.RunID, res.State.RunID)

	require.Eventually(t, func() bool {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.clears == 1 && st.blob == nil
	}, time.Second, 5*time.Millisecond)
}

func TestLobby_ArchivesOncePerRun(t *testing.T) {
	arch := &fakeArchive{}
	l := newTestLobby(t, Config{Archive: arch})

	do(t, l, setTeams)
	do(t, l, setPlayers(1))
	do(t, l, engine.Command{Type: engine.CmdAssignPlayer, TeamID: 0, BidAmount: 10})
	res := do(t, l, engine.Command{Type: engine.CmdNextPlayer})
	require.Equal(t, engine.StageSummary, res.State.Stage)

	require.Eventually(t, func() bool { return len(arch.recorded()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, res.State.RunID, arch.recorded()[0])

	// Further commands in summary change nothing and archive nothing.
	do(t, l, engine.Command{Type: engine.CmdNextPlayer})
	assert.Never(t, func() bool { return len(arch.recorded()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestLobby_FailedArchiveRetriesWithBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	arch := &fakeArchive{failures: 2}
	l := newTestLobby(t, Config{Archive: arch, Clock: clock})

	do(t, l, setTeams)
	do(t, l, setPlayers(1))
	do(t, l, engine.Command{Type: engine.CmdAssignPlayer, TeamID: 0, BidAmount: 10})
	res := do(t, l, engine.Command{Type: engine.CmdNextPlayer})
	require.Equal(t, engine.StageSummary, res.State.Stage)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "first failure arms a retry")
	clock.Advance(time.Second)

	require.NoError(t, clock.BlockUntilContext(ctx, 1), "second failure arms a longer retry")
	clock.Advance(time.Second)
	assert.Never(t, func() bool { return len(arch.recorded()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(arch.recorded()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, res.State.RunID, arch.recorded()[0])
}

func TestLobby_LoadRunsOffTheCaller(t *testing.T) {
	saved := engine.State{Stage: engine.StagePlayerUpload, RunID: "run-1"}
	st := &fakeStore{blob: &saved, loadGate: make(chan struct{})}

	l := newTestLobby(t, Config{Store: st})
	close(st.loadGate)

	v, err := l.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", v.State.RunID)
}

func TestLobby_SaveFailureBroadcastsWarning(t *testing.T) {
	st := &fakeStore{saveErr: errors.New("disk full")}
	l := newTestLobby(t, Config{Store: st})

	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	recvSnapshot(t, out, 100*time.Millisecond)

	res := do(t, l, setTeams)
	require.NoError(t, res.Err)
	recvSnapshot(t, out, 100*time.Millisecond)

	warn := recvSnapshot(t, out, time.Second)
	assert.Contains(t, warn.Warning, "disk full")
	assert.Equal(t, engine.StagePlayerUpload, warn.State.Stage)
}

func TestLobby_SlowStoreNeverBlocksCommands(t *testing.T) {
	st := &fakeStore{gate: make(chan struct{})}
	l := newTestLobby(t, Config{Store: st})

	do(t, l, setTeams)
	do(t, l, setPlayers(5))
	var last Result
	for range 4 {
		last = do(t, l, engine.Command{Type: engine.CmdSkipPlayer})
		require.NoError(t, last.Err)
	}

	close(st.gate)
	require.Eventually(t, func() bool {
		s := st.stored()
		return s != nil && len(s.PendingSkips) == 4
	}, time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, len(st.saved()), 2)
	assert.Equal(t, last.State.Queue, st.stored().Queue)
}

func TestLobby_ReplaceIsBroadcastNotPersisted(t *testing.T) {
	st := &fakeStore{}
	pub := &fakePublisher{}
	l := newTestLobby(t, Config{Store: st, Publisher: pub})

	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	recvSnapshot(t, out, 100*time.Millisecond)

	remote := engine.State{Stage: engine.StagePlayerUpload, RunID: "remote", Teams: []engine.Team{{Name: "Remote"}}}
	l.Inbox() <- Replace{State: remote}

	snap := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, "remote", snap.State.RunID)

	assert.Never(t, func() bool { return len(st.saved()) > 0 || pub.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestLobby_ShutdownClosesClientsAndFlushes(t *testing.T) {
	st := &fakeStore{}
	l := newTestLobby(t, Config{Store: st})

	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	recvSnapshot(t, out, 100*time.Millisecond)

	do(t, l, setTeams)
	l.Inbox() <- Shutdown{}

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop")
	}
	require.NotNil(t, st.stored())
	assert.Equal(t, engine.StagePlayerUpload, st.stored().Stage)

	for range out {
	}
	_, err := l.Do(context.Background(), setTeams)
	assert.ErrorIs(t, err, ErrClosed)
}
