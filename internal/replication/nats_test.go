package replication

import (
	"testing"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type received struct {
	code  string
	state engine.State
}

func collect(out *[]received) Handler {
	return func(code string, s engine.State) { *out = append(*out, received{code, s}) }
}

func TestHandle_DeliversPeerStates(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	peer := newNATS(nil, "auction.state", zap.NewNop(), clock)
	self := newNATS(nil, "auction.state", zap.NewNop(), clock)

	data, err := peer.encode("ABC123", engine.State{Stage: engine.StageAuction, RunID: "run-9"})
	require.NoError(t, err)

	var got []received
	self.handle(data, collect(&got))

	require.Len(t, got, 1)
	assert.Equal(t, "ABC123", got[0].code)
	assert.Equal(t, "run-9", got[0].state.RunID)
}

func TestHandle_IgnoresOwnEchoAndGarbage(t *testing.T) {
	self := newNATS(nil, "auction.state.", zap.NewNop(), clockwork.NewFakeClock())
	assert.Equal(t, "auction.state", self.subject)

	echo, err := self.encode("ABC123", engine.State{Stage: engine.StageAuction})
	require.NoError(t, err)

	var got []received
	self.handle(echo, collect(&got))
	self.handle([]byte("{not json"), collect(&got))
	self.handle([]byte(`{"origin":"other","code":""}`), collect(&got))

	assert.Empty(t, got)
}

func TestClose_WithoutConnection(t *testing.T) {
	n := newNATS(nil, "auction.state", zap.NewNop(), clockwork.NewFakeClock())
	assert.NoError(t, n.Close())
}
