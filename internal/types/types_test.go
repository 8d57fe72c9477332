package types

import (
	"context"
	"testing"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	wire "github.com/DoyleJ11/league-auction-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestToCommand(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		msg     wire.ClientMessage
		want    engine.Command
		wantErr error
	}{
		{
			name: "set teams",
			msg:  wire.ClientMessage{Type: wire.MsgSetTeams, Teams: []wire.TeamInput{{Name: "Lions", Color: "#ff0000", Purse: 100}}},
			want: engine.Command{Type: engine.CmdSetTeams, Teams: []engine.TeamSetup{{Name: "Lions", Color: "#ff0000", Purse: 100}}},
		},
		{
			name:    "team purse must be positive",
			msg:     wire.ClientMessage{Type: wire.MsgSetTeams, Teams: []wire.TeamInput{{Name: "Lions", Purse: 0}}},
			wantErr: engine.ErrValidation,
		},
		{
			name:    "bad color",
			msg:     wire.ClientMessage{Type: wire.MsgSetTeams, Teams: []wire.TeamInput{{Name: "Lions", Color: "blue", Purse: 5}}},
			wantErr: engine.ErrValidation,
		},
		{
			name: "set players marks elite",
			msg: wire.ClientMessage{
				Type:   wire.MsgSetPlayers,
				Elite:  []wire.PlayerInput{{Name: "A", Position: "MID"}},
				Normal: []wire.PlayerInput{{Name: "B", Position: "TOP"}},
			},
			want: engine.Command{
				Type:   engine.CmdSetPlayers,
				Elite:  []engine.Player{{Name: "A", Position: "MID", IsElite: true}},
				Normal: []engine.Player{{Name: "B", Position: "TOP"}},
			},
		},
		{
			name: "set players passes blank fields through",
			msg:  wire.ClientMessage{Type: wire.MsgSetPlayers, Normal: []wire.PlayerInput{{Name: "C"}}},
			want: engine.Command{Type: engine.CmdSetPlayers, Elite: []engine.Player{}, Normal: []engine.Player{{Name: "C"}}},
		},
		{
			name: "assign team zero",
			msg:  wire.ClientMessage{Type: wire.MsgAssignPlayer, TeamID: intp(0), BidAmount: 12},
			want: engine.Command{Type: engine.CmdAssignPlayer, TeamID: 0, BidAmount: 12},
		},
		{
			name:    "assign without team",
			msg:     wire.ClientMessage{Type: wire.MsgAssignPlayer, BidAmount: 12},
			wantErr: engine.ErrInvalidBid,
		},
		{
			name: "continue",
			msg:  wire.ClientMessage{Type: wire.MsgClearInterstitial},
			want: engine.Command{Type: engine.CmdClearInterstitial},
		},
		{
			name:    "unknown",
			msg:     wire.ClientMessage{Type: "LockPick"},
			wantErr: engine.ErrUnsupportedCommand,
		},
		{
			name:    "missing type",
			msg:     wire.ClientMessage{},
			wantErr: engine.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToCommand(ctx, tt.msg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSnapshot(t *testing.T) {
	s := engine.State{
		Stage: engine.StageAuction,
		RunID: "run-1",
		Mode:  engine.ModeElite,
		Teams: []engine.Team{{
			ID: 0, Name: "Lions", InitialPurse: 100, Purse: 70,
			Players: []engine.AssignedPlayer{{QueuedPlayer: engine.QueuedPlayer{ID: 0, Player: engine.Player{Name: "A"}}, BidAmount: 30}},
		}},
		Queue:           []engine.QueuedPlayer{{ID: 1, Player: engine.Player{Name: "B", IsElite: true}}},
		PendingSkips:    []engine.QueuedPlayer{{ID: 2}},
		LastTransaction: &engine.Transaction{TeamID: 0, Player: engine.AssignedPlayer{QueuedPlayer: engine.QueuedPlayer{ID: 0}, BidAmount: 30}},
		Interstitial:    &engine.Interstitial{Title: "Elite Players Round"},
	}

	snap := NewSnapshot("ABC123", 7, s)

	assert.Equal(t, "ABC123", snap.Code)
	assert.Equal(t, 7, snap.Version)
	assert.Equal(t, "auction", snap.Stage)
	assert.Equal(t, "elite", snap.Mode)
	require.NotNil(t, snap.Current)
	assert.Equal(t, 1, snap.Current.ID)
	assert.False(t, snap.Actionable, "interstitial hides the current player")
	assert.Equal(t, 1, snap.Remaining)
	assert.Equal(t, 1, snap.PendingSkips)
	assert.True(t, snap.CanUndo)
	assert.EqualValues(t, 30, snap.Teams[0].Spent)
	require.NotNil(t, snap.Interstitial)
	assert.Equal(t, "Elite Players Round", snap.Interstitial.Title)

	s.Interstitial = nil
	assert.True(t, NewSnapshot("ABC123", 8, s).Actionable)
}
