package export

import (
	"strings"
	"testing"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sold(name, pos string, bid int64) engine.AssignedPlayer {
	return engine.AssignedPlayer{
		QueuedPlayer: engine.QueuedPlayer{Player: engine.Player{Name: name, Position: pos}},
		BidAmount:    bid,
	}
}

func teams() []engine.Team {
	return []engine.Team{
		{Name: "Lions, FC", InitialPurse: 100, Purse: 70, Players: []engine.AssignedPlayer{sold("Ada", "MID", 30)}},
		{Name: "Bears", InitialPurse: 50, Purse: 50},
	}
}

func TestTeamSummary(t *testing.T) {
	var b strings.Builder
	require.NoError(t, TeamSummary(&b, teams()))

	want := strings.Join([]string{
		"Team Name,Total Spent,Remaining Purse",
		`"Lions, FC",30,70`,
		"Player Name,Bid Amount",
		"Ada,30",
		"",
		"Team Name,Total Spent,Remaining Purse",
		"Bears,0,50",
		"Player Name,Bid Amount",
		"No players bought,0",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, b.String())
}

func TestPlayerSummary(t *testing.T) {
	var b strings.Builder
	require.NoError(t, PlayerSummary(&b, teams()))

	assert.Equal(t, "Player Name,Position,Sold To,Bid Amount\nAda,MID,\"Lions, FC\",30\n", b.String())
}
