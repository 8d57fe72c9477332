// Package types converts between the wire shapes in pkg/types and the
// engine's state and commands.
package types

import (
	"context"
	"fmt"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	wire "github.com/DoyleJ11/league-auction-backend/pkg/types"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks payload struct tags and wraps failures in
// engine.ErrValidation.
func Validate(ctx context.Context, payload any) error {
	if err := validate.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}
	return nil
}

func ToCommand(ctx context.Context, m wire.ClientMessage) (engine.Command, error) {
	if err := Validate(ctx, m); err != nil {
		return engine.Command{}, err
	}

	switch m.Type {
	case wire.MsgSetTeams:
		teams := make([]engine.TeamSetup, len(m.Teams))
		for i, t := range m.Teams {
			teams[i] = engine.TeamSetup{Name: t.Name, Logo: t.Logo, Color: t.Color, Purse: t.Purse}
		}
		return engine.Command{Type: engine.CmdSetTeams, Teams: teams}, nil
	case wire.MsgSetPlayers:
		return engine.Command{
			Type:   engine.CmdSetPlayers,
			Elite:  toPlayers(m.Elite, true),
			Normal: toPlayers(m.Normal, false),
		}, nil
	case wire.MsgAssignPlayer:
		if m.TeamID == nil {
			return engine.Command{}, fmt.Errorf("%w: no team selected", engine.ErrInvalidBid)
		}
		return engine.Command{Type: engine.CmdAssignPlayer, TeamID: *m.TeamID, BidAmount: m.BidAmount}, nil
	case wire.MsgSkipPlayer:
		return engine.Command{Type: engine.CmdSkipPlayer}, nil
	case wire.MsgNextPlayer:
		return engine.Command{Type: engine.CmdNextPlayer}, nil
	case wire.MsgUndoLastAssignment:
		return engine.Command{Type: engine.CmdUndoLastAssignment}, nil
	case wire.MsgClearInterstitial:
		return engine.Command{Type: engine.CmdClearInterstitial}, nil
	case wire.MsgRestartAuction:
		return engine.Command{Type: engine.CmdRestartAuction}, nil
	default:
		return engine.Command{}, fmt.Errorf("%w: %q", engine.ErrUnsupportedCommand, m.Type)
	}
}

func toPlayers(in []wire.PlayerInput, elite bool) []engine.Player {
	out := make([]engine.Player, len(in))
	for i, p := range in {
		out[i] = engine.Player{Name: p.Name, Position: p.Position, PhotoURL: p.PhotoURL, IsElite: elite}
	}
	return out
}

func FromPlayer(p engine.Player) wire.Player {
	return wire.Player{Name: p.Name, Position: p.Position, PhotoURL: p.PhotoURL, IsElite: p.IsElite}
}

func fromQueued(p engine.QueuedPlayer) wire.QueuedPlayer {
	return wire.QueuedPlayer{ID: p.ID, Player: FromPlayer(p.Player)}
}

func fromAssigned(p engine.AssignedPlayer) wire.AssignedPlayer {
	return wire.AssignedPlayer{QueuedPlayer: fromQueued(p.QueuedPlayer), BidAmount: p.BidAmount}
}

func FromTeams(teams []engine.Team) []wire.Team {
	out := make([]wire.Team, len(teams))
	for i, t := range teams {
		players := make([]wire.AssignedPlayer, len(t.Players))
		for j, p := range t.Players {
			players[j] = fromAssigned(p)
		}
		out[i] = wire.Team{
			ID:           t.ID,
			Name:         t.Name,
			Logo:         t.Logo,
			Color:        t.Color,
			InitialPurse: t.InitialPurse,
			Purse:        t.Purse,
			Spent:        t.Spent(),
			Players:      players,
		}
	}
	return out
}

func NewSnapshot(code string, version int, s engine.State) wire.Snapshot {
	snap := wire.Snapshot{
		Code:         code,
		Version:      version,
		RunID:        s.RunID,
		Stage:        string(s.Stage),
		Mode:         string(s.Mode),
		Teams:        FromTeams(s.Teams),
		Actionable:   s.Actionable(),
		Remaining:    len(s.Queue),
		PendingSkips: len(s.PendingSkips),
		CanUndo:      s.LastTransaction != nil,
	}
	if cur, ok := s.Current(); ok {
		q := fromQueued(cur)
		snap.Current = &q
	}
	if tx := s.LastTransaction; tx != nil {
		snap.LastTransaction = &wire.Transaction{TeamID: tx.TeamID, Player: fromAssigned(tx.Player)}
	}
	if msg := s.Interstitial; msg != nil {
		snap.Interstitial = &wire.Interstitial{Title: msg.Title, Description: msg.Description}
	}
	return snap
}
