package engine

import (
	"fmt"
	"slices"
)

// assign charges team for player and fills the single undo slot, replacing
// whatever was there.
func assign(s *State, team *Team, bid int64, player QueuedPlayer) (AssignedPlayer, error) {
	if bid <= 0 {
		return AssignedPlayer{}, fmt.Errorf("%w: bid amount must be positive, got %d", ErrInvalidBid, bid)
	}
	if bid > team.Purse {
		return AssignedPlayer{}, fmt.Errorf("%w: %s has %d left, bid was %d", ErrInvalidBid, team.Name, team.Purse, bid)
	}

	sold := AssignedPlayer{QueuedPlayer: player, BidAmount: bid}
	team.Purse -= bid
	team.Players = append(team.Players, sold)
	s.LastTransaction = &Transaction{TeamID: team.ID, Player: sold}
	return sold, nil
}

// undo reverts the pending transaction and puts the player back at the front.
func undo(s *State) (Transaction, error) {
	if s.LastTransaction == nil {
		return Transaction{}, ErrNothingToUndo
	}
	tx := *s.LastTransaction

	team := s.team(tx.TeamID)
	if team == nil {
		return Transaction{}, fmt.Errorf("%w: id %d in pending transaction", ErrUnknownTeam, tx.TeamID)
	}
	idx := slices.IndexFunc(team.Players, func(p AssignedPlayer) bool { return p.ID == tx.Player.ID })
	if idx >= 0 {
		team.Players = slices.Delete(team.Players, idx, idx+1)
		team.Purse += tx.Player.BidAmount
	}

	s.pushFront(tx.Player.QueuedPlayer)
	s.LastTransaction = nil
	return tx, nil
}

func clearLedger(s *State) {
	s.LastTransaction = nil
}
