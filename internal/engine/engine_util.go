package engine

import "slices"

func (e *Engine) NewState() State {
	return State{
		Stage: StageTeamSetup,
		RunID: e.newRunID(),
		Teams: []Team{},
	}
}

// Clone deep-copies everything Apply may touch.
func (s State) Clone() State {
	out := s
	out.Teams = make([]Team, len(s.Teams))
	for i, t := range s.Teams {
		t.Players = slices.Clone(t.Players)
		out.Teams[i] = t
	}
	out.Queue = slices.Clone(s.Queue)
	out.PendingSkips = slices.Clone(s.PendingSkips)
	if s.LastTransaction != nil {
		tx := *s.LastTransaction
		out.LastTransaction = &tx
	}
	if s.Interstitial != nil {
		msg := *s.Interstitial
		out.Interstitial = &msg
	}
	return out
}

func (s *State) team(id int) *Team {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return &s.Teams[i]
		}
	}
	return nil
}

func (s State) TeamByID(id int) (Team, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// Actionable reports whether the operator may bid on Current right now.
func (s State) Actionable() bool {
	return s.Stage == StageAuction && s.Interstitial == nil && len(s.Queue) > 0 && !s.eliteBlockDone()
}

func (t Team) Spent() int64 {
	var total int64
	for _, p := range t.Players {
		total += p.BidAmount
	}
	return total
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
