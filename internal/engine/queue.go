package engine

import "github.com/DoyleJ11/league-auction-backend/internal/shuffle"

// BuildInitialQueue shuffles each pool on its own and numbers the result
// elite first. The mode is Elite when there is any elite player.
func BuildInitialQueue(sh shuffle.Shuffler, elite, normal []Player) ([]QueuedPlayer, RoundMode) {
	queue := make([]QueuedPlayer, 0, len(elite)+len(normal))
	for _, p := range shuffle.Slice(sh, elite) {
		p.IsElite = true
		queue = append(queue, QueuedPlayer{Player: p, ID: len(queue)})
	}
	for _, p := range shuffle.Slice(sh, normal) {
		p.IsElite = false
		queue = append(queue, QueuedPlayer{Player: p, ID: len(queue)})
	}

	mode := ModeNormal
	if len(elite) > 0 {
		mode = ModeElite
	}
	return queue, mode
}

// Current is the player up for bidding. While an interstitial is pending it
// is not actionable even though it is returned.
func (s State) Current() (QueuedPlayer, bool) {
	if len(s.Queue) == 0 {
		return QueuedPlayer{}, false
	}
	return s.Queue[0], true
}

func (s *State) popFront() (QueuedPlayer, error) {
	if len(s.Queue) == 0 {
		return QueuedPlayer{}, ErrEmptyQueue
	}
	p := s.Queue[0]
	s.Queue = s.Queue[1:]
	return p, nil
}

// skipFront parks the front in PendingSkips, or rotates it to the back
// during the re-auction round.
func (s *State) skipFront() (QueuedPlayer, error) {
	p, err := s.popFront()
	if err != nil {
		return QueuedPlayer{}, err
	}
	if s.Mode == ModeReauction {
		s.Queue = append(s.Queue, p)
	} else {
		s.PendingSkips = append(s.PendingSkips, p)
	}
	return p, nil
}

func (s *State) pushFront(p QueuedPlayer) {
	queue := make([]QueuedPlayer, 0, len(s.Queue)+1)
	queue = append(queue, p)
	s.Queue = append(queue, s.Queue...)
}

// isRoundBoundary also reports the elite block running out while normal
// players still sit behind it.
func (s State) isRoundBoundary() bool {
	if len(s.Queue) == 0 {
		return true
	}
	return s.Mode == ModeElite && !s.Queue[0].IsElite
}

// eliteBlockDone reports an elite round whose last player has been sold
// but whose boundary has not been settled yet.
func (s State) eliteBlockDone() bool {
	return s.Mode == ModeElite && len(s.Queue) > 0 && !s.Queue[0].IsElite
}
