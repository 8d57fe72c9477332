package engine

import (
	"fmt"

	"github.com/DoyleJ11/league-auction-backend/internal/shuffle"
)

const (
	TitleEliteRound   = "Elite Players Round"
	TitleNormalRound  = "Normal Players Round"
	TitleSkippedRound = "Skipped Players Round"
)

func eliteStartNotice(n int) *Interstitial {
	return &Interstitial{
		Title:       TitleEliteRound,
		Description: fmt.Sprintf("The auction will begin with %d elite players.", n),
	}
}

func normalStartNotice(n int) *Interstitial {
	return &Interstitial{
		Title:       TitleNormalRound,
		Description: fmt.Sprintf("The auction will begin with %d normal players.", n),
	}
}

func normalRoundNotice() *Interstitial {
	return &Interstitial{
		Title:       TitleNormalRound,
		Description: "All elite players have been auctioned. The normal player list will now begin.",
	}
}

func skippedRoundNotice(n int) *Interstitial {
	return &Interstitial{
		Title:       TitleSkippedRound,
		Description: fmt.Sprintf("All players have been auctioned. Re-auctioning %d previously skipped players.", n),
	}
}

// settle runs round handling when the queue sits on a boundary.
func (e *Engine) settle(s *State) []Event {
	if !s.isRoundBoundary() {
		return nil
	}
	clearLedger(s)
	return e.advanceRound(s)
}

// advanceRound picks the next round from the current mode and queue:
//
//	Elite, normal players left          -> Normal, same queue
//	Elite/Normal, empty, skips pending  -> Reauction over shuffled skips
//	Elite/Normal, empty, no skips       -> summary
//	Reauction, empty                    -> summary
func (e *Engine) advanceRound(s *State) []Event {
	switch {
	case s.Mode == ModeElite && len(s.Queue) > 0:
		s.Mode = ModeNormal
		s.Interstitial = normalRoundNotice()
		return []Event{{Type: EvtRoundStarted, Mode: ModeNormal, Count: len(s.Queue)}}

	case s.Mode != ModeReauction && len(s.PendingSkips) > 0:
		n := len(s.PendingSkips)
		s.Queue = shuffle.Slice(e.shuffler, s.PendingSkips)
		s.PendingSkips = nil
		s.Mode = ModeReauction
		s.Interstitial = skippedRoundNotice(n)
		return []Event{{Type: EvtRoundStarted, Mode: ModeReauction, Count: n}}

	default:
		s.Stage = StageSummary
		s.Queue = nil
		s.PendingSkips = nil
		s.Interstitial = nil
		return []Event{{Type: EvtAuctionCompleted}}
	}
}
