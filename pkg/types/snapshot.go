// Package types holds the JSON shapes exchanged with auction clients.
package types

type Player struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	PhotoURL string `json:"photo_url"`
	IsElite  bool   `json:"is_elite"`
}

type QueuedPlayer struct {
	ID int `json:"id"`
	Player
}

type AssignedPlayer struct {
	QueuedPlayer
	BidAmount int64 `json:"bid_amount"`
}

type Team struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Logo         string           `json:"logo"`
	Color        string           `json:"color"`
	InitialPurse int64            `json:"initial_purse"`
	Purse        int64            `json:"purse"`
	Spent        int64            `json:"spent"`
	Players      []AssignedPlayer `json:"players"`
}

type Transaction struct {
	TeamID int            `json:"team_id"`
	Player AssignedPlayer `json:"player"`
}

type Interstitial struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Snapshot is the operator's view of one auction. Current may be set while
// Actionable is false; the UI must wait for the interstitial to clear.
type Snapshot struct {
	Code            string        `json:"code"`
	Version         int           `json:"version"`
	RunID           string        `json:"run_id"`
	Stage           string        `json:"stage"`
	Mode            string        `json:"mode,omitempty"`
	Teams           []Team        `json:"teams"`
	Current         *QueuedPlayer `json:"current,omitempty"`
	Actionable      bool          `json:"actionable"`
	Remaining       int           `json:"remaining"`
	PendingSkips    int           `json:"pending_skips"`
	LastTransaction *Transaction  `json:"last_transaction,omitempty"`
	CanUndo         bool          `json:"can_undo"`
	Interstitial    *Interstitial `json:"interstitial,omitempty"`
}
