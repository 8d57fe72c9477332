package types

// Client -> Server message types.
const (
	MsgSetTeams           = "SetTeams"
	MsgSetPlayers         = "SetPlayers"
	MsgAssignPlayer       = "AssignPlayer"
	MsgSkipPlayer         = "SkipPlayer"
	MsgNextPlayer         = "NextPlayer"
	MsgUndoLastAssignment = "UndoLastAssignment"
	MsgClearInterstitial  = "ClearInterstitial"
	MsgRestartAuction     = "RestartAuction"
)

// Server -> Client message types.
const (
	MsgStateSnapshot = "StateSnapshot"
	MsgWarning       = "Warning"
	MsgError         = "Error"
)

type TeamInput struct {
	Name  string `json:"name" validate:"required,max=64"`
	Logo  string `json:"logo" validate:"omitempty,max=2048"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
	Purse int64  `json:"purse" validate:"gt=0"`
}

// PlayerInput is passed to the engine verbatim. Rows missing a field are
// dropped by the file parser, not here.
type PlayerInput struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	PhotoURL string `json:"photo_url"`
}

// ClientMessage is one operator action. TeamID is a pointer so a missing
// team can be told apart from team 0.
type ClientMessage struct {
	Type      string        `json:"type" validate:"required"`
	Teams     []TeamInput   `json:"teams,omitempty" validate:"omitempty,dive"`
	Elite     []PlayerInput `json:"elite,omitempty" validate:"omitempty,dive"`
	Normal    []PlayerInput `json:"normal,omitempty" validate:"omitempty,dive"`
	TeamID    *int          `json:"team_id,omitempty"`
	BidAmount int64         `json:"bid_amount,omitempty"`
}

type ServerMessage struct {
	Type     string    `json:"type"` // "StateSnapshot" | "Warning" | "Error"
	Version  int       `json:"version,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Warning  string    `json:"warning,omitempty"`
	Error    string    `json:"error,omitempty"`
}
