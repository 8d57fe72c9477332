package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DoyleJ11/league-auction-backend/internal/shuffle"
	"github.com/google/uuid"
)

var ErrValidation = errors.New("validation error")
var ErrInvalidBid = errors.New("invalid bid")
var ErrEmptyQueue = errors.New("empty queue")
var ErrUnknownTeam = errors.New("unknown team")
var ErrNothingToUndo = errors.New("nothing to undo")
var ErrWrongStage = errors.New("operation not allowed in current stage")
var ErrUnsupportedCommand = errors.New("unsupported command")

const DefaultTeamColor = "#1D4ED8"

type Stage string

const (
	StageTeamSetup    Stage = "team-setup"
	StagePlayerUpload Stage = "player-upload"
	StageAuction      Stage = "auction"
	StageSummary      Stage = "summary"
)

type RoundMode string

const (
	ModeElite     RoundMode = "elite"
	ModeNormal    RoundMode = "normal"
	ModeReauction RoundMode = "reauction"
)

type Player struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	PhotoURL string `json:"photo_url"`
	IsElite  bool   `json:"is_elite"`
}

// QueuedPlayer ids are unique for one run and never reused.
type QueuedPlayer struct {
	Player
	ID int `json:"id"`
}

type AssignedPlayer struct {
	QueuedPlayer
	BidAmount int64 `json:"bid_amount"`
}

// Team keeps Purse == InitialPurse - sum(Players[].BidAmount).
type Team struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Logo         string           `json:"logo"`
	Color        string           `json:"color"`
	InitialPurse int64            `json:"initial_purse"`
	Purse        int64            `json:"purse"`
	Players      []AssignedPlayer `json:"players"`
}

type TeamSetup struct {
	Name  string
	Logo  string
	Color string
	Purse int64
}

type Transaction struct {
	TeamID int            `json:"team_id"`
	Player AssignedPlayer `json:"player"`
}

type Interstitial struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type State struct {
	Stage           Stage          `json:"stage"`
	RunID           string         `json:"run_id"`
	Teams           []Team         `json:"teams"`
	Queue           []QueuedPlayer `json:"queue"`
	PendingSkips    []QueuedPlayer `json:"pending_skips"`
	Mode            RoundMode      `json:"mode,omitempty"`
	LastTransaction *Transaction   `json:"last_transaction"`
	Interstitial    *Interstitial  `json:"interstitial"`
}

type Rules struct {
	// UndoSurvivesNext keeps the ledger slot across NextPlayer when no round
	// boundary is crossed. Boundaries and skips always clear it.
	UndoSurvivesNext bool
}

type CommandType string

const (
	CmdSetTeams           CommandType = "SetTeams"
	CmdSetPlayers         CommandType = "SetPlayers"
	CmdAssignPlayer       CommandType = "AssignPlayer"
	CmdSkipPlayer         CommandType = "SkipPlayer"
	CmdNextPlayer         CommandType = "NextPlayer"
	CmdUndoLastAssignment CommandType = "UndoLastAssignment"
	CmdClearInterstitial  CommandType = "ClearInterstitial"
	CmdRestartAuction     CommandType = "RestartAuction"
)

/*
	CmdSetTeams           -> EvtTeamsSet
	CmdSetPlayers         -> EvtPlayersQueued -> EvtRoundStarted (or EvtAuctionCompleted on an empty queue)
	CmdAssignPlayer       -> EvtPlayerAssigned
	CmdSkipPlayer         -> EvtPlayerSkipped -> [EvtRoundStarted | EvtAuctionCompleted]
	CmdNextPlayer         -> EvtTurnAdvanced  -> [EvtRoundStarted | EvtAuctionCompleted]
	CmdUndoLastAssignment -> EvtAssignmentUndone, nothing when the slot is empty
	CmdClearInterstitial  -> EvtInterstitialCleared
	CmdRestartAuction     -> EvtAuctionRestarted
*/

type Command struct {
	Type      CommandType
	Teams     []TeamSetup
	Elite     []Player
	Normal    []Player
	TeamID    int
	BidAmount int64
}

type EventType string

const (
	EvtTeamsSet            EventType = "TeamsSet"
	EvtPlayersQueued       EventType = "PlayersQueued"
	EvtPlayerAssigned      EventType = "PlayerAssigned"
	EvtPlayerSkipped       EventType = "PlayerSkipped"
	EvtAssignmentUndone    EventType = "AssignmentUndone"
	EvtTurnAdvanced        EventType = "TurnAdvanced"
	EvtRoundStarted        EventType = "RoundStarted"
	EvtAuctionCompleted    EventType = "AuctionCompleted"
	EvtInterstitialCleared EventType = "InterstitialCleared"
	EvtAuctionRestarted    EventType = "AuctionRestarted"
)

type Event struct {
	Type      EventType
	Mode      RoundMode
	TeamID    int
	PlayerID  int
	BidAmount int64
	Count     int
}

type Engine struct {
	shuffler shuffle.Shuffler
	newRunID func() string
	rules    Rules
}

type Option func(*Engine)

func WithShuffler(s shuffle.Shuffler) Option {
	return func(e *Engine) { e.shuffler = s }
}

func WithRunIDs(gen func() string) Option {
	return func(e *Engine) { e.newRunID = gen }
}

func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		shuffler: shuffle.New(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Rules() Rules { return e.rules }

// Apply never mutates s. On error the returned state is s itself.
func (e *Engine) Apply(s State, cmd Command) ([]Event, State, error) {
	next := s.Clone()

	var (
		events []Event
		err    error
	)
	switch cmd.Type {
	case CmdSetTeams:
		events, err = e.setTeams(&next, cmd.Teams)
	case CmdSetPlayers:
		events, err = e.setPlayers(&next, cmd.Elite, cmd.Normal)
	case CmdAssignPlayer:
		events, err = e.assignPlayer(&next, cmd.TeamID, cmd.BidAmount)
	case CmdSkipPlayer:
		events, err = e.skipPlayer(&next)
	case CmdNextPlayer:
		events, err = e.nextPlayer(&next)
	case CmdUndoLastAssignment:
		events, err = e.undoLastAssignment(&next)
	case CmdClearInterstitial:
		if next.Interstitial != nil {
			next.Interstitial = nil
			events = []Event{{Type: EvtInterstitialCleared}}
		}
	case CmdRestartAuction:
		return []Event{{Type: EvtAuctionRestarted}}, e.NewState(), nil
	default:
		return nil, s, ErrUnsupportedCommand
	}

	if err != nil {
		return nil, s, err
	}
	return events, next, nil
}

func (e *Engine) setTeams(s *State, setups []TeamSetup) ([]Event, error) {
	if s.Stage != StageTeamSetup {
		return nil, fmt.Errorf("%w: set teams during %s", ErrWrongStage, s.Stage)
	}
	if len(setups) == 0 {
		return nil, fmt.Errorf("%w: at least one team is required", ErrValidation)
	}

	teams := make([]Team, 0, len(setups))
	for i, ts := range setups {
		name := strings.TrimSpace(ts.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: team %d has no name", ErrValidation, i+1)
		}
		if ts.Purse <= 0 {
			return nil, fmt.Errorf("%w: team %q purse must be positive", ErrValidation, name)
		}
		color := ts.Color
		if color == "" {
			color = DefaultTeamColor
		}
		teams = append(teams, Team{
			ID:           i,
			Name:         name,
			Logo:         ts.Logo,
			Color:        color,
			InitialPurse: ts.Purse,
			Purse:        ts.Purse,
			Players:      []AssignedPlayer{},
		})
	}

	s.Teams = teams
	s.Stage = StagePlayerUpload
	return []Event{{Type: EvtTeamsSet, Count: len(teams)}}, nil
}

func (e *Engine) setPlayers(s *State, elite, normal []Player) ([]Event, error) {
	if s.Stage != StagePlayerUpload {
		return nil, fmt.Errorf("%w: set players during %s", ErrWrongStage, s.Stage)
	}

	queue, mode := BuildInitialQueue(e.shuffler, elite, normal)
	s.Queue = queue
	s.PendingSkips = nil
	s.Mode = mode
	s.LastTransaction = nil
	s.Stage = StageAuction

	events := []Event{{Type: EvtPlayersQueued, Count: len(queue)}}
	if len(queue) == 0 {
		s.Stage = StageSummary
		s.Interstitial = nil
		return append(events, Event{Type: EvtAuctionCompleted}), nil
	}

	if mode == ModeElite {
		s.Interstitial = eliteStartNotice(len(elite))
	} else {
		s.Interstitial = normalStartNotice(len(normal))
	}
	return append(events, Event{Type: EvtRoundStarted, Mode: mode, Count: len(queue)}), nil
}

func (e *Engine) assignPlayer(s *State, teamID int, bid int64) ([]Event, error) {
	if s.Stage != StageAuction {
		return nil, fmt.Errorf("%w: assign during %s", ErrWrongStage, s.Stage)
	}
	if s.eliteBlockDone() {
		return nil, fmt.Errorf("%w: elite round is over, advance first", ErrWrongStage)
	}
	team := s.team(teamID)
	if team == nil {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownTeam, teamID)
	}
	player, ok := s.Current()
	if !ok {
		return nil, ErrEmptyQueue
	}

	sold, err := assign(s, team, bid, player)
	if err != nil {
		return nil, err
	}
	if _, err := s.popFront(); err != nil {
		return nil, err
	}

	return []Event{{
		Type:      EvtPlayerAssigned,
		Mode:      s.Mode,
		TeamID:    teamID,
		PlayerID:  sold.ID,
		BidAmount: sold.BidAmount,
	}}, nil
}

func (e *Engine) skipPlayer(s *State) ([]Event, error) {
	if s.Stage != StageAuction {
		return nil, fmt.Errorf("%w: skip during %s", ErrWrongStage, s.Stage)
	}
	// The front already belongs to the normal block; open that round
	// instead of parking a normal player with the elite skips.
	if s.eliteBlockDone() {
		return e.settle(s), nil
	}
	mode := s.Mode
	skipped, err := s.skipFront()
	if err != nil {
		return nil, err
	}
	clearLedger(s)

	events := []Event{{Type: EvtPlayerSkipped, Mode: mode, PlayerID: skipped.ID}}
	return append(events, e.settle(s)...), nil
}

func (e *Engine) nextPlayer(s *State) ([]Event, error) {
	if s.Stage != StageAuction {
		return nil, fmt.Errorf("%w: next player during %s", ErrWrongStage, s.Stage)
	}
	if !e.rules.UndoSurvivesNext {
		clearLedger(s)
	}

	events := []Event{{Type: EvtTurnAdvanced, Mode: s.Mode}}
	return append(events, e.settle(s)...), nil
}

func (e *Engine) undoLastAssignment(s *State) ([]Event, error) {
	tx, err := undo(s)
	if errors.Is(err, ErrNothingToUndo) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []Event{{
		Type:      EvtAssignmentUndone,
		Mode:      s.Mode,
		TeamID:    tx.TeamID,
		PlayerID:  tx.Player.ID,
		BidAmount: tx.Player.BidAmount,
	}}, nil
}
