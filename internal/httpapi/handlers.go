package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/archive"
	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/DoyleJ11/league-auction-backend/internal/export"
	"github.com/DoyleJ11/league-auction-backend/internal/hub"
	"github.com/DoyleJ11/league-auction-backend/internal/lobby"
	"github.com/DoyleJ11/league-auction-backend/internal/playersource"
	"github.com/DoyleJ11/league-auction-backend/internal/types"
	wire "github.com/DoyleJ11/league-auction-backend/pkg/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 8 << 20
	codeAttempts   = 16
)

var ErrLobbyNotFound = errors.New("auction not found")

type Handler struct {
	hub     *hub.Hub
	archive archive.Repository
	log     *zap.Logger
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	for range codeAttempts {
		code, err := GenerateCode()
		if err != nil {
			writeError(w, fmt.Errorf("generate code: %w", err))
			return
		}
		if h.hub.Resume(code) != nil {
			h.log.Debug("collision on code, regenerating", zap.String("code", code))
			continue
		}
		lb := h.hub.Create(code)
		if lb == nil {
			continue
		}
		v, err := lb.Snapshot(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.NewSnapshot(code, v.Version, v.State))
		return
	}
	writeError(w, errors.New("could not allocate an auction code"))
}

func (h *Handler) lobby(r *http.Request) (*lobby.Lobby, error) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	if lb := h.hub.Resume(code); lb != nil {
		return lb, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrLobbyNotFound, code)
}

func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	lb, err := h.lobby(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := lb.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewSnapshot(lb.Code(), v.Version, v.State))
}

type setTeamsRequest struct {
	Teams []wire.TeamInput `json:"teams" validate:"required,min=1,dive"`
}

func (h *Handler) SetTeams(w http.ResponseWriter, r *http.Request) {
	var req setTeamsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.run(w, r, wire.ClientMessage{Type: wire.MsgSetTeams, Teams: req.Teams})
}

type setPlayersRequest struct {
	Elite  []wire.PlayerInput `json:"elite" validate:"omitempty,dive"`
	Normal []wire.PlayerInput `json:"normal" validate:"omitempty,dive"`
}

func (h *Handler) SetPlayers(w http.ResponseWriter, r *http.Request) {
	var req setPlayersRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.run(w, r, wire.ClientMessage{Type: wire.MsgSetPlayers, Elite: req.Elite, Normal: req.Normal})
}

// UploadPlayers accepts multipart "elite" and "normal" CSV files.
func (h *Handler) UploadPlayers(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: %v", engine.ErrValidation, err))
		return
	}

	msg := wire.ClientMessage{Type: wire.MsgSetPlayers}
	found := 0
	for _, part := range []struct {
		field string
		elite bool
		dst   *[]wire.PlayerInput
	}{
		{"elite", true, &msg.Elite},
		{"normal", false, &msg.Normal},
	} {
		f, _, err := r.FormFile(part.field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			writeError(w, fmt.Errorf("%w: %s: %v", engine.ErrValidation, part.field, err))
			return
		}
		players, err := playersource.Parse(f, part.elite)
		f.Close()
		if err != nil {
			writeError(w, fmt.Errorf("%w: %s: %v", engine.ErrValidation, part.field, err))
			return
		}
		for _, p := range players {
			*part.dst = append(*part.dst, wire.PlayerInput{Name: p.Name, Position: p.Position, PhotoURL: p.PhotoURL})
		}
		found++
	}
	if found == 0 {
		writeError(w, fmt.Errorf("%w: upload an elite or normal players file", engine.ErrValidation))
		return
	}
	h.run(w, r, msg)
}

type assignRequest struct {
	TeamID    *int  `json:"team_id"`
	BidAmount int64 `json:"bid_amount"`
}

func (h *Handler) AssignPlayer(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.run(w, r, wire.ClientMessage{Type: wire.MsgAssignPlayer, TeamID: req.TeamID, BidAmount: req.BidAmount})
}

const (
	msgSkip     = wire.MsgSkipPlayer
	msgNext     = wire.MsgNextPlayer
	msgUndo     = wire.MsgUndoLastAssignment
	msgContinue = wire.MsgClearInterstitial
	msgRestart  = wire.MsgRestartAuction
)

func (h *Handler) simple(msgType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.run(w, r, wire.ClientMessage{Type: msgType})
	}
}

// run applies msg to the addressed lobby and answers with the new snapshot.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, msg wire.ClientMessage) {
	lb, err := h.lobby(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cmd, err := types.ToCommand(r.Context(), msg)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := lb.Do(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewSnapshot(lb.Code(), res.Version, res.State))
}

func (h *Handler) ExportTeams(w http.ResponseWriter, r *http.Request) {
	h.exportCSV(w, r, "team_summary.csv", export.TeamSummary)
}

func (h *Handler) ExportPlayers(w http.ResponseWriter, r *http.Request) {
	h.exportCSV(w, r, "player_summary.csv", export.PlayerSummary)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request, name string, render func(io.Writer, []engine.Team) error) {
	lb, err := h.lobby(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := lb.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := render(w, v.State.Teams); err != nil {
		h.log.Warn("export failed", zap.String("file", name), zap.Error(err))
	}
}

func (h *Handler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeJSON(w, http.StatusOK, []archiveRecord{})
		return
	}
	records, err := h.archive.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]archiveRecord, len(records))
	for i, rec := range records {
		out[i] = toArchiveRecord(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, archive.ErrNotFound)
		return
	}
	rec, err := h.archive.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArchiveRecord(rec))
}

type archiveRecord struct {
	ID    string      `json:"id"`
	RunID string      `json:"run_id"`
	Date  time.Time   `json:"date"`
	Teams []wire.Team `json:"teams"`
}

func toArchiveRecord(r archive.Record) archiveRecord {
	return archiveRecord{ID: r.ID, RunID: r.RunID, Date: r.Date, Teams: types.FromTeams(r.Teams)}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", engine.ErrValidation, err)
	}
	return types.Validate(r.Context(), dst)
}
