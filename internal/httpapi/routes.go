package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/league-auction-backend/internal/archive"
	"github.com/DoyleJ11/league-auction-backend/internal/hub"
	"github.com/DoyleJ11/league-auction-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type Deps struct {
	Hub            *hub.Hub
	Archive        archive.Repository
	Logger         *zap.Logger
	AllowedOrigins []string
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	h := &Handler{hub: d.Hub, archive: d.Archive, log: d.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, ws.Options{AllowedOrigins: d.AllowedOrigins, Logger: d.Logger}))

	r.Post("/auctions", h.CreateAuction)
	r.Route("/auctions/{code}", func(r chi.Router) {
		r.Get("/", h.GetAuction)
		r.Post("/teams", h.SetTeams)
		r.Post("/players", h.SetPlayers)
		r.Post("/players/csv", h.UploadPlayers)
		r.Post("/assign", h.AssignPlayer)
		r.Post("/skip", h.simple(msgSkip))
		r.Post("/next", h.simple(msgNext))
		r.Post("/undo", h.simple(msgUndo))
		r.Post("/continue", h.simple(msgContinue))
		r.Post("/restart", h.simple(msgRestart))
		r.Get("/export/teams.csv", h.ExportTeams)
		r.Get("/export/players.csv", h.ExportPlayers)
	})

	r.Get("/archive", h.ListArchive)
	r.Get("/archive/{id}", h.GetArchive)

	c := cors.New(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}
