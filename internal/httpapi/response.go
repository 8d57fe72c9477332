package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/archive"
	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/DoyleJ11/league-auction-backend/internal/lobby"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type errorBody struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	mapped := mapError(err)
	msg := err.Error()
	if mapped.HTTPStatus == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, mapped.HTTPStatus, errorResponse{Error: errorBody{
		Code:    mapped.HTTPStatus,
		Reason:  mapped.Reason,
		Message: msg,
	}})
}

func mapError(err error) mappedError {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return mappedError{http.StatusBadRequest, "invalidInput"}
	case errors.Is(err, engine.ErrInvalidBid):
		return mappedError{http.StatusBadRequest, "invalidBid"}
	case errors.Is(err, engine.ErrUnsupportedCommand):
		return mappedError{http.StatusBadRequest, "unsupportedCommand"}
	case errors.Is(err, engine.ErrUnknownTeam):
		return mappedError{http.StatusNotFound, "unknownTeam"}
	case errors.Is(err, ErrLobbyNotFound), errors.Is(err, archive.ErrNotFound):
		return mappedError{http.StatusNotFound, "notFound"}
	case errors.Is(err, engine.ErrEmptyQueue):
		return mappedError{http.StatusConflict, "emptyQueue"}
	case errors.Is(err, engine.ErrWrongStage):
		return mappedError{http.StatusConflict, "wrongStage"}
	case errors.Is(err, lobby.ErrClosed):
		return mappedError{http.StatusServiceUnavailable, "unavailable"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return mappedError{http.StatusServiceUnavailable, "timeout"}
	default:
		return mappedError{http.StatusInternalServerError, "internalError"}
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := zap.DebugLevel
			if ww.Status() >= http.StatusInternalServerError {
				level = zap.WarnLevel
			}
			log.Log(level, "http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
