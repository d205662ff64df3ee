package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/truco-backend/internal/engine"
	"github.com/DoyleJ11/truco-backend/internal/room"
	"github.com/DoyleJ11/truco-backend/internal/store"
)

const (
	userHeader   = "X-User-ID"
	defaultLimit = 10
	maxLimit     = 100
)

// RankingReader is the read side of the ranking store.
type RankingReader interface {
	Top(ctx context.Context, limit int) ([]store.Ranking, error)
	RankingOf(ctx context.Context, userID string) (store.Ranking, error)
}

type joinResponse struct {
	Room room.Room   `json:"room"`
	Team engine.Team `json:"team"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func ListRooms(rooms *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rooms.ListPublic())
	}
}

func CreateRoom(rooms *room.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var cfg room.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		created, err := rooms.Create(userID, cfg)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func JoinRoom(rooms *room.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req room.JoinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.RoomID == "" && req.Code == "" {
			http.Error(w, "roomId or code required", http.StatusBadRequest)
			return
		}
		req.UserID = userID

		joined, team, err := rooms.Join(req)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, joinResponse{Room: joined, Team: team})
	}
}

func GetRoom(rooms *room.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got, err := rooms.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, got)
	}
}

func LeaveRoom(rooms *room.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		left, err := rooms.Leave(chi.URLParam(r, "id"), userID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, left)
	}
}

// Ranking returns the leaderboard, or a single row when ?user= is given.
func Ranking(rank RankingReader, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID := r.URL.Query().Get("user"); userID != "" {
			row, err := rank.RankingOf(r.Context(), userID)
			if err != nil {
				writeError(w, log, err)
				return
			}
			writeJSON(w, http.StatusOK, row)
			return
		}

		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxLimit)
		}

		rows, err := rank.Top(r.Context(), limit)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		http.Error(w, "missing "+userHeader+" header", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, room.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, room.ErrTeamFull), errors.Is(err, room.ErrRoomClosed), errors.Is(err, room.ErrRoomStarted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", status)
		return
	}
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
