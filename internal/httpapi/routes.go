package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/truco-backend/internal/hub"
	"github.com/DoyleJ11/truco-backend/internal/room"
	"github.com/DoyleJ11/truco-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, rooms *room.Service, rank RankingReader, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ranking", Ranking(rank, log))
	r.Get("/ws", ws.Handler(h, log))

	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", ListRooms(rooms))
		r.Post("/", CreateRoom(rooms, log))
		r.Post("/join", JoinRoom(rooms, log))
		r.Get("/{id}", GetRoom(rooms, log))
		r.Post("/{id}/leave", LeaveRoom(rooms, log))
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}
