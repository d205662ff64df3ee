package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/truco-backend/internal/engine"
	"github.com/DoyleJ11/truco-backend/internal/hub"
	"github.com/DoyleJ11/truco-backend/internal/lobby"
	"github.com/DoyleJ11/truco-backend/internal/types"
)

var ErrUnknownType = errors.New("unknown message type")
var ErrMissingCard = errors.New("play_card needs a card")

const (
	writeTimeout = 3 * time.Second
	idleTimeout  = 5 * time.Minute
)

// Handler attaches a seated player to the lobby of a running match.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		userID := r.URL.Query().Get("user")
		if roomID == "" || userID == "" {
			http.Error(w, "missing room or user", http.StatusBadRequest)
			return
		}

		lb := h.Lookup(roomID)
		if lb == nil {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		view, ok := currentView(r.Context(), lb)
		if !ok {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}
		if _, seated := view.State.Player(userID); !seated {
			http.Error(w, "not seated in this match", http.StatusForbidden)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Snapshot, 8)
		clientID := randID(6)
		log := log.With(zap.String("room_id", roomID), zap.String("user_id", userID), zap.String("client_id", clientID))

		if !deliver(lb, lobby.Join{ClientID: clientID, Outbox: out}) {
			return
		}
		defer deliver(lb, lobby.Leave{ClientID: clientID})
		log.Info("client connected")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// The lobby dropped us or shut down.
						conn.Close(websocket.StatusGoingAway, "match closed")
						return
					}
					if err := writeJSON(writeCtx, conn, toServerMessage(snap)); err != nil {
						log.Debug("write failed", zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), idleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("client disconnected")
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}

			action, err := toEngineAction(cm, userID)
			if err != nil {
				_ = writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
				continue
			}

			if !deliver(lb, lobby.FromClient{ClientID: clientID, Action: action}) {
				return
			}
		}
	}
}

func currentView(ctx context.Context, lb *lobby.Lobby) (lobby.View, bool) {
	reply := make(chan lobby.View, 1)
	if !deliver(lb, lobby.GetState{Reply: reply}) {
		return lobby.View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-lb.Done():
		return lobby.View{}, false
	case <-ctx.Done():
		return lobby.View{}, false
	}
}

// deliver sends msg unless the lobby has already stopped.
func deliver(lb *lobby.Lobby, msg lobby.Msg) bool {
	select {
	case lb.Inbox() <- msg:
		return true
	case <-lb.Done():
		return false
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func toServerMessage(snap lobby.Snapshot) types.ServerMessage {
	if snap.Err != nil {
		return types.ServerMessage{Type: types.MsgError, Version: snap.Version, Error: snap.Err.Error()}
	}
	return types.ServerMessage{Type: types.MsgState, Version: snap.Version, State: &snap.State, Events: snap.Events}
}

func toEngineAction(m types.ClientMessage, userID string) (engine.Action, error) {
	switch engine.ActionType(m.Type) {
	case engine.ActPlayCard:
		if m.Card == nil {
			return nil, ErrMissingCard
		}
		return engine.PlayCard{UserID: userID, Card: *m.Card}, nil
	case engine.ActCallTruco:
		return engine.CallTruco{UserID: userID}, nil
	case engine.ActRespondTruco:
		return engine.RespondTruco{UserID: userID, Accept: m.Accept}, nil
	case engine.ActCallEnvido:
		return engine.CallEnvido{UserID: userID, Level: m.Level}, nil
	case engine.ActRespondEnvido:
		return engine.RespondEnvido{UserID: userID, Accept: m.Accept}, nil
	case engine.ActFold:
		return engine.Fold{UserID: userID}, nil
	default:
		return nil, ErrUnknownType
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.IntN(len(charset))]
	}
	return string(b)
}
