package room

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/truco-backend/internal/engine"
	"github.com/DoyleJ11/truco-backend/internal/hub"
	"github.com/DoyleJ11/truco-backend/internal/lobby"
	"github.com/DoyleJ11/truco-backend/internal/store"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrRoomClosed = errors.New("room is closed")
var ErrRoomStarted = errors.New("room already started")
var ErrTeamFull = errors.New("team is full")
var ErrInvalidConfig = errors.New("invalid room config")
var ErrNotMember = errors.New("not a member of this room")

type Mode string

const (
	Mode1v1 Mode = "1v1"
	Mode2v2 Mode = "2v2"
	Mode3v3 Mode = "3v3"
)

func (m Mode) TeamSize() int {
	switch m {
	case Mode1v1:
		return 1
	case Mode2v2:
		return 2
	case Mode3v3:
		return 3
	}
	return 0
}

type Privacy string

const (
	Public  Privacy = "public"
	Private Privacy = "private"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

type Config struct {
	Name    string  `json:"name"`
	Privacy Privacy `json:"privacy"`
	Mode    Mode    `json:"mode"`
	Points  int     `json:"points"`
}

type Member struct {
	UserID   string      `json:"userId"`
	Team     engine.Team `json:"team"`
	JoinedAt time.Time   `json:"joinedAt"`
}

type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Privacy   Privacy   `json:"privacy"`
	Mode      Mode      `json:"mode"`
	Points    int       `json:"points"`
	JoinCodeA string    `json:"joinCodeA,omitempty"`
	JoinCodeB string    `json:"joinCodeB,omitempty"`
	CreatedBy string    `json:"createdBy"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Members   []Member  `json:"members"`
	GameID    string    `json:"gameId,omitempty"`
}

func (r *Room) clone() Room {
	c := *r
	c.Members = slices.Clone(r.Members)
	return c
}

func (r *Room) count(team engine.Team) int {
	n := 0
	for _, m := range r.Members {
		if m.Team == team {
			n++
		}
	}
	return n
}

type JoinRequest struct {
	UserID string      `json:"-"`
	RoomID string      `json:"roomId,omitempty"`
	Code   string      `json:"code,omitempty"`
	Team   engine.Team `json:"team,omitempty"`
}

// Recorder persists finished matches.
type Recorder interface {
	RecordMatch(ctx context.Context, m store.MatchResult) error
}

type Option func(*Service)

// WithEngine sets the engine new games are dealt with.
func WithEngine(e *engine.Engine) Option { return func(s *Service) { s.engine = e } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// Service seats players into rooms and starts a match in the hub once a room is full.
type Service struct {
	mu        sync.Mutex
	rooms     map[string]*Room
	codes     map[string]string // join code -> room id
	completed map[string]bool

	hub    *hub.Hub
	rec    Recorder
	engine *engine.Engine
	log    *zap.Logger
	now    func() time.Time
}

func NewService(h *hub.Hub, rec Recorder, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		rooms:     make(map[string]*Room),
		codes:     make(map[string]string),
		completed: make(map[string]bool),
		hub:       h,
		rec:       rec,
		engine:    engine.New(),
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(userID string, cfg Config) (Room, error) {
	if cfg.Mode.TeamSize() == 0 {
		return Room{}, fmt.Errorf("%w: mode %q", ErrInvalidConfig, cfg.Mode)
	}
	if cfg.Points != 15 && cfg.Points != 30 {
		return Room{}, fmt.Errorf("%w: points must be 15 or 30", ErrInvalidConfig)
	}
	if cfg.Privacy == "" {
		cfg.Privacy = Public
	}
	if cfg.Privacy != Public && cfg.Privacy != Private {
		return Room{}, fmt.Errorf("%w: privacy %q", ErrInvalidConfig, cfg.Privacy)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := &Room{
		ID:        uuid.NewString(),
		Name:      cfg.Name,
		Privacy:   cfg.Privacy,
		Mode:      cfg.Mode,
		Points:    cfg.Points,
		CreatedBy: userID,
		Status:    StatusOpen,
		CreatedAt: s.now(),
		Members:   []Member{},
	}

	if r.Privacy == Private {
		var err error
		if r.JoinCodeA, err = s.uniqueCode(); err != nil {
			return Room{}, err
		}
		s.codes[r.JoinCodeA] = r.ID
		if r.JoinCodeB, err = s.uniqueCode(); err != nil {
			return Room{}, err
		}
		s.codes[r.JoinCodeB] = r.ID
	}

	s.rooms[r.ID] = r
	s.log.Info("room created", zap.String("room_id", r.ID), zap.String("mode", string(r.Mode)), zap.String("user_id", userID))
	return r.clone(), nil
}

// Join seats the user. A join code seats the user on the team it was issued for; otherwise the
// preferred team is used while it has room, falling back to the smaller team. Joining twice is
// a no-op.
func (s *Service) Join(req JoinRequest) (Room, engine.Team, error) {
	s.mu.Lock()

	r, err := s.lookup(req)
	if err != nil {
		s.mu.Unlock()
		return Room{}, "", err
	}
	if r.Status == StatusClosed {
		s.mu.Unlock()
		return Room{}, "", ErrRoomClosed
	}
	if i := slices.IndexFunc(r.Members, func(m Member) bool { return m.UserID == req.UserID }); i >= 0 {
		got, team := r.clone(), r.Members[i].Team
		s.mu.Unlock()
		return got, team, nil
	}
	if r.Status != StatusOpen {
		s.mu.Unlock()
		return Room{}, "", ErrRoomStarted
	}

	var team engine.Team
	switch {
	case req.Code != "" && req.Code == r.JoinCodeA:
		team = engine.TeamA
	case req.Code != "" && req.Code == r.JoinCodeB:
		team = engine.TeamB
	default:
		team = pickTeam(r, req.Team)
	}
	if r.count(team) >= r.Mode.TeamSize() {
		s.mu.Unlock()
		return Room{}, "", ErrTeamFull
	}

	r.Members = append(r.Members, Member{UserID: req.UserID, Team: team, JoinedAt: s.now()})
	s.log.Info("player joined", zap.String("room_id", r.ID), zap.String("user_id", req.UserID), zap.String("team", string(team)))

	var params *engine.GameParams
	if len(r.Members) == 2*r.Mode.TeamSize() {
		p := gameParams(r)
		params = &p
		r.Status = StatusInProgress
	}
	s.mu.Unlock()

	if params != nil {
		if err := s.start(r.ID, *params); err != nil {
			return Room{}, "", err
		}
	}

	got, err := s.Get(r.ID)
	return got, team, err
}

func (s *Service) start(roomID string, p engine.GameParams) error {
	state, err := s.engine.NewGame(p)
	if err != nil {
		return fmt.Errorf("start room %s: %w", roomID, err)
	}

	s.mu.Lock()
	s.rooms[roomID].GameID = state.ID
	s.mu.Unlock()

	reply := make(chan *lobby.Lobby, 1)
	s.hub.Inbox() <- hub.CreateLobby{
		Code:  roomID,
		State: state,
		Options: []lobby.Option{
			lobby.WithEngine(s.engine),
			lobby.OnComplete(func(final engine.State) {
				if err := s.Complete(context.Background(), final); err != nil {
					s.log.Error("complete match", zap.String("room_id", roomID), zap.Error(err))
				}
			}),
		},
		Reply: reply,
	}
	<-reply

	s.log.Info("match started", zap.String("room_id", roomID), zap.String("game_id", state.ID), zap.Int("players", len(p.Players)))
	return nil
}

// Leave removes the user from a room that has not started yet.
func (s *Service) Leave(roomID, userID string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	i := slices.IndexFunc(r.Members, func(m Member) bool { return m.UserID == userID })
	if i < 0 {
		return Room{}, ErrNotMember
	}
	if r.Status != StatusOpen {
		return Room{}, ErrRoomStarted
	}

	r.Members = slices.Delete(r.Members, i, i+1)
	return r.clone(), nil
}

func (s *Service) Get(roomID string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	return r.clone(), nil
}

// ListPublic returns public rooms that are not closed, newest first.
func (s *Service) ListPublic() []Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Room{}
	for _, r := range s.rooms {
		if r.Privacy == Public && r.Status != StatusClosed {
			out = append(out, r.clone())
		}
	}
	slices.SortFunc(out, func(a, b Room) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

// Complete settles a finished match: records it, closes the room and drops its lobby.
// Calls after the first one for a room do nothing.
func (s *Service) Complete(ctx context.Context, final engine.State) error {
	winner, ok := final.Winner()
	if !ok {
		return fmt.Errorf("complete room %s: game not finished", final.RoomID)
	}

	s.mu.Lock()
	r, found := s.rooms[final.RoomID]
	if !found {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	if s.completed[r.ID] {
		s.mu.Unlock()
		return nil
	}
	s.completed[r.ID] = true
	r.Status = StatusClosed

	res := store.MatchResult{
		RoomID:     r.ID,
		GameID:     final.ID,
		WinnerTeam: string(winner),
		ScoreA:     final.Score(engine.TeamA),
		ScoreB:     final.Score(engine.TeamB),
		Hands:      final.HandNumber,
		FinishedAt: s.now(),
	}
	for _, m := range r.Members {
		if m.Team == winner {
			res.Winners = append(res.Winners, m.UserID)
		} else {
			res.Losers = append(res.Losers, m.UserID)
		}
	}
	s.mu.Unlock()

	s.hub.Inbox() <- hub.RemoveLobby{Code: r.ID}
	s.log.Info("match completed", zap.String("room_id", r.ID), zap.String("winner", string(winner)),
		zap.Int("score_a", res.ScoreA), zap.Int("score_b", res.ScoreB))

	if s.rec == nil {
		return nil
	}
	if err := s.rec.RecordMatch(ctx, res); err != nil {
		return fmt.Errorf("complete room %s: %w", r.ID, err)
	}
	return nil
}

func (s *Service) lookup(req JoinRequest) (*Room, error) {
	id := req.RoomID
	if id == "" && req.Code != "" {
		id = s.codes[req.Code]
	}
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (s *Service) uniqueCode() (string, error) {
	for {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if _, taken := s.codes[code]; !taken {
			return code, nil
		}
		s.log.Debug("collision on code, regenerating")
	}
}

func pickTeam(r *Room, preferred engine.Team) engine.Team {
	size := r.Mode.TeamSize()
	if (preferred == engine.TeamA || preferred == engine.TeamB) && r.count(preferred) < size {
		return preferred
	}
	if r.count(engine.TeamA) <= r.count(engine.TeamB) && r.count(engine.TeamA) < size {
		return engine.TeamA
	}
	return engine.TeamB
}

// gameParams seats team A on even seats and team B on odd ones, each in join order, so
// turns alternate between teams.
func gameParams(r *Room) engine.GameParams {
	p := engine.GameParams{RoomID: r.ID, TargetScore: r.Points}
	next := map[engine.Team]int{engine.TeamA: 0, engine.TeamB: 1}
	for _, m := range r.Members {
		p.Players = append(p.Players, engine.Seat{UserID: m.UserID, Seat: next[m.Team], Team: m.Team})
		next[m.Team] += 2
	}
	return p
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
