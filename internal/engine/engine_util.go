package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

var ErrInvalidParams = errors.New("invalid game params")

type Seat struct {
	UserID string
	Seat   int
	Team   Team
}

type GameParams struct {
	RoomID      string
	Players     []Seat
	TargetScore int
}

// NewGame runs NewGame on the default engine.
func NewGame(p GameParams) (State, error) {
	return defaultEngine.NewGame(p)
}

// NewGame deals the first hand. Seat 0 is mano and the last seat deals.
func (e *Engine) NewGame(p GameParams) (State, error) {
	if err := checkParams(p); err != nil {
		return State{}, err
	}

	seats := slices.Clone(p.Players)
	slices.SortFunc(seats, func(a, b Seat) int { return a.Seat - b.Seat })

	players := make([]PlayerState, len(seats))
	for i, seat := range seats {
		players[i] = PlayerState{UserID: seat.UserID, Seat: seat.Seat, Team: seat.Team}
	}

	s := State{
		ID:          uuid.NewString(),
		RoomID:      p.RoomID,
		Phase:       PhaseWaiting,
		Table:       []TrickPlay{},
		TrickNumber: 1,
		Players:     players,
		Teams: map[Team]TeamState{
			TeamA: {ID: TeamA},
			TeamB: {ID: TeamB},
		},
		TricksWon:   map[Team]int{TeamA: 0, TeamB: 0},
		TargetScore: p.TargetScore,
		HandNumber:  1,
		TrucoLevel:  1,
	}
	e.deal(&s)
	return s, nil
}

func checkParams(p GameParams) error {
	if p.TargetScore != 15 && p.TargetScore != 30 {
		return fmt.Errorf("%w: target score must be 15 or 30, got %d", ErrInvalidParams, p.TargetScore)
	}

	n := len(p.Players)
	if n != 2 && n != 4 && n != 6 {
		return fmt.Errorf("%w: need 2, 4 or 6 players, got %d", ErrInvalidParams, n)
	}

	seen := make([]bool, n)
	users := make(map[string]bool, n)
	perTeam := map[Team]int{}
	for _, seat := range p.Players {
		if seat.Seat < 0 || seat.Seat >= n || seen[seat.Seat] {
			return fmt.Errorf("%w: bad or duplicate seat %d", ErrInvalidParams, seat.Seat)
		}
		seen[seat.Seat] = true

		if seat.UserID == "" || users[seat.UserID] {
			return fmt.Errorf("%w: missing or duplicate user %q", ErrInvalidParams, seat.UserID)
		}
		users[seat.UserID] = true

		if seat.Team != TeamA && seat.Team != TeamB {
			return fmt.Errorf("%w: unknown team %q", ErrInvalidParams, seat.Team)
		}
		perTeam[seat.Team]++
	}

	if perTeam[TeamA] != perTeam[TeamB] {
		return fmt.Errorf("%w: teams must be the same size", ErrInvalidParams)
	}
	return nil
}

func Opponent(team Team) Team {
	if team == TeamA {
		return TeamB
	}
	return TeamA
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
