package engine

import (
	"maps"
	"slices"
)

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseDealing Phase = "dealing"
	PhasePlaying Phase = "playing"
	PhaseHandEnd Phase = "hand_end"
	PhaseGameEnd Phase = "game_end"
)

type EnvidoLevel string

const (
	Envido      EnvidoLevel = "envido"
	RealEnvido  EnvidoLevel = "real_envido"
	FaltaEnvido EnvidoLevel = "falta_envido"
)

func (l EnvidoLevel) Valid() bool {
	switch l {
	case Envido, RealEnvido, FaltaEnvido:
		return true
	}
	return false
}

const MaxTrucoLevel = 4

type PlayerState struct {
	UserID   string `json:"userId"`
	Seat     int    `json:"seat"`
	Team     Team   `json:"team"`
	Hand     []Card `json:"hand"`
	IsDealer bool   `json:"isDealer"`
}

type TeamState struct {
	ID    Team `json:"id"`
	Score int  `json:"score"`
}

type TrickPlay struct {
	UserID string `json:"userId"`
	Team   Team   `json:"team"`
	Seat   int    `json:"seat"`
	Card   Card   `json:"card"`
}

type PendingTruco struct {
	Level     int  `json:"level"`
	CalledBy  Team `json:"calledBy"`
	RespondBy Team `json:"respondBy"`
}

type PendingEnvido struct {
	Level     EnvidoLevel `json:"level"`
	CalledBy  Team        `json:"calledBy"`
	RespondBy Team        `json:"respondBy"`
}

// State is one match. Players is ordered by seat, so Players[i].Seat == i.
type State struct {
	ID              string             `json:"id"`
	RoomID          string             `json:"roomId"`
	Phase           Phase              `json:"phase"`
	Deck            []Card             `json:"deck"`
	Table           []TrickPlay        `json:"table"`
	CurrentTurnSeat int                `json:"currentTurnSeat"`
	TrickLeaderSeat int                `json:"trickLeaderSeat"`
	TrickNumber     int                `json:"trickNumber"`
	Players         []PlayerState      `json:"players"`
	Teams           map[Team]TeamState `json:"teams"`
	TricksWon       map[Team]int       `json:"tricksWon"`
	TargetScore     int                `json:"targetScore"`
	HandNumber      int                `json:"handNumber"`
	ManoSeat        int                `json:"manoSeat"`
	TrucoLevel      int                `json:"trucoLevel"`
	PendingTruco    *PendingTruco      `json:"pendingTruco,omitempty"`
	PendingEnvido   *PendingEnvido     `json:"pendingEnvido,omitempty"`
	EnvidoResolved  bool               `json:"envidoResolved"`
	LastHandWinner  Team               `json:"lastHandWinner,omitempty"`
	LastTrickWinner Team               `json:"lastTrickWinner,omitempty"`
}

// Clone returns a deep copy. Apply works on a clone so callers keep their input untouched.
func (s State) Clone() State {
	c := s
	c.Deck = slices.Clone(s.Deck)
	c.Table = slices.Clone(s.Table)
	c.Players = make([]PlayerState, len(s.Players))
	for i, p := range s.Players {
		p.Hand = slices.Clone(p.Hand)
		c.Players[i] = p
	}
	c.Teams = maps.Clone(s.Teams)
	c.TricksWon = maps.Clone(s.TricksWon)
	if s.PendingTruco != nil {
		pt := *s.PendingTruco
		c.PendingTruco = &pt
	}
	if s.PendingEnvido != nil {
		pe := *s.PendingEnvido
		c.PendingEnvido = &pe
	}
	return c
}

func (s State) Player(userID string) (PlayerState, bool) {
	for _, p := range s.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return PlayerState{}, false
}

func (s State) Score(team Team) int {
	return s.Teams[team].Score
}

// Winner reports the team that reached the target score. Only meaningful once the game ended;
// if both teams are at or past the target the higher score wins, team A on an exact tie.
func (s State) Winner() (Team, bool) {
	if s.Phase != PhaseGameEnd {
		return "", false
	}
	if s.Score(TeamB) > s.Score(TeamA) {
		return TeamB, true
	}
	return TeamA, true
}
