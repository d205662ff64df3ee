package engine

import (
	"errors"
	"slices"
)

var ErrUnsupportedAction = errors.New("unsupported action")
var ErrTrucoMax = errors.New("truco already at max")
var ErrNoPendingTruco = errors.New("no truco to respond")
var ErrNoPendingEnvido = errors.New("no envido to respond")
var ErrNotResponder = errors.New("not your team to respond")
var ErrEnvidoPending = errors.New("envido already pending")
var ErrInvalidEnvidoLevel = errors.New("unknown envido level")

type EventType string

const (
	EvtCardPlayed     EventType = "CardPlayed"
	EvtTrickWon       EventType = "TrickWon"
	EvtTrucoCalled    EventType = "TrucoCalled"
	EvtTrucoAccepted  EventType = "TrucoAccepted"
	EvtTrucoRejected  EventType = "TrucoRejected"
	EvtEnvidoCalled   EventType = "EnvidoCalled"
	EvtEnvidoWon      EventType = "EnvidoWon"
	EvtEnvidoRejected EventType = "EnvidoRejected"
	EvtFolded         EventType = "Folded"
	EvtHandWon        EventType = "HandWon"
	EvtHandDealt      EventType = "HandDealt"
	EvtGameCompleted  EventType = "GameCompleted"
)

/*
	play_card      -> EvtCardPlayed [-> EvtTrickWon [-> EvtHandWon -> EvtHandDealt | EvtGameCompleted]]
	call_truco     -> EvtTrucoCalled
	respond_truco  -> EvtTrucoAccepted | EvtTrucoRejected -> EvtHandWon -> EvtHandDealt | EvtGameCompleted
	call_envido    -> EvtEnvidoCalled
	respond_envido -> EvtEnvidoWon | EvtEnvidoRejected [-> EvtGameCompleted]
	fold           -> EvtFolded -> EvtHandWon -> EvtHandDealt | EvtGameCompleted
*/

// Event describes one consequence of an accepted action. Team is the team that acted or
// scored, depending on the type.
type Event struct {
	Type        EventType   `json:"type"`
	Team        Team        `json:"team,omitempty"`
	Seat        int         `json:"seat"`
	Card        *Card       `json:"card,omitempty"`
	Points      int         `json:"points,omitempty"`
	TrucoLevel  int         `json:"trucoLevel,omitempty"`
	EnvidoLevel EnvidoLevel `json:"envidoLevel,omitempty"`
}

type Engine struct {
	shuffle Shuffler
}

type Option func(*Engine)

func WithShuffler(sh Shuffler) Option {
	return func(e *Engine) {
		if sh != nil {
			e.shuffle = sh
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{shuffle: ShuffleDeck}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Apply runs a on the default engine.
func Apply(s State, a Action) ([]Event, State, error) {
	return defaultEngine.Apply(s, a)
}

// Apply validates a against s and returns the next state. s is never modified: on rejection
// it is returned as is together with the reason.
func (e *Engine) Apply(s State, a Action) ([]Event, State, error) {
	if a == nil {
		return nil, s, ErrUnsupportedAction
	}
	if err := Validate(s, a); err != nil {
		return nil, s, err
	}

	player, _ := s.Player(a.Actor())
	next := s.Clone()

	var events []Event
	var err error

	switch act := a.(type) {
	case PlayCard:
		events = e.playCard(&next, player, act.Card)
	case CallTruco:
		events, err = callTruco(&next, player)
	case RespondTruco:
		events, err = e.respondTruco(&next, player, act.Accept)
	case CallEnvido:
		events, err = callEnvido(&next, player, act.Level)
	case RespondEnvido:
		events, err = respondEnvido(&next, player, act.Accept)
	case Fold:
		events = e.fold(&next, player)
	default:
		return nil, s, ErrUnsupportedAction
	}

	if err != nil {
		return nil, s, err
	}
	return events, next, nil
}

func callTruco(s *State, p PlayerState) ([]Event, error) {
	if s.TrucoLevel >= MaxTrucoLevel {
		return nil, ErrTrucoMax
	}

	s.PendingTruco = &PendingTruco{
		Level:     s.TrucoLevel + 1,
		CalledBy:  p.Team,
		RespondBy: Opponent(p.Team),
	}
	return []Event{{Type: EvtTrucoCalled, Team: p.Team, Seat: p.Seat, TrucoLevel: s.PendingTruco.Level}}, nil
}

func (e *Engine) respondTruco(s *State, p PlayerState, accept bool) ([]Event, error) {
	pending := s.PendingTruco
	if pending == nil {
		return nil, ErrNoPendingTruco
	}
	if p.Team != pending.RespondBy {
		return nil, ErrNotResponder
	}

	s.PendingTruco = nil

	if accept {
		s.TrucoLevel = pending.Level
		return []Event{{Type: EvtTrucoAccepted, Team: p.Team, Seat: p.Seat, TrucoLevel: s.TrucoLevel}}, nil
	}

	// The caller wins the hand at the level that was in force before the raise.
	events := []Event{{Type: EvtTrucoRejected, Team: p.Team, Seat: p.Seat, TrucoLevel: pending.Level}}
	return append(events, e.finishHand(s, pending.CalledBy)...), nil
}

func callEnvido(s *State, p PlayerState, level EnvidoLevel) ([]Event, error) {
	if s.PendingEnvido != nil {
		return nil, ErrEnvidoPending
	}
	if !level.Valid() {
		return nil, ErrInvalidEnvidoLevel
	}

	s.PendingEnvido = &PendingEnvido{
		Level:     level,
		CalledBy:  p.Team,
		RespondBy: Opponent(p.Team),
	}
	return []Event{{Type: EvtEnvidoCalled, Team: p.Team, Seat: p.Seat, EnvidoLevel: level}}, nil
}

func respondEnvido(s *State, p PlayerState, accept bool) ([]Event, error) {
	pending := s.PendingEnvido
	if pending == nil {
		return nil, ErrNoPendingEnvido
	}
	if p.Team != pending.RespondBy {
		return nil, ErrNotResponder
	}

	s.PendingEnvido = nil
	s.EnvidoResolved = true

	if !accept {
		award(s, pending.CalledBy, 1)
		events := []Event{{Type: EvtEnvidoRejected, Team: pending.CalledBy, Seat: p.Seat, Points: 1, EnvidoLevel: pending.Level}}
		return append(events, checkGameEnd(s, pending.CalledBy)...), nil
	}

	winner := envidoWinner(*s)
	points := envidoPoints(*s, pending.Level, winner)
	award(s, winner, points)

	events := []Event{{Type: EvtEnvidoWon, Team: winner, Seat: p.Seat, Points: points, EnvidoLevel: pending.Level}}
	return append(events, checkGameEnd(s, winner)...), nil
}

func envidoWinner(s State) Team {
	a, b := TeamEnvido(s, TeamA), TeamEnvido(s, TeamB)
	switch {
	case a > b:
		return TeamA
	case b > a:
		return TeamB
	default:
		return s.Players[s.ManoSeat].Team
	}
}

func envidoPoints(s State, level EnvidoLevel, winner Team) int {
	switch level {
	case RealEnvido:
		return 3
	case FaltaEnvido:
		return s.TargetScore - s.Score(Opponent(winner))
	default:
		return 2
	}
}

func (e *Engine) fold(s *State, p PlayerState) []Event {
	events := []Event{{Type: EvtFolded, Team: p.Team, Seat: p.Seat}}
	return append(events, e.finishHand(s, Opponent(p.Team))...)
}

func (e *Engine) playCard(s *State, p PlayerState, card Card) []Event {
	s.Players[p.Seat].Hand = slices.DeleteFunc(s.Players[p.Seat].Hand, func(c Card) bool { return c == card })
	s.Table = append(s.Table, TrickPlay{UserID: p.UserID, Team: p.Team, Seat: p.Seat, Card: card})
	s.CurrentTurnSeat = nextSeat(*s, s.CurrentTurnSeat)

	events := []Event{{Type: EvtCardPlayed, Team: p.Team, Seat: p.Seat, Card: &card}}
	if len(s.Table) < len(s.Players) {
		return events
	}

	win := ResolveTrick(s.Table, s.TrickLeaderSeat)
	s.LastTrickWinner = win.Team
	s.TricksWon[win.Team]++
	s.Table = []TrickPlay{}
	s.TrickNumber = min(s.TrickNumber+1, 3)
	s.CurrentTurnSeat = win.Seat
	s.TrickLeaderSeat = win.Seat
	events = append(events, Event{Type: EvtTrickWon, Team: win.Team, Seat: win.Seat, Card: &win.Card})

	if s.TricksWon[win.Team] >= 2 {
		events = append(events, e.finishHand(s, win.Team)...)
	}
	return events
}

// ResolveTrick picks the winning play of a full trick. On a tie for the best power the
// leader's play wins if it is among the tied ones, otherwise the first play on the table.
func ResolveTrick(plays []TrickPlay, leaderSeat int) TrickPlay {
	best := plays[0]
	tied := []TrickPlay{best}
	for _, play := range plays[1:] {
		switch power := TrucoPower(play.Card); {
		case power > TrucoPower(best.Card):
			best = play
			tied = []TrickPlay{play}
		case power == TrucoPower(best.Card):
			tied = append(tied, play)
		}
	}

	if len(tied) == 1 {
		return best
	}
	for _, play := range tied {
		if play.Seat == leaderSeat {
			return play
		}
	}
	return plays[0]
}

func (e *Engine) finishHand(s *State, winner Team) []Event {
	events := resolveHand(s, winner)
	return append(events, e.dealNextHand(s)...)
}

// resolveHand awards the hand's truco value to winner and leaves the state in hand_end, or
// game_end once the winner reaches the target.
func resolveHand(s *State, winner Team) []Event {
	award(s, winner, s.TrucoLevel)
	s.LastHandWinner = winner

	events := []Event{{Type: EvtHandWon, Team: winner, Points: s.TrucoLevel, TrucoLevel: s.TrucoLevel}}
	if ended := checkGameEnd(s, winner); ended != nil {
		return append(events, ended...)
	}
	s.Phase = PhaseHandEnd
	return events
}

// dealNextHand rotates the mano seat and deals a fresh hand. No-op once the game ended.
func (e *Engine) dealNextHand(s *State) []Event {
	if s.Phase == PhaseGameEnd {
		return nil
	}

	s.HandNumber++
	s.TrickNumber = 1
	s.Table = []TrickPlay{}
	s.TricksWon = map[Team]int{TeamA: 0, TeamB: 0}
	s.TrucoLevel = 1
	s.PendingTruco = nil
	s.PendingEnvido = nil
	s.EnvidoResolved = false
	s.ManoSeat = nextSeat(*s, s.ManoSeat)
	s.CurrentTurnSeat = s.ManoSeat
	s.TrickLeaderSeat = s.ManoSeat
	e.deal(s)

	return []Event{{Type: EvtHandDealt, Team: s.Players[s.ManoSeat].Team, Seat: s.ManoSeat}}
}

func (e *Engine) deal(s *State) {
	s.Phase = PhaseDealing
	s.Players, s.Deck = dealHands(s.Players, e.shuffle(BuildDeck()))
	markDealer(s)
	s.Phase = PhasePlaying
}

func award(s *State, team Team, points int) {
	t := s.Teams[team]
	t.Score += points
	s.Teams[team] = t
}

func checkGameEnd(s *State, team Team) []Event {
	if s.Score(team) < s.TargetScore {
		return nil
	}
	s.Phase = PhaseGameEnd
	return []Event{{Type: EvtGameCompleted, Team: team, Points: s.Score(team)}}
}
