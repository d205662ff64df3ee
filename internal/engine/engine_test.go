package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEngine = New(WithShuffler(IdentityShuffler))

// newTestGame seats p0..pN-1 with even seats on team A. With the identity shuffler a 2-player
// deal is p0: 1,3,5 of espada and p1: 2,4,6 of espada.
func newTestGame(t *testing.T, n int) State {
	t.Helper()
	seats := make([]Seat, n)
	for i := range seats {
		team := TeamA
		if i%2 == 1 {
			team = TeamB
		}
		seats[i] = Seat{UserID: fmt.Sprintf("p%d", i), Seat: i, Team: team}
	}
	s, err := testEngine.NewGame(GameParams{RoomID: "room-1", Players: seats, TargetScore: 15})
	require.NoError(t, err)
	return s
}

func apply(t *testing.T, s State, a Action) ([]Event, State) {
	t.Helper()
	events, next, err := testEngine.Apply(s, a)
	require.NoError(t, err, "action %s by %s", a.Type(), a.Actor())
	return events, next
}

func TestNewGame_DealsFirstHand(t *testing.T) {
	s := newTestGame(t, 2)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Equal(t, 1, s.HandNumber)
	assert.Equal(t, 1, s.TrickNumber)
	assert.Equal(t, 1, s.TrucoLevel)
	assert.Equal(t, 0, s.ManoSeat)
	assert.Equal(t, 0, s.CurrentTurnSeat)
	assert.Equal(t, 0, s.TrickLeaderSeat)
	assert.Len(t, s.Deck, DeckSize-6)
	assert.Empty(t, s.Table)

	assert.Equal(t, []Card{c(SuitEspada, 1), c(SuitEspada, 3), c(SuitEspada, 5)}, s.Players[0].Hand)
	assert.Equal(t, []Card{c(SuitEspada, 2), c(SuitEspada, 4), c(SuitEspada, 6)}, s.Players[1].Hand)
	assert.False(t, s.Players[0].IsDealer)
	assert.True(t, s.Players[1].IsDealer)
}

func TestNewGame_OrdersPlayersBySeat(t *testing.T) {
	s, err := testEngine.NewGame(GameParams{
		RoomID: "r",
		Players: []Seat{
			{UserID: "c", Seat: 2, Team: TeamA},
			{UserID: "a", Seat: 0, Team: TeamA},
			{UserID: "d", Seat: 3, Team: TeamB},
			{UserID: "b", Seat: 1, Team: TeamB},
		},
		TargetScore: 30,
	})
	require.NoError(t, err)

	for i, p := range s.Players {
		assert.Equal(t, i, p.Seat)
		assert.Len(t, p.Hand, HandSize)
	}
	assert.Equal(t, "a", s.Players[0].UserID)
	assert.Len(t, s.Deck, DeckSize-12)
}

func TestNewGame_RejectsBadParams(t *testing.T) {
	two := []Seat{{UserID: "a", Seat: 0, Team: TeamA}, {UserID: "b", Seat: 1, Team: TeamB}}

	cases := []struct {
		name   string
		params GameParams
	}{
		{"target score", GameParams{Players: two, TargetScore: 20}},
		{"three players", GameParams{Players: append(two, Seat{UserID: "c", Seat: 2, Team: TeamA}), TargetScore: 15}},
		{"duplicate seat", GameParams{Players: []Seat{{UserID: "a", Seat: 0, Team: TeamA}, {UserID: "b", Seat: 0, Team: TeamB}}, TargetScore: 15}},
		{"seat out of range", GameParams{Players: []Seat{{UserID: "a", Seat: 0, Team: TeamA}, {UserID: "b", Seat: 2, Team: TeamB}}, TargetScore: 15}},
		{"duplicate user", GameParams{Players: []Seat{{UserID: "a", Seat: 0, Team: TeamA}, {UserID: "a", Seat: 1, Team: TeamB}}, TargetScore: 15}},
		{"unbalanced teams", GameParams{Players: []Seat{{UserID: "a", Seat: 0, Team: TeamA}, {UserID: "b", Seat: 1, Team: TeamA}}, TargetScore: 15}},
		{"unknown team", GameParams{Players: []Seat{{UserID: "a", Seat: 0, Team: TeamA}, {UserID: "b", Seat: 1, Team: "C"}}, TargetScore: 15}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testEngine.NewGame(tc.params)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	s := newTestGame(t, 2)
	before := s.Clone()

	_, next := apply(t, s, PlayCard{UserID: "p0", Card: c(SuitEspada, 1)})

	assert.Equal(t, before, s)
	assert.Len(t, next.Players[0].Hand, 2)
	assert.Len(t, next.Table, 1)
}

func TestApply_RejectionReturnsSameState(t *testing.T) {
	s := newTestGame(t, 2)
	before := s.Clone()

	events, next, err := testEngine.Apply(s, PlayCard{UserID: "p1", Card: c(SuitEspada, 2)})

	assert.ErrorIs(t, err, ErrWrongTurn)
	assert.Nil(t, events)
	assert.Equal(t, before, next)
}

func TestApply_NilAction(t *testing.T) {
	_, _, err := testEngine.Apply(newTestGame(t, 2), nil)
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestResolveTrick(t *testing.T) {
	play := func(seat int, team Team, card Card) TrickPlay {
		return TrickPlay{UserID: fmt.Sprintf("p%d", seat), Seat: seat, Team: team, Card: card}
	}

	cases := []struct {
		name     string
		plays    []TrickPlay
		leader   int
		wantSeat int
	}{
		{
			name: "leader wins a tie among the best",
			plays: []TrickPlay{
				play(1, TeamB, c(SuitOro, 2)),
				play(2, TeamA, c(SuitCopa, 2)),
				play(0, TeamA, c(SuitOro, 5)),
			},
			leader:   1,
			wantSeat: 1,
		},
		{
			name: "highest power wins regardless of order",
			plays: []TrickPlay{
				play(0, TeamA, c(SuitOro, 4)),
				play(1, TeamB, c(SuitCopa, 6)),
				play(2, TeamA, c(SuitEspada, 1)),
				play(3, TeamB, c(SuitOro, 3)),
			},
			leader:   0,
			wantSeat: 2,
		},
		{
			name: "a stronger card clears an earlier tie",
			plays: []TrickPlay{
				play(0, TeamA, c(SuitOro, 3)),
				play(1, TeamB, c(SuitCopa, 3)),
				play(2, TeamA, c(SuitOro, 7)),
				play(3, TeamB, c(SuitBasto, 4)),
			},
			leader:   0,
			wantSeat: 2,
		},
		{
			name: "tie without the leader falls back to the first play",
			plays: []TrickPlay{
				play(0, TeamA, c(SuitOro, 4)),
				play(1, TeamB, c(SuitCopa, 3)),
				play(2, TeamA, c(SuitOro, 3)),
				play(3, TeamB, c(SuitBasto, 4)),
			},
			leader:   0,
			wantSeat: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveTrick(tc.plays, tc.leader)
			assert.Equal(t, tc.wantSeat, got.Seat)
		})
	}
}

func TestPlayCard_TurnAdvancesAndTrickResolves(t *testing.T) {
	s := newTestGame(t, 4)
	// p0: 1,5,11 espada  p1: 2,6,12 espada  p2: 3,7 espada 1 basto  p3: 4,10 espada 2 basto

	_, s = apply(t, s, PlayCard{UserID: "p0", Card: c(SuitEspada, 5)})
	assert.Equal(t, 1, s.CurrentTurnSeat)

	_, _, err := testEngine.Apply(s, PlayCard{UserID: "p2", Card: c(SuitEspada, 3)})
	assert.ErrorIs(t, err, ErrWrongTurn)

	_, s = apply(t, s, PlayCard{UserID: "p1", Card: c(SuitEspada, 2)})
	_, s = apply(t, s, PlayCard{UserID: "p2", Card: c(SuitEspada, 7)})
	events, s := apply(t, s, PlayCard{UserID: "p3", Card: c(SuitEspada, 4)})

	require.True(t, ContainsEvent(events, EvtTrickWon))
	assert.Empty(t, s.Table)
	assert.Equal(t, 2, s.TrickNumber)
	assert.Equal(t, 2, s.CurrentTurnSeat, "7 of espada takes the trick")
	assert.Equal(t, 2, s.TrickLeaderSeat)
	assert.Equal(t, 1, s.TricksWon[TeamA])
	assert.Equal(t, TeamA, s.LastTrickWinner)
	assert.Len(t, s.Players[3].Hand, 2)
}

func TestPlayCard_TwoTricksEndTheHand(t *testing.T) {
	s := newTestGame(t, 2)

	_, s = apply(t, s, PlayCard{UserID: "p0", Card: c(SuitEspada, 1)})
	_, s = apply(t, s, PlayCard{UserID: "p1", Card: c(SuitEspada, 2)})
	_, s = apply(t, s, PlayCard{UserID: "p0", Card: c(SuitEspada, 3)})
	events, s := apply(t, s, PlayCard{UserID: "p1", Card: c(SuitEspada, 4)})

	assert.True(t, ContainsEvent(events, EvtHandWon))
	assert.True(t, ContainsEvent(events, EvtHandDealt))
	assert.Equal(t, 1, s.Score(TeamA))
	assert.Equal(t, 0, s.Score(TeamB))
	assert.Equal(t, TeamA, s.LastHandWinner)

	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Equal(t, 2, s.HandNumber)
	assert.Equal(t, 1, s.TrickNumber)
	assert.Equal(t, 1, s.ManoSeat)
	assert.Equal(t, 1, s.CurrentTurnSeat)
	assert.Equal(t, 1, s.TrickLeaderSeat)
	assert.Equal(t, map[Team]int{TeamA: 0, TeamB: 0}, s.TricksWon)
	assert.True(t, s.Players[0].IsDealer)
	assert.False(t, s.Players[1].IsDealer)
	// dealt in seat order, not from mano
	assert.Equal(t, []Card{c(SuitEspada, 1), c(SuitEspada, 3), c(SuitEspada, 5)}, s.Players[0].Hand)
}

func TestPlayCard_ThirdTrickDecides(t *testing.T) {
	s := newTestGame(t, 2)

	_, s = apply(t, s, PlayCard{UserID: "p0", Card: c(SuitEspada, 1)})
	_, s = apply(t, s, PlayCard{UserID: "p1", Card: c(SuitEspada, 4)})
	// p0 leads again and loses the second trick
	_, s = apply(t, s, PlayCard{UserID: "p0", Card: c(SuitEspada, 5)})
	_, s = apply(t, s, PlayCard{UserID: "p1", Card: c(SuitEspada, 6)})
	assert.Equal(t, 3, s.TrickNumber)
	assert.Equal(t, 1, s.CurrentTurnSeat)
	assert.Equal(t, 1, s.TricksWon[TeamA])
	assert.Equal(t, 1, s.TricksWon[TeamB])

	_, s = apply(t, s, PlayCard{UserID: "p1", Card: c(SuitEspada, 2)})
	_, s = apply(t, s, PlayCard{UserID: "p0", Card: c(SuitEspada, 3)})

	assert.Equal(t, 1, s.Score(TeamA), "3 beats 2")
	assert.Equal(t, 2, s.HandNumber)
}

func TestCallTruco_AtMaxIsRejected(t *testing.T) {
	s := newTestGame(t, 2)
	s.TrucoLevel = 4
	before := s.Clone()

	_, next, err := testEngine.Apply(s, CallTruco{UserID: "p0"})

	assert.ErrorIs(t, err, ErrTrucoMax)
	assert.Contains(t, err.Error(), "max")
	assert.Equal(t, before, next)
}

func TestCallTruco_SetsPendingWithoutRaising(t *testing.T) {
	s := newTestGame(t, 2)

	events, s := apply(t, s, CallTruco{UserID: "p1"})

	require.NotNil(t, s.PendingTruco)
	assert.Equal(t, PendingTruco{Level: 2, CalledBy: TeamB, RespondBy: TeamA}, *s.PendingTruco)
	assert.Equal(t, 1, s.TrucoLevel)
	assert.True(t, ContainsEvent(events, EvtTrucoCalled))
}

func TestRespondTruco_Accept(t *testing.T) {
	s := newTestGame(t, 2)
	_, s = apply(t, s, CallTruco{UserID: "p0"})

	_, _, err := testEngine.Apply(s, RespondTruco{UserID: "p0", Accept: true})
	assert.ErrorIs(t, err, ErrNotResponder)

	_, s = apply(t, s, RespondTruco{UserID: "p1", Accept: true})

	assert.Nil(t, s.PendingTruco)
	assert.Equal(t, 2, s.TrucoLevel)
	assert.Equal(t, 0, s.CurrentTurnSeat)

	// the raised hand is worth 2
	_, s = apply(t, s, PlayCard{UserID: "p0", Card: c(SuitEspada, 1)})
	_, s = apply(t, s, PlayCard{UserID: "p1", Card: c(SuitEspada, 2)})
	_, s = apply(t, s, PlayCard{UserID: "p0", Card: c(SuitEspada, 3)})
	_, s = apply(t, s, PlayCard{UserID: "p1", Card: c(SuitEspada, 4)})
	assert.Equal(t, 2, s.Score(TeamA))
	assert.Equal(t, 1, s.TrucoLevel)
}

func TestRespondTruco_RejectAwardsPreRaiseLevelAndDeals(t *testing.T) {
	s := newTestGame(t, 2)
	_, s = apply(t, s, PlayCard{UserID: "p0", Card: c(SuitEspada, 1)})
	s.TrucoLevel = 2

	_, s = apply(t, s, CallTruco{UserID: "p1"})
	events, s := apply(t, s, RespondTruco{UserID: "p0", Accept: false})

	assert.True(t, ContainsEvent(events, EvtTrucoRejected))
	assert.Equal(t, 2, s.Score(TeamB))
	assert.Equal(t, 0, s.Score(TeamA))
	assert.Equal(t, TeamB, s.LastHandWinner)

	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Equal(t, 2, s.HandNumber)
	assert.Empty(t, s.Table)
	assert.Equal(t, 1, s.TrucoLevel)
	assert.Nil(t, s.PendingTruco)
	assert.Len(t, s.Players[0].Hand, HandSize)
}

func TestRespondTruco_RejectCanEndTheGame(t *testing.T) {
	s := newTestGame(t, 2)
	s.TrucoLevel = 2
	s.Teams[TeamA] = TeamState{ID: TeamA, Score: 14}

	_, s = apply(t, s, CallTruco{UserID: "p0"})
	events, s := apply(t, s, RespondTruco{UserID: "p1", Accept: false})

	assert.True(t, ContainsEvent(events, EvtGameCompleted))
	assert.False(t, ContainsEvent(events, EvtHandDealt))
	assert.Equal(t, PhaseGameEnd, s.Phase)
	assert.Equal(t, 16, s.Score(TeamA))
	assert.Equal(t, 1, s.HandNumber)

	winner, ok := s.Winner()
	assert.True(t, ok)
	assert.Equal(t, TeamA, winner)

	_, _, err := testEngine.Apply(s, Fold{UserID: "p1"})
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestRespondTruco_NothingPending(t *testing.T) {
	s := newTestGame(t, 2)
	_, _, err := testEngine.Apply(s, RespondTruco{UserID: "p1", Accept: true})
	assert.ErrorIs(t, err, ErrNoPendingTruco)

	// a pending envido lets the respond through validation, the engine still refuses it
	_, s = apply(t, s, CallEnvido{UserID: "p0", Level: Envido})
	_, _, err = testEngine.Apply(s, RespondTruco{UserID: "p1", Accept: true})
	assert.ErrorIs(t, err, ErrNoPendingTruco)
}

func TestEnvido_AcceptHigherScoreWins(t *testing.T) {
	s := newTestGame(t, 2)
	// p0 has 28 (5+3), p1 has 30 (6+4)

	events, s := apply(t, s, CallEnvido{UserID: "p0", Level: Envido})
	require.NotNil(t, s.PendingEnvido)
	assert.True(t, ContainsEvent(events, EvtEnvidoCalled))

	_, _, err := testEngine.Apply(s, PlayCard{UserID: "p0", Card: c(SuitEspada, 1)})
	assert.ErrorIs(t, err, ErrPendingCall)

	_, _, err = testEngine.Apply(s, RespondEnvido{UserID: "p0", Accept: true})
	assert.ErrorIs(t, err, ErrNotResponder)

	events, s = apply(t, s, RespondEnvido{UserID: "p1", Accept: true})
	assert.True(t, ContainsEvent(events, EvtEnvidoWon))
	assert.Equal(t, 2, s.Score(TeamB))
	assert.Equal(t, 0, s.Score(TeamA))
	assert.True(t, s.EnvidoResolved)
	assert.Nil(t, s.PendingEnvido)
	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Equal(t, 1, s.HandNumber, "envido never ends the hand")

	_, _, err = testEngine.Apply(s, CallEnvido{UserID: "p0", Level: RealEnvido})
	assert.ErrorIs(t, err, ErrEnvidoResolved)
}

func TestEnvido_TieGoesToMano(t *testing.T) {
	s := newTestGame(t, 2)
	s.Players[0].Hand = []Card{c(SuitOro, 7), c(SuitCopa, 10), c(SuitBasto, 4)}
	s.Players[1].Hand = []Card{c(SuitCopa, 7), c(SuitOro, 11), c(SuitEspada, 4)}

	_, s = apply(t, s, CallEnvido{UserID: "p1", Level: RealEnvido})
	_, s = apply(t, s, RespondEnvido{UserID: "p0", Accept: true})

	assert.Equal(t, 3, s.Score(TeamA))
	assert.Equal(t, 0, s.Score(TeamB))
}

func TestEnvido_Reject(t *testing.T) {
	s := newTestGame(t, 2)

	_, s = apply(t, s, CallEnvido{UserID: "p0", Level: FaltaEnvido})
	events, s := apply(t, s, RespondEnvido{UserID: "p1", Accept: false})

	assert.True(t, ContainsEvent(events, EvtEnvidoRejected))
	assert.Equal(t, 1, s.Score(TeamA))
	assert.True(t, s.EnvidoResolved)
	assert.Equal(t, 1, s.HandNumber)
}

func TestEnvido_FaltaUsesLoserScore(t *testing.T) {
	s := newTestGame(t, 2)
	s.Teams[TeamA] = TeamState{ID: TeamA, Score: 5}
	s.Teams[TeamB] = TeamState{ID: TeamB, Score: 9}

	_, s = apply(t, s, CallEnvido{UserID: "p0", Level: FaltaEnvido})
	events, s := apply(t, s, RespondEnvido{UserID: "p1", Accept: true})

	assert.Equal(t, 19, s.Score(TeamB), "team B wins 30 to 28 and takes 15-5")
	assert.Equal(t, PhaseGameEnd, s.Phase)
	assert.True(t, ContainsEvent(events, EvtGameCompleted))
}

func TestEnvido_InvalidLevel(t *testing.T) {
	s := newTestGame(t, 2)
	_, _, err := testEngine.Apply(s, CallEnvido{UserID: "p0", Level: "flor"})
	assert.ErrorIs(t, err, ErrInvalidEnvidoLevel)
}

func TestFold_AwardsOpponentAndDeals(t *testing.T) {
	s := newTestGame(t, 2)
	s.TrucoLevel = 3

	events, s := apply(t, s, Fold{UserID: "p0"})

	assert.True(t, ContainsEvent(events, EvtFolded))
	assert.Equal(t, 3, s.Score(TeamB))
	assert.Equal(t, 0, s.Score(TeamA))
	assert.Equal(t, 2, s.HandNumber)
	assert.Equal(t, 1, s.TrucoLevel)
}

func TestFold_FullGameEndsExactlyAtTarget(t *testing.T) {
	s := newTestGame(t, 2)

	for i := 1; i <= 15; i++ {
		_, next, err := testEngine.Apply(s, Fold{UserID: "p1"})
		require.NoError(t, err)
		s = next

		assert.Equal(t, i, s.Score(TeamA))
		if i < 15 {
			require.Equal(t, PhasePlaying, s.Phase, "game ended early at %d", i)
		}
	}

	assert.Equal(t, PhaseGameEnd, s.Phase)
	assert.Equal(t, 15, s.HandNumber)
	winner, ok := s.Winner()
	require.True(t, ok)
	assert.Equal(t, TeamA, winner)
}

func TestApply_ReplayIsDeterministic(t *testing.T) {
	start := newTestGame(t, 4)
	actions := []Action{
		CallEnvido{UserID: "p0", Level: Envido},
		RespondEnvido{UserID: "p1", Accept: true},
		CallTruco{UserID: "p1"},
		RespondTruco{UserID: "p2", Accept: true},
		PlayCard{UserID: "p0", Card: c(SuitEspada, 1)},
		PlayCard{UserID: "p1", Card: c(SuitEspada, 2)},
		PlayCard{UserID: "p2", Card: c(SuitEspada, 3)},
		PlayCard{UserID: "p3", Card: c(SuitEspada, 4)},
		PlayCard{UserID: "p0", Card: c(SuitEspada, 5)},
		PlayCard{UserID: "p1", Card: c(SuitEspada, 6)},
		PlayCard{UserID: "p2", Card: c(SuitEspada, 7)},
		PlayCard{UserID: "p3", Card: c(SuitEspada, 10)},
		Fold{UserID: "p3"},
	}

	run := func() State {
		s := start
		for _, a := range actions {
			_, next, err := testEngine.Apply(s, a)
			require.NoError(t, err, "action %s by %s", a.Type(), a.Actor())
			s = next
		}
		return s
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
	assert.Equal(t, 3, first.HandNumber)
	// envido 2, the accepted truco hand 2, the fold 1
	assert.Equal(t, 5, first.Score(TeamA))
	assert.Equal(t, 0, first.Score(TeamB))
}
