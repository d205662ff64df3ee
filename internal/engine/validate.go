package engine

import (
	"errors"
	"slices"
)

var ErrNotSeated = errors.New("player not seated in this match")
var ErrNotPlaying = errors.New("game is not in playing phase")
var ErrPendingCall = errors.New("pending call must be resolved first")
var ErrWrongTurn = errors.New("not your turn")
var ErrCardNotHeld = errors.New("card not in player hand")
var ErrEnvidoWindow = errors.New("envido can only be called before the first card of the hand")
var ErrEnvidoResolved = errors.New("envido already resolved this hand")

// Validate decides whether a is legal in s. A nil error means legal. Checks that depend on
// the pending calls themselves (who may respond, max truco level) happen in Apply.
func Validate(s State, a Action) error {
	player, ok := s.Player(a.Actor())
	if !ok {
		return ErrNotSeated
	}

	if s.Phase != PhasePlaying {
		return ErrNotPlaying
	}

	if s.PendingTruco != nil || s.PendingEnvido != nil {
		switch a.(type) {
		case RespondTruco, RespondEnvido:
			return nil
		}
		return ErrPendingCall
	}

	switch act := a.(type) {
	case PlayCard:
		if player.Seat != s.CurrentTurnSeat {
			return ErrWrongTurn
		}
		if !slices.Contains(player.Hand, act.Card) {
			return ErrCardNotHeld
		}

	case CallEnvido:
		if s.TrickNumber != 1 || len(s.Table) > 0 {
			return ErrEnvidoWindow
		}
		if s.EnvidoResolved {
			return ErrEnvidoResolved
		}
	}

	return nil
}
