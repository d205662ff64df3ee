package engine

// Seats go round-robin in seat order. Players is indexed by seat.

func nextSeat(s State, seat int) int {
	return (seat + 1) % len(s.Players)
}

// dealerSeat is the seat right before mano.
func dealerSeat(mano, players int) int {
	return (mano - 1 + players) % players
}

func markDealer(s *State) {
	dealer := dealerSeat(s.ManoSeat, len(s.Players))
	for i := range s.Players {
		s.Players[i].IsDealer = s.Players[i].Seat == dealer
	}
}

// dealHands gives HandSize cards to every player, one per round in seat order, taken from the
// front of deck. It returns fresh player values and the undealt rest of the deck.
func dealHands(players []PlayerState, deck []Card) ([]PlayerState, []Card) {
	dealt := make([]PlayerState, len(players))
	for i, p := range players {
		p.Hand = make([]Card, 0, HandSize)
		dealt[i] = p
	}

	next := 0
	for round := 0; round < HandSize; round++ {
		for i := range dealt {
			if next >= len(deck) {
				break
			}
			dealt[i].Hand = append(dealt[i].Hand, deck[next])
			next++
		}
	}

	rest := make([]Card, len(deck)-next)
	copy(rest, deck[next:])
	return dealt, rest
}
