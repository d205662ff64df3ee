package engine

// TrucoPower ranks a card for trick comparison only. Higher wins.
func TrucoPower(c Card) int {
	switch {
	case c.Rank == 1 && c.Suit == SuitEspada:
		return 14
	case c.Rank == 1 && c.Suit == SuitBasto:
		return 13
	case c.Rank == 7 && c.Suit == SuitEspada:
		return 12
	case c.Rank == 7 && c.Suit == SuitOro:
		return 11
	}

	switch c.Rank {
	case 3:
		return 10
	case 2:
		return 9
	case 1:
		return 8
	case 12:
		return 7
	case 11:
		return 6
	case 10:
		return 5
	case 7:
		return 4
	case 6:
		return 3
	case 5:
		return 2
	default:
		return 1
	}
}

// EnvidoCardValue is the face value for 1-7 and zero for the figures (10, 11, 12).
func EnvidoCardValue(c Card) int {
	if c.Rank >= 10 {
		return 0
	}
	return int(c.Rank)
}

// EnvidoScore returns the best envido a hand can sing: the two highest cards of a suit plus 20
// when a suit repeats, otherwise the highest single card.
func EnvidoScore(hand []Card) int {
	bySuit := make(map[Suit][]int, len(Suits))
	for _, c := range hand {
		bySuit[c.Suit] = append(bySuit[c.Suit], EnvidoCardValue(c))
	}

	best := 0
	for _, values := range bySuit {
		first, second := topTwo(values)
		score := first
		if len(values) >= 2 {
			score = first + second + 20
		}
		best = max(best, score)
	}
	return best
}

func topTwo(values []int) (int, int) {
	first, second := -1, -1
	for _, v := range values {
		switch {
		case v > first:
			first, second = v, first
		case v > second:
			second = v
		}
	}
	return first, second
}

// TeamEnvido is the best envido among the team's players, not a sum.
func TeamEnvido(s State, team Team) int {
	best := 0
	for _, p := range s.Players {
		if p.Team == team {
			best = max(best, EnvidoScore(p.Hand))
		}
	}
	return best
}
