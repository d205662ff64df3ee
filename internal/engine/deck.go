package engine

import (
	"math/rand/v2"
	"slices"
)

const DeckSize = 40
const HandSize = 3

// Shuffler returns a new ordering of cards. It must not modify its input.
type Shuffler func(cards []Card) []Card

// BuildDeck returns the 40 cards in suit-major order. No shuffling.
func BuildDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck = append(deck, Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of cards using the process-wide source.
func ShuffleDeck(cards []Card) []Card {
	return fisherYates(cards, rand.IntN)
}

// NewSeededShuffler returns a reproducible Shuffler. Each call draws from the same stream,
// so two shufflers built from one seed produce the same sequence of decks.
func NewSeededShuffler(seed uint64) Shuffler {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func(cards []Card) []Card {
		return fisherYates(cards, r.IntN)
	}
}

// IdentityShuffler keeps the input order. Used to make deals predictable in tests.
func IdentityShuffler(cards []Card) []Card {
	return slices.Clone(cards)
}

func fisherYates(cards []Card, intN func(int) int) []Card {
	deck := slices.Clone(cards)
	for i := len(deck) - 1; i > 0; i-- {
		j := intN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}
