package engine

import "fmt"

type Suit string

const (
	SuitEspada Suit = "espada"
	SuitBasto  Suit = "basto"
	SuitOro    Suit = "oro"
	SuitCopa   Suit = "copa"
)

// Rank is the face number printed on a Spanish deck card. 8s and 9s are not used in truco.
type Rank int

var Suits = []Suit{SuitEspada, SuitBasto, SuitOro, SuitCopa}
var Ranks = []Rank{1, 2, 3, 4, 5, 6, 7, 10, 11, 12}

type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) String() string {
	return fmt.Sprintf("%d de %s", c.Rank, c.Suit)
}

func (s Suit) Valid() bool {
	switch s {
	case SuitEspada, SuitBasto, SuitOro, SuitCopa:
		return true
	}
	return false
}

func (r Rank) Valid() bool {
	return (r >= 1 && r <= 7) || (r >= 10 && r <= 12)
}

func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Rank.Valid()
}
