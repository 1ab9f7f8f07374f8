package card

import (
	"crypto/rand"
	"math/big"
)

// CardList is a mutable stack of cards: the deck during a hand.
type CardList []Card

func (ds *CardList) Init(cards []Card) {
	*ds = make([]Card, len(cards))
	copy(*ds, cards)
}

// Count returns the number of cards remaining.
func (ds CardList) Count() int {
	return len(ds)
}

func (ds CardList) CardsBytes() []byte {
	return Cards2bytes(ds)
}

// Shuffle performs a cryptographically seeded Fisher-Yates shuffle.
// Deal ordering must not be predictable by a client that can observe
// other outputs of the process, so math/rand (the teacher's original
// choice) is not sufficient here.
func (ds CardList) Shuffle() {
	for i := len(ds) - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			panic("card: crypto/rand unavailable: " + err.Error())
		}
		j := int(jBig.Int64())
		ds[i], ds[j] = ds[j], ds[i]
	}
}

func (ds *CardList) Add(cards ...Card) {
	*ds = append(*ds, cards...)
}

// PopCard removes and returns the top card. An empty deck under correct
// engine sequencing can never happen; it is treated as a fatal invariant
// violation rather than a recoverable error.
func (ds *CardList) PopCard() Card {
	n := ds.Count()
	if n == 0 {
		panic("card: deck underflow")
	}
	c := (*ds)[n-1]
	*ds = (*ds)[:n-1]
	return c
}

func (ds *CardList) PopCards(size int) []Card {
	if size > ds.Count() {
		panic("card: deck underflow")
	}
	cards := make([]Card, size)
	copy(cards, (*ds)[:size])
	*ds = (*ds)[size:]
	return cards
}

// Reset restores the deck to a freshly shuffled full set of cards.
func (ds *CardList) Reset(universe []Card) {
	ds.Init(universe)
	ds.Shuffle()
}
