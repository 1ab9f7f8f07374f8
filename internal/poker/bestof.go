package poker

import "holdem-lite/card"

// GameKind selects the combinatorial rule for best-hand selection.
type GameKind byte

const (
	Holdem GameKind = iota
	Omaha
)

// BestHand returns the best five-card hand obtainable from hole and board
// under the given game kind.
//
//   - Hold'em: any 5 of the 7 hole+board cards (21 combinations).
//   - Omaha: exactly 2 of 4 hole cards and 3 of 5 board cards (6*10=60).
func BestHand(hole, board []card.Card, kind GameKind) Result {
	switch kind {
	case Omaha:
		return bestOmaha(hole, board)
	default:
		return bestHoldem(append(append([]card.Card{}, hole...), board...))
	}
}

func bestHoldem(cards []card.Card) Result {
	var best Result
	haveBest := false
	combos5(cards, func(five [5]card.Card) {
		r := Eval5(five)
		if !haveBest || best.Rank.Compare(r) < 0 {
			best = Result{Rank: r, Cards: five}
			haveBest = true
		}
	})
	return best
}

func bestOmaha(hole, board []card.Card) Result {
	var best Result
	haveBest := false
	combosK(hole, 2, func(holeTwo []card.Card) {
		combosK(board, 3, func(boardThree []card.Card) {
			var five [5]card.Card
			copy(five[0:2], holeTwo)
			copy(five[2:5], boardThree)
			r := Eval5(five)
			if !haveBest || best.Rank.Compare(r) < 0 {
				best = Result{Rank: r, Cards: five}
				haveBest = true
			}
		})
	})
	return best
}

// combos5 iterates all 5-card combinations of cards (expects len>=5).
func combos5(cards []card.Card, fn func([5]card.Card)) {
	n := len(cards)
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						fn([5]card.Card{cards[a], cards[b], cards[c], cards[d], cards[e]})
					}
				}
			}
		}
	}
}

// combosK iterates all k-combinations of cards, invoking fn with a
// freshly allocated slice each time.
func combosK(cards []card.Card, k int, fn func([]card.Card)) {
	n := len(cards)
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]card.Card, k)
		for i, ix := range idx {
			combo[i] = cards[ix]
		}
		fn(combo)

		i := k - 1
		for i >= 0 && idx[i] == i+n-k {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
