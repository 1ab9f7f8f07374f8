// Package poker implements the hand evaluator: a totally ordered rank
// over 5-card hands, and best-of-N selection for Hold'em and Omaha.
//
// The teacher (moonhole-HoldemIJ's holdem/evaluator.go) evaluates via the
// Cactus Kev prime-product lookup-table scheme, but its lookup tables
// (kevFlushesTable, kevUnique5Table, kevProductsTable) are referenced by
// that file and not present anywhere in the retrieval pack. Rather than
// port a table-driven scheme missing its tables, this evaluator builds
// the rank directly from suit/rank counts, the way the Python original
// (original_source/app/poker/hand_evaluator.py: evaluate_5) does it, in
// Go idiom rather than a line-for-line port.
package poker

import (
	"sort"

	"holdem-lite/card"
)

// HandType is the hand category, worst to best.
type HandType byte

const (
	HighCard HandType = iota + 1
	OnePair
	TwoPair
	ThreeOfKind
	Straight
	Flush
	FullHouse
	FourOfKind
	StraightFlush
	RoyalFlush
)

var handTypeNames = map[HandType]string{
	HighCard:      "high_card",
	OnePair:       "one_pair",
	TwoPair:       "two_pair",
	ThreeOfKind:   "three_of_a_kind",
	Straight:      "straight",
	Flush:         "flush",
	FullHouse:     "full_house",
	FourOfKind:    "four_of_a_kind",
	StraightFlush: "straight_flush",
	RoyalFlush:    "royal_flush",
}

func (h HandType) String() string {
	if name, ok := handTypeNames[h]; ok {
		return name
	}
	return "unknown"
}

// Rank is a totally ordered hand strength. Two Ranks are ordered by
// Rank.Compare: Category first, then Tiebreak entries high to low.
type Rank struct {
	Category  HandType
	Tiebreak  [5]int // meaning depends on Category; zero-padded
}

// Compare returns -1, 0, or 1 the way a.Compare(b) conventionally does.
func (a Rank) Compare(b Rank) int {
	if a.Category != b.Category {
		if a.Category < b.Category {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.Tiebreak); i++ {
		if a.Tiebreak[i] != b.Tiebreak[i] {
			if a.Tiebreak[i] < b.Tiebreak[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether a ranks below b.
func (a Rank) Less(b Rank) bool { return a.Compare(b) < 0 }

// Result is the outcome of evaluating a set of cards: the rank achieved
// and the exact five cards that produced it.
type Result struct {
	Rank  Rank
	Cards [5]card.Card
}

// Eval5 evaluates exactly five cards and returns their Rank.
func Eval5(cards [5]card.Card) Rank {
	values := make([]int, 5)
	for i, c := range cards {
		values[i] = c.HandRealVal()
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	counts := map[int]int{}
	for _, v := range values {
		counts[v]++
	}

	flush := true
	suit0 := cards[0].Suit()
	for _, c := range cards[1:] {
		if c.Suit() != suit0 {
			flush = false
			break
		}
	}

	straight, straightHigh := detectStraight(values)

	if flush && straight {
		if straightHigh == 14 {
			return Rank{Category: RoyalFlush}
		}
		return Rank{Category: StraightFlush, Tiebreak: [5]int{straightHigh}}
	}

	type countedRank struct{ value, count int }
	var byCount []countedRank
	for v, c := range counts {
		byCount = append(byCount, countedRank{v, c})
	}
	sort.Slice(byCount, func(i, j int) bool {
		if byCount[i].count != byCount[j].count {
			return byCount[i].count > byCount[j].count
		}
		return byCount[i].value > byCount[j].value
	})

	switch {
	case byCount[0].count == 4:
		kicker := highestExcluding(values, byCount[0].value)
		return Rank{Category: FourOfKind, Tiebreak: [5]int{byCount[0].value, kicker}}
	case byCount[0].count == 3 && byCount[1].count == 2:
		return Rank{Category: FullHouse, Tiebreak: [5]int{byCount[0].value, byCount[1].value}}
	case flush:
		var tb [5]int
		copy(tb[:], values)
		return Rank{Category: Flush, Tiebreak: tb}
	case straight:
		return Rank{Category: Straight, Tiebreak: [5]int{straightHigh}}
	case byCount[0].count == 3:
		kickers := excludingSorted(values, byCount[0].value)
		return Rank{Category: ThreeOfKind, Tiebreak: [5]int{byCount[0].value, kickers[0], kickers[1]}}
	case byCount[0].count == 2 && byCount[1].count == 2:
		hi, lo := byCount[0].value, byCount[1].value
		if hi < lo {
			hi, lo = lo, hi
		}
		kicker := highestExcludingPair(values, hi, lo)
		return Rank{Category: TwoPair, Tiebreak: [5]int{hi, lo, kicker}}
	case byCount[0].count == 2:
		kickers := excludingSorted(values, byCount[0].value)
		return Rank{Category: OnePair, Tiebreak: [5]int{byCount[0].value, kickers[0], kickers[1], kickers[2]}}
	default:
		var tb [5]int
		copy(tb[:], values)
		return Rank{Category: HighCard, Tiebreak: tb}
	}
}

// detectStraight expects values sorted descending; handles the wheel
// (A-2-3-4-5), which ranks as five-high, below a six-high straight.
func detectStraight(valuesDesc []int) (bool, int) {
	unique := dedupe(valuesDesc)
	if len(unique) == 5 && unique[0]-unique[4] == 4 {
		return true, unique[0]
	}
	// wheel: A,5,4,3,2 (after dedupe, descending, Ace=14)
	if len(unique) == 5 && unique[0] == 14 && unique[1] == 5 && unique[2] == 4 && unique[3] == 3 && unique[4] == 2 {
		return true, 5
	}
	return false, 0
}

func dedupe(valuesDesc []int) []int {
	out := make([]int, 0, len(valuesDesc))
	for i, v := range valuesDesc {
		if i == 0 || v != valuesDesc[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func highestExcluding(values []int, exclude int) int {
	best := -1
	for _, v := range values {
		if v != exclude && v > best {
			best = v
		}
	}
	return best
}

func highestExcludingPair(values []int, a, b int) int {
	best := -1
	for _, v := range values {
		if v != a && v != b && v > best {
			best = v
		}
	}
	return best
}

func excludingSorted(values []int, exclude int) []int {
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v != exclude {
			out = append(out, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	for len(out) < 4 {
		out = append(out, 0)
	}
	return out
}
