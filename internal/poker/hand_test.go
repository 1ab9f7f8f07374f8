package poker

import (
	"testing"

	"holdem-lite/card"
)

func TestEval5_RoyalFlushBeatsLowerStraightFlush(t *testing.T) {
	royal := Eval5([5]card.Card{
		card.CardSpadeA, card.CardSpadeK, card.CardSpadeQ, card.CardSpadeJ, card.CardSpadeT,
	})
	if royal.Category != RoyalFlush {
		t.Fatalf("expected royal flush, got %s", royal.Category)
	}

	sf := Eval5([5]card.Card{
		card.CardHeartK, card.CardHeartQ, card.CardHeartJ, card.CardHeartT, card.CardHeart9,
	})
	if sf.Category != StraightFlush {
		t.Fatalf("expected straight flush, got %s", sf.Category)
	}
	if royal.Compare(sf) <= 0 {
		t.Fatalf("expected royal flush to beat lower straight flush")
	}
}

func TestEval5_WheelStraightIsLowestStraight(t *testing.T) {
	wheel := Eval5([5]card.Card{
		card.CardSpadeA, card.CardHeart2, card.CardClub3, card.CardDiamond4, card.CardSpade5,
	})
	if wheel.Category != Straight {
		t.Fatalf("expected straight for wheel, got %s", wheel.Category)
	}

	sixHigh := Eval5([5]card.Card{
		card.CardSpade2, card.CardHeart3, card.CardClub4, card.CardDiamond5, card.CardSpade6,
	})
	if sixHigh.Category != Straight {
		t.Fatalf("expected straight for 6-high, got %s", sixHigh.Category)
	}
	if sixHigh.Compare(wheel) <= 0 {
		t.Fatalf("expected 6-high straight to beat wheel")
	}

	anyFlush := Eval5([5]card.Card{
		card.CardHeartA, card.CardHeart9, card.CardHeart7, card.CardHeart4, card.CardHeart2,
	})
	if anyFlush.Compare(sixHigh) <= 0 {
		t.Fatalf("expected flush to beat straight")
	}
}

func TestEvalLaws_CategoryOrdering(t *testing.T) {
	hands := []struct {
		cards [5]card.Card
		want  HandType
	}{
		{[5]card.Card{card.CardSpade2, card.CardHeart5, card.CardClub9, card.CardDiamondJ, card.CardSpadeK}, HighCard},
		{[5]card.Card{card.CardSpade2, card.CardHeart2, card.CardClub9, card.CardDiamondJ, card.CardSpadeK}, OnePair},
		{[5]card.Card{card.CardSpade2, card.CardHeart2, card.CardClub9, card.CardDiamond9, card.CardSpadeK}, TwoPair},
		{[5]card.Card{card.CardSpade2, card.CardHeart2, card.CardClub2, card.CardDiamond9, card.CardSpadeK}, ThreeOfKind},
		{[5]card.Card{card.CardSpade2, card.CardHeart3, card.CardClub4, card.CardDiamond5, card.CardSpade6}, Straight},
		{[5]card.Card{card.CardSpade2, card.CardSpade5, card.CardSpade7, card.CardSpade9, card.CardSpadeJ}, Flush},
		{[5]card.Card{card.CardSpade2, card.CardHeart2, card.CardClub2, card.CardDiamond9, card.CardSpade9}, FullHouse},
		{[5]card.Card{card.CardSpade2, card.CardHeart2, card.CardClub2, card.CardDiamond2, card.CardSpade9}, FourOfKind},
	}
	for i := 1; i < len(hands); i++ {
		prev := Eval5(hands[i-1].cards)
		cur := Eval5(hands[i].cards)
		if prev.Category != hands[i-1].want || cur.Category != hands[i].want {
			t.Fatalf("category mismatch at %d", i)
		}
		if cur.Compare(prev) <= 0 {
			t.Fatalf("expected %s to beat %s", cur.Category, prev.Category)
		}
	}
}

func TestBestHand_Holdem_PicksBestFive(t *testing.T) {
	hole := []card.Card{card.CardSpadeA, card.CardHeartA}
	board := []card.Card{card.CardClubK, card.CardDiamondK, card.CardSpade2, card.CardHeart3, card.CardClub4}
	res := BestHand(hole, board, Holdem)
	if res.Rank.Category != TwoPair {
		t.Fatalf("expected two pair, got %s", res.Rank.Category)
	}
}

func TestBestHand_Omaha_RequiresExactlyTwoHole(t *testing.T) {
	// Four-flush board with only one suited hole card: Omaha requires
	// exactly 2 hole cards, so a lone suited card cannot complete the
	// flush the way it could under Hold'em's any-5-of-7 rule.
	hole := []card.Card{card.CardSpadeA, card.CardHeart2, card.CardClub9, card.CardDiamondJ}
	board := []card.Card{card.CardSpadeK, card.CardSpadeQ, card.CardSpadeJ, card.CardSpadeT, card.CardHeart4}
	res := BestHand(hole, board, Omaha)
	if res.Rank.Category == Flush || res.Rank.Category == StraightFlush || res.Rank.Category == RoyalFlush {
		t.Fatalf("expected omaha to require exactly 2 hole cards, got %s", res.Rank.Category)
	}
}

func TestEval5_TableCoverage_NoMissingRank(t *testing.T) {
	if testing.Short() {
		t.Skip("skip exhaustive 5-card coverage in short mode")
	}
	cards := card.FullDeck
	count := 0
	for a := 0; a < len(cards)-4; a++ {
		for b := a + 1; b < len(cards)-3; b++ {
			for c := b + 1; c < len(cards)-2; c++ {
				for d := c + 1; d < len(cards)-1; d++ {
					for e := d + 1; e < len(cards); e++ {
						r := Eval5([5]card.Card{cards[a], cards[b], cards[c], cards[d], cards[e]})
						if r.Category == 0 {
							t.Fatalf("missing rank for combo: %v %v %v %v %v", cards[a], cards[b], cards[c], cards[d], cards[e])
						}
						count++
					}
				}
			}
		}
	}
	if count != 2598960 {
		t.Fatalf("expected C(52,5)=2598960 combos, counted %d", count)
	}
}
