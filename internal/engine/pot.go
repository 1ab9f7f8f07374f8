package engine

import "sort"

// potTier is one side-pot layer.
type potTier struct {
	amount        int64
	eligibleSeats []int // non-folded seats entitled to contest this tier
}

// calcPotTiers builds side pots from each seat's total committed-this-hand
// amount. allCommitted includes folded seats (their chips stay in the
// pot); contenders is the subset still eligible to win (non-folded).
func calcPotTiers(allCommitted map[int]int64, contenders []int) []potTier {
	if len(allCommitted) == 0 {
		return nil
	}
	contenderSet := map[int]bool{}
	for _, s := range contenders {
		contenderSet[s] = true
	}

	levels := map[int64]bool{}
	for _, amt := range allCommitted {
		if amt > 0 {
			levels[amt] = true
		}
	}
	sortedLevels := make([]int64, 0, len(levels))
	for l := range levels {
		sortedLevels = append(sortedLevels, l)
	}
	sort.Slice(sortedLevels, func(i, j int) bool { return sortedLevels[i] < sortedLevels[j] })

	var tiers []potTier
	var prev int64
	for _, level := range sortedLevels {
		delta := level - prev
		contributors := 0
		var eligible []int
		for seat, amt := range allCommitted {
			if amt >= level {
				contributors++
				if contenderSet[seat] {
					eligible = append(eligible, seat)
				}
			}
		}
		if len(eligible) > 0 && delta*int64(contributors) > 0 {
			sort.Ints(eligible)
			tiers = append(tiers, potTier{amount: delta * int64(contributors), eligibleSeats: eligible})
		}
		prev = level
	}
	return tiers
}

// seatLeftOfButton finds, among candidateSeats, the seat closest to the
// left of the button (i.e. the earliest seat in button-relative order
// going clockwise), the canonical tie-break for remainder chips at
// showdown.
func (t *Table) seatLeftOfButton(candidateSeats []int) int {
	if len(candidateSeats) == 0 {
		return -1
	}
	button := buttonOr(t.ButtonSeat)
	n := len(t.seats)
	best := candidateSeats[0]
	bestDist := ((best - button - 1)%n + n) % n
	for _, s := range candidateSeats[1:] {
		d := ((s - button - 1)%n + n) % n
		if d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best
}
