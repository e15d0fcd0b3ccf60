package draw

import (
	mrand "math/rand/v2"
	"strconv"

	"racebet/internal/models"
	"racebet/internal/odds"
	"racebet/internal/settlement"
)

// constructWinning searches for a permutation satisfying every captured
// target condition. Paired-sum goes first since it fixes two positions at
// once; single-number picks are preferred when choosing among sum pairs.
// When no candidate satisfies everything the best-scoring one wins out:
// the configured percentage is a bias, not a guarantee.
func (g *Generator) constructWinning(plays []play, r *mrand.Rand) Outcome {
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = 30
	}

	var best [10]int
	bestScore := -1
	for attempt := 0; attempt < attempts; attempt++ {
		cand := g.winningCandidate(plays, r)
		score := 0
		for _, p := range plays {
			if settlement.Evaluate(p.wager, cand) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = cand, score
		}
		if bestScore == len(plays) {
			break
		}
	}

	// Last resort: uniform sampling sometimes finds combinations the
	// constructive pass cannot, e.g. interlocking dragon/tiger chains.
	if bestScore < len(plays) {
		for i := 0; i < 200; i++ {
			cand := uniformPermutation(r)
			score := 0
			for _, p := range plays {
				if settlement.Evaluate(p.wager, cand) {
					score++
				}
			}
			if score > bestScore {
				best, bestScore = cand, score
			}
			if bestScore == len(plays) {
				break
			}
		}
	}

	out := Outcome{
		Permutation: best,
		Strategy:    "targeted_winning",
		Adjustments: bestScore,
		Unresolved:  len(plays) - bestScore,
	}
	g.logUnresolved(out.Strategy, out.Unresolved)
	return out
}

// winningCandidate builds one permutation from the conditions, filling
// unconstrained positions with the remaining values in random order.
func (g *Generator) winningCandidate(plays []play, r *mrand.Rand) [10]int {
	var perm [10]int
	var used [11]bool

	assign := func(idx, v int) bool {
		if idx < 0 || idx > 9 || v < 1 || v > 10 || perm[idx] != 0 || used[v] {
			return false
		}
		perm[idx] = v
		used[v] = true
		return true
	}

	// Exact-number picks, consulted when choosing sum pairs.
	numberPick := map[int]int{}
	for _, p := range plays {
		if p.class != classNumber {
			continue
		}
		idx, sel, ok := numberTarget(p.wager)
		if ok {
			if _, dup := numberPick[idx]; !dup {
				numberPick[idx] = sel
			}
		}
	}

	for _, p := range plays {
		if p.class != classSum {
			continue
		}
		g.placeSumPair(perm[:], &used, numberPick, p.wager.Selector, r)
	}

	for idx, sel := range numberPick {
		assign(idx, sel)
	}

	for _, p := range plays {
		if p.class != classDragonTiger {
			continue
		}
		placeDragonTiger(perm[:], &used, p.wager.Selector, r)
	}

	for _, p := range plays {
		if p.class != classTwoSided {
			continue
		}
		pos, ok := models.PositionFamilies[p.wager.Family]
		if !ok || perm[pos-1] != 0 {
			continue
		}
		for _, v := range shuffledValues(r) {
			if !used[v] && valueMatchesClass(p.wager.Selector, v) {
				assign(pos-1, v)
				break
			}
		}
	}

	// Unfilled positions take the remaining values in random order.
	rest := make([]int, 0, 10)
	for v := 1; v <= 10; v++ {
		if !used[v] {
			rest = append(rest, v)
		}
	}
	r.Shuffle(len(rest), func(a, b int) { rest[a], rest[b] = rest[b], rest[a] })
	for idx := range perm {
		if perm[idx] == 0 {
			perm[idx] = rest[0]
			rest = rest[1:]
		}
	}
	return perm
}

// placeSumPair fixes positions 1 and 2 to a pair matching the sum
// condition, preferring pairs that also hit the number picks there.
func (g *Generator) placeSumPair(perm []int, used *[11]bool, numberPick map[int]int, selector string, r *mrand.Rand) {
	if perm[0] != 0 || perm[1] != 0 {
		return
	}
	type pair struct{ a, b int }
	var candidates []pair
	for _, a := range shuffledValues(r) {
		for _, b := range shuffledValues(r) {
			if a == b || used[a] || used[b] {
				continue
			}
			if !sumMatches(selector, a+b) {
				continue
			}
			candidates = append(candidates, pair{a, b})
		}
	}
	if len(candidates) == 0 {
		return
	}
	bestIdx, bestScore := 0, -1
	for i, c := range candidates {
		score := 0
		if want, ok := numberPick[0]; ok && want == c.a {
			score++
		}
		if want, ok := numberPick[1]; ok && want == c.b {
			score++
		}
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	chosen := candidates[bestIdx]
	perm[0], perm[1] = chosen.a, chosen.b
	used[chosen.a], used[chosen.b] = true, true
}

func placeDragonTiger(perm []int, used *[11]bool, selector string, r *mrand.Rand) {
	dragon, p1, p2, err := odds.ParseDragonTiger(selector)
	if err != nil {
		return
	}
	hi, lo := p1-1, p2-1
	if !dragon {
		hi, lo = lo, hi
	}
	switch {
	case perm[hi] == 0 && perm[lo] == 0:
		vals := shuffledValues(r)
		for _, a := range vals {
			if used[a] {
				continue
			}
			for _, b := range vals {
				if used[b] || b >= a {
					continue
				}
				perm[hi], perm[lo] = a, b
				used[a], used[b] = true, true
				return
			}
		}
	case perm[hi] == 0:
		for _, v := range shuffledValues(r) {
			if !used[v] && v > perm[lo] {
				perm[hi] = v
				used[v] = true
				return
			}
		}
	case perm[lo] == 0:
		for _, v := range shuffledValues(r) {
			if !used[v] && v < perm[hi] {
				perm[lo] = v
				used[v] = true
				return
			}
		}
	}
}

func numberTarget(w models.Wager) (idx, sel int, ok bool) {
	sel, err := strconv.Atoi(w.Selector)
	if err != nil || sel < 1 || sel > 10 {
		return 0, 0, false
	}
	if w.Family == models.FamilyNumber {
		if w.Position == nil || *w.Position < 1 || *w.Position > 10 {
			return 0, 0, false
		}
		return *w.Position - 1, sel, true
	}
	if pos, isPos := models.PositionFamilies[w.Family]; isPos {
		return pos - 1, sel, true
	}
	return 0, 0, false
}

func sumMatches(selector string, sum int) bool {
	switch selector {
	case models.SelectorBig:
		return sum >= 12
	case models.SelectorSmall:
		return sum <= 11
	case models.SelectorOdd:
		return sum%2 == 1
	case models.SelectorEven:
		return sum%2 == 0
	}
	n, err := strconv.Atoi(selector)
	return err == nil && sum == n
}

func valueMatchesClass(selector string, v int) bool {
	switch selector {
	case models.SelectorBig:
		return v >= 6
	case models.SelectorSmall:
		return v <= 5
	case models.SelectorOdd:
		return v%2 == 1
	case models.SelectorEven:
		return v%2 == 0
	}
	return false
}

func shuffledValues(r *mrand.Rand) []int {
	vals := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	r.Shuffle(len(vals), func(a, b int) { vals[a], vals[b] = vals[b], vals[a] })
	return vals
}
