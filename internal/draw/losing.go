package draw

import (
	mrand "math/rand/v2"

	"racebet/internal/models"
	"racebet/internal/settlement"
)

// constructLosing flips every target play to a loss on top of a uniform
// base permutation. Plays are processed in priority order; a swap is only
// committed when it does not reopen an already-resolved play. A play whose
// position the target covers completely stays unresolved. That is an
// accepted, logged limitation, never an error.
func (g *Generator) constructLosing(plays []play, r *mrand.Rand) Outcome {
	best := Outcome{Strategy: "targeted_losing", Unresolved: len(plays) + 1}

	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = 30
	}
	for attempt := 0; attempt < attempts; attempt++ {
		out := g.losingAttempt(plays, r)
		if out.Unresolved < best.Unresolved ||
			(out.Unresolved == best.Unresolved && out.Adjustments < best.Adjustments) {
			best = out
		}
		if best.Unresolved == 0 {
			break
		}
	}

	g.logUnresolved(best.Strategy, best.Unresolved)
	return best
}

func (g *Generator) losingAttempt(plays []play, r *mrand.Rand) Outcome {
	perm := uniformPermutation(r)
	var resolved []models.Wager
	adjustments := 0
	unresolved := 0

	allStillLosing := func(cand [10]int) bool {
		for _, w := range resolved {
			if settlement.Evaluate(w, cand) {
				return false
			}
		}
		return true
	}

	for _, p := range plays {
		w := p.wager
		if !settlement.Evaluate(w, perm) {
			resolved = append(resolved, w)
			continue
		}
		flipped := false
		for _, pr := range swapPairs(r) {
			cand := perm
			cand[pr[0]], cand[pr[1]] = cand[pr[1]], cand[pr[0]]
			if !settlement.Evaluate(w, cand) && allStillLosing(cand) {
				perm = cand
				resolved = append(resolved, w)
				adjustments++
				flipped = true
				break
			}
		}
		if !flipped {
			unresolved++
		}
	}

	return Outcome{
		Permutation: perm,
		Strategy:    "targeted_losing",
		Adjustments: adjustments,
		Unresolved:  unresolved,
	}
}
