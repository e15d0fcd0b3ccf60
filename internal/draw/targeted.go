package draw

import (
	mrand "math/rand/v2"
	"strconv"

	"go.uber.org/zap"

	"racebet/internal/models"
)

// targetedStrategy serves both single_member and agent_line control: the
// caller has already resolved the target's wagers. A Bernoulli trial at the
// configured percentage decides whether this period should go against the
// target; the permutation is then constructed rather than weighted.
func (g *Generator) targetedStrategy(in *Input, r *mrand.Rand) Outcome {
	plays := dedupePlays(in.TargetWagers)
	if len(plays) == 0 {
		out := g.uniformStrategy(in, r)
		out.Strategy = "targeted_no_bets"
		return out
	}

	pct := in.Policy.Percentage
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	pLose := float64(pct)
	if in.Policy.WinControl && !in.Policy.LossControl {
		pLose = 100 - pLose
	}

	if r.Float64()*100 < pLose {
		return g.constructLosing(plays, r)
	}
	return g.constructWinning(plays, r)
}

// play is one distinct (family, selector, position) the target holds,
// regardless of how many wagers stacked onto it.
type play struct {
	wager models.Wager
	class playClass
}

type playClass int

// Construction priority. Paired-sum fixes two positions at once so it goes
// first; earlier adjustments constrain later ones.
const (
	classSum playClass = iota
	classDragonTiger
	classTwoSided
	classNumber
)

func classify(w models.Wager) playClass {
	switch w.Family {
	case models.FamilySumValue:
		return classSum
	case models.FamilyDragonTiger:
		return classDragonTiger
	case models.FamilyNumber:
		return classNumber
	}
	switch w.Selector {
	case models.SelectorBig, models.SelectorSmall, models.SelectorOdd, models.SelectorEven:
		return classTwoSided
	}
	return classNumber
}

// dedupePlays collapses stacked wagers into distinct plays sorted by
// construction priority. Order within a class follows first appearance.
func dedupePlays(wagers []models.Wager) []play {
	seen := make(map[string]bool, len(wagers))
	var plays []play
	for _, w := range wagers {
		key := w.Family + "|" + w.Selector
		if w.Position != nil {
			key += "|" + strconv.Itoa(*w.Position)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		plays = append(plays, play{wager: w, class: classify(w)})
	}
	// Stable bucket sort by class.
	ordered := make([]play, 0, len(plays))
	for _, c := range []playClass{classSum, classDragonTiger, classTwoSided, classNumber} {
		for _, p := range plays {
			if p.class == c {
				ordered = append(ordered, p)
			}
		}
	}
	return ordered
}

func (g *Generator) logUnresolved(strategy string, n int) {
	if g.Logger != nil && n > 0 {
		// Full stake coverage of a position cannot be steered around; the
		// configured percentage is a best-effort bias there.
		g.Logger.Warn("draw control left plays unresolved",
			zap.String("strategy", strategy),
			zap.Int("unresolved", n))
	}
}
