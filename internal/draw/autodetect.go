package draw

import (
	mrand "math/rand/v2"

	"github.com/shopspring/decimal"
)

// autoDetectStrategy keys off the platform-risk ratio. Above the high
// threshold every position is steered to its least-staked selector, which
// minimizes worst-case payout exposure. Below the low threshold the draw is
// only mildly de-clustered; in between it stays uniform.
func (g *Generator) autoDetectStrategy(in *Input, r *mrand.Rand) Outcome {
	risk := in.Analysis.RiskRatio

	switch {
	case risk >= g.HighRiskThreshold:
		return g.defensivePermutation(in, r)
	case risk < g.LowRiskThreshold:
		return g.declusterPermutation(in, r)
	default:
		out := g.uniformStrategy(in, r)
		out.Strategy = "auto_detect_uniform"
		return out
	}
}

// defensivePermutation fills positions in random order, each taking the
// least-staked selector still available.
func (g *Generator) defensivePermutation(in *Input, r *mrand.Rand) Outcome {
	available := make([]int, 10)
	for i := range available {
		available[i] = i + 1
	}
	r.Shuffle(len(available), func(a, b int) {
		available[a], available[b] = available[b], available[a]
	})

	var perm [10]int
	order := r.Perm(10)
	for _, idx := range order {
		pos := idx + 1
		pick := in.Analysis.LeastStakedSelector(pos, available)
		perm[idx] = pick
		for i, v := range available {
			if v == pick {
				available = append(available[:i], available[i+1:]...)
				break
			}
		}
	}
	return Outcome{Permutation: perm, Strategy: "auto_detect_defensive", Adjustments: 10}
}

// declusterPermutation starts uniform and, with DeclusterProb per hit,
// swaps any position whose occupant holds a disproportionate share of that
// position's stake against a below-average selector elsewhere.
func (g *Generator) declusterPermutation(in *Input, r *mrand.Rand) Outcome {
	perm := uniformPermutation(r)
	adjustments := 0

	for idx := 0; idx < 10; idx++ {
		pos := idx + 1
		avg := in.Analysis.AveragePositionStake(pos)
		if !avg.IsPositive() {
			continue
		}
		occupantStake := in.Analysis.StakeAt(pos, perm[idx])
		if occupantStake.LessThanOrEqual(avg.Mul(decimal.NewFromInt(2))) {
			continue
		}
		if r.Float64() >= g.DeclusterProb {
			continue
		}
		// Find a swap partner whose value is a below-average selector here.
		for _, j := range r.Perm(10) {
			if j == idx {
				continue
			}
			if in.Analysis.StakeAt(pos, perm[j]).LessThan(avg) {
				perm[idx], perm[j] = perm[j], perm[idx]
				adjustments++
				break
			}
		}
	}
	return Outcome{Permutation: perm, Strategy: "auto_detect_decluster", Adjustments: adjustments}
}
