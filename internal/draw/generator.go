// Package draw synthesizes the result permutation for a period. The four
// control modes form a closed set dispatched through a strategy table; every
// strategy returns a full permutation of 1..10 and never fails; at worst it
// degrades to uniform randomness.
package draw

import (
	mrand "math/rand/v2"
	"time"

	"go.uber.org/zap"

	"racebet/internal/analysis"
	"racebet/internal/models"
)

// Input is everything a strategy may consult. TargetWagers carries the
// resolved wagers of the controlled member or agent line; the caller
// resolves them so generation itself stays a pure function of its input.
type Input struct {
	Period       int64
	Policy       *models.ControlPolicy
	Analysis     *analysis.BetAnalysis
	TargetWagers []models.Wager
}

// Outcome is the generated permutation plus what the strategy did to it.
type Outcome struct {
	Permutation [10]int
	Strategy    string
	Adjustments int
	Unresolved  int
}

type Generator struct {
	Logger *zap.Logger

	// Rand overrides the randomness source, for tests. Nil seeds per call.
	Rand *mrand.Rand

	HighRiskThreshold float64
	LowRiskThreshold  float64
	DeclusterProb     float64
	MaxAttempts       int
}

func NewGenerator(logger *zap.Logger) *Generator {
	return &Generator{
		Logger:            logger,
		HighRiskThreshold: 8.0,
		LowRiskThreshold:  5.0,
		DeclusterProb:     0.7,
		MaxAttempts:       30,
	}
}

type strategyFunc func(*Generator, *Input, *mrand.Rand) Outcome

var strategies = map[string]strategyFunc{
	models.ControlModeNormal:       (*Generator).uniformStrategy,
	models.ControlModeAutoDetect:   (*Generator).autoDetectStrategy,
	models.ControlModeSingleMember: (*Generator).targetedStrategy,
	models.ControlModeAgentLine:    (*Generator).targetedStrategy,
}

// Generate picks the strategy for the active policy and returns exactly one
// permutation of 1..10. Zero staked wagers always short-circuits to uniform.
func (g *Generator) Generate(in Input) Outcome {
	r := g.rng(in.Period)

	mode := models.ControlModeNormal
	if in.Policy != nil && !in.Policy.Normal() {
		mode = in.Policy.Mode
	}
	if in.Analysis == nil || in.Analysis.WagerCount == 0 {
		mode = models.ControlModeNormal
	}

	fn, ok := strategies[mode]
	if !ok {
		fn = (*Generator).uniformStrategy
	}
	out := fn(g, &in, r)

	if !isPermutation(out.Permutation) {
		// Strategies must not hand out broken tuples; recover anyway.
		out = g.uniformStrategy(&in, r)
	}

	if g.Logger != nil {
		g.Logger.Info("draw result generated",
			zap.Int64("period", in.Period),
			zap.String("strategy", out.Strategy),
			zap.Int("adjustments", out.Adjustments),
			zap.Int("unresolved", out.Unresolved),
			zap.Ints("positions", out.Permutation[:]))
	}
	return out
}

func (g *Generator) uniformStrategy(_ *Input, r *mrand.Rand) Outcome {
	return Outcome{Permutation: uniformPermutation(r), Strategy: "uniform"}
}

func (g *Generator) rng(p int64) *mrand.Rand {
	if g.Rand != nil {
		return g.Rand
	}
	return mrand.New(mrand.NewPCG(uint64(time.Now().UnixNano()), uint64(p)))
}

// uniformPermutation is a Fisher-Yates shuffle of 1..10.
func uniformPermutation(r *mrand.Rand) [10]int {
	var p [10]int
	for i := range p {
		p[i] = i + 1
	}
	for i := len(p) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

func isPermutation(p [10]int) bool {
	var seen [11]bool
	for _, v := range p {
		if v < 1 || v > 10 || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// swapPairs yields every unordered position pair in random order.
func swapPairs(r *mrand.Rand) [][2]int {
	pairs := make([][2]int, 0, 45)
	for i := 0; i < 10; i++ {
		for j := i + 1; j < 10; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	r.Shuffle(len(pairs), func(a, b int) {
		pairs[a], pairs[b] = pairs[b], pairs[a]
	})
	return pairs
}
