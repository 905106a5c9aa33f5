package predictor

import (
	"context"
	"hash/fnv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// HeuristicRunner produces a stable synthetic estimate without calling any
// model API. Used when no API key is configured so the pipeline stays
// exercisable end to end.
type HeuristicRunner struct{}

func NewHeuristicRunner() *HeuristicRunner {
	return &HeuristicRunner{}
}

// Run derives a deterministic pseudo-probability from the question text.
// Equal questions always produce equal estimates, which keeps dedup
// semantics observable even in synthetic mode.
func (h *HeuristicRunner) Run(_ context.Context, temperature float64, question string, logf func(string)) (int, error) {
	logf("No model configured, producing a synthetic estimate.")

	canonical := norm.NFC.String(strings.ToLower(strings.TrimSpace(question)))
	hasher := fnv.New32a()
	hasher.Write([]byte(canonical))
	base := int(hasher.Sum32() % 101)

	// Temperature nudges the estimate toward even odds.
	p := base + int(float64(50-base)*temperature*0.5)
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p, nil
}
