// Package predictor defines the model catalog and the runner contract used
// by the prediction worker.
package predictor

import "context"

// Model describes one supported prediction model.
type Model struct {
	Name string
	// Cost is the credit charge for a paid run.
	Cost int
	// DemoSupported marks models that may run for free when the owner
	// has insufficient credits.
	DemoSupported bool
}

var models = map[string]Model{
	"gpt":   {Name: "gpt", Cost: 1, DemoSupported: true},
	"gpt4":  {Name: "gpt4", Cost: 3, DemoSupported: false},
	"agent": {Name: "agent", Cost: 5, DemoSupported: false},
}

// Lookup returns the catalog entry for a model name.
func Lookup(name string) (Model, bool) {
	m, ok := models[name]
	return m, ok
}

// Runner computes a probability estimate (0-100) for a yes/no question.
// Temperature is normalized to 0.0-1.0. Implementations may emit progress
// lines through logf; it must be non-nil.
type Runner interface {
	Run(ctx context.Context, temperature float64, question string, logf func(string)) (int, error)
}
