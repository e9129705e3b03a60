// Package models contains worked posterior models: conjugate targets
// which can be sampled with Gibbs and MH and compared with their
// closed form posteriors.
package models

import (
	"fmt"
	"sort"

	"bitbucket.org/Davydov/bsample/laplace"
	"bitbucket.org/Davydov/bsample/mcmc"
)

// Model is a posterior with data.
type Model interface {
	// Check validates the data and hyperparameters.
	Check() error
	// Target returns the posterior. Conditionals are set if the
	// model can be sampled with Gibbs.
	Target() *mcmc.Target
	// Initial returns the default starting point.
	Initial() []float64
}

// Conjugate is a model with a closed form posterior.
type Conjugate interface {
	Model
	// Posterior returns the exact marginal posterior of parameter
	// i, or nil if it is unknown.
	Posterior(i int) laplace.Quantiler
}

// Models holds every worked model; it is the models section of the
// run file.
type Models struct {
	BetaBinomial *BetaBinomial `yaml:"betabinom"`
	Normal       *Normal       `yaml:"normal"`
	Pumps        *Pumps        `yaml:"pumps"`
	GammaPoisson *GammaPoisson `yaml:"gammapoisson"`
}

// DefaultModels returns the models with the default data.
func DefaultModels() *Models {
	return &Models{
		BetaBinomial: DefaultBetaBinomial(),
		Normal:       DefaultNormal(),
		Pumps:        DefaultPumps(),
		GammaPoisson: DefaultGammaPoisson(),
	}
}

// registry maps model names to accessors.
var registry = map[string]func(*Models) Model{
	"betabinom":    func(m *Models) Model { return m.BetaBinomial },
	"normal":       func(m *Models) Model { return m.Normal },
	"pumps":        func(m *Models) Model { return m.Pumps },
	"gammapoisson": func(m *Models) Model { return m.GammaPoisson },
}

// Names returns the sorted list of model names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a checked model by name. Models missing in m get the
// default data.
func (m *Models) Get(name string) (Model, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	model := f(m)
	if isNil(model) {
		model = f(DefaultModels())
	}
	if err := model.Check(); err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	return model, nil
}

// isNil checks for typed nil pointers stored in the interface.
func isNil(m Model) bool {
	switch m := m.(type) {
	case *BetaBinomial:
		return m == nil
	case *Normal:
		return m == nil
	case *Pumps:
		return m == nil
	case *GammaPoisson:
		return m == nil
	}
	return m == nil
}
