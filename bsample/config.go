package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"bitbucket.org/Davydov/bsample/models"
)

// Config is the run file. Command line values override it.
type Config struct {
	// Model is the default model name.
	Model string `yaml:"model"`
	// Models holds the data of the worked models.
	Models *models.Models `yaml:"models"`
	// Sampler are the MCMC settings.
	Sampler SamplerConfig `yaml:"sampler"`
	// Laplace are the Laplace approximation settings.
	Laplace LaplaceConfig `yaml:"laplace"`
}

// SamplerConfig are the MCMC settings.
type SamplerConfig struct {
	Iterations int   `yaml:"iterations"`
	BurnIn     int   `yaml:"burnin"`
	Seed       int64 `yaml:"seed"`
	Chains     int   `yaml:"chains"`
	// Initial is the starting point, model default if empty.
	Initial []float64 `yaml:"initial"`
	// Proposal is the random walk kernel (normal, uniform,
	// lognormal).
	Proposal string `yaml:"proposal"`
	// SD are the kernel step sizes, a single value is used for
	// all parameters.
	SD            []float64 `yaml:"sd"`
	Scale         float64   `yaml:"scale"`
	Componentwise bool      `yaml:"componentwise"`
	Adaptive      bool      `yaml:"adaptive"`
	MaxAdapt      int       `yaml:"maxadapt"`
	// Target is the acceptance rate for tuning; zero keeps the
	// default band.
	Target float64 `yaml:"target"`
	Level  float64 `yaml:"level"`
	Report int     `yaml:"report"`
	Accept int     `yaml:"accept"`
	// Checkpoint is the checkpoint period in seconds.
	Checkpoint float64 `yaml:"checkpoint"`
}

// LaplaceConfig are the Laplace approximation settings.
type LaplaceConfig struct {
	// Method is auto, bisection, bfgs, simplex or lbfgsb.
	Method  string       `yaml:"method"`
	Bounds  [][2]float64 `yaml:"bounds"`
	MaxIter int          `yaml:"maxiter"`
	Level   float64      `yaml:"level"`
}

// defaultConfig returns the settings used without a run file.
func defaultConfig() *Config {
	return &Config{
		Model:  "betabinom",
		Models: models.DefaultModels(),
		Sampler: SamplerConfig{
			Iterations: 50000,
			BurnIn:     5000,
			Seed:       -1,
			Chains:     1,
			Proposal:   "normal",
			SD:         []float64{0.1},
			Scale:      1,
			MaxAdapt:   -1,
			Level:      0.95,
			Report:     10,
			Accept:     200,
			Checkpoint: 60,
		},
		Laplace: LaplaceConfig{
			Method:  "auto",
			MaxIter: 1000,
			Level:   0.95,
		},
	}
}

// loadConfig reads the run file. Missing values keep their defaults,
// a missing file gives the default configuration.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warningf("Run file %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing run file %s: %w", path, err)
	}
	if cfg.Models == nil {
		cfg.Models = models.DefaultModels()
	}
	return cfg, nil
}

// sd returns the kernel step size of parameter i.
func (sc *SamplerConfig) sd(i int) float64 {
	switch {
	case len(sc.SD) == 0:
		return 1
	case i < len(sc.SD):
		return sc.SD[i]
	}
	return sc.SD[len(sc.SD)-1]
}

// checkpointPeriod is the minimal time between checkpoints.
func (sc *SamplerConfig) checkpointPeriod() time.Duration {
	return time.Duration(sc.Checkpoint * float64(time.Second))
}
