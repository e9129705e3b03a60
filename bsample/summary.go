package main

import (
	"bitbucket.org/Davydov/bsample/diagnostics"
)

// CallSummary describes the program call.
type CallSummary struct {
	// Version stores bsample version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// NThreads is the number of processes used.
	NThreads int `json:"nThreads"`
	// Time is the computations time in seconds.
	TotalTime float64 `json:"time"`
}

// SampleSummary is the result of an MCMC run.
type SampleSummary struct {
	CallSummary
	// Sampler is gibbs or mh.
	Sampler string `json:"sampler"`
	// Model is the model name.
	Model string `json:"model"`
	// Key is the run key in the database.
	Key string `json:"key,omitempty"`
	// Chains is the number of chains.
	Chains int `json:"chains"`
	// Iterations is the length of every chain.
	Iterations int `json:"iterations"`
	// Scales are the final proposal scales of every chain.
	Scales [][]float64 `json:"scales,omitempty"`
	// Summary is the posterior summary.
	Summary *diagnostics.Summary `json:"summary"`
	// Exact are the exact equal-tailed intervals if the posterior
	// is known.
	Exact map[string]diagnostics.Interval `json:"exact,omitempty"`
}

// ApproxParameter is the Laplace approximation of one parameter.
type ApproxParameter struct {
	Name     string               `json:"name"`
	Mode     float64              `json:"mode"`
	SD       float64              `json:"sd"`
	Interval diagnostics.Interval `json:"interval"`
	// Exact is the exact interval if the posterior is known.
	Exact *diagnostics.Interval `json:"exact,omitempty"`
}

// LaplaceSummary is the result of a Laplace approximation.
type LaplaceSummary struct {
	CallSummary
	Model      string            `json:"model"`
	Method     string            `json:"method"`
	Level      float64           `json:"level"`
	LogDensity float64           `json:"logDensity"`
	Parameters []ApproxParameter `json:"parameters"`
	// Cov is the covariance matrix, row by row.
	Cov [][]float64 `json:"cov"`
}
