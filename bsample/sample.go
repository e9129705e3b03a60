package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/Davydov/bsample/checkpoint"
	"bitbucket.org/Davydov/bsample/diagnostics"
	"bitbucket.org/Davydov/bsample/mcmc"
	"bitbucket.org/Davydov/bsample/models"
)

// getKernel returns a random walk kernel from a string.
func getKernel(proposal string, sd float64) (mcmc.Kernel, error) {
	if sd <= 0 {
		return mcmc.Kernel{}, fmt.Errorf("proposal sd should be > 0, got %v", sd)
	}
	switch proposal {
	case "normal":
		return mcmc.NormalKernel(sd), nil
	case "uniform":
		return mcmc.UniformKernel(sd), nil
	case "lognormal":
		return mcmc.LogNormalKernel(sd), nil
	}
	return mcmc.Kernel{}, fmt.Errorf("unknown proposal: %s", proposal)
}

// adaptiveSettings returns tuning settings or nil if tuning is off.
func adaptiveSettings(sc *SamplerConfig) *mcmc.AdaptiveSettings {
	if !sc.Adaptive {
		return nil
	}
	as := mcmc.NewAdaptiveSettings()
	if sc.MaxAdapt < 0 {
		// 20% by default
		as.MaxAdapt = sc.Iterations / 5
	} else {
		as.MaxAdapt = sc.MaxAdapt
	}
	if sc.Target > 0 {
		as.SetTarget(sc.Target)
	}
	return as
}

// newSampler creates a sampler for one chain. It also returns the
// shared sampler settings.
func newSampler(kind string, t *mcmc.Target, sc *SamplerConfig, rng *rand.Rand) (mcmc.Sampler, *mcmc.BaseSampler, error) {
	switch kind {
	case "gibbs":
		if len(t.Conditionals) != t.Dim() {
			return nil, nil, errors.New("model has no full conditionals")
		}
		g := mcmc.NewGibbs(t, rng)
		return g, &g.BaseSampler, nil
	case "mh":
		kernels := make([]mcmc.Kernel, t.Dim())
		for i := range kernels {
			k, err := getKernel(sc.Proposal, sc.sd(i))
			if err != nil {
				return nil, nil, err
			}
			kernels[i] = k
		}
		var m *mcmc.MH
		if sc.Componentwise {
			m = mcmc.NewComponentwiseMH(t, kernels, rng)
		} else {
			m = mcmc.NewMH(t, mcmc.BlockProposal(kernels...), rng)
		}
		m.Scale = sc.Scale
		m.Adaptive = adaptiveSettings(sc)
		m.AccPeriod = sc.Accept
		return m, &m.BaseSampler, nil
	}
	return nil, nil, fmt.Errorf("unknown sampler: %s", kind)
}

// chainKey is the checkpoint key of chain i.
func chainKey(key string, i int) []byte {
	return []byte(key + "/" + strconv.Itoa(i))
}

// resume returns the starting point and the proposal scales stored
// in an unfinished checkpoint, or nil.
func resume(cio *checkpoint.CheckpointIO, names []string) (x, scales []float64) {
	data, err := cio.Load()
	if err != nil {
		log.Warning("Error loading checkpoint:", err)
		return nil, nil
	}
	if data == nil || data.Final {
		return nil, nil
	}
	x, err = data.State(names)
	if err != nil {
		log.Warningf("Ignoring checkpoint: %v", err)
		return nil, nil
	}
	log.Noticef("Restarting from iteration %d (%d accepted), scales=%v", data.Iter, data.Accepted, data.Scales)
	return x, data.Scales
}

// sample runs the chains of a model. Chain 0 writes its trace to out.
func sample(kind, name, key string, cfg *Config, db *bolt.DB, out io.Writer) (*SampleSummary, []*mcmc.Chain, error) {
	sc := &cfg.Sampler
	m, err := cfg.Models.Get(name)
	if err != nil {
		return nil, nil, err
	}
	x0 := sc.Initial
	if len(x0) == 0 {
		x0 = m.Initial()
	}
	mc := &mcmc.Config{
		Iterations: sc.Iterations,
		BurnIn:     sc.BurnIn,
		Initial:    x0,
		Scale:      sc.Scale,
		Adaptive:   adaptiveSettings(sc),
	}
	if err := mc.Validate(); err != nil {
		return nil, nil, err
	}
	if sc.Seed < 0 {
		return nil, nil, fmt.Errorf("seed should be >= 0, got %d", sc.Seed)
	}
	log.Infof("Sampling %s with %s, %d chain(s) of %d iterations", name, kind, sc.Chains, sc.Iterations)

	scales := make([][]float64, sc.Chains)
	chains, err := mcmc.RunChains(sc.Chains, uint64(sc.Seed), func(rng *rand.Rand, i int) (*mcmc.Chain, error) {
		// every chain has its own target, models are read-only
		t := m.Target()
		s, base, err := newSampler(kind, t, sc, rng)
		if err != nil {
			return nil, err
		}
		base.SetReportPeriod(sc.Report)
		if i == 0 && out != nil {
			base.SetOutput(out)
		} else {
			base.Quiet = true
		}
		start := mc.Initial
		if db != nil {
			cio := checkpoint.NewCheckpointIO(db, chainKey(key, i), sc.checkpointPeriod())
			base.Checkpoint = cio
			if x, stored := resume(cio, t.Names); x != nil {
				start = x
				if mh, ok := s.(*mcmc.MH); ok && mh.Adaptive != nil && len(stored) == len(mh.Scales()) {
					mh.StartScales = stored
				}
			}
		}
		c, err := s.Run(start, sc.Iterations)
		if err != nil {
			return nil, err
		}
		if mh, ok := s.(*mcmc.MH); ok {
			scales[i] = mh.Scales()
		}
		return c, nil
	})
	if err != nil {
		return nil, nil, err
	}

	if db != nil {
		if err := checkpoint.SaveRun(db, key, newRun(kind, name, uint64(sc.Seed), chains)); err != nil {
			log.Error(err)
		}
	}

	sum, err := diagnostics.SummarizeChains(chains, sc.BurnIn, sc.Level)
	if err != nil {
		return nil, nil, err
	}
	summary := &SampleSummary{
		Sampler:    kind,
		Model:      name,
		Chains:     sc.Chains,
		Iterations: sc.Iterations,
		Summary:    sum,
	}
	if kind == "mh" {
		summary.Scales = scales
	}
	if db != nil {
		summary.Key = key
	}
	summary.Exact = exactIntervals(m, chains[0].Names, sc.Level)
	return summary, chains, nil
}

// exactIntervals returns the exact equal-tailed intervals of a
// conjugate model.
func exactIntervals(m models.Model, names []string, level float64) map[string]diagnostics.Interval {
	cm, ok := m.(models.Conjugate)
	if !ok {
		return nil
	}
	exact := make(map[string]diagnostics.Interval)
	for i, name := range names {
		q := cm.Posterior(i)
		if q == nil {
			continue
		}
		exact[name] = diagnostics.Interval{
			Lower: q.Quantile((1 - level) / 2),
			Upper: q.Quantile(1 - (1-level)/2),
		}
	}
	return exact
}

// newRun converts chains to a stored run.
func newRun(kind, name string, seed uint64, chains []*mcmc.Chain) *checkpoint.Run {
	run := &checkpoint.Run{
		Sampler:  kind,
		Model:    name,
		Seed:     seed,
		Names:    chains[0].Names,
		Chains:   make([][][]float64, len(chains)),
		Accepted: make([]int, len(chains)),
		Proposed: make([]int, len(chains)),
	}
	for i, c := range chains {
		run.Chains[i] = make([][]float64, len(c.Draws))
		for j, x := range c.Draws {
			run.Chains[i][j] = x
		}
		run.Accepted[i] = c.Accepted
		run.Proposed[i] = c.Proposed
	}
	return run
}

// chainsFromRun converts a stored run back to chains.
func chainsFromRun(run *checkpoint.Run) []*mcmc.Chain {
	chains := make([]*mcmc.Chain, len(run.Chains))
	for i, draws := range run.Chains {
		c := mcmc.NewChain(run.Names, len(draws))
		for _, x := range draws {
			c.Draws = append(c.Draws, x)
		}
		if i < len(run.Accepted) {
			c.Accepted = run.Accepted[i]
			c.Proposed = run.Proposed[i]
		}
		chains[i] = c
	}
	return chains
}

// summarizeRun summarizes a run stored in the database.
func summarizeRun(db *bolt.DB, key string, burnIn int, level float64) (*SampleSummary, []*mcmc.Chain, error) {
	run, err := checkpoint.LoadRun(db, key)
	if err != nil {
		return nil, nil, err
	}
	if run == nil {
		keys, _ := checkpoint.ListRuns(db)
		return nil, nil, fmt.Errorf("no run %q in the database, stored runs: %v", key, keys)
	}
	chains := chainsFromRun(run)
	if len(chains) == 0 {
		return nil, nil, fmt.Errorf("run %q has no chains: %w", key, mcmc.ErrInsufficientSamples)
	}
	sum, err := diagnostics.SummarizeChains(chains, burnIn, level)
	if err != nil {
		return nil, nil, err
	}
	s := &SampleSummary{
		Sampler:    run.Sampler,
		Model:      run.Model,
		Key:        key,
		Chains:     len(chains),
		Iterations: chains[0].Len(),
		Summary:    sum,
	}
	s.Seed = int64(run.Seed)
	return s, chains, nil
}
