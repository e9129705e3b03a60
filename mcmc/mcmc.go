// Package mcmc implements Markov chain Monte Carlo samplers: a Gibbs
// sampler cycling through full conditionals and a random-walk
// Metropolis-Hastings sampler with optional step size tuning.
//
// All the randomness comes from an explicit generator, so two runs
// with the same seed, target and settings produce identical chains.
package mcmc

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/bsample/checkpoint"
)

// log is the global logging variable.
var log = logging.MustGetLogger("mcmc")

// Checkpointer periodically saves the sampler state.
type Checkpointer interface {
	// Old returns true if the last checkpoint is too old.
	Old() bool
	// Save stores the checkpoint data.
	Save(*checkpoint.CheckpointData) error
}

// BaseSampler stores the settings shared by all samplers.
type BaseSampler struct {
	*Target
	rng *rand.Rand
	// RepPeriod is the trace reporting period.
	RepPeriod int
	// AccPeriod is the acceptance rate logging period.
	AccPeriod int
	// Quiet disables trace output.
	Quiet bool
	// Checkpoint, if set, receives the sampler state.
	Checkpoint Checkpointer
	out        io.Writer
	i          int
	l          float64
	lastRep    int
}

func newBaseSampler(t *Target, rng *rand.Rand) BaseSampler {
	if rng == nil {
		panic("random generator is required")
	}
	return BaseSampler{
		Target:    t,
		rng:       rng,
		RepPeriod: 10,
		AccPeriod: 200,
		lastRep:   -1,
	}
}

// SetOutput sets the trace output.
func (s *BaseSampler) SetOutput(w io.Writer) {
	s.out = w
}

// SetReportPeriod sets the trace reporting period.
func (s *BaseSampler) SetReportPeriod(period int) {
	s.RepPeriod = period
}

// PrintHeader prints the trace header.
func (s *BaseSampler) PrintHeader() {
	if !s.Quiet && s.out != nil {
		fmt.Fprintf(s.out, "iteration\tlikelihood\t%s\n", s.ParameterNamesString())
	}
}

// PrintLine prints the trace line for the current iteration if it is
// due.
func (s *BaseSampler) PrintLine(x Vector, force bool) {
	if s.Quiet || s.out == nil || s.RepPeriod <= 0 {
		return
	}
	if force || s.i%s.RepPeriod == 0 {
		if s.lastRep == s.i {
			return
		}
		fmt.Fprintf(s.out, "%d\t%f\t%s\n", s.i, s.l, x)
		s.lastRep = s.i
	}
}

// ParameterNamesString returns tab separated parameter names.
func (s *BaseSampler) ParameterNamesString() (str string) {
	for i, name := range s.Names {
		if i != 0 {
			str += "\t"
		}
		str += name
	}
	return
}

// logDensity evaluates the target at x, NaN if there is no density.
func (s *BaseSampler) logDensity(x []float64) float64 {
	if s.LogDensity == nil {
		return math.NaN()
	}
	return s.LogDensity(x)
}

// saveCheckpoint saves the state if the checkpoint is old or final is
// set.
func (s *BaseSampler) saveCheckpoint(x Vector, accepted int, scales []float64, final bool) {
	if s.Checkpoint == nil || !(final || s.Checkpoint.Old()) {
		return
	}
	data := &checkpoint.CheckpointData{
		Parameters: make(map[string]float64, len(x)),
		Iter:       s.i,
		Accepted:   accepted,
		Scales:     scales,
		Final:      final,
	}
	for i, name := range s.Names {
		data.Parameters[name] = x[i]
	}
	// JSON has no NaN
	if !math.IsNaN(s.l) {
		data.LogDensity = s.l
	}
	if err := s.Checkpoint.Save(data); err != nil {
		log.Warningf("Error saving checkpoint: %v", err)
	}
}

// logAcceptance logs the acceptance rate for the last period.
func (s *BaseSampler) logAcceptance(accepted, proposed int) {
	if proposed > 0 {
		log.Infof("Acceptance rate %.2f%%", 100*float64(accepted)/float64(proposed))
	}
}
