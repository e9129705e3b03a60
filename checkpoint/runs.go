package checkpoint

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Run is a finished sampler run.
type Run struct {
	// Sampler is the sampler name (gibbs, mh).
	Sampler string `json:"sampler"`
	// Model is the model name.
	Model string `json:"model"`
	// Seed is the random generator seed.
	Seed uint64 `json:"seed"`
	// Names are the parameter names.
	Names []string `json:"names"`
	// Chains holds the draws of every chain.
	Chains [][][]float64 `json:"chains"`
	// Accepted is the number of accepted proposals per chain.
	Accepted []int `json:"accepted"`
	// Proposed is the number of proposals per chain.
	Proposed []int `json:"proposed"`
}

// SaveRun stores a finished run under key.
func SaveRun(db *bolt.DB, key string, run *Run) error {
	if err := putJSON(db, RUNS, []byte(key), run); err != nil {
		return fmt.Errorf("saving run %q: %w", key, err)
	}
	log.Infof("Saved run %q (%d chains)", key, len(run.Chains))
	return nil
}

// LoadRun loads a run stored under key. It returns nil if there is no
// such run.
func LoadRun(db *bolt.DB, key string) (*Run, error) {
	var run Run
	found, err := getJSON(db, RUNS, []byte(key), &run)
	if err != nil {
		return nil, fmt.Errorf("reading run %q: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	return &run, nil
}

// ListRuns returns the keys of all the stored runs.
func ListRuns(db *bolt.DB) (keys []string, err error) {
	if db == nil {
		return nil, nil
	}
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(RUNS)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return
}
