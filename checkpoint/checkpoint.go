// Package checkpoint stores sampler checkpoints and finished runs in a
// bolt database. Values are JSON documents.
package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

var (
	// CHAINS is the bucket of chain checkpoints.
	CHAINS = []byte("chains")
	// RUNS is the bucket of finished runs.
	RUNS = []byte("runs")
)

// CheckpointData is the state of a chain at some iteration.
type CheckpointData struct {
	Parameters map[string]float64 `json:"parameters"`
	LogDensity float64            `json:"logDensity"`
	Iter       int                `json:"iter"`
	Accepted   int                `json:"accepted"`
	Scales     []float64          `json:"scales,omitempty"`
	Final      bool               `json:"final"`
}

// State returns the stored parameter values ordered as names.
func (d *CheckpointData) State(names []string) ([]float64, error) {
	x := make([]float64, len(names))
	for i, name := range names {
		v, ok := d.Parameters[name]
		if !ok {
			return nil, fmt.Errorf("checkpoint has no parameter %s", name)
		}
		x[i] = v
	}
	return x, nil
}

// CheckpointIO saves and loads the checkpoints of a single chain.
type CheckpointIO struct {
	db     *bolt.DB
	key    []byte
	period time.Duration
	saved  time.Time
}

// NewCheckpointIO creates a CheckpointIO which becomes old period
// after the last save.
func NewCheckpointIO(db *bolt.DB, key []byte, period time.Duration) *CheckpointIO {
	return &CheckpointIO{
		db:     db,
		key:    key,
		period: period,
		saved:  time.Now(),
	}
}

// Old returns true if the period has passed since the last save.
func (s *CheckpointIO) Old() bool {
	return time.Since(s.saved) > s.period
}

// Save writes the checkpoint. The period restarts even if writing
// fails.
func (s *CheckpointIO) Save(data *CheckpointData) error {
	s.saved = time.Now()
	if err := putJSON(s.db, CHAINS, s.key, data); err != nil {
		log.Errorf("Error saving checkpoint %s: %v", s.key, err)
		return err
	}
	log.Debugf("Saved checkpoint %s at iteration %d", s.key, data.Iter)
	return nil
}

// Load returns the last checkpoint, nil if there is none.
func (s *CheckpointIO) Load() (*CheckpointData, error) {
	var data CheckpointData
	found, err := getJSON(s.db, CHAINS, s.key, &data)
	if err != nil || !found || len(data.Parameters) == 0 {
		return nil, err
	}
	state := "unfinished"
	if data.Final {
		state = "finished"
	}
	log.Noticef("Found %s checkpoint %s (iter=%d, logDensity=%v)", state, s.key, data.Iter, data.LogDensity)
	return &data, nil
}

// SaveData puts value under key, creating the bucket if needed.
// Without a database nothing is stored.
func SaveData(db *bolt.DB, bucket, key, value []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
}

// LoadData returns the value stored under key, nil if there is none.
func LoadData(db *bolt.DB, bucket, key []byte) (value []byte, err error) {
	if db == nil {
		return nil, nil
	}
	err = db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucket); b != nil {
			// the slice is only valid inside the transaction
			value = bytes.Clone(b.Get(key))
		}
		return nil
	})
	return
}

func putJSON(db *bolt.DB, bucket, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return SaveData(db, bucket, key, b)
}

// getJSON decodes the value under key into v and reports whether it
// was found.
func getJSON(db *bolt.DB, bucket, key []byte, v any) (bool, error) {
	b, err := LoadData(db, bucket, key)
	if err != nil || b == nil {
		return false, err
	}
	return true, json.Unmarshal(b, v)
}
