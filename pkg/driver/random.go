package driver

import (
	"math/rand/v2"
	"time"
)

// RandomConfig configures the randomized demo workload.
type RandomConfig struct {
	// BaseDelay is the minimum sleep between turns.
	BaseDelay time.Duration
	// Jitter is the exclusive upper bound of extra random sleep.
	Jitter time.Duration
	// InsertWeight, RemoveWeight and ModifyWeight set the relative
	// likelihood of each mutation kind.
	InsertWeight int
	RemoveWeight int
	ModifyWeight int
	// Seed makes the sequence reproducible when non-zero. Each worker mixes
	// its id into the seed so workers do not mirror each other.
	Seed uint64
}

// DefaultRandomConfig returns the classic workload: one to four seconds
// between turns, 20% inserts, 10% removes and 70% modifies.
func DefaultRandomConfig() RandomConfig {
	return RandomConfig{
		BaseDelay:    time.Second,
		Jitter:       3 * time.Second,
		InsertWeight: 2,
		RemoveWeight: 1,
		ModifyWeight: 7,
	}
}

// Random is a weighted random driver. It is not safe for concurrent use;
// build one per worker with RandomFactory.
type Random struct {
	cfg   RandomConfig
	total int
	rng   *rand.Rand
}

// NewRandom returns a Random driver for the given worker.
// A config whose weights sum to zero only ever inserts.
func NewRandom(cfg RandomConfig, workerID int) *Random {
	var src rand.Source
	if cfg.Seed != 0 {
		src = rand.NewPCG(cfg.Seed, uint64(workerID))
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Random{
		cfg:   cfg,
		total: max(cfg.InsertWeight, 0) + max(cfg.RemoveWeight, 0) + max(cfg.ModifyWeight, 0),
		rng:   rand.New(src),
	}
}

// RandomFactory returns a Factory building one Random driver per worker.
func RandomFactory(cfg RandomConfig) Factory {
	return func(workerID int) Driver {
		return NewRandom(cfg, workerID)
	}
}

// NextDelay implements Driver.
func (r *Random) NextDelay() time.Duration {
	d := r.cfg.BaseDelay
	if r.cfg.Jitter > 0 {
		d += time.Duration(r.rng.Int64N(int64(r.cfg.Jitter)))
	}
	return d
}

// NextMutationKind implements Driver.
func (r *Random) NextMutationKind() MutationKind {
	if r.total <= 0 {
		return Insert
	}
	n := r.rng.IntN(r.total)
	switch {
	case n < max(r.cfg.InsertWeight, 0):
		return Insert
	case n < max(r.cfg.InsertWeight, 0)+max(r.cfg.RemoveWeight, 0):
		return Remove
	default:
		return Modify
	}
}

// PickIndex implements Driver.
func (r *Random) PickIndex(length int) int {
	return r.rng.IntN(length)
}
