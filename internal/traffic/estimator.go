// Package traffic turns cumulative network byte counters into per-second
// rates, per source and for the aggregate across all sources.
package traffic

import (
	"math"
	"sync"
	"time"
)

// Snapshot is the last observation recorded for one source.
type Snapshot struct {
	RxBytes   uint64
	TxBytes   uint64
	SampledAt time.Time
}

// Rate is a bandwidth measurement in bytes per second.
type Rate struct {
	RxBps float64 `json:"rx_bps"`
	TxBps float64 `json:"tx_bps"`
}

// Estimator keeps one baseline snapshot per source plus one for the
// aggregate total. It is safe for concurrent use, but callers must not run
// overlapping poll cycles for the same sources: two interleaved cycles would
// each advance the other's baseline.
type Estimator struct {
	mu      sync.Mutex
	sources map[string]Snapshot
	total   *Snapshot
}

// NewEstimator creates an empty Estimator.
func NewEstimator() *Estimator {
	return &Estimator{sources: make(map[string]Snapshot)}
}

// Observe folds a new counter reading for id into its baseline and returns the
// rate since the previous reading. The first reading only sets the baseline.
func (e *Estimator) Observe(id string, rx, tx uint64, now time.Time) Rate {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.sources[id]
	rate, advance := step(prev, ok, rx, tx, now)
	if advance {
		e.sources[id] = Snapshot{RxBytes: rx, TxBytes: tx, SampledAt: now}
	}
	return rate
}

// ObserveTotal is Observe for the aggregate pseudo-source.
func (e *Estimator) ObserveTotal(rx, tx uint64, now time.Time) Rate {
	e.mu.Lock()
	defer e.mu.Unlock()

	var prev Snapshot
	if e.total != nil {
		prev = *e.total
	}
	rate, advance := step(prev, e.total != nil, rx, tx, now)
	if advance {
		e.total = &Snapshot{RxBytes: rx, TxBytes: tx, SampledAt: now}
	}
	return rate
}

// Reconcile evicts every tracked source absent from current. The aggregate
// baseline is kept.
func (e *Estimator) Reconcile(current map[string]struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id := range e.sources {
		if _, ok := current[id]; !ok {
			delete(e.sources, id)
		}
	}
}

// Reset drops all baselines, including the aggregate.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sources = make(map[string]Snapshot)
	e.total = nil
}

// Len reports the number of tracked sources, not counting the aggregate.
func (e *Estimator) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sources)
}

// Baseline returns the stored snapshot for id.
func (e *Estimator) Baseline(id string) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sources[id]
	return s, ok
}

// step computes the rate from prev to the new reading and reports whether the
// baseline should move to it.
func step(prev Snapshot, havePrev bool, rx, tx uint64, now time.Time) (Rate, bool) {
	if !havePrev {
		return Rate{}, true
	}
	elapsed := now.Sub(prev.SampledAt).Seconds()
	if elapsed <= 0 {
		return Rate{}, false
	}
	return Rate{
		RxBps: round2(float64(delta(rx, prev.RxBytes)) / elapsed),
		TxBps: round2(float64(delta(tx, prev.TxBytes)) / elapsed),
	}, true
}

// delta clamps a counter that went backwards, as after a container restart,
// to zero.
func delta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
