// Package verifier sequences the two externally invoked operations: the
// produce phase that writes records and persists the expected state, and the
// consume phase that reads the topic back and diffs it against that state.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/markpapadakis/redpanda/pkg/config"
	"github.com/markpapadakis/redpanda/pkg/consumer"
	"github.com/markpapadakis/redpanda/pkg/generator"
	"github.com/markpapadakis/redpanda/pkg/metrics"
	"github.com/markpapadakis/redpanda/pkg/producer"
	"github.com/markpapadakis/redpanda/pkg/state"
	"github.com/markpapadakis/redpanda/util"
)

// Phase tracks where a Verifier is in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProducing
	PhasePersisted
	PhaseConsuming
	PhaseReported
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseProducing:
		return "producing"
	case PhasePersisted:
		return "persisted"
	case PhaseConsuming:
		return "consuming"
	case PhaseReported:
		return "reported"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ErrBadPhase is returned when an operation is invoked out of order, for
// example consume without any persisted state.
var ErrBadPhase = errors.New("operation not valid in current phase")

// Verifier drives one verification run against a single topic and state file.
type Verifier struct {
	cfg   *config.Config
	phase Phase
	store *state.Store
}

// New returns an idle Verifier for cfg.
func New(cfg *config.Config) *Verifier {
	return &Verifier{cfg: cfg, phase: PhaseIdle}
}

// Phase reports the current lifecycle phase.
func (v *Verifier) Phase() Phase {
	return v.phase
}

// Produce runs the produce phase: ensure the compacted topic exists, push the
// generated workload, fold acknowledgments into the expected state, and
// persist it. An existing state file for the same topic is resumed, so
// repeated produce runs accumulate.
func (v *Verifier) Produce(ctx context.Context) error {
	if v.phase != PhaseIdle && v.phase != PhasePersisted {
		return fmt.Errorf("%w: produce in phase %s", ErrBadPhase, v.phase)
	}

	lock, err := state.Acquire(v.cfg.StatePath)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	store, err := state.Load(v.cfg.StatePath)
	switch {
	case err == nil:
		if store.Topic() != v.cfg.Topic {
			return fmt.Errorf("state file %s belongs to topic %q, not %q", v.cfg.StatePath, store.Topic(), v.cfg.Topic)
		}
		util.Info("resuming state from %s: %d keys, %d records produced so far",
			v.cfg.StatePath, store.Len(), store.Produced())
	case os.IsNotExist(err):
		store = state.New(v.cfg.Topic, v.cfg.Partitions)
		util.Info("starting fresh state for topic %s", v.cfg.Topic)
	default:
		return err
	}
	v.store = store
	v.phase = PhaseProducing

	gen, err := generator.New(v.cfg)
	if err != nil {
		return err
	}
	prod, err := producer.New(v.cfg, store)
	if err != nil {
		return err
	}
	defer prod.Close()

	if err := prod.EnsureTopic(ctx); err != nil {
		return err
	}

	runErr := prod.Run(ctx, gen)

	// Persist whatever was acknowledged even when the run failed partway;
	// those writes are durable on the brokers.
	if err := store.Persist(v.cfg.StatePath); err != nil {
		if runErr != nil {
			return errors.Join(runErr, err)
		}
		return err
	}
	v.phase = PhasePersisted
	util.Info("state persisted to %s (%d keys)", v.cfg.StatePath, store.Len())
	return runErr
}

// Consume runs the consume phase: load the persisted expected state, read the
// topic end to end, and diff observed against expected. The returned Report
// is non-nil whenever err is nil; a report with failures is not an error.
func (v *Verifier) Consume(ctx context.Context) (*Report, error) {
	if v.phase != PhaseIdle && v.phase != PhasePersisted {
		return nil, fmt.Errorf("%w: consume in phase %s", ErrBadPhase, v.phase)
	}

	lock, err := state.Acquire(v.cfg.StatePath)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	store, err := state.Load(v.cfg.StatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no persisted state at %s, run produce first", ErrBadPhase, v.cfg.StatePath)
		}
		return nil, err
	}
	if store.Topic() != v.cfg.Topic {
		return nil, fmt.Errorf("state file %s belongs to topic %q, not %q", v.cfg.StatePath, store.Topic(), v.cfg.Topic)
	}
	v.store = store
	v.phase = PhaseConsuming
	metrics.StateEntries.Set(float64(store.Len()))

	cons, err := consumer.New(v.cfg)
	if err != nil {
		return nil, err
	}
	defer cons.Close()

	// Last-offset-wins fold of the readback. Same-key records share a
	// partition, so per-key offsets are totally ordered.
	observed := map[string]observedEntry{}
	var total int64

	bounds, err := cons.Run(ctx, func(o consumer.Observed) {
		total++
		key := string(o.Key)
		if cur, ok := observed[key]; ok && o.Offset <= cur.offset {
			return
		}
		observed[key] = observedEntry{valueHash: util.Fingerprint(o.Value), offset: o.Offset}
	})
	if err != nil {
		return nil, err
	}

	report := diff(store, observed, bounds)
	report.RecordsObserved = total

	metrics.KeysMismatched.Set(float64(report.MismatchedCount))
	metrics.KeysMissing.Set(float64(report.MissingCount))
	metrics.KeysUnexpected.Set(float64(report.UnexpectedCount))

	v.phase = PhaseReported
	util.Info("verification report: %d checked, %d mismatched, %d missing, %d unexpected, %d compacted away",
		report.TotalKeysChecked, report.MismatchedCount, report.MissingCount,
		report.UnexpectedCount, report.CompactedAway)
	return report, nil
}
