// Package observers derives secondary insights from accumulated claims.
//
// Observers are pluggable post-processing stages resolved at startup into a
// typed list; the dispatcher runs every observer of a kind and persists their
// outputs as Insight rows. A failing observer is logged and skipped, it never
// aborts the stage.
package observers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashishact/ramble/internal/store"
)

// Kind separates observers that need a model call from those that do not.
// The two groups run as distinct pipeline stages.
type Kind string

const (
	KindNonLLM Kind = "nonllm"
	KindLLM    Kind = "llm"
)

// Input is what one observer run sees.
type Input struct {
	// Unit is the unit whose processing triggered this run.
	Unit *store.Unit

	// UnitClaims are the claims derived from this unit.
	UnitClaims []*store.Claim

	// AllClaims is the full accumulated claim set, this unit included.
	AllClaims []*store.Claim
}

// Output is what one observer run yields. Insights carry Summary and
// ClaimIDs; the dispatcher fills Observer and UnitID before persisting.
type Output struct {
	Insights []*store.Insight
}

// Observer derives insights from claims.
type Observer interface {
	Name() string
	Kind() Kind
	Run(ctx context.Context, in Input) (Output, error)
}

// Dispatcher fans a unit out to every registered observer of a kind.
type Dispatcher struct {
	store     store.Store
	observers []Observer
	log       *slog.Logger
}

// NewDispatcher creates a dispatcher over a fixed observer list.
func NewDispatcher(st store.Store, log *slog.Logger, obs ...Observer) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{store: st, observers: obs, log: log}
}

// Run executes every observer of the given kind for the unit and persists
// their insights. The returned map counts persisted insights per observer
// name; observers that already produced insights for this unit are counted
// without re-running, so a retried stage cannot double-charge a model call.
func (d *Dispatcher) Run(ctx context.Context, unitID string, kind Kind) (map[string]int, error) {
	unit, err := d.store.GetUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("observers: load unit %s: %w", unitID, err)
	}
	if unit == nil {
		return nil, fmt.Errorf("observers: unit %s not found", unitID)
	}

	unitClaims, err := d.store.ClaimsByUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("observers: claims for unit %s: %w", unitID, err)
	}
	allClaims, err := d.store.AllClaims(ctx)
	if err != nil {
		return nil, fmt.Errorf("observers: all claims: %w", err)
	}

	in := Input{Unit: unit, UnitClaims: unitClaims, AllClaims: allClaims}
	outputs := make(map[string]int)

	for _, obs := range d.observers {
		if obs.Kind() != kind {
			continue
		}

		existing, err := d.existingCount(ctx, obs.Name(), unitID)
		if err != nil {
			return nil, err
		}
		if existing > 0 {
			outputs[obs.Name()] = existing
			continue
		}

		out, err := obs.Run(ctx, in)
		if err != nil {
			d.log.Warn("observer failed, skipping", "observer", obs.Name(), "unit", unitID, "err", err)
			outputs[obs.Name()] = 0
			continue
		}

		count := 0
		for _, ins := range out.Insights {
			ins.Observer = obs.Name()
			ins.UnitID = unitID
			if err := d.store.CreateInsight(ctx, ins); err != nil {
				return nil, fmt.Errorf("observers: persist insight from %s: %w", obs.Name(), err)
			}
			count++
		}
		outputs[obs.Name()] = count
	}
	return outputs, nil
}

// existingCount returns how many insights the named observer already
// persisted for this unit.
func (d *Dispatcher) existingCount(ctx context.Context, observer, unitID string) (int, error) {
	all, err := d.store.InsightsByObserver(ctx, observer)
	if err != nil {
		return 0, fmt.Errorf("observers: insights for %s: %w", observer, err)
	}
	n := 0
	for _, ins := range all {
		if ins.UnitID == unitID {
			n++
		}
	}
	return n, nil
}
