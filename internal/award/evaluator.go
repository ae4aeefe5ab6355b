package award

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/starford/platelog/internal/kv"
)

// CongratulatedKey holds the ids of awards already shown, as a JSON list.
const CongratulatedKey = "awards.congratulated"

// State is where a definition stands for the current counter.
type State int

// Award states. Transitions only move forward.
const (
	Locked State = iota
	EarnedUnacknowledged
	EarnedAcknowledged
)

var stateNames = [...]string{"locked", "earned_unacknowledged", "earned_acknowledged"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Status is one definition with its state.
type Status struct {
	Definition Definition `json:"award"`
	State      State      `json:"state"`
	// Remaining is how many more records are needed; 0 once earned.
	Remaining int64 `json:"remaining"`
}

// Counter supplies the usage count.
type Counter interface {
	Value(ctx context.Context) int64
}

// Evaluator reports newly earned awards, each at most once per
// congratulated set. Writers on other devices can race an append; a
// duplicate report is possible until their write propagates.
type Evaluator struct {
	catalog *Catalog
	counter Counter
	store   kv.Store
	logger  *slog.Logger

	mu sync.Mutex
}

// NewEvaluator returns an Evaluator. A nil logger uses slog.Default.
func NewEvaluator(catalog *Catalog, counter Counter, store kv.Store, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{catalog: catalog, counter: counter, store: store, logger: logger}
}

// Catalog returns the definitions this evaluator uses.
func (e *Evaluator) Catalog() *Catalog { return e.catalog }

// CheckForNewlyEarned returns the lowest earned award not yet
// congratulated, after adding it to the congratulated set. It reports at
// most one award per call.
func (e *Evaluator) CheckForNewlyEarned(ctx context.Context) (Definition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	shown, err := kv.GetList(ctx, e.store, CongratulatedKey)
	if err != nil {
		e.logger.Warn("award: read congratulated set failed", slog.String("error", err.Error()))
		return Definition{}, false
	}
	count := e.counter.Value(ctx)

	for _, d := range e.catalog.Definitions {
		if count < d.Threshold {
			break
		}
		if slices.Contains(shown, d.ID) {
			continue
		}
		if err := kv.SetList(ctx, e.store, CongratulatedKey, append(shown, d.ID)); err != nil {
			e.logger.Warn("award: persist congratulated set failed",
				slog.String("award", d.ID), slog.String("error", err.Error()))
		}
		e.logger.Info("award: earned", slog.String("award", d.ID), slog.Int64("count", count))
		return d, true
	}
	return Definition{}, false
}

// Progress returns every definition with its state, in catalog order.
func (e *Evaluator) Progress(ctx context.Context) []Status {
	shown, err := kv.GetList(ctx, e.store, CongratulatedKey)
	if err != nil {
		e.logger.Warn("award: read congratulated set failed", slog.String("error", err.Error()))
	}
	count := e.counter.Value(ctx)

	out := make([]Status, 0, len(e.catalog.Definitions))
	for _, d := range e.catalog.Definitions {
		st := Status{Definition: d}
		switch {
		case count < d.Threshold:
			st.State = Locked
			st.Remaining = d.Threshold - count
		case slices.Contains(shown, d.ID):
			st.State = EarnedAcknowledged
		default:
			st.State = EarnedUnacknowledged
		}
		out = append(out, st)
	}
	return out
}

// Reset clears the congratulated set. Used by the full data wipe.
func (e *Evaluator) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := kv.SetList(ctx, e.store, CongratulatedKey, nil); err != nil {
		return fmt.Errorf("award: reset: %w", err)
	}
	return nil
}
