package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/platelog/internal/tagset"
)

// DefaultFreeLimit is how many records can be created without an
// entitlement.
const DefaultFreeLimit = 35

// Event kinds passed to the Notifier.
const (
	EventRecordCreated  = "record.created"
	EventRecordUpdated  = "record.updated"
	EventRecordDeleted  = "record.deleted"
	EventTagCreated     = "tag.created"
	EventTagDeleted     = "tag.deleted"
	EventAwardEarned    = "award.earned"
	EventCounterChanged = "counter.changed"
)

// Notifier receives change events, e.g. to push them to clients.
type Notifier interface {
	PublishChange(kind string, data any)
}

// Entitlement reports whether the user has paid for unlimited records.
type Entitlement interface {
	Active(ctx context.Context) bool
}

// EntitlementFunc adapts a function to Entitlement.
type EntitlementFunc func(ctx context.Context) bool

func (f EntitlementFunc) Active(ctx context.Context) bool { return f(ctx) }

// Static is a fixed entitlement.
type Static bool

func (s Static) Active(context.Context) bool { return bool(s) }

// Option configures a Service.
type Option func(*Service)

// WithEntitlement sets the entitlement source. The default is none.
func WithEntitlement(e Entitlement) Option {
	return func(s *Service) { s.entitlement = e }
}

// WithNotifier sets where change events go. A nil n discards them.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithFreeLimit overrides DefaultFreeLimit.
func WithFreeLimit(n int64) Option {
	return func(s *Service) { s.freeLimit = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSorter sets how tags are ordered for display.
func WithSorter(sorter tagset.Sorter) Option {
	return func(s *Service) { s.sorter = sorter }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

type nopNotifier struct{}

func (nopNotifier) PublishChange(string, any) {}
