// Package filter describes which meal records to show.
package filter

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/platelog/internal/models"
)

// Kind marks what a filter was built from.
type Kind string

// Filter kinds.
const (
	KindAll      Kind = "all"
	KindDate     Kind = "date"
	KindQuality  Kind = "quality"
	KindMealtime Kind = "mealtime"
	KindTag      Kind = "tag"
	KindCustom   Kind = "custom"
)

// Filter is an immutable query intent. Two filters are Equal only when they
// share an ID, regardless of their constraints; use SameConstraints for a
// structural comparison.
type Filter struct {
	ID       uuid.UUID        `json:"id"`
	Kind     Kind             `json:"kind"`
	Name     string           `json:"name"`
	Icon     string           `json:"icon"`
	TagID    *string          `json:"tag_id,omitempty"`
	Quality  models.Quality   `json:"quality"`
	Date     *time.Time       `json:"date,omitempty"`
	Mealtime *models.Mealtime `json:"mealtime,omitempty"`
}

// New returns an unconstrained custom filter with a fresh identity.
func New(name, icon string) Filter {
	return Filter{
		ID:      uuid.New(),
		Kind:    KindCustom,
		Name:    name,
		Icon:    icon,
		Quality: models.QualityNone,
	}
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ForDate returns a filter pinned to the start of day of d.
func ForDate(d time.Time) Filter {
	day := StartOfDay(d)
	f := New(day.Format("2006-01-02"), "calendar")
	f.Kind = KindDate
	f.Date = &day
	return f
}

// ForQuality returns a filter constrained to one quality ordinal.
func ForQuality(q models.Quality) Filter {
	f := New(q.String(), qualityIcons[q])
	f.Kind = KindQuality
	f.Quality = q
	return f
}

// ForMealtime returns a filter constrained to one mealtime.
func ForMealtime(m models.Mealtime) Filter {
	f := New(string(m), "fork.knife")
	f.Kind = KindMealtime
	f.Mealtime = &m
	return f
}

// ForTag returns a filter constrained to records carrying tag.
func ForTag(tag models.Tag) Filter {
	f := New(tag.Name, "tag")
	f.Kind = KindTag
	id := tag.ID
	f.TagID = &id
	return f
}

var qualityIcons = map[models.Quality]string{
	models.QualityUnhealthy: "xmark.circle",
	models.QualityModerate:  "minus.circle",
	models.QualityHealthy:   "checkmark.circle",
}

// IsAll reports whether f is the distinguished "all records" filter.
func (f Filter) IsAll() bool { return f.Kind == KindAll }

// HasQuality reports whether f constrains quality.
func (f Filter) HasQuality() bool { return f.Quality != models.QualityNone }

// Equal compares identities.
func (f Filter) Equal(other Filter) bool { return f.ID == other.ID }

// SameConstraints compares tag, quality, date and mealtime, ignoring identity
// and display attributes.
func (f Filter) SameConstraints(other Filter) bool {
	return f.IsAll() == other.IsAll() &&
		f.Quality == other.Quality &&
		eqPtr(f.TagID, other.TagID) &&
		eqPtr(f.Mealtime, other.Mealtime) &&
		eqTime(f.Date, other.Date)
}

// ApplyingFilters returns a copy of f whose tag, quality and mealtime are
// replaced by the ones existing specifies. Constraints absent on existing are
// kept from f. The result has a fresh identity.
func (f Filter) ApplyingFilters(existing Filter) Filter {
	out := f
	out.ID = uuid.New()
	if existing.TagID != nil {
		id := *existing.TagID
		out.TagID = &id
	}
	if existing.HasQuality() {
		out.Quality = existing.Quality
	}
	if existing.Mealtime != nil {
		m := *existing.Mealtime
		out.Mealtime = &m
	}
	return out
}

// Presets is the fixed family of canned filters.
type Presets struct {
	All       Filter
	Qualities []Filter
	Mealtimes []Filter
}

// List returns every preset, All first.
func (p Presets) List() []Filter {
	out := make([]Filter, 0, 1+len(p.Qualities)+len(p.Mealtimes))
	out = append(out, p.All)
	out = append(out, p.Qualities...)
	return append(out, p.Mealtimes...)
}

// Match returns the preset whose constraints equal f's.
func (p Presets) Match(f Filter) (Filter, bool) {
	for _, preset := range p.List() {
		if preset.SameConstraints(f) {
			return preset, true
		}
	}
	return Filter{}, false
}

var presets = sync.OnceValue(func() Presets {
	all := New("All", "tray.full")
	all.Kind = KindAll

	p := Presets{All: all}
	for _, q := range models.Qualities {
		p.Qualities = append(p.Qualities, ForQuality(q))
	}
	for _, m := range models.Mealtimes {
		p.Mealtimes = append(p.Mealtimes, ForMealtime(m))
	}
	return p
})

// DefaultPresets returns the process-wide presets, built once.
func DefaultPresets() Presets { return presets() }

// All returns the "all records" preset.
func All() Filter { return presets().All }

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
