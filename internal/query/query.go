package query

import (
	"strings"
	"time"

	"github.com/starford/platelog/internal/filter"
	"github.com/starford/platelog/internal/models"
)

// Options carries the inputs that live outside the filter itself.
type Options struct {
	// Text is the free-text search string. Surrounding whitespace is ignored.
	Text string
	// SelectedDate is used when the filter has no date of its own.
	SelectedDate *time.Time
	// NewestFirst sorts by creation time descending.
	NewestFirst bool
}

// Query is an AND of predicates plus a sort direction. The zero Query
// matches every record, oldest first.
type Query struct {
	Predicates  []Predicate
	NewestFirst bool
}

// Compile turns f and opts into a Query.
//
// Date, tag, quality and mealtime each contribute one predicate when set.
// The "all records" filter drops those and keeps only the text predicate.
func Compile(f filter.Filter, opts Options) Query {
	var preds []Predicate

	if !f.IsAll() {
		date := f.Date
		if date == nil {
			date = opts.SelectedDate
		}
		if date != nil {
			from := filter.StartOfDay(*date)
			preds = append(preds, DateRange{From: from, To: from.AddDate(0, 0, 1)})
		}
		if f.TagID != nil {
			preds = append(preds, HasTag{TagID: *f.TagID})
		}
		if f.HasQuality() {
			preds = append(preds, QualityIs{Quality: f.Quality})
		}
		if f.Mealtime != nil {
			preds = append(preds, MealtimeIs{Mealtime: *f.Mealtime})
		}
	}

	if text := strings.TrimSpace(opts.Text); text != "" {
		preds = append(preds, TextContains{Text: text})
	}

	return Query{Predicates: preds, NewestFirst: opts.NewestFirst}
}

// Where renders the conjunction of all predicates. It returns "" when the
// query has no predicates.
func (q Query) Where() (string, []any) {
	if len(q.Predicates) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(q.Predicates))
	var args []any
	for _, p := range q.Predicates {
		sql, a := p.SQL()
		parts = append(parts, "("+sql+")")
		args = append(args, a...)
	}
	return strings.Join(parts, " AND "), args
}

// OrderBy renders the sort clause. Ties keep insertion order.
func (q Query) OrderBy() string {
	if q.NewestFirst {
		return "records.created_at DESC, records.seq ASC"
	}
	return "records.created_at ASC, records.seq ASC"
}

// Match reports whether r satisfies every predicate.
func (q Query) Match(r models.MealRecord) bool {
	for _, p := range q.Predicates {
		if !p.Match(r) {
			return false
		}
	}
	return true
}

// Apply filters and sorts records in memory.
func (q Query) Apply(records []models.MealRecord) []models.MealRecord {
	out := make([]models.MealRecord, 0, len(records))
	for _, r := range records {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	models.SortRecords(out, q.NewestFirst)
	return out
}

func (q Query) String() string {
	if len(q.Predicates) == 0 {
		return "all"
	}
	parts := make([]string, len(q.Predicates))
	for i, p := range q.Predicates {
		parts[i] = p.String()
	}
	return strings.Join(parts, " AND ")
}
