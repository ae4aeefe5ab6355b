// Package query compiles a filter and free text into predicates that the
// record store executes.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/platelog/internal/models"
)

// Predicate is one independent constraint on meal records. A predicate
// renders itself as a SQL boolean expression over the records table and can
// also be evaluated against a record in memory.
type Predicate interface {
	SQL() (string, []any)
	Match(r models.MealRecord) bool
	String() string
}

// DateRange matches records created in [From, To).
type DateRange struct {
	From time.Time
	To   time.Time
}

// SQL implements Predicate. created_at is stored as Unix nanoseconds.
func (p DateRange) SQL() (string, []any) {
	return "records.created_at >= ? AND records.created_at < ?", []any{p.From.UnixNano(), p.To.UnixNano()}
}

// Match implements Predicate.
func (p DateRange) Match(r models.MealRecord) bool {
	return !r.CreatedAt.Before(p.From) && r.CreatedAt.Before(p.To)
}

func (p DateRange) String() string {
	return fmt.Sprintf("created_at in [%s, %s)", p.From.Format(time.RFC3339), p.To.Format(time.RFC3339))
}

// HasTag matches records whose tag set contains TagID.
type HasTag struct {
	TagID string
}

// SQL implements Predicate.
func (p HasTag) SQL() (string, []any) {
	return "EXISTS (SELECT 1 FROM record_tags rt WHERE rt.record_id = records.id AND rt.tag_id = ?)", []any{p.TagID}
}

// Match implements Predicate.
func (p HasTag) Match(r models.MealRecord) bool { return r.HasTag(p.TagID) }

func (p HasTag) String() string { return "tags contains " + p.TagID }

// QualityIs matches one quality ordinal.
type QualityIs struct {
	Quality models.Quality
}

// SQL implements Predicate.
func (p QualityIs) SQL() (string, []any) {
	return "records.quality = ?", []any{int(p.Quality)}
}

// Match implements Predicate.
func (p QualityIs) Match(r models.MealRecord) bool { return r.Quality == p.Quality }

func (p QualityIs) String() string { return "quality = " + p.Quality.String() }

// MealtimeIs matches one mealtime.
type MealtimeIs struct {
	Mealtime models.Mealtime
}

// SQL implements Predicate.
func (p MealtimeIs) SQL() (string, []any) {
	return "records.mealtime = ?", []any{string(p.Mealtime)}
}

// Match implements Predicate.
func (p MealtimeIs) Match(r models.MealRecord) bool {
	return r.Mealtime != nil && *r.Mealtime == p.Mealtime
}

func (p MealtimeIs) String() string { return "mealtime = " + string(p.Mealtime) }

// TextContains matches records whose title or notes contain Text,
// case-insensitively.
type TextContains struct {
	Text string
}

// FoldFunc names the SQL function that lowercases text the way Fold does.
// The record store registers it on every connection.
const FoldFunc = "fold"

// Fold lowercases s with Unicode case mapping.
func Fold(s string) string { return strings.ToLower(s) }

// SQL implements Predicate.
func (p TextContains) SQL() (string, []any) {
	like := "%" + escapeLike(Fold(p.Text)) + "%"
	return `(` + FoldFunc + `(coalesce(records.title, '')) LIKE ? ESCAPE '\' OR ` +
			FoldFunc + `(coalesce(records.notes, '')) LIKE ? ESCAPE '\')`,
		[]any{like, like}
}

// Match implements Predicate.
func (p TextContains) Match(r models.MealRecord) bool {
	needle := Fold(p.Text)
	return strings.Contains(Fold(r.TitleText()), needle) ||
		strings.Contains(Fold(r.NotesText()), needle)
}

func (p TextContains) String() string { return fmt.Sprintf("title or notes contain %q", p.Text) }

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
