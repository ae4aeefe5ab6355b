// Package models defines the domain types for platelog.
package models

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Quality is the ordinal healthiness score of a meal.
type Quality int

// Quality values. QualityNone is the "no constraint" sentinel used by filters;
// a stored record always carries one of the three ordinals.
const (
	QualityNone      Quality = -1
	QualityUnhealthy Quality = 0
	QualityModerate  Quality = 1
	QualityHealthy   Quality = 2
)

// Qualities lists the valid ordinals in ascending order.
var Qualities = []Quality{QualityUnhealthy, QualityModerate, QualityHealthy}

// Valid reports whether q is one of the three stored ordinals.
func (q Quality) Valid() bool {
	return q >= QualityUnhealthy && q <= QualityHealthy
}

func (q Quality) String() string {
	switch q {
	case QualityUnhealthy:
		return "Unhealthy"
	case QualityModerate:
		return "Moderate"
	case QualityHealthy:
		return "Healthy"
	case QualityNone:
		return "None"
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// ParseQuality converts a raw ordinal into a valid Quality.
func ParseQuality(v int) (Quality, error) {
	q := Quality(v)
	if !q.Valid() {
		return QualityNone, fmt.Errorf("models: invalid quality %d", v)
	}
	return q, nil
}

// Mealtime is one of a closed set of meal categories.
type Mealtime string

// Mealtime values.
const (
	MealtimeBreakfast    Mealtime = "Breakfast"
	MealtimeMorningSnack Mealtime = "Morning Snack"
	MealtimeLunch        Mealtime = "Lunch"
	MealtimeDaySnack     Mealtime = "Day Snack"
	MealtimeDinner       Mealtime = "Dinner"
	MealtimeEveningSnack Mealtime = "Evening Snack"
	MealtimeAnytime      Mealtime = "Anytime Meal"
)

// Mealtimes lists every mealtime in the order of a day.
var Mealtimes = []Mealtime{
	MealtimeBreakfast,
	MealtimeMorningSnack,
	MealtimeLunch,
	MealtimeDaySnack,
	MealtimeDinner,
	MealtimeEveningSnack,
	MealtimeAnytime,
}

// Valid reports whether m is one of the seven known mealtimes.
func (m Mealtime) Valid() bool {
	return slices.Contains(Mealtimes, m)
}

// ParseMealtime rejects anything that is not one of the seven mealtimes.
func ParseMealtime(s string) (Mealtime, error) {
	m := Mealtime(s)
	if !m.Valid() {
		return "", fmt.Errorf("models: unknown mealtime %q", s)
	}
	return m, nil
}

// MealRecord is a single logged plate of food.
//
// Optional attributes are pointers; the *Text/*Value accessors give a
// non-optional view of them. CreatedAt is immutable once the record exists.
type MealRecord struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Title         *string   `json:"title,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	Quality       Quality   `json:"quality"`
	Mealtime      *Mealtime `json:"mealtime,omitempty"`
	PhotoPath     *string   `json:"photo_path,omitempty"`
	PhotoRemoteID *string   `json:"photo_remote_id,omitempty"`
	Tags          []Tag     `json:"tags"`
}

// TitleText returns the title or "" when unset.
func (r *MealRecord) TitleText() string { return deref(r.Title) }

// SetTitleText sets the title.
func (r *MealRecord) SetTitleText(s string) { r.Title = &s }

// NotesText returns the notes or "" when unset.
func (r *MealRecord) NotesText() string { return deref(r.Notes) }

// SetNotesText sets the notes.
func (r *MealRecord) SetNotesText(s string) { r.Notes = &s }

// MealtimeValue returns the mealtime, MealtimeAnytime when unset.
func (r *MealRecord) MealtimeValue() Mealtime {
	if r.Mealtime == nil {
		return MealtimeAnytime
	}
	return *r.Mealtime
}

// SetMealtimeValue sets the mealtime.
func (r *MealRecord) SetMealtimeValue(m Mealtime) { r.Mealtime = &m }

// PhotoPathText returns the local photo path or "" when unset.
func (r *MealRecord) PhotoPathText() string { return deref(r.PhotoPath) }

// SetPhotoPathText sets the local photo path.
func (r *MealRecord) SetPhotoPathText(s string) { r.PhotoPath = &s }

// PhotoRemoteText returns the remote photo id or "" when unset.
func (r *MealRecord) PhotoRemoteText() string { return deref(r.PhotoRemoteID) }

// SetPhotoRemoteText sets the remote photo id.
func (r *MealRecord) SetPhotoRemoteText(s string) { r.PhotoRemoteID = &s }

// PhotoRef is the pair of photo references carried by a record.
type PhotoRef struct {
	Remote string
	Local  string
}

// IsZero reports whether the record has no photo at all.
func (p PhotoRef) IsZero() bool { return p.Remote == "" && p.Local == "" }

// Photo returns the record's photo references. Callers try Remote first.
func (r *MealRecord) Photo() PhotoRef {
	return PhotoRef{Remote: r.PhotoRemoteText(), Local: r.PhotoPathText()}
}

// HasTag reports whether the record carries the tag with the given id.
func (r *MealRecord) HasTag(tagID string) bool {
	return slices.ContainsFunc(r.Tags, func(t Tag) bool { return t.ID == tagID })
}

// CompareRecords orders records by creation time, oldest first.
func CompareRecords(a, b MealRecord) int {
	return a.CreatedAt.Compare(b.CreatedAt)
}

// SortRecords sorts records in place by creation time. Records with equal
// timestamps keep their relative order.
func SortRecords(records []MealRecord, newestFirst bool) {
	slices.SortStableFunc(records, func(a, b MealRecord) int {
		if newestFirst {
			return CompareRecords(b, a)
		}
		return CompareRecords(a, b)
	})
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// compareStrings is shared by the tag comparators.
func compareStrings(a, b string) int { return cmp.Compare(a, b) }
