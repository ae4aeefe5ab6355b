package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/platelog/internal/award"
	"github.com/starford/platelog/internal/filter"
	"github.com/starford/platelog/internal/models"
)

// DateLayout is the calendar day format used in query strings and bodies.
const DateLayout = "2006-01-02"

// UpdateRecordRequest is the request body for editing a record. Omitted
// fields are left unchanged.
type UpdateRecordRequest struct {
	Title    *string `json:"title,omitempty" example:"Pasta"`
	Notes    *string `json:"notes,omitempty" example:"Monday, March 2, 2026"`
	Quality  *int    `json:"quality,omitempty" example:"2"`
	Mealtime *string `json:"mealtime,omitempty" example:"Lunch"`
}

// Validate checks the optional fields that are present.
func (r *UpdateRecordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.Quality, validation.Min(int(models.QualityUnhealthy)), validation.Max(int(models.QualityHealthy))),
		validation.Field(&r.Mealtime, validation.In(mealtimeNames()...)),
	)
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name     string `json:"name" example:"Avocado" validate:"required"`
	Category string `json:"category" example:"Ingredients"`
}

// Validate checks the tag name.
func (r *CreateTagRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Category, validation.Length(0, 100)),
	)
}

// DefaultTagsRequest asks for the default tag set of a category.
type DefaultTagsRequest struct {
	Category string `json:"category" example:"Diet" validate:"required"`
}

// Validate checks the category.
func (r *DefaultTagsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Category, validation.Required),
	)
}

// SelectionRequest changes the browsing state. PresetID replaces the filter
// with a preset; otherwise any of Quality, Mealtime and TagID builds a custom
// filter. Date pins the selection to a day and ClearDate unpins it.
type SelectionRequest struct {
	PresetID    *string `json:"preset_id,omitempty"`
	Quality     *int    `json:"quality,omitempty"`
	Mealtime    *string `json:"mealtime,omitempty"`
	TagID       *string `json:"tag_id,omitempty"`
	Date        *string `json:"date,omitempty" example:"2026-03-02"`
	ClearDate   bool    `json:"clear_date,omitempty"`
	NewestFirst *bool   `json:"newest_first,omitempty"`
	Text        *string `json:"text,omitempty"`
}

// Validate checks the fields that are present.
func (r *SelectionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Quality, validation.Min(int(models.QualityUnhealthy)), validation.Max(int(models.QualityHealthy))),
		validation.Field(&r.Mealtime, validation.In(mealtimeNames()...)),
		validation.Field(&r.Date, validation.Date(DateLayout)),
		validation.Field(&r.Text, validation.Length(0, 200)),
	)
}

func (r *SelectionRequest) hasConstraints() bool {
	return r.Quality != nil || r.Mealtime != nil || r.TagID != nil
}

func mealtimeNames() []any {
	out := make([]any, 0, len(models.Mealtimes))
	for _, m := range models.Mealtimes {
		out = append(out, string(m))
	}
	return out
}

// parseDay reads a DateLayout day in the local time zone.
func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// RecordListResponse wraps a record listing.
type RecordListResponse struct {
	Records []models.MealRecord `json:"records" validate:"required"`
	Total   int                 `json:"total" example:"3" validate:"required"`
}

// CountResponse is returned by the count endpoint.
type CountResponse struct {
	Count int `json:"count" example:"3" validate:"required"`
}

// UpgradeResponse is returned when the free record limit is reached.
type UpgradeResponse struct {
	Upgrade bool  `json:"upgrade" example:"true" validate:"required"`
	Limit   int64 `json:"limit" example:"35"`
	Used    int64 `json:"used" example:"35"`
}

// PresetsResponse lists the canned filters.
type PresetsResponse struct {
	Filters []filter.Filter `json:"filters" validate:"required"`
}

// AwardCheckResponse reports a newly earned award, if any.
type AwardCheckResponse struct {
	Earned bool              `json:"earned" validate:"required"`
	Award  *award.Definition `json:"award,omitempty"`
}

// AwardListResponse lists every award with its state.
type AwardListResponse struct {
	Awards []award.Status `json:"awards" validate:"required"`
	Count  int64          `json:"count" example:"12"`
}
