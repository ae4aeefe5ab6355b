package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/platelog/internal/models"
)

func TestForDatePinsStartOfDay(t *testing.T) {
	d := time.Date(2025, 3, 3, 18, 45, 12, 0, time.UTC)
	f := ForDate(d)

	require.NotNil(t, f.Date)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), *f.Date)
	assert.Equal(t, models.QualityNone, f.Quality)
	assert.Nil(t, f.Mealtime)
	assert.Nil(t, f.TagID)
	assert.Equal(t, KindDate, f.Kind)
}

func TestApplyingFiltersOverridesQuality(t *testing.T) {
	d := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	combined := ForDate(d).ApplyingFilters(ForQuality(models.QualityHealthy))

	require.NotNil(t, combined.Date)
	assert.Equal(t, StartOfDay(d), *combined.Date)
	assert.Equal(t, models.QualityHealthy, combined.Quality)
}

func TestApplyingFiltersKeepsUnspecifiedFields(t *testing.T) {
	base := ForMealtime(models.MealtimeLunch)
	base.Quality = models.QualityModerate
	tag := models.Tag{ID: "tag-1", Name: "Rice"}

	combined := base.ApplyingFilters(ForTag(tag))

	require.NotNil(t, combined.TagID)
	assert.Equal(t, "tag-1", *combined.TagID)
	assert.Equal(t, models.QualityModerate, combined.Quality, "quality absent on existing must be kept")
	require.NotNil(t, combined.Mealtime)
	assert.Equal(t, models.MealtimeLunch, *combined.Mealtime)
}

func TestApplyingFiltersMealtimeOverride(t *testing.T) {
	base := ForMealtime(models.MealtimeLunch)
	combined := base.ApplyingFilters(ForMealtime(models.MealtimeDinner))

	require.NotNil(t, combined.Mealtime)
	assert.Equal(t, models.MealtimeDinner, *combined.Mealtime)
	// The original filter is untouched.
	assert.Equal(t, models.MealtimeLunch, *base.Mealtime)
}

func TestApplyingFiltersNeverRemovesConstraints(t *testing.T) {
	base := ForQuality(models.QualityUnhealthy)
	combined := base.ApplyingFilters(All())
	assert.Equal(t, models.QualityUnhealthy, combined.Quality)
}

func TestEqualityIsByIdentity(t *testing.T) {
	a := ForQuality(models.QualityHealthy)
	b := ForQuality(models.QualityHealthy)

	assert.False(t, a.Equal(b), "distinct ids must compare unequal")
	assert.True(t, a.SameConstraints(b))
	assert.True(t, a.Equal(a))
}

func TestPresets(t *testing.T) {
	p := DefaultPresets()

	assert.True(t, p.All.IsAll())
	assert.Len(t, p.Qualities, 3)
	assert.Len(t, p.Mealtimes, 7)
	assert.Len(t, p.List(), 11)

	// Built once: identities are stable across calls.
	assert.True(t, DefaultPresets().All.Equal(p.All))
	assert.True(t, DefaultPresets().Mealtimes[2].Equal(p.Mealtimes[2]))
}

func TestPresetsMatch(t *testing.T) {
	p := DefaultPresets()

	custom := New("Healthy picks", "star")
	custom.Quality = models.QualityHealthy
	got, ok := p.Match(custom)
	require.True(t, ok)
	assert.True(t, got.Equal(p.Qualities[models.QualityHealthy]))

	lunch := models.MealtimeLunch
	custom.Mealtime = &lunch
	_, ok = p.Match(custom)
	assert.False(t, ok, "quality plus mealtime has no preset")

	_, ok = p.Match(New("empty", ""))
	assert.False(t, ok, "an unconstrained custom filter is not All")
}
