package query

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/platelog/internal/filter"
	"github.com/starford/platelog/internal/models"
)

func record(id string, at time.Time, q models.Quality, m models.Mealtime) models.MealRecord {
	r := models.MealRecord{ID: id, CreatedAt: at, Quality: q}
	r.SetMealtimeValue(m)
	return r
}

func sampleRecords() []models.MealRecord {
	return []models.MealRecord{
		record("r1", time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), models.QualityHealthy, models.MealtimeLunch),
		record("r2", time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC), models.QualityUnhealthy, models.MealtimeDinner),
		record("r3", time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC), models.QualityHealthy, models.MealtimeLunch),
	}
}

func ids(records []models.MealRecord) string {
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.ID
	}
	return strings.Join(parts, ",")
}

func TestCompile_DateAndQuality(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := filter.ForDate(day).ApplyingFilters(filter.ForQuality(models.QualityHealthy))

	q := Compile(f, Options{})
	if len(q.Predicates) != 2 {
		t.Fatalf("predicates = %d, want 2 (%s)", len(q.Predicates), q)
	}
	got := q.Apply(sampleRecords())
	if ids(got) != "r1" {
		t.Errorf("result = %q, want r1", ids(got))
	}
}

func TestCompile_SelectedDateInherited(t *testing.T) {
	selected := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	q := Compile(filter.ForMealtime(models.MealtimeLunch), Options{SelectedDate: &selected})

	got := q.Apply(sampleRecords())
	if ids(got) != "r3" {
		t.Errorf("result = %q, want r3", ids(got))
	}
}

func TestCompile_FilterDateWinsOverSelected(t *testing.T) {
	selected := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	f := filter.ForDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	got := Compile(f, Options{SelectedDate: &selected}).Apply(sampleRecords())
	if ids(got) != "r1,r2" {
		t.Errorf("result = %q, want r1,r2", ids(got))
	}
}

func TestCompile_AllIgnoresConstraintsButHonoursText(t *testing.T) {
	records := sampleRecords()
	records[1].SetNotesText("Big Green SALAD")
	selected := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	q := Compile(filter.All(), Options{SelectedDate: &selected})
	if len(q.Predicates) != 0 {
		t.Fatalf("all filter without text should have no predicates, got %s", q)
	}

	q = Compile(filter.All(), Options{SelectedDate: &selected, Text: "  salad "})
	got := q.Apply(records)
	if ids(got) != "r2" {
		t.Errorf("result = %q, want r2", ids(got))
	}
}

func TestCompile_TextMatchesTitleOrNotes(t *testing.T) {
	records := sampleRecords()
	records[0].SetTitleText("Salad bowl")
	records[2].SetNotesText("side salad")

	got := Compile(filter.New("custom", ""), Options{Text: "SALAD"}).Apply(records)
	if ids(got) != "r1,r3" {
		t.Errorf("result = %q, want r1,r3", ids(got))
	}
}

func TestCompile_WhitespaceTextIgnored(t *testing.T) {
	q := Compile(filter.New("custom", ""), Options{Text: "   \t"})
	if len(q.Predicates) != 0 {
		t.Errorf("blank text should not add a predicate: %s", q)
	}
}

func TestCompile_Tag(t *testing.T) {
	records := sampleRecords()
	records[2].Tags = []models.Tag{{ID: "t-rice", Name: "Rice"}}

	f := filter.ForTag(models.Tag{ID: "t-rice", Name: "Rice"})
	got := Compile(f, Options{}).Apply(records)
	if ids(got) != "r3" {
		t.Errorf("result = %q, want r3", ids(got))
	}
}

func TestApply_SortDirection(t *testing.T) {
	all := Compile(filter.All(), Options{NewestFirst: true}).Apply(sampleRecords())
	if ids(all) != "r3,r2,r1" {
		t.Errorf("newest first = %q", ids(all))
	}
	all = Compile(filter.All(), Options{NewestFirst: false}).Apply(sampleRecords())
	if ids(all) != "r1,r2,r3" {
		t.Errorf("oldest first = %q", ids(all))
	}
}

func TestWhere_RendersConjunction(t *testing.T) {
	q := Query{Predicates: []Predicate{QualityIs{Quality: models.QualityHealthy}, MealtimeIs{Mealtime: models.MealtimeLunch}}}
	sql, args := q.Where()
	if sql != "(records.quality = ?) AND (records.mealtime = ?)" {
		t.Errorf("where = %q", sql)
	}
	if len(args) != 2 || args[0] != 2 || args[1] != "Lunch" {
		t.Errorf("args = %v", args)
	}

	empty, emptyArgs := Query{}.Where()
	if empty != "" || emptyArgs != nil {
		t.Errorf("empty query rendered %q %v", empty, emptyArgs)
	}
}

func TestTextContains_EscapesLikeWildcards(t *testing.T) {
	_, args := TextContains{Text: "50%_off"}.SQL()
	if args[0] != `%50\%\_off%` {
		t.Errorf("pattern = %v", args[0])
	}
}
