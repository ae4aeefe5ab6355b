package tagset

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/platelog/internal/models"
)

// Localizer maps a tag name to its display name. A nil Localizer leaves
// names unchanged.
type Localizer func(name string) string

// Group is the tags of one category.
type Group struct {
	Category models.TagCategory `json:"category"`
	Tags     []models.Tag       `json:"tags"`
}

// categoryRank is the position of a built-in category in the display
// order. Custom categories rank after every built-in.
func categoryRank(c models.TagCategory) int {
	if i := slices.Index(models.BuiltinCategories, c); i >= 0 {
		return i
	}
	return len(models.BuiltinCategories)
}

// CompareCategories orders built-ins by their default order, the user's own
// category first, and custom categories last by name.
func CompareCategories(a, b models.TagCategory) int {
	if c := cmp.Compare(categoryRank(a), categoryRank(b)); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(a.String()), strings.ToLower(b.String()))
}

// Sorter orders tags by category, then localized name, then id.
type Sorter struct {
	lang      language.Tag
	localizer Localizer
}

// NewSorter returns a Sorter comparing names with the collation of lang.
func NewSorter(lang language.Tag, localizer Localizer) Sorter {
	if localizer == nil {
		localizer = func(s string) string { return s }
	}
	return Sorter{lang: lang, localizer: localizer}
}

// Sort orders tags in place.
func (s Sorter) Sort(tags []models.Tag) {
	coll := collate.New(s.lang, collate.IgnoreCase)
	slices.SortStableFunc(tags, func(a, b models.Tag) int {
		if c := CompareCategories(a.Category, b.Category); c != 0 {
			return c
		}
		if c := coll.CompareString(s.localizer(a.Name), s.localizer(b.Name)); c != 0 {
			return c
		}
		return models.CompareTagsByName(a, b)
	})
}

// Group sorts a copy of tags and splits it by category.
func (s Sorter) Group(tags []models.Tag) []Group {
	sortedTags := slices.Clone(tags)
	s.Sort(sortedTags)

	var out []Group
	for _, t := range sortedTags {
		if n := len(out); n > 0 && out[n-1].Category == t.Category {
			out[n-1].Tags = append(out[n-1].Tags, t)
			continue
		}
		out = append(out, Group{Category: t.Category, Tags: []models.Tag{t}})
	}
	return out
}
