package models

import (
	"strings"
	"time"
)

// Tag is a label attachable to many records, grouped by category.
// Names are not unique.
type Tag struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Category  TagCategory `json:"category"`
	CreatedAt time.Time   `json:"created_at"`
}

// CompareTagsByName orders tags by exact name, then id. Tag sorters use it
// to break ties their collation leaves.
func CompareTagsByName(a, b Tag) int {
	if c := compareStrings(a.Name, b.Name); c != 0 {
		return c
	}
	return compareStrings(a.ID, b.ID)
}

type categoryKind uint8

const (
	kindCustom categoryKind = iota
	kindMine
	kindIngredients
	kindDiet
	kindPlace
	kindCompany
	kindMood
)

// TagCategory is either one of the built-in categories or Custom(name).
// The zero value is Custom("").
type TagCategory struct {
	kind categoryKind
	name string
}

// Built-in categories. CategoryMine holds the user's own free-form tags.
var (
	CategoryMine        = TagCategory{kind: kindMine}
	CategoryIngredients = TagCategory{kind: kindIngredients}
	CategoryDiet        = TagCategory{kind: kindDiet}
	CategoryPlace       = TagCategory{kind: kindPlace}
	CategoryCompany     = TagCategory{kind: kindCompany}
	CategoryMood        = TagCategory{kind: kindMood}
)

// BuiltinCategories lists the built-in categories in their default order.
var BuiltinCategories = []TagCategory{
	CategoryMine,
	CategoryIngredients,
	CategoryDiet,
	CategoryPlace,
	CategoryCompany,
	CategoryMood,
}

var builtinNames = map[categoryKind]string{
	kindMine:        "mine",
	kindIngredients: "ingredients",
	kindDiet:        "diet",
	kindPlace:       "place",
	kindCompany:     "company",
	kindMood:        "mood",
}

// CustomCategory returns a user-defined category.
func CustomCategory(name string) TagCategory {
	return TagCategory{kind: kindCustom, name: strings.TrimSpace(name)}
}

// ParseTagCategory maps built-in names (case-insensitive) to their category
// and anything else to Custom(s).
func ParseTagCategory(s string) TagCategory {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	for kind, name := range builtinNames {
		if name == lower {
			return TagCategory{kind: kind}
		}
	}
	return CustomCategory(trimmed)
}

// IsCustom reports whether c is a user-defined category.
func (c TagCategory) IsCustom() bool { return c.kind == kindCustom }

// String returns the stable storage name of the category.
func (c TagCategory) String() string {
	if c.kind == kindCustom {
		return c.name
	}
	return builtinNames[c.kind]
}

// MarshalText implements encoding.TextMarshaler.
func (c TagCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *TagCategory) UnmarshalText(b []byte) error {
	*c = ParseTagCategory(string(b))
	return nil
}
