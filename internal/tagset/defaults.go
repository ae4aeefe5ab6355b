package tagset

import "github.com/starford/platelog/internal/models"

var defaults = map[models.TagCategory][]string{
	models.CategoryIngredients: {
		"Vegetables", "Fruit", "Grains", "Meat", "Fish", "Dairy", "Eggs", "Legumes", "Nuts", "Sweets",
	},
	models.CategoryDiet: {
		"Vegetarian", "Vegan", "Gluten Free", "Low Carb", "High Protein", "Keto",
	},
	models.CategoryPlace: {
		"Home", "Work", "Restaurant", "Cafe", "Takeaway", "On the Go",
	},
	models.CategoryCompany: {
		"Alone", "Family", "Friends", "Colleagues", "Partner",
	},
	models.CategoryMood: {
		"Happy", "Relaxed", "Stressed", "Tired", "Hungry", "Bored",
	},
}

// Defaults returns the default tag names for a built-in category. The
// user's own category and custom categories have none.
func Defaults(c models.TagCategory) []string {
	names := defaults[c]
	out := make([]string, len(names))
	copy(out, names)
	return out
}
