package mcpserver

// RecordGuide describes meal records, their fields and the vocabulary the
// tools accept, for LLM consumers that create or search records.
const RecordGuide = `# platelog Record Guide

A meal record is one logged plate of food.

## Fields

| Field      | Type    | Notes                                                    |
|------------|---------|----------------------------------------------------------|
| id         | string  | Assigned on creation                                     |
| created_at | RFC3339 | Set on creation, never changes                           |
| title      | string  | Optional short name of the meal                          |
| notes      | string  | Optional; new records start with the date in long form   |
| quality    | integer | 0 = Unhealthy, 1 = Moderate (default), 2 = Healthy       |
| mealtime   | string  | One of the mealtimes below; default "Anytime Meal"      |
| tags       | list    | Tags attached to the record                              |

## Mealtimes

Breakfast, Morning Snack, Lunch, Day Snack, Dinner, Evening Snack, Anytime Meal.

## Tag categories

Built-in: mine, ingredients, diet, place, company, mood. Any other name is a
custom category. Tag names need not be unique; refer to tags by id.

## Rules

1. **Creating a record may be refused.** Without an active subscription only a
   limited number of records can ever be created. A refused create returns an
   error that says so; do not retry.
2. **Dates are calendar days** in the form YYYY-MM-DD, in the server's time zone.
3. **Search text** matches title and notes, case-insensitively.
4. **Awards** are milestones for the number of records ever created. Call
   check_awards after creating records; each award is reported once.
5. **Photos** must be JPEG, PNG, GIF or WebP. Pass a data: URI or an http(s) URL.
`
