package planner

import (
	"encoding/json"
	"fmt"
	"time"

	"meal-dashboard/internal/recipe"
)

// MealMoment is the meal a planning row fills.
type MealMoment string

const (
	Lunch  MealMoment = "Déjeuner"
	Dinner MealMoment = "Dîner"
)

// Label returns the short label shown in a grid slot.
func (m MealMoment) Label() string {
	switch m {
	case Lunch:
		return "Midi"
	case Dinner:
		return "Soir"
	default:
		return string(m)
	}
}

// RecipeRef references a recipe record. The planning table may hold it as
// plain text or as a linked-record field (an array of record IDs); only the
// first linked ID is kept.
type RecipeRef string

// UnmarshalJSON accepts a string, an array of strings or null.
func (r *RecipeRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = RecipeRef(s)
		return nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("recipe reference must be a string or a list of ids: %w", err)
	}
	if len(ids) > 0 {
		*r = RecipeRef(ids[0])
	} else {
		*r = ""
	}
	return nil
}

// Entry is a planning row: one recipe planned for one meal of one date.
type Entry struct {
	ID     string     `json:"id,omitempty"`
	Date   string     `json:"date"`
	Moment MealMoment `json:"moment"`
	Recipe RecipeRef  `json:"recette,omitempty"`
}

// Slot is a (date, moment) cell of the grid. Recipe is nil for an empty slot.
type Slot struct {
	Moment MealMoment     `json:"moment"`
	Label  string         `json:"label"`
	Recipe *recipe.Recipe `json:"recipe,omitempty"`
}

// Empty reports whether nothing is planned in the slot.
func (s Slot) Empty() bool {
	return s.Recipe == nil
}

// DayView is one column of the weekly grid.
type DayView struct {
	Date     time.Time `json:"date"`
	DayName  string    `json:"day_name"`
	DayMonth string    `json:"day_month"`
	Lunch    Slot      `json:"lunch"`
	Dinner   Slot      `json:"dinner"`
}

// Stats aggregates the resolved meals of a week.
type Stats struct {
	AvgCaloriesPerDay int `json:"avg_calories_per_day"`
	AvgProteinPerDay  int `json:"avg_protein_per_day"`
	PlannedMeals      int `json:"planned_meals"`
}
