package recipe

import "math"

// Recipe is a recipe record as stored in the recipes table. Nutrition values
// are optional in the table and read as zero when absent.
type Recipe struct {
	ID       string  `json:"id"`
	Name     string  `json:"nom,omitempty"`
	Calories float64 `json:"calories_totales,omitempty"`
	Protein  float64 `json:"proteines_g,omitempty"`
}

// DisplayName returns the recipe name, or a placeholder for unnamed rows.
func (r Recipe) DisplayName() string {
	if r.Name == "" {
		return "Sans nom"
	}
	return r.Name
}

// RoundedCalories returns the calories rounded half up, as displayed.
func (r Recipe) RoundedCalories() int {
	return Round(r.Calories)
}

// RoundedProtein returns the protein grams rounded half up, as displayed.
func (r Recipe) RoundedProtein() int {
	return Round(r.Protein)
}

// Round rounds half up, so 0.5 becomes 1 and -0.5 becomes 0.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Set is an immutable, ordered collection of recipes indexed by ID.
type Set struct {
	recipes []Recipe
	byID    map[string]int
}

// NewSet indexes recipes. When IDs repeat, the first occurrence wins.
func NewSet(recipes []Recipe) Set {
	s := Set{
		recipes: append([]Recipe(nil), recipes...),
		byID:    make(map[string]int, len(recipes)),
	}
	for i, r := range s.recipes {
		if _, ok := s.byID[r.ID]; !ok {
			s.byID[r.ID] = i
		}
	}
	return s
}

// Find returns the recipe with the given ID.
func (s Set) Find(id string) (Recipe, bool) {
	if id == "" {
		return Recipe{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return Recipe{}, false
	}
	return s.recipes[i], true
}

// First returns the first recipe in source order.
func (s Set) First() (Recipe, bool) {
	if len(s.recipes) == 0 {
		return Recipe{}, false
	}
	return s.recipes[0], true
}

// All returns a copy of the recipes in source order.
func (s Set) All() []Recipe {
	return append([]Recipe(nil), s.recipes...)
}

// Len returns the number of recipes.
func (s Set) Len() int {
	return len(s.recipes)
}
