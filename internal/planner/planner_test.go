package planner

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-dashboard/internal/recipe"
	"meal-dashboard/internal/week"
)

// Week 10 of 2024 runs from Monday 4 March to Sunday 10 March.
var sel = week.Selector{Week: 10, Year: 2024}

func TestBuildWeekGrid(t *testing.T) {
	recipes := recipe.NewSet([]recipe.Recipe{
		{ID: "r1", Name: "Poulet curry", Calories: 500, Protein: 30},
		{ID: "r2", Name: "Soupe", Calories: 200, Protein: 8},
	})

	t.Run("ResolvesSlots", func(t *testing.T) {
		entries := []Entry{
			{Date: "2024-03-04", Moment: Lunch, Recipe: "r1"},
			{Date: "2024-03-05", Moment: Dinner, Recipe: "r2"},
			{Date: "2024-03-11", Moment: Lunch, Recipe: "r1"}, // next week
		}

		days := BuildWeekGrid(sel, recipes, entries)
		require.Len(t, days, 7)

		assert.Equal(t, "Lundi", days[0].DayName)
		assert.Equal(t, "4/3", days[0].DayMonth)
		assert.Equal(t, "Dimanche", days[6].DayName)
		assert.Equal(t, "10/3", days[6].DayMonth)

		require.False(t, days[0].Lunch.Empty())
		assert.Equal(t, "Poulet curry", days[0].Lunch.Recipe.Name)
		assert.Equal(t, "Midi", days[0].Lunch.Label)
		assert.True(t, days[0].Dinner.Empty())
		assert.Equal(t, "Soir", days[0].Dinner.Label)

		require.False(t, days[1].Dinner.Empty())
		assert.Equal(t, "Soupe", days[1].Dinner.Recipe.Name)

		for _, d := range days[2:] {
			assert.True(t, d.Lunch.Empty())
			assert.True(t, d.Dinner.Empty())
		}
	})

	t.Run("FirstDuplicateWins", func(t *testing.T) {
		entries := []Entry{
			{Date: "2024-03-04", Moment: Lunch, Recipe: "r2"},
			{Date: "2024-03-04", Moment: Lunch, Recipe: "r1"},
		}
		days := BuildWeekGrid(sel, recipes, entries)
		assert.Equal(t, "r2", days[0].Lunch.Recipe.ID)
	})

	t.Run("FirstDuplicateWinsEvenWhenUnresolved", func(t *testing.T) {
		entries := []Entry{
			{Date: "2024-03-04", Moment: Lunch, Recipe: "missing"},
			{Date: "2024-03-04", Moment: Lunch, Recipe: "r1"},
		}
		days := BuildWeekGrid(sel, recipes, entries)
		assert.True(t, days[0].Lunch.Empty())
	})

	t.Run("UnknownRecipeIsEmpty", func(t *testing.T) {
		entries := []Entry{{Date: "2024-03-06", Moment: Dinner, Recipe: "gone"}}
		days := BuildWeekGrid(sel, recipes, entries)
		assert.True(t, days[2].Dinner.Empty())
	})

	t.Run("Idempotent", func(t *testing.T) {
		entries := []Entry{{Date: "2024-03-04", Moment: Lunch, Recipe: "r1"}}
		first := BuildWeekGrid(sel, recipes, entries)
		second := BuildWeekGrid(sel, recipes, entries)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("grid changed between calls (-first +second):\n%s", diff)
		}
	})
}

func TestComputeWeeklyStats(t *testing.T) {
	recipes := recipe.NewSet([]recipe.Recipe{
		{ID: "r1", Calories: 500, Protein: 30},
	})

	t.Run("SingleMeal", func(t *testing.T) {
		entries := []Entry{{Date: "2024-03-04", Moment: Lunch, Recipe: "r1"}}
		got := ComputeWeeklyStats(sel, recipes, entries)
		assert.Equal(t, Stats{AvgCaloriesPerDay: 71, AvgProteinPerDay: 4, PlannedMeals: 1}, got)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, Stats{}, ComputeWeeklyStats(sel, recipes, nil))
		for _, d := range BuildWeekGrid(sel, recipes, nil) {
			assert.True(t, d.Lunch.Empty())
			assert.True(t, d.Dinner.Empty())
		}
	})

	t.Run("CountsEveryResolvedEntryInWeek", func(t *testing.T) {
		entries := []Entry{
			{Date: "2024-03-04", Moment: Lunch, Recipe: "r1"},
			{Date: "2024-03-04", Moment: Lunch, Recipe: "r1"},
			{Date: "2024-03-10", Moment: "Petit-déjeuner", Recipe: "r1"},
			{Date: "2024-03-10", Moment: Dinner, Recipe: "unknown"},
			{Date: "2024-03-10", Moment: Dinner},
			{Date: "2024-03-11", Moment: Lunch, Recipe: "r1"},
		}
		got := ComputeWeeklyStats(sel, recipes, entries)
		assert.Equal(t, Stats{AvgCaloriesPerDay: 214, AvgProteinPerDay: 13, PlannedMeals: 3}, got)
	})
}

func TestDemoPlanning(t *testing.T) {
	recipes := recipe.NewSet([]recipe.Recipe{{ID: "r1"}, {ID: "r2"}})

	t.Run("CurrentWeek", func(t *testing.T) {
		entries := DemoPlanning(sel, sel, recipes)
		assert.Equal(t, []Entry{
			{Date: "2024-03-04", Moment: Lunch, Recipe: "r1"},
			{Date: "2024-03-05", Moment: Dinner, Recipe: "r1"},
		}, entries)
	})

	t.Run("OtherWeek", func(t *testing.T) {
		assert.Empty(t, DemoPlanning(week.Advance(sel, 1), sel, recipes))
	})

	t.Run("NoRecipes", func(t *testing.T) {
		entries := DemoPlanning(sel, sel, recipe.NewSet(nil))
		require.Len(t, entries, 2)
		assert.Empty(t, entries[0].Recipe)
	})
}

func TestEntryJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want RecipeRef
	}{
		{"Text", `{"date":"2024-03-04","moment":"Déjeuner","recette":"r1"}`, "r1"},
		{"LinkedRecord", `{"date":"2024-03-04","moment":"Déjeuner","recette":["r2","r3"]}`, "r2"},
		{"EmptyLink", `{"date":"2024-03-04","moment":"Déjeuner","recette":[]}`, ""},
		{"Null", `{"date":"2024-03-04","moment":"Déjeuner","recette":null}`, ""},
		{"Missing", `{"date":"2024-03-04","moment":"Déjeuner"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Entry
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &e))
			assert.Equal(t, tt.want, e.Recipe)
			assert.Equal(t, Lunch, e.Moment)
		})
	}

	var e Entry
	assert.Error(t, json.Unmarshal([]byte(`{"recette":42}`), &e))
}
