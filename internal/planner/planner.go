package planner

import (
	"fmt"

	"meal-dashboard/internal/recipe"
	"meal-dashboard/internal/week"
)

// DayNames are the grid headers, Monday first.
var DayNames = [7]string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi", "Dimanche"}

// BuildWeekGrid resolves the planning entries of the selected week into seven
// day views. When several entries share a (date, moment), the first one in
// entries wins, even if its recipe does not resolve.
func BuildWeekGrid(sel week.Selector, recipes recipe.Set, entries []Entry) []DayView {
	dates := sel.Dates()
	days := make([]DayView, 0, len(dates))

	for i, d := range dates {
		key := week.DateKey(d)
		days = append(days, DayView{
			Date:     d,
			DayName:  DayNames[i],
			DayMonth: fmt.Sprintf("%d/%d", d.Day(), int(d.Month())),
			Lunch:    resolveSlot(key, Lunch, recipes, entries),
			Dinner:   resolveSlot(key, Dinner, recipes, entries),
		})
	}
	return days
}

func resolveSlot(dateKey string, moment MealMoment, recipes recipe.Set, entries []Entry) Slot {
	slot := Slot{Moment: moment, Label: moment.Label()}

	for _, e := range entries {
		if e.Date != dateKey || e.Moment != moment {
			continue
		}
		if rec, ok := recipes.Find(string(e.Recipe)); ok {
			slot.Recipe = &rec
		}
		return slot
	}
	return slot
}

// ComputeWeeklyStats sums calories and protein over every entry of the week
// whose recipe resolves, whatever its moment, and averages over seven days.
func ComputeWeeklyStats(sel week.Selector, recipes recipe.Set, entries []Entry) Stats {
	inWeek := make(map[string]bool, 7)
	for _, d := range sel.Dates() {
		inWeek[week.DateKey(d)] = true
	}

	var calories, protein float64
	var count int
	for _, e := range entries {
		if !inWeek[e.Date] {
			continue
		}
		rec, ok := recipes.Find(string(e.Recipe))
		if !ok {
			continue
		}
		calories += rec.Calories
		protein += rec.Protein
		count++
	}

	if count == 0 {
		return Stats{}
	}
	return Stats{
		AvgCaloriesPerDay: recipe.Round(calories / 7),
		AvgProteinPerDay:  recipe.Round(protein / 7),
		PlannedMeals:      count,
	}
}

// DemoPlanning is the placeholder planning used when no planning table is
// configured: if sel has the same week number as today, Monday lunch and
// Tuesday dinner reference the first known recipe.
func DemoPlanning(sel, today week.Selector, recipes recipe.Set) []Entry {
	if sel.Week != today.Week {
		return nil
	}

	var ref RecipeRef
	if first, ok := recipes.First(); ok {
		ref = RecipeRef(first.ID)
	}

	dates := sel.Dates()
	return []Entry{
		{Date: week.DateKey(dates[0]), Moment: Lunch, Recipe: ref},
		{Date: week.DateKey(dates[1]), Moment: Dinner, Recipe: ref},
	}
}
