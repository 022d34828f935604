// Package planner assembles the travel-planning task graph: which tasks a run
// needs, what each task calls, and how the final itinerary is composed from
// the upstream results.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
	graphx "github.com/KohJunJie/tour-agent-planner/agent/graph"
	toolx "github.com/KohJunJie/tour-agent-planner/agent/tool"
)

const (
	TaskFlightSearch = "flight_search"
	TaskHotelSearch  = "hotel_search"
	TaskItinerary    = "itinerary"
)

const (
	dateLayout        = "2006-01-02"
	fallbackDayCount  = 3
	maxItineraryDays  = 14
	recallQueryFormat = "previous trips to %s"
)

// BuildGraph returns the task graph for one run. Search tasks are included
// per the input flags and run concurrently; the itinerary task depends on
// whichever searches are present so it can reference their results.
func BuildGraph(in contractx.RunInputs) []graphx.TaskSpec {
	var specs []graphx.TaskSpec
	var searches []string

	if in.WantsFlights() {
		specs = append(specs, graphx.TaskSpec{
			Name: TaskFlightSearch,
			Run:  runFlightSearch,
		})
		searches = append(searches, TaskFlightSearch)
	}
	if in.WantsHotels() {
		specs = append(specs, graphx.TaskSpec{
			Name: TaskHotelSearch,
			Run:  runHotelSearch,
		})
		searches = append(searches, TaskHotelSearch)
	}
	if in.WantsItinerary() {
		specs = append(specs, graphx.TaskSpec{
			Name:      TaskItinerary,
			DependsOn: searches,
			Run:       runItinerary,
		})
	}
	return specs
}

func runFlightSearch(ctx context.Context, tc *contractx.TaskContext) (string, error) {
	args := map[string]any{
		"origin":         tc.Inputs.Origin,
		"destination":    tc.Inputs.Destination,
		"departure_date": tc.Inputs.DepartureDate,
	}
	if tc.Inputs.ReturnDate != "" {
		args["return_date"] = tc.Inputs.ReturnDate
	}
	result, err := tc.Tools.Invoke(ctx, contractx.ToolRequest{Tool: toolx.ToolFlightSearch, Args: args})
	if err != nil {
		return "", fmt.Errorf("flight search: %w", err)
	}
	summary := fmt.Sprintf("Flight options for %s to %s, departing %s:",
		tc.Inputs.Origin, tc.Inputs.Destination, tc.Inputs.DepartureDate)
	return summary + "\n\n" + result.Output, nil
}

func runHotelSearch(ctx context.Context, tc *contractx.TaskContext) (string, error) {
	args := map[string]any{
		"destination":    tc.Inputs.Destination,
		"check_in_date":  tc.Inputs.CheckInDate,
		"check_out_date": tc.Inputs.CheckOutDate,
	}
	if tc.Inputs.Budget != "" {
		args["budget"] = tc.Inputs.Budget
	}
	result, err := tc.Tools.Invoke(ctx, contractx.ToolRequest{Tool: toolx.ToolHotelSearch, Args: args})
	if err != nil {
		return "", fmt.Errorf("hotel search: %w", err)
	}
	summary := fmt.Sprintf("Hotel options in %s, %s to %s:",
		tc.Inputs.Destination, tc.Inputs.CheckInDate, tc.Inputs.CheckOutDate)
	return summary + "\n\n" + result.Output, nil
}

// runItinerary composes the day-by-day plan. It recalls prior trips to the
// same destination from memory and folds in whichever search results are
// available in the task context.
func runItinerary(ctx context.Context, tc *contractx.TaskContext) (string, error) {
	in := tc.Inputs

	var b strings.Builder
	fmt.Fprintf(&b, "ITINERARY: %s\n", in.Destination)
	fmt.Fprintf(&b, "Travel dates: %s to %s\n", in.DepartureDate, in.ReturnDate)
	if in.Interests != "" {
		fmt.Fprintf(&b, "Focus: %s\n", in.Interests)
	}
	b.WriteString("\n")

	recall := recallPriorTrips(ctx, tc)
	if recall != "" {
		b.WriteString("From previous trips:\n")
		b.WriteString(recall)
		b.WriteString("\n")
	}

	days := dayCount(in.DepartureDate, in.ReturnDate)
	themes := dayThemes(in)
	for day := 1; day <= days; day++ {
		fmt.Fprintf(&b, "Day %d: %s\n", day, themes[(day-1)%len(themes)])
	}
	b.WriteString("\n")

	if _, ok := tc.Outputs[TaskFlightSearch]; ok {
		b.WriteString("Flights: see flight search results below.\n")
	}
	if _, ok := tc.Outputs[TaskHotelSearch]; ok {
		b.WriteString("Hotels: see hotel search results below.\n")
	}
	for _, name := range []string{TaskFlightSearch, TaskHotelSearch} {
		if output, ok := tc.Outputs[name]; ok {
			b.WriteString("\n")
			b.WriteString(output)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func recallPriorTrips(ctx context.Context, tc *contractx.TaskContext) string {
	query := fmt.Sprintf(recallQueryFormat, tc.Inputs.Destination)
	if tc.Inputs.Interests != "" {
		query += " with focus on " + tc.Inputs.Interests
	}
	topK := tc.MemoryTopK
	if topK <= 0 {
		topK = 2
	}
	results, err := tc.Memory.Query(ctx, []string{query}, topK)
	if err != nil || len(results) == 0 {
		return ""
	}

	var b strings.Builder
	for _, match := range results[0].Matches {
		line := firstLine(match.Record.Document)
		if line == "" {
			continue
		}
		fmt.Fprintf(&b, "  - %s\n", line)
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func dayCount(departure, ret string) int {
	from, err := time.Parse(dateLayout, departure)
	if err != nil {
		return fallbackDayCount
	}
	to, err := time.Parse(dateLayout, ret)
	if err != nil {
		return fallbackDayCount
	}
	days := int(to.Sub(from).Hours() / 24)
	if days <= 0 {
		return fallbackDayCount
	}
	if days > maxItineraryDays {
		return maxItineraryDays
	}
	return days
}

func dayThemes(in contractx.RunInputs) []string {
	dest := in.Destination
	themes := []string{
		fmt.Sprintf("Arrive in %s, check in and explore the neighborhood.", dest),
		fmt.Sprintf("Guided walking tour of %s's historic center.", dest),
		"Visit the top-rated museums and galleries.",
		"Day trip to nearby sights, local food for dinner.",
		fmt.Sprintf("Free morning, then markets and shopping in %s.", dest),
		"Relaxed day: parks, cafes and a sunset viewpoint.",
	}
	if in.Interests != "" {
		themes = append([]string{
			fmt.Sprintf("Arrive in %s, check in and explore the neighborhood.", dest),
			fmt.Sprintf("Dedicated %s day around %s.", in.Interests, dest),
		}, themes[2:]...)
	}
	return themes
}
