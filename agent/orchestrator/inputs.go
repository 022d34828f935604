package orchestrator

import (
	"time"

	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
)

const (
	dateLayout = "2006-01-02"

	// Departure defaults to this many days from now when unset.
	defaultDepartureOffsetDays = 14
	// Return/check-out default to this many nights after departure.
	defaultTripNights = 7

	defaultBudget = "any"
)

// DestinationPool is the fixed candidate set used when origin or destination
// is left empty. The pick itself is pseudo-random per run.
var DestinationPool = []string{
	"Tokyo",
	"Paris",
	"Barcelona",
	"Lisbon",
	"Bangkok",
	"New York",
	"Sydney",
	"Vancouver",
}

// ResolveInputs fills every unset optional field per the default-generation
// rules and returns the immutable inputs the run executes against. pick maps
// n to an index in [0, n).
func ResolveInputs(in contractx.RunInputs, now time.Time, pick func(n int) int) contractx.RunInputs {
	out := in

	if out.Destination == "" {
		out.Destination = DestinationPool[pick(len(DestinationPool))]
	}
	if out.Origin == "" {
		idx := pick(len(DestinationPool))
		if DestinationPool[idx] == out.Destination {
			idx = (idx + 1) % len(DestinationPool)
		}
		out.Origin = DestinationPool[idx]
	}

	if out.DepartureDate == "" {
		out.DepartureDate = now.AddDate(0, 0, defaultDepartureOffsetDays).Format(dateLayout)
	}
	if out.ReturnDate == "" {
		departure, err := time.Parse(dateLayout, out.DepartureDate)
		if err != nil {
			departure = now.AddDate(0, 0, defaultDepartureOffsetDays)
		}
		out.ReturnDate = departure.AddDate(0, 0, defaultTripNights).Format(dateLayout)
	}
	if out.CheckInDate == "" {
		out.CheckInDate = out.DepartureDate
	}
	if out.CheckOutDate == "" {
		out.CheckOutDate = out.ReturnDate
	}

	if out.NeedsFlights == nil {
		out.NeedsFlights = boolPtr(true)
	}
	if out.NeedsHotels == nil {
		out.NeedsHotels = boolPtr(true)
	}
	if out.NeedsItinerary == nil {
		out.NeedsItinerary = boolPtr(true)
	}

	if out.Budget == "" {
		out.Budget = defaultBudget
	}

	return out
}

func boolPtr(v bool) *bool {
	return &v
}
