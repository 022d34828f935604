package tool

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

const (
	ToolFlightSearch = "flight.search"

	flightOptionCount = 5
)

var flightAirlines = []string{
	"United Airlines",
	"Delta Air Lines",
	"American Airlines",
	"Southwest Airlines",
	"JetBlue Airways",
	"Alaska Airlines",
}

var flightAircraft = []string{"Boeing 737", "Airbus A320", "Boeing 787", "Airbus A350"}

var flightAmenities = []string{
	"WiFi",
	"In-flight entertainment",
	"Power outlets",
	"Complimentary snacks",
	"Extra legroom",
}

var flightClasses = []string{"Economy", "Economy", "Premium Economy", "Business"}

func FlightSearchDescriptor() Descriptor {
	return Descriptor{
		Name: ToolFlightSearch,
		Desc: "Searches for available flights between origin and destination and returns priced options.",
		Params: []Param{
			{Name: "origin", Type: ParamString, Desc: "Origin airport code or city name", Required: true},
			{Name: "destination", Type: ParamString, Desc: "Destination airport code or city name", Required: true},
			{Name: "departure_date", Type: ParamString, Desc: "Departure date in YYYY-MM-DD format", Required: true},
			{Name: "return_date", Type: ParamString, Desc: "Return date in YYYY-MM-DD format (optional for one-way)"},
		},
		Fn: runFlightSearch,
	}
}

type flightOption struct {
	airline   string
	flightNo  string
	aircraft  string
	departure string
	arrival   string
	duration  string
	stops     string
	class     string
	price     int
	amenities []string
}

// runFlightSearch generates mock flight listings. The data is random per
// invocation, but the shape is contractual: exactly 5 options sorted by
// ascending price, with a price range equal to the true min/max.
func runFlightSearch(ctx context.Context, args map[string]any) (string, error) {
	origin := stringArg(args, "origin")
	destination := stringArg(args, "destination")
	departureDate := stringArg(args, "departure_date")
	returnDate := stringArg(args, "return_date")

	basePrice := 200 + rand.IntN(601)
	options := make([]flightOption, 0, flightOptionCount)

	for i := 0; i < flightOptionCount; i++ {
		airline := flightAirlines[rand.IntN(len(flightAirlines))]

		depHour := 6 + rand.IntN(15)
		depMinute := []int{0, 15, 30, 45}[rand.IntN(4)]
		durationHours := 3 + rand.IntN(10)
		durationMinutes := []int{0, 15, 30, 45}[rand.IntN(4)]
		arrHour := (depHour + durationHours + (depMinute+durationMinutes)/60) % 24
		arrMinute := (depMinute + durationMinutes) % 60

		numStops := weightedStops()
		stops := "Nonstop"
		if numStops > 0 {
			stops = fmt.Sprintf("%d stop(s)", numStops)
		}

		options = append(options, flightOption{
			airline:   airline,
			flightNo:  fmt.Sprintf("%s%d", strings.ToUpper(airline[:2]), 100+rand.IntN(9900)),
			aircraft:  flightAircraft[rand.IntN(len(flightAircraft))],
			departure: fmt.Sprintf("%s %02d:%02d from %s", departureDate, depHour, depMinute, origin),
			arrival:   fmt.Sprintf("%s %02d:%02d to %s", departureDate, arrHour, arrMinute, destination),
			duration:  fmt.Sprintf("%dh %dm", durationHours, durationMinutes),
			stops:     stops,
			class:     flightClasses[rand.IntN(len(flightClasses))],
			price:     basePrice + rand.IntN(401) - 100 + numStops*50,
			amenities: sampleStrings(flightAmenities, 2+rand.IntN(3)),
		})
	}

	sort.Slice(options, func(i, j int) bool { return options[i].price < options[j].price })

	var b strings.Builder
	b.WriteString("FLIGHT SEARCH RESULTS\n")
	fmt.Fprintf(&b, "Route: %s -> %s\n", origin, destination)
	fmt.Fprintf(&b, "Departure Date: %s\n", departureDate)
	if returnDate != "" {
		fmt.Fprintf(&b, "Return Date: %s\n", returnDate)
	}
	b.WriteString("\n")

	for i, opt := range options {
		fmt.Fprintf(&b, "Option %d - $%d USD\n", i+1, opt.price)
		fmt.Fprintf(&b, "  Flight: %s %s\n", opt.airline, opt.flightNo)
		fmt.Fprintf(&b, "  Aircraft: %s\n", opt.aircraft)
		fmt.Fprintf(&b, "  Departure: %s\n", opt.departure)
		fmt.Fprintf(&b, "  Arrival: %s\n", opt.arrival)
		fmt.Fprintf(&b, "  Duration: %s\n", opt.duration)
		fmt.Fprintf(&b, "  Stops: %s\n", opt.stops)
		fmt.Fprintf(&b, "  Class: %s\n", opt.class)
		fmt.Fprintf(&b, "  Amenities: %s\n\n", strings.Join(opt.amenities, ", "))
	}

	if returnDate != "" {
		fmt.Fprintf(&b, "RETURN FLIGHTS\n")
		fmt.Fprintf(&b, "Route: %s -> %s\n", destination, origin)
		fmt.Fprintf(&b, "Date: %s\n", returnDate)
		b.WriteString("(Similar options available for the return journey)\n\n")
	}

	fmt.Fprintf(&b, "Total options found: %d\n", len(options))
	fmt.Fprintf(&b, "Price range: $%d - $%d USD\n", options[0].price, options[len(options)-1].price)

	return b.String(), nil
}

// weightedStops picks 0/1/2 stops with weights 0.4/0.5/0.1.
func weightedStops() int {
	switch v := rand.Float64(); {
	case v < 0.4:
		return 0
	case v < 0.9:
		return 1
	default:
		return 2
	}
}

// sampleStrings picks n distinct entries from pool, preserving none of the
// original order.
func sampleStrings(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	perm := rand.Perm(len(pool))
	out := make([]string, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, pool[idx])
	}
	return out
}
