package tool

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
)

const (
	ToolHotelSearch = "hotel.search"

	hotelOptionCount   = 6
	fallbackNightCount = 3

	dateLayout = "2006-01-02"
)

var hotelNames = []string{
	"Grand Plaza Hotel",
	"Seaside Resort & Spa",
	"Downtown Marriott",
	"Hilton Garden Inn",
	"Comfort Inn & Suites",
	"The Luxury Collection",
	"Holiday Inn Express",
	"Best Western Plus",
	"Hyatt Regency",
	"Courtyard by Marriott",
	"Four Seasons Hotel",
	"Radisson Blu",
}

var hotelLocations = []string{
	"Downtown",
	"Near Airport",
	"City Center",
	"Waterfront",
	"Historic District",
	"Business District",
	"Near Convention Center",
}

var hotelAmenities = []string{
	"Free WiFi",
	"Breakfast included",
	"Fitness center",
	"Swimming pool",
	"Parking available",
	"Restaurant on-site",
	"Bar/Lounge",
	"Room service",
	"Business center",
	"Spa services",
	"Airport shuttle",
	"Pet friendly",
}

func HotelSearchDescriptor() Descriptor {
	return Descriptor{
		Name: ToolHotelSearch,
		Desc: "Searches for available hotels in the destination area and returns priced options.",
		Params: []Param{
			{Name: "destination", Type: ParamString, Desc: "Destination city or area name", Required: true},
			{Name: "check_in_date", Type: ParamString, Desc: "Check-in date in YYYY-MM-DD format", Required: true},
			{Name: "check_out_date", Type: ParamString, Desc: "Check-out date in YYYY-MM-DD format", Required: true},
			{Name: "budget", Type: ParamString, Desc: "Budget tier: budget, mid-range, luxury, or any", Default: "any"},
		},
		Fn: runHotelSearch,
	}
}

type hotelOption struct {
	name          string
	category      string
	starRating    int
	guestRating   float64
	reviews       int
	location      string
	distance      float64
	pricePerNight int
	totalPrice    int
	amenities     []string
}

// runHotelSearch generates mock hotel listings: exactly 6 options sorted by
// ascending per-night price, with total price derived from the night count.
// A malformed date pair falls back to 3 nights instead of failing.
func runHotelSearch(ctx context.Context, args map[string]any) (string, error) {
	destination := stringArg(args, "destination")
	checkIn := stringArg(args, "check_in_date")
	checkOut := stringArg(args, "check_out_date")

	nights := nightCount(checkIn, checkOut)

	options := make([]hotelOption, 0, hotelOptionCount)
	for i := 0; i < hotelOptionCount; i++ {
		stars := 3 + rand.IntN(3)

		var pricePerNight int
		var category string
		switch stars {
		case 5:
			pricePerNight = 250 + rand.IntN(251)
			category = "Luxury"
		case 4:
			pricePerNight = 120 + rand.IntN(131)
			category = "Mid-range"
		default:
			pricePerNight = 60 + rand.IntN(61)
			category = "Budget"
		}

		options = append(options, hotelOption{
			name:          hotelNames[rand.IntN(len(hotelNames))],
			category:      category,
			starRating:    stars,
			guestRating:   3.5 + rand.Float64()*1.4,
			reviews:       150 + rand.IntN(2351),
			location:      hotelLocations[rand.IntN(len(hotelLocations))],
			distance:      0.3 + rand.Float64()*4.7,
			pricePerNight: pricePerNight,
			totalPrice:    pricePerNight * nights,
			amenities:     sampleStrings(hotelAmenities, 4+stars),
		})
	}

	sort.Slice(options, func(i, j int) bool { return options[i].pricePerNight < options[j].pricePerNight })

	var b strings.Builder
	b.WriteString("HOTEL SEARCH RESULTS\n")
	fmt.Fprintf(&b, "Destination: %s\n", destination)
	fmt.Fprintf(&b, "Check-in: %s\n", checkIn)
	fmt.Fprintf(&b, "Check-out: %s\n", checkOut)
	fmt.Fprintf(&b, "Nights: %d\n\n", nights)

	for i, opt := range options {
		fmt.Fprintf(&b, "Option %d - $%d/night\n", i+1, opt.pricePerNight)
		fmt.Fprintf(&b, "  %s\n", opt.name)
		fmt.Fprintf(&b, "  Category: %s | %d stars\n", opt.category, opt.starRating)
		fmt.Fprintf(&b, "  Guest Rating: %.1f/5.0 (%d reviews)\n", opt.guestRating, opt.reviews)
		fmt.Fprintf(&b, "  Location: %s, %s\n", opt.location, destination)
		fmt.Fprintf(&b, "  Distance: %.1f miles from city center\n", opt.distance)
		fmt.Fprintf(&b, "  Total Price: $%d (%d nights)\n", opt.totalPrice, nights)
		fmt.Fprintf(&b, "  Amenities: %s\n\n", strings.Join(opt.amenities, ", "))
	}

	fmt.Fprintf(&b, "Total hotels found: %d\n", len(options))
	fmt.Fprintf(&b, "Price range: $%d - $%d per night\n", options[0].pricePerNight, options[len(options)-1].pricePerNight)

	return b.String(), nil
}

func nightCount(checkIn, checkOut string) int {
	in, errIn := time.Parse(dateLayout, checkIn)
	out, errOut := time.Parse(dateLayout, checkOut)
	if errIn != nil || errOut != nil {
		return fallbackNightCount
	}
	nights := int(out.Sub(in).Hours() / 24)
	if nights <= 0 {
		return fallbackNightCount
	}
	return nights
}
