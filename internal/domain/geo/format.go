package geo

import "fmt"

// Unit is a distance unit used for display and pricing.
type Unit string

const (
	UnitMiles Unit = "miles"
	UnitKm    Unit = "km"
)

// IsValid returns true if the unit is recognized.
func (u Unit) IsValid() bool {
	return u == UnitMiles || u == UnitKm
}

// FromMiles converts a mile distance into this unit.
func (u Unit) FromMiles(miles float64) float64 {
	if u == UnitKm {
		return MilesToKm(miles)
	}
	return miles
}

// Abbrev returns the short display suffix for the unit.
func (u Unit) Abbrev() string {
	if u == UnitKm {
		return "km"
	}
	return "mi"
}

// FormatDistance renders a distance given in miles in the requested unit.
func FormatDistance(miles float64, unit Unit) string {
	return fmt.Sprintf("%.1f %s", unit.FromMiles(miles), unit.Abbrev())
}

// FormatDuration renders whole minutes as "45 min", "1 hr", "1 hr 30 min" or "2 hrs 5 min".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}

	hours := minutes / 60
	rest := minutes % 60

	label := "hr"
	if hours > 1 {
		label = "hrs"
	}
	if rest == 0 {
		return fmt.Sprintf("%d %s", hours, label)
	}
	return fmt.Sprintf("%d %s %d min", hours, label, rest)
}
