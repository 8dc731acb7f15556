package pricing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/servicearea"
)

// Method names the schedule that produced a fee.
type Method string

const (
	MethodNone   Method = "none"
	MethodArea   Method = "area"
	MethodTiered Method = "tiered"
	MethodFlat   Method = "flat"
)

// PricingStrategy defines the interface for turning a distance into a travel fee.
type PricingStrategy interface {
	// Calculate returns the fee breakdown for a distance in the configured unit.
	Calculate(distance float64) (Breakdown, error)
}

// Breakdown decomposes a travel fee. Monetary values are rounded to 2 decimals.
type Breakdown struct {
	Distance         float64  `json:"distance"`
	BillableDistance float64  `json:"billable_distance"`
	Unit             geo.Unit `json:"unit"`
	BaseFee          float64  `json:"base_fee"`
	DistanceFee      float64  `json:"distance_fee"`
	Total            float64  `json:"total"`
	Method           Method   `json:"method"`
}

func newBreakdown(distance, billable, base, distanceFee float64, method Method) Breakdown {
	base = geo.Round2(base)
	distanceFee = geo.Round2(distanceFee)
	return Breakdown{
		Distance:         geo.Round2(distance),
		BillableDistance: geo.Round2(billable),
		BaseFee:          base,
		DistanceFee:      distanceFee,
		Total:            geo.Round2(base + distanceFee),
		Method:           method,
	}
}

func checkDistance(distance float64) error {
	if distance < 0 || math.IsNaN(distance) {
		return fmt.Errorf("distance cannot be negative")
	}
	return nil
}

// billableAfterAllowance subtracts the free allowance and applies the cap (0 = uncapped).
func billableAfterAllowance(distance, free, max float64) float64 {
	billable := math.Max(0, distance-free)
	if max > 0 {
		billable = math.Min(billable, max)
	}
	return billable
}

// NoFeeStrategy charges nothing; used when distance pricing is disabled.
type NoFeeStrategy struct{}

// Calculate always returns a zero fee.
func (NoFeeStrategy) Calculate(distance float64) (Breakdown, error) {
	if err := checkDistance(distance); err != nil {
		return Breakdown{}, err
	}
	return newBreakdown(distance, 0, 0, 0, MethodNone), nil
}

// FlatPricingStrategy charges a base fee plus a per-unit rate on distance beyond the free allowance.
type FlatPricingStrategy struct {
	BaseFee      float64
	PerUnitRate  float64
	FreeDistance float64
	MaxDistance  float64
}

// Calculate computes base + rate × billable, or zero when nothing is billable.
func (s FlatPricingStrategy) Calculate(distance float64) (Breakdown, error) {
	if err := checkDistance(distance); err != nil {
		return Breakdown{}, err
	}
	billable := billableAfterAllowance(distance, s.FreeDistance, s.MaxDistance)
	if billable == 0 {
		return newBreakdown(distance, 0, 0, 0, MethodFlat), nil
	}
	return newBreakdown(distance, billable, s.BaseFee, billable*s.PerUnitRate, MethodFlat), nil
}

// Tier is a distance bin [From, To) with its own per-unit rate. To of 0 means open-ended.
type Tier struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
	Rate float64 `json:"rate"`
}

// TieredPricingStrategy charges each bin's rate on the part of the billable distance inside it.
type TieredPricingStrategy struct {
	BaseFee      float64
	FreeDistance float64
	MaxDistance  float64
	Tiers        []Tier
}

// Calculate sums the per-bin charges on top of the base fee.
func (s TieredPricingStrategy) Calculate(distance float64) (Breakdown, error) {
	if err := checkDistance(distance); err != nil {
		return Breakdown{}, err
	}
	billable := billableAfterAllowance(distance, s.FreeDistance, s.MaxDistance)
	if billable == 0 {
		return newBreakdown(distance, 0, 0, 0, MethodTiered), nil
	}

	var distanceFee float64
	for _, t := range s.Tiers {
		upper := billable
		if t.To > 0 {
			upper = math.Min(upper, t.To)
		}
		if portion := upper - t.From; portion > 0 {
			distanceFee += portion * t.Rate
		}
	}
	return newBreakdown(distance, billable, s.BaseFee, distanceFee, MethodTiered), nil
}

// AreaPricingStrategy applies the schedule embedded in a service area.
type AreaPricingStrategy struct {
	Pricing servicearea.AreaPricing
}

// Calculate returns zero below the area minimum and caps billable distance at the area maximum.
func (s AreaPricingStrategy) Calculate(distance float64) (Breakdown, error) {
	if err := checkDistance(distance); err != nil {
		return Breakdown{}, err
	}
	p := s.Pricing
	if distance < p.MinDistance {
		return newBreakdown(distance, 0, 0, 0, MethodArea), nil
	}
	billable := distance
	if p.MaxDistance > 0 {
		billable = math.Min(billable, p.MaxDistance)
	}
	return newBreakdown(distance, billable, p.BaseFee, billable*p.PerUnitRate, MethodArea), nil
}

// ParseTiers reads a schedule such as "0-5:0,5-15:1.5,15-:2" into ordered bins.
func ParseTiers(spec string) ([]Tier, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var tiers []Tier
	for _, part := range strings.Split(spec, ",") {
		rangePart, ratePart, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("tier %q: missing rate", part)
		}
		fromPart, toPart, ok := strings.Cut(rangePart, "-")
		if !ok {
			return nil, fmt.Errorf("tier %q: missing range", part)
		}

		from, err := strconv.ParseFloat(strings.TrimSpace(fromPart), 64)
		if err != nil {
			return nil, fmt.Errorf("tier %q: bad lower bound: %w", part, err)
		}
		var to float64
		if s := strings.TrimSpace(toPart); s != "" {
			if to, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("tier %q: bad upper bound: %w", part, err)
			}
			if to <= from {
				return nil, fmt.Errorf("tier %q: upper bound must exceed lower bound", part)
			}
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(ratePart), 64)
		if err != nil {
			return nil, fmt.Errorf("tier %q: bad rate: %w", part, err)
		}
		if from < 0 || rate < 0 {
			return nil, fmt.Errorf("tier %q: values cannot be negative", part)
		}
		tiers = append(tiers, Tier{From: from, To: to, Rate: rate})
	}

	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].From < tiers[j].From })
	return tiers, nil
}
