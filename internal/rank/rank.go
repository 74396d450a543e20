// Package rank orders and filters enriched parcels by price-per-buildable-unit.
package rank

import (
	"math"
	"sort"

	"github.com/sells-group/dealscout-cli/internal/model"
	"github.com/sells-group/dealscout-cli/internal/zoning"
)

// Deals is an immutable view over enriched parcels. Construction computes
// price-per-unit; every operation returns a new view and never mutates the
// records it was built from.
type Deals struct {
	parcels []model.EnrichedParcel
}

// New builds a view, computing price_per_unit = round(price / max_units) for
// each record. Upstream guarantees max_units >= 1, so the division is safe.
func New(parcels []model.EnrichedParcel) *Deals {
	out := make([]model.EnrichedParcel, len(parcels))
	copy(out, parcels)
	for i := range out {
		out[i].PricePerUnit = math.Round(out[i].Price / out[i].MaxUnits)
	}
	return &Deals{parcels: out}
}

// Len returns the number of records in the view.
func (d *Deals) Len() int { return len(d.parcels) }

// Records returns a copy of the view's records.
func (d *Deals) Records() []model.EnrichedParcel {
	out := make([]model.EnrichedParcel, len(d.parcels))
	copy(out, d.parcels)
	return out
}

// Rank returns a new view totally ordered by ascending price-per-unit,
// stable on parcel ID for equal values.
func (d *Deals) Rank() *Deals {
	out := d.Records()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PricePerUnit != out[j].PricePerUnit {
			return out[i].PricePerUnit < out[j].PricePerUnit
		}
		return out[i].ParcelID < out[j].ParcelID
	})
	return &Deals{parcels: out}
}

// FilterByMaxPricePerUnit returns a new view keeping records at or under the
// threshold.
func (d *Deals) FilterByMaxPricePerUnit(threshold float64) *Deals {
	out := make([]model.EnrichedParcel, 0, len(d.parcels))
	for _, p := range d.parcels {
		if p.PricePerUnit <= threshold {
			out = append(out, p)
		}
	}
	return &Deals{parcels: out}
}

// FilterByZone returns a new view keeping records whose base zone is in the
// given set. An empty set keeps nothing.
func (d *Deals) FilterByZone(bases ...zoning.BaseCode) *Deals {
	set := make(map[zoning.BaseCode]struct{}, len(bases))
	for _, b := range bases {
		set[b] = struct{}{}
	}

	out := make([]model.EnrichedParcel, 0, len(d.parcels))
	for _, p := range d.parcels {
		if _, ok := set[p.BaseZone]; ok {
			out = append(out, p)
		}
	}
	return &Deals{parcels: out}
}
