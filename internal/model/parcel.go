// Package model defines the typed records that flow through the enrichment
// pipeline: raw parcel points at the boundary, enriched parcels at the exit.
package model

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealscout-cli/internal/zoning"
)

// ParcelPoint is one validated MLS listing: a point location plus the lot and
// price figures the yield engine needs. Built once per input row and never
// mutated afterwards.
type ParcelPoint struct {
	ID      string
	Lon     float64
	Lat     float64
	LotSqft float64
	Price   float64
	Address string
}

// NewParcelPoint validates and constructs a ParcelPoint. Lot area and price
// must be positive; rows that fail belong in the drop summary, not the batch.
func NewParcelPoint(id string, lon, lat, lotSqft, price float64, address string) (ParcelPoint, error) {
	if lotSqft <= 0 {
		return ParcelPoint{}, eris.Errorf("model: parcel %s: lot area must be > 0, got %v", id, lotSqft)
	}
	if price <= 0 {
		return ParcelPoint{}, eris.Errorf("model: parcel %s: price must be > 0, got %v", id, price)
	}
	if address == "" {
		address = "Unknown Address"
	}
	return ParcelPoint{ID: id, Lon: lon, Lat: lat, LotSqft: lotSqft, Price: price, Address: address}, nil
}

// EnrichedParcel is the terminal consumer-facing record: parcel fields plus
// zoning resolution, yield computation, and the derived ranking metric.
// Assembled once by the pipeline; downstream code only filters and sorts.
type EnrichedParcel struct {
	ParcelID         string          `json:"parcel_id"`
	Address          string          `json:"address"`
	Price            float64         `json:"price"`
	LotSqft          float64         `json:"lot_sqft"`
	RawZone          string          `json:"raw_zone"`
	BaseZone         zoning.BaseCode `json:"base_zone"`
	Tier             zoning.Tier     `json:"match_tier"`
	SqftPerUnit      float64         `json:"sqft_per_unit"`
	MaxUnits         float64         `json:"max_units"`
	OverrideApplied  bool            `json:"sb9_override"`
	DensityDefaulted bool            `json:"density_defaulted"`
	PricePerUnit     float64         `json:"price_per_unit"`
}
