package model

// DropReason classifies why an input row was excluded before reaching the
// core engine. Drops are aggregated, never surfaced as failures.
type DropReason string

const (
	DropMissingGeometry DropReason = "missing_geometry"
	DropInvalidPrice    DropReason = "invalid_price"
	DropInvalidLotArea  DropReason = "invalid_lot_area"
)

// BatchSummary aggregates per-parcel outcomes for one enrichment run.
type BatchSummary struct {
	RawRows          int                `json:"raw_rows"`
	Parcels          int                `json:"parcels"`
	Enriched         int                `json:"enriched"`
	Unresolved       int                `json:"unresolved"`
	DensityDefaulted int                `json:"density_defaulted"`
	Dropped          map[DropReason]int `json:"dropped"`
	TierCounts       map[string]int     `json:"tier_counts"`
}

// NewBatchSummary returns a summary with initialized counters.
func NewBatchSummary() BatchSummary {
	return BatchSummary{
		Dropped:    make(map[DropReason]int),
		TierCounts: make(map[string]int),
	}
}

// TotalDropped returns the number of rows excluded at the input boundary.
func (s BatchSummary) TotalDropped() int {
	var n int
	for _, c := range s.Dropped {
		n += c
	}
	return n
}
