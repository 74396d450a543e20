// Package pipeline runs the enrichment batch: spatial join, code
// normalization, and yield computation over an immutable parcel collection.
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealscout-cli/internal/model"
	"github.com/sells-group/dealscout-cli/internal/yield"
	"github.com/sells-group/dealscout-cli/internal/zoning"
)

// DefaultWorkers bounds batch concurrency when none is configured.
const DefaultWorkers = 8

// Result is the output of one enrichment batch.
type Result struct {
	Enriched []model.EnrichedParcel
	Summary  model.BatchSummary
}

// Pipeline enriches parcels against a pre-built zoning resolver and yield
// calculator. Per-parcel work is independent; the only shared state is the
// read-only resolver index.
type Pipeline struct {
	resolver *zoning.Resolver
	calc     *yield.Calculator
	workers  int
}

// New creates a Pipeline. workers <= 0 selects DefaultWorkers.
func New(resolver *zoning.Resolver, calc *yield.Calculator, workers int) *Pipeline {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pipeline{resolver: resolver, calc: calc, workers: workers}
}

// Run enriches the batch. Unresolved parcels are counted and excluded, never
// treated as failures; the only error path is context cancellation. The
// dropped map carries input-boundary drop counts into the summary.
func (p *Pipeline) Run(ctx context.Context, in []model.ParcelPoint, dropped map[model.DropReason]int) (*Result, error) {
	summary := model.NewBatchSummary()
	summary.Parcels = len(in)
	summary.RawRows = len(in)
	for reason, n := range dropped {
		summary.Dropped[reason] = n
		summary.RawRows += n
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var mu sync.Mutex
	enriched := make([]model.EnrichedParcel, 0, len(in))
	tierCounts := make(map[string]int)
	var unresolved, defaulted int

	for _, parcel := range in {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			match := p.resolver.Resolve(parcel.Lon, parcel.Lat)

			mu.Lock()
			defer mu.Unlock()
			tierCounts[string(match.Tier)]++

			if match.Tier == zoning.TierNone {
				unresolved++
				zap.L().Debug("pipeline: parcel unresolved",
					zap.String("parcel_id", parcel.ID),
				)
				return nil
			}

			base := zoning.Normalize(match.District.RawCode)
			yr := p.calc.Compute(base, parcel.LotSqft)
			if yr.DensityDefaulted {
				defaulted++
			}

			enriched = append(enriched, model.EnrichedParcel{
				ParcelID:         parcel.ID,
				Address:          parcel.Address,
				Price:            parcel.Price,
				LotSqft:          parcel.LotSqft,
				RawZone:          match.District.RawCode,
				BaseZone:         base,
				Tier:             match.Tier,
				SqftPerUnit:      yr.SqftPerUnit,
				MaxUnits:         yr.MaxUnits,
				OverrideApplied:  yr.OverrideApplied,
				DensityDefaulted: yr.DensityDefaulted,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Enriched = len(enriched)
	summary.Unresolved = unresolved
	summary.DensityDefaulted = defaulted
	summary.TierCounts = tierCounts

	zap.L().Info("pipeline: batch complete",
		zap.Int("parcels", summary.Parcels),
		zap.Int("enriched", summary.Enriched),
		zap.Int("unresolved", summary.Unresolved),
		zap.Int("density_defaulted", summary.DensityDefaulted),
	)

	return &Result{Enriched: enriched, Summary: summary}, nil
}
