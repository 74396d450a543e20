package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/dealscout-cli/internal/model"
	"github.com/sells-group/dealscout-cli/internal/rank"
	"github.com/sells-group/dealscout-cli/internal/yield"
	"github.com/sells-group/dealscout-cli/internal/zoning"
)

func square(minX, minY, maxX, maxY float64) *geom.Polygon {
	poly := geom.NewPolygon(geom.XY)
	_ = poly.Push(geom.NewLinearRingFlat(geom.XY, []float64{
		minX, minY,
		maxX, minY,
		maxX, maxY,
		minX, maxY,
		minX, minY,
	}))
	return poly
}

func testResolver(t *testing.T, districts ...*zoning.District) *zoning.Resolver {
	t.Helper()
	r, err := zoning.NewResolver(&zoning.Dataset{CRS: zoning.DefaultCRS, Districts: districts})
	require.NoError(t, err)
	return r
}

func mustParcel(t *testing.T, id string, lon, lat, lot, price float64) model.ParcelPoint {
	t.Helper()
	p, err := model.NewParcelPoint(id, lon, lat, lot, price, "")
	require.NoError(t, err)
	return p
}

func TestRunEnrichesBatch(t *testing.T) {
	resolver := testResolver(t,
		zoning.NewDistrict(0, "R1-1", []*geom.Polygon{square(0, 0, 10, 10)}),
		zoning.NewDistrict(1, "RD1.5-1-O", []*geom.Polygon{square(20, 0, 30, 10)}),
	)
	p := New(resolver, yield.NewCalculator(), 4)

	parcels := []model.ParcelPoint{
		mustParcel(t, "a", 5, 5, 5000, 400000),
		mustParcel(t, "b", 25, 5, 6000, 900000),
	}

	res, err := p.Run(context.Background(), parcels, nil)
	require.NoError(t, err)
	require.Len(t, res.Enriched, 2)
	assert.Equal(t, 2, res.Summary.Enriched)
	assert.Equal(t, 0, res.Summary.Unresolved)

	byID := make(map[string]model.EnrichedParcel)
	for _, e := range res.Enriched {
		byID[e.ParcelID] = e
	}

	a := byID["a"]
	assert.Equal(t, zoning.BaseCode("R1"), a.BaseZone)
	assert.Equal(t, zoning.TierExact, a.Tier)
	assert.True(t, a.OverrideApplied)
	assert.Equal(t, 4.0, a.MaxUnits)

	b := byID["b"]
	assert.Equal(t, zoning.BaseCode("RD1.5"), b.BaseZone)
	assert.Equal(t, 1500.0, b.SqftPerUnit)
	assert.Equal(t, 4.0, b.MaxUnits)
	assert.False(t, b.OverrideApplied)

	// Ranking the result yields the expected economics.
	deals := rank.New(res.Enriched).Rank().Records()
	assert.Equal(t, 100000.0, deals[0].PricePerUnit)
	assert.Equal(t, 225000.0, deals[1].PricePerUnit)
}

func TestRunExcludesUnresolvedFromAllOutput(t *testing.T) {
	// Empty district set: every parcel lands on tier none.
	p := New(testResolver(t), yield.NewCalculator(), 2)

	res, err := p.Run(context.Background(), []model.ParcelPoint{
		mustParcel(t, "a", 5, 5, 5000, 400000),
	}, nil)
	require.NoError(t, err)

	assert.Empty(t, res.Enriched)
	assert.Equal(t, 1, res.Summary.Unresolved)
	assert.Equal(t, 1, res.Summary.TierCounts[string(zoning.TierNone)])

	// Nothing to rank or filter.
	deals := rank.New(res.Enriched)
	assert.Equal(t, 0, deals.Rank().Len())
	assert.Equal(t, 0, deals.FilterByMaxPricePerUnit(1e12).Len())
}

func TestRunCarriesDropSummary(t *testing.T) {
	resolver := testResolver(t,
		zoning.NewDistrict(0, "R1-1", []*geom.Polygon{square(0, 0, 10, 10)}),
	)
	p := New(resolver, yield.NewCalculator(), 0)

	dropped := map[model.DropReason]int{
		model.DropMissingGeometry: 2,
		model.DropInvalidPrice:    1,
	}
	res, err := p.Run(context.Background(), []model.ParcelPoint{
		mustParcel(t, "a", 5, 5, 5000, 400000),
	}, dropped)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Summary.RawRows)
	assert.Equal(t, 1, res.Summary.Parcels)
	assert.Equal(t, 3, res.Summary.TotalDropped())
}

func TestRunUnknownZoneDefaultsDensity(t *testing.T) {
	resolver := testResolver(t,
		zoning.NewDistrict(0, "PF-1", []*geom.Polygon{square(0, 0, 10, 10)}),
	)
	p := New(resolver, yield.NewCalculator(), 1)

	res, err := p.Run(context.Background(), []model.ParcelPoint{
		mustParcel(t, "a", 5, 5, 10000, 400000),
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Enriched, 1)

	e := res.Enriched[0]
	assert.True(t, e.DensityDefaulted)
	assert.Equal(t, yield.DefaultSqftPerUnit, e.SqftPerUnit)
	assert.Equal(t, 2.0, e.MaxUnits)
	assert.Equal(t, 1, res.Summary.DensityDefaulted)
}

func TestRunCancelledContext(t *testing.T) {
	resolver := testResolver(t,
		zoning.NewDistrict(0, "R1-1", []*geom.Polygon{square(0, 0, 10, 10)}),
	)
	p := New(resolver, yield.NewCalculator(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, []model.ParcelPoint{
		mustParcel(t, "a", 5, 5, 5000, 400000),
	}, nil)
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	deals := rank.New([]model.EnrichedParcel{
		{
			ParcelID: "a",
			Address:  "2622 S Cochran Ave",
			Price:    400000,
			MaxUnits: 4,
			RawZone:  "R1-1",
			BaseZone: "R1",
			Tier:     zoning.TierExact,
		},
	}).Records()

	var buf bytes.Buffer
	require.NoError(t, writeCSV(deals, &buf))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "$/Unit")
	assert.Contains(t, lines[1], "2622 S Cochran Ave")
	assert.Contains(t, lines[1], "$400,000")
	assert.Contains(t, lines[1], "$100,000")
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON([]model.EnrichedParcel{{ParcelID: "a"}}, &buf))
	assert.Contains(t, buf.String(), `"parcel_id": "a"`)
}
