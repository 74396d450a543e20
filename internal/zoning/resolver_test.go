package zoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// square returns a single-ring polygon covering [minX,maxX] x [minY,maxY].
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

func testDataset(districts ...*District) *Dataset {
	return &Dataset{CRS: DefaultCRS, Districts: districts}
}

func TestResolveExact(t *testing.T) {
	ds := testDataset(
		NewDistrict(0, "R1-1", []*geom.Polygon{square(0, 0, 10, 10)}),
		NewDistrict(1, "C2-1", []*geom.Polygon{square(20, 0, 30, 10)}),
	)
	r, err := NewResolver(ds)
	require.NoError(t, err)

	m := r.Resolve(5, 5)
	assert.Equal(t, TierExact, m.Tier)
	assert.Equal(t, "R1-1", m.District.RawCode)

	m = r.Resolve(25, 5)
	assert.Equal(t, TierExact, m.Tier)
	assert.Equal(t, "C2-1", m.District.RawCode)
}

func TestResolveExactAmbiguityFirstInDatasetOrderWins(t *testing.T) {
	// Overlapping districts: the point is contained by both.
	ds := testDataset(
		NewDistrict(0, "R2-1", []*geom.Polygon{square(0, 0, 10, 10)}),
		NewDistrict(1, "R3-1", []*geom.Polygon{square(5, 0, 15, 10)}),
	)
	r, err := NewResolver(ds)
	require.NoError(t, err)

	m := r.Resolve(7, 5)
	assert.Equal(t, TierExact, m.Tier)
	assert.Equal(t, "R2-1", m.District.RawCode)
}

func TestResolveBuffered(t *testing.T) {
	ds := testDataset(
		NewDistrict(0, "RD1.5-1-O", []*geom.Polygon{square(0, 0, 10, 10)}),
	)
	r, err := NewResolver(ds, WithBufferDistance(1.0), WithNearestFallback(false))
	require.NoError(t, err)

	// Just outside the polygon but inside the buffer.
	m := r.Resolve(-0.5, 5)
	assert.Equal(t, TierBuffered, m.Tier)
	require.NotNil(t, m.District)
	assert.Equal(t, "RD1.5-1-O", m.District.RawCode)

	// Outside the buffer with nearest disabled.
	m = r.Resolve(-5, 5)
	assert.Equal(t, TierNone, m.Tier)
	assert.Nil(t, m.District)
}

func TestResolveBufferedMatchesExactZoning(t *testing.T) {
	// A point a few feet outside its true polygon must resolve to the same
	// district a point just inside resolves to, only at a lower tier.
	// 1.1e-5 degrees is roughly four feet at Los Angeles latitudes.
	ds := testDataset(
		NewDistrict(0, "R1-1", []*geom.Polygon{square(0, 0, 0.001, 0.001)}),
	)
	r, err := NewResolver(ds, WithNearestFallback(false))
	require.NoError(t, err)

	inside := r.Resolve(1.1e-5, 0.0005)
	require.Equal(t, TierExact, inside.Tier)

	outside := r.Resolve(-1.1e-5, 0.0005)
	require.Equal(t, TierBuffered, outside.Tier)
	require.NotNil(t, outside.District)
	assert.Equal(t, inside.District.RawCode, outside.District.RawCode)
}

func TestResolveNearest(t *testing.T) {
	ds := testDataset(
		NewDistrict(0, "R1-1", []*geom.Polygon{square(0, 0, 10, 10)}),
		NewDistrict(1, "C2-1", []*geom.Polygon{square(100, 0, 110, 10)}),
	)
	r, err := NewResolver(ds)
	require.NoError(t, err)

	// Far from everything; closest boundary is the C2 district's.
	m := r.Resolve(95, 5)
	assert.Equal(t, TierNearest, m.Tier)
	require.NotNil(t, m.District)
	assert.Equal(t, "C2-1", m.District.RawCode)
}

func TestResolveEmptyDataset(t *testing.T) {
	r, err := NewResolver(testDataset())
	require.NoError(t, err)

	m := r.Resolve(5, 5)
	assert.Equal(t, TierNone, m.Tier)
	assert.Nil(t, m.District)
}

func TestResolveHoleExcluded(t *testing.T) {
	poly := geom.NewPolygon(geom.XY)
	_ = poly.Push(geom.NewLinearRingFlat(geom.XY, []float64{
		0, 0, 10, 0, 10, 10, 0, 10, 0, 0,
	}))
	_ = poly.Push(geom.NewLinearRingFlat(geom.XY, []float64{
		4, 4, 6, 4, 6, 6, 4, 6, 4, 4,
	}))
	ds := testDataset(NewDistrict(0, "R1-1", []*geom.Polygon{poly}))
	r, err := NewResolver(ds, WithBufferDistance(0), WithNearestFallback(false))
	require.NoError(t, err)

	assert.Equal(t, TierExact, r.Resolve(2, 2).Tier)
	assert.Equal(t, TierNone, r.Resolve(5, 5).Tier)
}

func TestDistrictDistance(t *testing.T) {
	d := NewDistrict(0, "R1-1", []*geom.Polygon{square(0, 0, 10, 10)})

	assert.Equal(t, 0.0, d.Distance(geom.Coord{5, 5}))
	assert.InDelta(t, 2.0, d.Distance(geom.Coord{-2, 5}), 1e-9)

	// Corner distance is diagonal.
	assert.InDelta(t, 5.0, d.Distance(geom.Coord{13, 14}), 1e-9)
}
