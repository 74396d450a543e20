package zoning

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Tier is the confidence level of a spatial join result. Once a parcel is
// resolved the tier is immutable evidence of how the match was produced.
type Tier string

const (
	TierExact    Tier = "exact"
	TierBuffered Tier = "buffered"
	TierNearest  Tier = "nearest"
	TierNone     Tier = "none"
)

// District is one zoning polygon with its raw code attribute. Districts are
// loaded once per session and are read-only for the lifetime of a batch.
type District struct {
	// Seq is the record's position in the dataset's natural order; boundary
	// ties during exact matching are broken by the lowest Seq.
	Seq     int
	RawCode string

	polygons []*geom.Polygon
	bounds   *geom.Bounds
}

// NewDistrict builds a district from one or more polygon parts.
func NewDistrict(seq int, rawCode string, polygons []*geom.Polygon) *District {
	b := geom.NewBounds(geom.XY)
	for _, p := range polygons {
		b = b.Extend(p)
	}
	return &District{Seq: seq, RawCode: rawCode, polygons: polygons, bounds: b}
}

// Bounds returns the district's bounding box.
func (d *District) Bounds() *geom.Bounds { return d.bounds }

// Contains reports whether the coordinate lies inside the district: within
// any part's outer ring and outside that part's holes.
func (d *District) Contains(c geom.Coord) bool {
	if !d.bounds.OverlapsPoint(geom.XY, c) {
		return false
	}
	for _, p := range d.polygons {
		if polygonContains(p, c) {
			return true
		}
	}
	return false
}

// Distance returns the planar distance from the coordinate to the district
// boundary, or 0 when the coordinate is contained.
func (d *District) Distance(c geom.Coord) float64 {
	if d.Contains(c) {
		return 0
	}
	min := math.Inf(1)
	for _, p := range d.polygons {
		for i := 0; i < p.NumLinearRings(); i++ {
			if dist := ringDistance(p.LinearRing(i), c); dist < min {
				min = dist
			}
		}
	}
	return min
}

func polygonContains(p *geom.Polygon, c geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(p.Layout(), c, p.LinearRing(0).FlatCoords()) {
		return false
	}
	// Interior rings are holes.
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), c, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// ringDistance returns the minimum distance from c to any segment of the ring.
func ringDistance(ring *geom.LinearRing, c geom.Coord) float64 {
	flat := ring.FlatCoords()
	stride := ring.Stride()
	min := math.Inf(1)
	for i := 0; i+stride < len(flat); i += stride {
		a := geom.Coord{flat[i], flat[i+1]}
		b := geom.Coord{flat[i+stride], flat[i+stride+1]}
		if dist := xy.DistanceFromPointToLine(c, a, b); dist < min {
			min = dist
		}
	}
	return min
}
