package zoning

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	rtreeDimensions  = 2

	// pointTolerance sizes the degenerate query rect for containment search.
	pointTolerance = 1e-9

	// DefaultBufferDistance is the tier-2 buffer radius in dataset CRS linear
	// units. For EPSG:4326 this is about 4 feet at Los Angeles latitudes —
	// enough to absorb typical geocoding noise without jumping districts.
	DefaultBufferDistance = 1.2e-5

	// nearestCandidates bounds the tier-3 R-tree candidate set that is
	// refined by true boundary distance.
	nearestCandidates = 8
)

// Match is the outcome of resolving one parcel point: the district (nil for
// TierNone) and the tier that produced it.
type Match struct {
	District *District
	Tier     Tier
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithBufferDistance sets the tier-2 buffer radius in CRS linear units.
func WithBufferDistance(d float64) ResolverOption {
	return func(r *Resolver) { r.buffer = d }
}

// WithNearestFallback toggles the tier-3 nearest-district assignment. When
// disabled, points missing tiers 1-2 resolve to TierNone instead of being
// snapped to the closest district.
func WithNearestFallback(enabled bool) ResolverOption {
	return func(r *Resolver) { r.nearest = enabled }
}

// Resolver joins parcel points to zoning districts through a three-tier
// strategy: exact containment, buffered overlap, then nearest district.
// The R-tree index is built once at construction and never mutated, so a
// single Resolver is safe for concurrent use across batch workers.
type Resolver struct {
	tree      *rtreego.Rtree
	districts []*District
	crs       string
	buffer    float64
	nearest   bool
}

// indexEntry adapts a District to the rtreego Spatial interface with a
// cached bounding rect.
type indexEntry struct {
	district *District
	rect     *rtreego.Rect
}

func (e *indexEntry) Bounds() *rtreego.Rect { return e.rect }

// NewResolver indexes the dataset's districts.
func NewResolver(ds *Dataset, opts ...ResolverOption) (*Resolver, error) {
	if ds == nil {
		return nil, eris.New("zoning: nil dataset")
	}

	r := &Resolver{
		tree:      rtreego.NewTree(rtreeDimensions, rtreeMinChildren, rtreeMaxChildren),
		districts: ds.Districts,
		crs:       ds.CRS,
		buffer:    DefaultBufferDistance,
		nearest:   true,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, d := range ds.Districts {
		rect, err := boundsRect(d.Bounds())
		if err != nil {
			return nil, eris.Wrapf(err, "zoning: index district %d", d.Seq)
		}
		r.tree.Insert(&indexEntry{district: d, rect: rect})
	}
	return r, nil
}

// CRS returns the coordinate reference system the index was built in.
// Parcel points must be expressed in the same CRS before Resolve is called.
func (r *Resolver) CRS() string { return r.crs }

// Resolve returns the district match for a point, terminal on the first tier
// that succeeds. When several districts contain a point on a shared boundary,
// the first in dataset order wins; that ambiguity is inherent to the data,
// not resolved by business rule.
func (r *Resolver) Resolve(lon, lat float64) Match {
	if len(r.districts) == 0 {
		return Match{Tier: TierNone}
	}
	c := geom.Coord{lon, lat}

	// Tier 1: exact containment.
	if d := r.exact(c); d != nil {
		return Match{District: d, Tier: TierExact}
	}

	// Tier 2: buffered overlap. A point within the buffer radius of a
	// district boundary intersects that district's buffered footprint.
	if d := r.buffered(c); d != nil {
		return Match{District: d, Tier: TierBuffered}
	}

	// Tier 3: nearest district, regardless of distance magnitude.
	if r.nearest {
		if d := r.nearestDistrict(c); d != nil {
			return Match{District: d, Tier: TierNearest}
		}
	}

	return Match{Tier: TierNone}
}

func (r *Resolver) exact(c geom.Coord) *District {
	point := rtreego.Point{c[0], c[1]}
	candidates := r.tree.SearchIntersect(point.ToRect(pointTolerance))
	return firstMatch(candidates, func(d *District) bool { return d.Contains(c) })
}

func (r *Resolver) buffered(c geom.Coord) *District {
	if r.buffer <= 0 {
		return nil
	}
	rect, err := rtreego.NewRect(
		rtreego.Point{c[0] - r.buffer, c[1] - r.buffer},
		[]float64{2 * r.buffer, 2 * r.buffer},
	)
	if err != nil {
		return nil
	}
	candidates := r.tree.SearchIntersect(rect)
	buffer := r.buffer
	return firstMatch(candidates, func(d *District) bool { return d.Distance(c) <= buffer })
}

func (r *Resolver) nearestDistrict(c geom.Coord) *District {
	k := nearestCandidates
	if len(r.districts) < k {
		k = len(r.districts)
	}
	candidates := r.tree.NearestNeighbors(k, rtreego.Point{c[0], c[1]})

	var best *District
	bestDist := 0.0
	for _, s := range candidates {
		e, ok := s.(*indexEntry)
		if !ok || e == nil {
			continue
		}
		dist := e.district.Distance(c)
		if best == nil || dist < bestDist {
			best = e.district
			bestDist = dist
		}
	}
	return best
}

// firstMatch orders candidates by dataset sequence and returns the first
// district satisfying the predicate.
func firstMatch(candidates []rtreego.Spatial, pred func(*District) bool) *District {
	districts := make([]*District, 0, len(candidates))
	for _, s := range candidates {
		if e, ok := s.(*indexEntry); ok {
			districts = append(districts, e.district)
		}
	}
	sort.Slice(districts, func(i, j int) bool { return districts[i].Seq < districts[j].Seq })

	for _, d := range districts {
		if pred(d) {
			return d
		}
	}
	return nil
}

// boundsRect converts a go-geom bounding box to an rtreego rect, padding
// degenerate extents so the index accepts them.
func boundsRect(b *geom.Bounds) (*rtreego.Rect, error) {
	width := b.Max(0) - b.Min(0)
	height := b.Max(1) - b.Min(1)
	if width <= 0 {
		width = pointTolerance
	}
	if height <= 0 {
		height = pointTolerance
	}
	return rtreego.NewRect(rtreego.Point{b.Min(0), b.Min(1)}, []float64{width, height})
}
