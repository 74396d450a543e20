package zoning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// DefaultCRS is assumed when the reference dataset does not declare one.
// GeoJSON is WGS84 by specification.
const DefaultCRS = "EPSG:4326"

// Dataset is the zoning reference loaded once per session: all district
// polygons plus the CRS their coordinates are expressed in.
type Dataset struct {
	CRS       string
	Districts []*District
}

// Load reads a zoning reference dataset from a GeoJSON (.geojson/.json) or
// shapefile (.shp) path. The zoneField names the attribute holding the raw
// zoning code. A dataset that cannot be read, has no districts, or lacks the
// zone field is an error: the batch must abort rather than enrich against a
// degenerate zoning set.
func Load(path, zoneField, crs string) (*Dataset, error) {
	if zoneField == "" {
		return nil, eris.New("zoning: zone field is required")
	}
	if crs == "" {
		crs = DefaultCRS
	}

	var (
		ds  *Dataset
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		ds, err = loadGeoJSON(path, zoneField, crs)
	case ".shp":
		ds, err = loadShapefile(path, zoneField, crs)
	default:
		return nil, eris.Errorf("zoning: unsupported dataset format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if len(ds.Districts) == 0 {
		return nil, eris.Errorf("zoning: dataset %s contains no districts", path)
	}

	zap.L().Info("zoning dataset loaded",
		zap.String("path", path),
		zap.String("crs", ds.CRS),
		zap.Int("districts", len(ds.Districts)),
	)
	return ds, nil
}

func loadGeoJSON(path, zoneField, crs string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zoning: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "zoning: decode GeoJSON %s", path)
	}

	ds := &Dataset{CRS: crs}
	var skipped int
	for i, f := range fc.Features {
		raw, ok := zoneAttribute(f.Properties, zoneField)
		if !ok {
			return nil, eris.Errorf("zoning: feature %d missing zone field %q", i, zoneField)
		}

		polys := polygonsFromGeom(f.Geometry)
		if len(polys) == 0 {
			skipped++
			continue
		}
		ds.Districts = append(ds.Districts, NewDistrict(len(ds.Districts), raw, polys))
	}

	if skipped > 0 {
		zap.L().Debug("zoning: skipped non-polygon features", zap.Int("skipped", skipped))
	}
	return ds, nil
}

func loadShapefile(path, zoneField, crs string) (*Dataset, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zoning: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := -1
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), zoneField) {
			fieldIdx = i
			break
		}
	}
	if fieldIdx < 0 {
		return nil, eris.Errorf("zoning: shapefile field %q not found", zoneField)
	}

	ds := &Dataset{CRS: crs}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}

		raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(fieldIdx), "\x00"))
		polys := shpPolygonParts(poly)
		if len(polys) == 0 {
			skipped++
			continue
		}
		ds.Districts = append(ds.Districts, NewDistrict(len(ds.Districts), raw, polys))
	}

	if skipped > 0 {
		zap.L().Debug("zoning: skipped shapefile records", zap.Int("skipped", skipped))
	}
	return ds, nil
}

// zoneAttribute extracts the raw zoning code from GeoJSON feature properties.
// Missing values resolve through Normalize to the unclassified sentinel, but
// a missing key means the wrong field was configured.
func zoneAttribute(props map[string]interface{}, field string) (string, bool) {
	for k, v := range props {
		if strings.EqualFold(k, field) {
			if v == nil {
				return "", true
			}
			return strings.TrimSpace(fmt.Sprint(v)), true
		}
	}
	return "", false
}

// polygonsFromGeom flattens a feature geometry into polygon parts.
func polygonsFromGeom(g geom.T) []*geom.Polygon {
	switch t := g.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{t}
	case *geom.MultiPolygon:
		polys := make([]*geom.Polygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, t.Polygon(i))
		}
		return polys
	default:
		return nil
	}
}

// shpPolygonParts converts a shapefile polygon's parts into go-geom polygons.
// Each part becomes its own single-ring polygon, matching how the shapefile
// spec stores multi-part geometries.
func shpPolygonParts(p *shp.Polygon) []*geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	polys := make([]*geom.Polygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			continue
		}
		polys = append(polys, poly)
	}
	return polys
}
