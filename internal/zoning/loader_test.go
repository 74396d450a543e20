package zoning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zoningGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"ZONE_CMPLT": "R1-1", "OBJECTID": 1},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]
      }
    },
    {
      "type": "Feature",
      "properties": {"ZONE_CMPLT": "RD1.5-1-O", "OBJECTID": 2},
      "geometry": {
        "type": "MultiPolygon",
        "coordinates": [[[[20,0],[30,0],[30,10],[20,10],[20,0]]]]
      }
    }
  ]
}`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGeoJSON(t *testing.T) {
	path := writeTempFile(t, "zoning.geojson", zoningGeoJSON)

	ds, err := Load(path, "ZONE_CMPLT", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultCRS, ds.CRS)
	require.Len(t, ds.Districts, 2)
	assert.Equal(t, "R1-1", ds.Districts[0].RawCode)
	assert.Equal(t, "RD1.5-1-O", ds.Districts[1].RawCode)
	assert.Equal(t, 0, ds.Districts[0].Seq)
	assert.Equal(t, 1, ds.Districts[1].Seq)
}

func TestLoadGeoJSONZoneFieldCaseInsensitive(t *testing.T) {
	path := writeTempFile(t, "zoning.geojson", zoningGeoJSON)

	ds, err := Load(path, "zone_cmplt", "EPSG:2229")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:2229", ds.CRS)
	assert.Len(t, ds.Districts, 2)
}

func TestLoadMissingZoneField(t *testing.T) {
	path := writeTempFile(t, "zoning.geojson", zoningGeoJSON)

	_, err := Load(path, "ZONECODE", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZONECODE")
}

func TestLoadEmptyDatasetIsFatal(t *testing.T) {
	path := writeTempFile(t, "empty.geojson", `{"type":"FeatureCollection","features":[]}`)

	_, err := Load(path, "ZONE_CMPLT", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no districts")
}

func TestLoadMalformedDatasetIsFatal(t *testing.T) {
	path := writeTempFile(t, "bad.geojson", `{"type":"FeatureCollection","features":[{`)

	_, err := Load(path, "ZONE_CMPLT", "")
	require.Error(t, err)
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.geojson"), "ZONE_CMPLT", "")
	require.Error(t, err)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeTempFile(t, "zoning.gpkg", "not a real geopackage")

	_, err := Load(path, "ZONE_CMPLT", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestLoadRequiresZoneField(t *testing.T) {
	_, err := Load("whatever.geojson", "", "")
	require.Error(t, err)
}
