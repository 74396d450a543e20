// Package mls is the input boundary: it reads MLS listing exports (CSV or
// XLSX), resolves their inconsistent column naming into a fixed schema, and
// emits validated parcel points with a drop summary for everything else.
package mls

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Column candidate lists, case-insensitive, in preference order. The short
// letter codes (EC, KZ, IU, TC, TA, TD) are the spreadsheet column letters
// some MLS exports ship instead of header names.
var (
	idCandidates     = []string{"ListingKey", "ListingId", "MLSNumber", "mls_id"}
	priceCandidates  = []string{"CurrentPrice", "price", "ListPrice", "EC"}
	lotCandidates    = []string{"LotSizeSquareFeet", "lot_sqft", "LotSizeAcres"}
	latCandidates    = []string{"Latitude", "lat", "KZ"}
	lonCandidates    = []string{"Longitude", "lon", "IU"}
	numCandidates    = []string{"StreetNumber", "TC"}
	nameCandidates   = []string{"StreetName", "TA"}
	suffixCandidates = []string{"StreetSuffix", "TD"}
)

// Schema maps the resolved column indices for one input file. It is built
// from the header once, before any row reaches the core.
type Schema struct {
	ID           int // -1 when absent; row numbers are used instead
	Price        int
	Lot          int
	Lat          int
	Lon          int
	StreetNumber int
	StreetName   int
	StreetSuffix int

	// LotInAcres is set when the matched lot column is acre-denominated;
	// values are converted to square feet during parsing.
	LotInAcres bool
}

// ResolveSchema locates the required columns in a header. Address parts are
// optional; geometry, price, and lot area are not.
func ResolveSchema(header []string) (*Schema, error) {
	s := &Schema{
		ID:           findColumn(header, idCandidates),
		Price:        findColumn(header, priceCandidates),
		Lot:          findColumn(header, lotCandidates),
		Lat:          findColumn(header, latCandidates),
		Lon:          findColumn(header, lonCandidates),
		StreetNumber: findColumn(header, numCandidates),
		StreetName:   findColumn(header, nameCandidates),
		StreetSuffix: findColumn(header, suffixCandidates),
	}

	var missing []string
	if s.Price < 0 {
		missing = append(missing, "price")
	}
	if s.Lot < 0 {
		missing = append(missing, "lot size")
	}
	if s.Lat < 0 {
		missing = append(missing, "latitude")
	}
	if s.Lon < 0 {
		missing = append(missing, "longitude")
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("mls: header missing required columns: %s", strings.Join(missing, ", "))
	}

	if strings.Contains(strings.ToLower(header[s.Lot]), "acre") {
		s.LotInAcres = true
	}
	return s, nil
}

// findColumn returns the index of the first candidate present in the header,
// or -1. Matching is case-insensitive on trimmed names.
func findColumn(header []string, candidates []string) int {
	for _, cand := range candidates {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), cand) {
				return i
			}
		}
	}
	return -1
}
