package mls

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealscout-cli/internal/model"
)

// acresToSqft converts acre-denominated lot sizes to square feet.
const acresToSqft = 43560.0

// Input is the parsed, validated content of one MLS export: the parcels that
// passed boundary validation plus per-reason counts for the rows that did not.
type Input struct {
	Parcels []model.ParcelPoint
	RawRows int
	Dropped map[model.DropReason]int
}

// ReadCSV parses an MLS CSV export.
func ReadCSV(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mls: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return parseCSV(f)
}

func parseCSV(r io.Reader) (*Input, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "mls: read CSV header")
	}

	schema, err := ResolveSchema(header)
	if err != nil {
		return nil, err
	}

	in := &Input{Dropped: make(map[model.DropReason]int)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed rows are input defects, not batch failures.
			in.RawRows++
			in.Dropped[model.DropMissingGeometry]++
			continue
		}
		in.RawRows++
		appendRow(in, schema, record)
	}

	logParsed(in)
	return in, nil
}

// appendRow validates one raw record against the schema and either appends a
// parcel or counts a drop.
func appendRow(in *Input, schema *Schema, record []string) {
	lat, latErr := parseNumber(getCol(record, schema.Lat))
	lon, lonErr := parseNumber(getCol(record, schema.Lon))
	if latErr != nil || lonErr != nil {
		in.Dropped[model.DropMissingGeometry]++
		return
	}

	price, err := parseNumber(getCol(record, schema.Price))
	if err != nil || price <= 0 {
		in.Dropped[model.DropInvalidPrice]++
		return
	}

	lot, err := parseNumber(getCol(record, schema.Lot))
	if err != nil || lot <= 0 {
		in.Dropped[model.DropInvalidLotArea]++
		return
	}
	if schema.LotInAcres {
		lot *= acresToSqft
	}

	id := strings.TrimSpace(getCol(record, schema.ID))
	if id == "" {
		id = fmt.Sprintf("row-%d", in.RawRows)
	}

	p, err := model.NewParcelPoint(id, lon, lat, lot, price, buildAddress(schema, record))
	if err != nil {
		in.Dropped[model.DropInvalidLotArea]++
		return
	}
	in.Parcels = append(in.Parcels, p)
}

// buildAddress joins the non-empty street number, name, and suffix parts,
// e.g. "2622 S Cochran Ave".
func buildAddress(schema *Schema, record []string) string {
	var parts []string
	for _, idx := range []int{schema.StreetNumber, schema.StreetName, schema.StreetSuffix} {
		if v := cleanAddressPart(getCol(record, idx)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func cleanAddressPart(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "nan", "none", "null", "<na>":
		return ""
	}
	return v
}

// getCol returns the value at idx, or "" when the column is absent or the
// record is short.
func getCol(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// parseNumber parses a numeric field, tolerating currency formatting.
func parseNumber(v string) (float64, error) {
	v = strings.TrimSpace(v)
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimPrefix(v, "$")
	if v == "" {
		return 0, eris.New("empty numeric field")
	}
	return strconv.ParseFloat(v, 64)
}

func logParsed(in *Input) {
	var dropped int
	for _, n := range in.Dropped {
		dropped += n
	}
	zap.L().Info("mls: input parsed",
		zap.Int("raw_rows", in.RawRows),
		zap.Int("parcels", len(in.Parcels)),
		zap.Int("dropped", dropped),
	)
}
