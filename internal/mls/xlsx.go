package mls

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dealscout-cli/internal/model"
)

// ReadXLSX parses an MLS XLSX export. The first sheet is used; its first row
// must be the header.
func ReadXLSX(path string) (*Input, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mls: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("mls: xlsx %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("mls: xlsx %s has no rows", path)
	}

	header := rowToStrings(sheet.Rows[0])
	schema, err := ResolveSchema(header)
	if err != nil {
		return nil, err
	}

	in := &Input{Dropped: make(map[model.DropReason]int)}
	for _, row := range sheet.Rows[1:] {
		in.RawRows++
		appendRow(in, schema, rowToStrings(row))
	}

	logParsed(in)
	return in, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}
