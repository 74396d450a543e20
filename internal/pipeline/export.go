package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/dealscout-cli/internal/model"
)

// exportHeader matches the original DealScout download column set.
var exportHeader = []string{"Address", "Price", "$/Unit", "Max Units", "Zoning", "Base Zone", "Match Tier"}

// ExportCSV writes enriched deals as a formatted CSV, dollar columns
// grouped for readability ("$400,000").
func ExportCSV(deals []model.EnrichedParcel, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create export %s", path)
	}
	defer f.Close() //nolint:errcheck

	return writeCSV(deals, f)
}

func writeCSV(deals []model.EnrichedParcel, w io.Writer) error {
	printer := message.NewPrinter(language.AmericanEnglish)

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return eris.Wrap(err, "pipeline: write export header")
	}

	for _, d := range deals {
		row := []string{
			d.Address,
			printer.Sprintf("$%.0f", d.Price),
			printer.Sprintf("$%.0f", d.PricePerUnit),
			printer.Sprintf("%.0f", d.MaxUnits),
			d.RawZone,
			string(d.BaseZone),
			string(d.Tier),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "pipeline: write export row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "pipeline: flush export")
}

// ExportJSON writes enriched deals as indented JSON.
func ExportJSON(deals []model.EnrichedParcel, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(deals), "pipeline: encode deals")
}
