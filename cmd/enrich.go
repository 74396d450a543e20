package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealscout-cli/internal/mls"
	"github.com/sells-group/dealscout-cli/internal/model"
	"github.com/sells-group/dealscout-cli/internal/pipeline"
	"github.com/sells-group/dealscout-cli/internal/rank"
	"github.com/sells-group/dealscout-cli/internal/yield"
	"github.com/sells-group/dealscout-cli/internal/zoning"
)

var (
	enrichInput   string
	enrichZoning  string
	enrichField   string
	enrichOutput  string
	enrichFormat  string
	enrichMaxPPU  float64
	enrichZones   []string
	enrichWorkers int
	enrichNoStore bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich an MLS export against a zoning dataset",
	Long: `Reads an MLS parcel export (CSV or XLSX), resolves each parcel to a zoning
district, computes the maximum buildable unit count per lot, and writes the
listings ranked by price per buildable unit.

Examples:
  # Local zoning GeoJSON, CSV output
  dealscout enrich --input listings.csv --zoning zoning.geojson --output deals.csv

  # Remote shapefile, JSON to stdout, R1/R2 under $150k per unit
  dealscout enrich --input listings.xlsx --zoning https://data.lacity.org/zoning.shp \
    --format json --zones R1,R2 --max-ppu 150000`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input, err := readListings(enrichInput)
		if err != nil {
			return err
		}

		zoningPath := enrichZoning
		if zoningPath == "" {
			zoningPath = cfg.Zoning.Path
		}
		if zoningPath == "" {
			return eris.New("enrich: no zoning dataset configured (--zoning or zoning.path)")
		}

		localPath := zoningPath
		if zoning.IsRemote(zoningPath) {
			fetcher := zoning.NewFetcher(zoning.WithRateLimit(cfg.Fetch.RatePerSec))
			p, cleanup, err := fetcher.Download(ctx, zoningPath)
			if err != nil {
				return err
			}
			defer cleanup()
			localPath = p
		}

		zoneField := enrichField
		if zoneField == "" {
			zoneField = cfg.Zoning.Field
		}

		ds, err := zoning.Load(localPath, zoneField, cfg.Zoning.CRS)
		if err != nil {
			return err
		}

		// MLS exports carry WGS84 lat/lon; a dataset in any other CRS cannot
		// be joined without reprojection, which this tool does not do.
		if ds.CRS != zoning.DefaultCRS {
			return eris.Errorf("enrich: zoning dataset CRS %s does not match parcel CRS %s", ds.CRS, zoning.DefaultCRS)
		}

		resolver, err := zoning.NewResolver(ds,
			zoning.WithBufferDistance(cfg.Zoning.BufferDistance),
			zoning.WithNearestFallback(cfg.Zoning.NearestFallback),
		)
		if err != nil {
			return err
		}

		calc, err := buildCalculator()
		if err != nil {
			return err
		}

		workers := enrichWorkers
		if workers <= 0 {
			workers = cfg.Batch.Workers
		}

		res, err := pipeline.New(resolver, calc, workers).Run(ctx, input.Parcels, input.Dropped)
		if err != nil {
			return err
		}

		deals := rank.New(res.Enriched)
		if len(enrichZones) > 0 {
			deals = deals.FilterByZone(parseZones(enrichZones)...)
		}
		if enrichMaxPPU > 0 {
			deals = deals.FilterByMaxPricePerUnit(enrichMaxPPU)
		}
		ranked := deals.Rank().Records()

		if err := writeDeals(ranked); err != nil {
			return err
		}

		if !enrichNoStore {
			if err := persistRun(ctx, enrichInput, zoningPath, res.Summary, ranked); err != nil {
				return err
			}
		}

		printSummary(res.Summary, len(ranked))
		return nil
	},
}

// readListings dispatches on file extension.
func readListings(path string) (*mls.Input, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return mls.ReadCSV(path)
	case ".xlsx":
		return mls.ReadXLSX(path)
	default:
		return nil, eris.Errorf("enrich: unsupported listing format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func buildCalculator() (*yield.Calculator, error) {
	opts := []yield.Option{
		yield.WithDefaultDensity(cfg.Yield.DefaultSqftPerUnit),
		yield.WithUnitBounds(cfg.Yield.MinUnits, cfg.Yield.MaxUnits),
		yield.WithSB9(cfg.Yield.SB9),
	}
	if cfg.Yield.TablePath != "" {
		table, err := yield.LoadTable(cfg.Yield.TablePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, yield.WithTable(table))
	}
	return yield.NewCalculator(opts...), nil
}

func parseZones(raw []string) []zoning.BaseCode {
	var zones []zoning.BaseCode
	for _, z := range raw {
		for _, part := range strings.Split(z, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			zones = append(zones, zoning.Normalize(part))
		}
	}
	return zones
}

func writeDeals(deals []model.EnrichedParcel) error {
	if enrichFormat == "json" {
		if enrichOutput == "" {
			return pipeline.ExportJSON(deals, os.Stdout)
		}
		f, err := os.Create(enrichOutput)
		if err != nil {
			return eris.Wrapf(err, "enrich: create output %s", enrichOutput)
		}
		defer f.Close() //nolint:errcheck
		return pipeline.ExportJSON(deals, f)
	}

	if enrichOutput == "" {
		return eris.New("enrich: csv format requires --output")
	}
	return pipeline.ExportCSV(deals, enrichOutput)
}

func persistRun(ctx context.Context, sourcePath, zoningPath string, summary model.BatchSummary, deals []model.EnrichedParcel) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	run, err := st.CreateRun(ctx, sourcePath, zoningPath)
	if err != nil {
		return err
	}

	if err := st.InsertDeals(ctx, run.ID, deals); err != nil {
		failErr := st.FailRun(ctx, run.ID)
		if failErr != nil {
			zap.L().Warn("enrich: mark run failed", zap.Error(failErr))
		}
		return err
	}

	if err := st.CompleteRun(ctx, run.ID, summary); err != nil {
		return err
	}

	zap.L().Info("enrich: run persisted", zap.String("run_id", run.ID))
	fmt.Fprintf(os.Stderr, "Run %s saved.\n", run.ID)
	return nil
}

func printSummary(s model.BatchSummary, ranked int) {
	fmt.Fprintf(os.Stderr, "Rows: %d  Parcels: %d  Enriched: %d  Unresolved: %d  Dropped: %d  Output: %d\n",
		s.RawRows, s.Parcels, s.Enriched, s.Unresolved, s.TotalDropped(), ranked)
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "MLS export path (.csv or .xlsx)")
	enrichCmd.Flags().StringVar(&enrichZoning, "zoning", "", "zoning dataset path or URL (.geojson or .shp; default from config)")
	enrichCmd.Flags().StringVar(&enrichField, "zone-field", "", "attribute holding the zoning code (default from config)")
	enrichCmd.Flags().StringVar(&enrichOutput, "output", "", "output file path")
	enrichCmd.Flags().StringVar(&enrichFormat, "format", "csv", "output format: csv or json")
	enrichCmd.Flags().Float64Var(&enrichMaxPPU, "max-ppu", 0, "keep only deals at or below this price per unit")
	enrichCmd.Flags().StringSliceVar(&enrichZones, "zones", nil, "keep only these base zones (comma separated)")
	enrichCmd.Flags().IntVar(&enrichWorkers, "workers", 0, "batch concurrency (default from config)")
	enrichCmd.Flags().BoolVar(&enrichNoStore, "no-store", false, "skip persisting the run")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}
