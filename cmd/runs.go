package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dealscout-cli/internal/pipeline"
	"github.com/sells-group/dealscout-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect enrichment run history",
	Long:  "Commands for listing past enrichment runs and querying their stored deals.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrichment runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs deals --

var (
	runsDealsMaxPPU float64
	runsDealsZones  []string
	runsDealsLimit  int
	runsDealsFormat string
)

var runsDealsCmd = &cobra.Command{
	Use:   "deals <run-id>",
	Short: "List a run's deals ranked by price per unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		deals, err := st.ListDeals(ctx, args[0], store.DealFilter{
			MaxPricePerUnit: runsDealsMaxPPU,
			Zones:           parseZones(runsDealsZones),
			Limit:           runsDealsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "runs deals")
		}

		if runsDealsFormat == "json" {
			return pipeline.ExportJSON(deals, os.Stdout)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tPRICE\t$/UNIT\tUNITS\tZONING\tTIER")
		for _, d := range deals {
			fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.0f\t%s\t%s\n",
				d.Address, d.Price, d.PricePerUnit, d.MaxUnits, d.RawZone, d.Tier)
		}
		return w.Flush()
	},
}

func formatRunsList(w io.Writer, runs []store.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSOURCE\tENRICHED\tUNRESOLVED\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Status, r.SourcePath,
			r.Summary.Enriched, r.Summary.Unresolved,
			r.CreatedAt.Format(time.RFC3339),
		)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum runs to list")

	runsDealsCmd.Flags().Float64Var(&runsDealsMaxPPU, "max-ppu", 0, "keep only deals at or below this price per unit")
	runsDealsCmd.Flags().StringSliceVar(&runsDealsZones, "zones", nil, "keep only these base zones")
	runsDealsCmd.Flags().IntVar(&runsDealsLimit, "limit", 0, "maximum deals to list")
	runsDealsCmd.Flags().StringVar(&runsDealsFormat, "format", "table", "output format: table or json")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDealsCmd)
	rootCmd.AddCommand(runsCmd)
}
