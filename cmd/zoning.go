package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealscout-cli/internal/zoning"
)

var zoningField string

var zoningCmd = &cobra.Command{
	Use:   "zoning",
	Short: "Inspect zoning datasets and codes",
}

var zoningInspectCmd = &cobra.Command{
	Use:   "inspect <dataset>",
	Short: "Summarize a zoning dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := args[0]
		if zoning.IsRemote(path) {
			fetcher := zoning.NewFetcher(zoning.WithRateLimit(cfg.Fetch.RatePerSec))
			local, cleanup, err := fetcher.Download(ctx, path)
			if err != nil {
				return err
			}
			defer cleanup()
			path = local
		}

		field := zoningField
		if field == "" {
			field = cfg.Zoning.Field
		}

		ds, err := zoning.Load(path, field, cfg.Zoning.CRS)
		if err != nil {
			return err
		}

		baseCounts := make(map[zoning.BaseCode]int)
		for _, d := range ds.Districts {
			baseCounts[zoning.Normalize(d.RawCode)]++
		}

		bases := make([]zoning.BaseCode, 0, len(baseCounts))
		for b := range baseCounts {
			bases = append(bases, b)
		}
		sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

		fmt.Printf("Districts: %d\nCRS: %s\nBase zones: %d\n\n", len(ds.Districts), ds.CRS, len(bases))

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BASE\tDISTRICTS")
		for _, b := range bases {
			fmt.Fprintf(w, "%s\t%d\n", b, baseCounts[b])
		}
		return w.Flush()
	},
}

var zoningNormalizeCmd = &cobra.Command{
	Use:   "normalize <code>...",
	Short: "Show the canonical base code for raw zoning strings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RAW\tBASE\tR1_FAMILY")
		for _, raw := range args {
			base := zoning.Normalize(raw)
			fmt.Fprintf(w, "%s\t%s\t%t\n", raw, base, base.IsR1Family())
		}
		return w.Flush()
	},
}

func init() {
	zoningInspectCmd.Flags().StringVar(&zoningField, "zone-field", "", "attribute holding the zoning code (default from config)")
	zoningCmd.AddCommand(zoningInspectCmd)
	zoningCmd.AddCommand(zoningNormalizeCmd)
	rootCmd.AddCommand(zoningCmd)
}
