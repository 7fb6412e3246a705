// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/buildingid/spatial"
	"github.com/jcodagnone/buildingid/store"
	"github.com/jcodagnone/buildingid/utils/textutils"
	"github.com/jcodagnone/buildingid/validator"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Work with stored identification results",
}

var resultsExportOptions struct {
	output string
	status string
	area   string
	cell   string
	named  bool
	links  bool
}

var resultsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored results as csv",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, repo, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		f := store.Filter{
			Status: resultsExportOptions.status,
			Area:   resultsExportOptions.area,
			Named:  resultsExportOptions.named,
		}

		if resultsExportOptions.cell != "" {
			cell, err := spatial.ParseCell(resultsExportOptions.cell)
			if err != nil {
				return err
			}

			f.Cell = cell
		}

		var opts []store.ExportOption
		if resultsExportOptions.links || resultsExportOptions.named {
			opts = append(opts, store.WithListingLinks(store.DefaultListingURL))
		}

		return exportResults(cmd, repo, resultsExportOptions.output, f, opts...)
	},
}

// exportResults writes the filtered results to path, or stdout when path is
// "-" or empty.
func exportResults(cmd *cobra.Command, repo store.Repository, path string, f store.Filter, opts ...store.ExportOption) error {
	recs, err := repo.ListResults(cmd.Context(), f)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()

	toFile := path != "" && path != "-"
	if toFile {
		out, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "creating %s", path)
		}
		defer out.Close()

		w = out
	}

	if err := store.WriteCSV(w, recs, opts...); err != nil {
		return err
	}

	if toFile {
		fmt.Fprintf(cmd.ErrOrStderr(), "✅ Exported %s results to %s\n", textutils.FormatInt(int64(len(recs))), path)
	}

	return nil
}

var resultsStatsOptions struct {
	byCell bool
	res    int
	top    int
}

var resultsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count stored results per status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, repo, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if resultsStatsOptions.byCell {
			return printCellStats(cmd, repo)
		}

		counts, err := repo.CountByStatus(cmd.Context())
		if err != nil {
			return err
		}

		statuses := make([]string, 0, len(counts))
		total := 0

		for s, n := range counts {
			statuses = append(statuses, s)
			total += n
		}

		sort.Strings(statuses)

		out := cmd.OutOrStdout()
		for _, s := range statuses {
			fmt.Fprintf(out, "%-18s %s\n", s, textutils.FormatInt(int64(counts[s])))
		}

		fmt.Fprintf(out, "%-18s %s\n", "total", textutils.FormatInt(int64(total)))

		return nil
	},
}

func printCellStats(cmd *cobra.Command, repo store.Repository) error {
	counts, err := repo.CountByCell(cmd.Context(), resultsStatsOptions.res)
	if err != nil {
		return err
	}

	if n := resultsStatsOptions.top; n > 0 && len(counts) > n {
		counts = counts[:n]
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CELL\tTOTAL\tVALIDATED\tMANUAL CHECK")

	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Cell,
			textutils.FormatInt(int64(c.Total)),
			textutils.FormatInt(int64(c.ByStatus[string(validator.Validated)])),
			textutils.FormatInt(int64(c.ByStatus[string(validator.ManualCheck)])))
	}

	return tw.Flush()
}

func init() {
	resultsExportCmd.Flags().StringVarP(&resultsExportOptions.output, "output", "o", "-", "output csv, - for stdout")
	resultsExportCmd.Flags().StringVar(&resultsExportOptions.status, "status", "", "only export results with this status")
	resultsExportCmd.Flags().StringVar(&resultsExportOptions.area, "area", "", "only export results in this area")
	resultsExportCmd.Flags().StringVar(&resultsExportOptions.cell, "cell", "", "only export results inside this H3 cell (res 7-10)")
	resultsExportCmd.Flags().BoolVar(&resultsExportOptions.named, "named", false, "only export results with a building name, with listing links")
	resultsExportCmd.Flags().BoolVar(&resultsExportOptions.links, "links", false, "add a listing link column")

	resultsStatsCmd.Flags().BoolVar(&resultsStatsOptions.byCell, "by-cell", false, "count located results per H3 cell")
	resultsStatsCmd.Flags().IntVar(&resultsStatsOptions.res, "res", 9, "H3 resolution for --by-cell (7-10)")
	resultsStatsCmd.Flags().IntVar(&resultsStatsOptions.top, "top", 20, "show only the busiest cells, 0 for all")

	resultsCmd.AddCommand(resultsExportCmd, resultsStatsCmd)
	rootCmd.AddCommand(resultsCmd)
}
