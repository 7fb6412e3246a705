// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/buildingid/gazetteer"
	"github.com/jcodagnone/buildingid/utils/textutils"
)

var gazetteerCmd = &cobra.Command{
	Use:   "gazetteer",
	Short: "Inspect the building registry",
}

var gazetteerCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the integrity of the configured gazetteer",
	Long: `Loads the configured gazetteer and reports every integrity problem:
malformed bounds or coordinates, duplicate names or aliases, dangling complex
references and idioms that do not compile.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := gazetteer.Open(cfg.Gazetteer.Path)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ gazetteer %s (%s): %s areas, %s buildings\n",
			reg.Version(),
			reg.LastUpdated(),
			textutils.FormatInt(int64(len(reg.Areas()))),
			textutils.FormatInt(int64(reg.TotalBuildings())),
		)

		return nil
	},
}

var gazetteerListOptions struct {
	area string
}

var gazetteerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered buildings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := gazetteer.Open(cfg.Gazetteer.Path)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "AREA\tBUILDING\tCOMPLEX\tLAT\tLNG\tALIASES")

		for _, a := range reg.Areas() {
			if gazetteerListOptions.area != "" && a.ID != gazetteerListOptions.area {
				continue
			}

			for _, b := range a.Buildings() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.6f\t%.6f\t%d\n",
					a.ID, b.Name, b.Complex, b.Coords.Lat, b.Coords.Lng, len(b.Aliases))
			}
		}

		return w.Flush()
	},
}

func init() {
	gazetteerListCmd.Flags().StringVar(&gazetteerListOptions.area, "area", "", "only list this area")

	gazetteerCmd.AddCommand(gazetteerCheckCmd, gazetteerListCmd)
	rootCmd.AddCommand(gazetteerCmd)
}
