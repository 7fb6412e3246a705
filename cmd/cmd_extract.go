// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/buildingid/server"
)

// coordOptions holds --lat/--lng. Unset flags stay nil.
type coordOptions struct {
	lat, lng float64
}

func (o *coordOptions) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&o.lat, "lat", 0, "listing latitude")
	cmd.Flags().Float64Var(&o.lng, "lng", 0, "listing longitude")
}

func (o *coordOptions) values(cmd *cobra.Command) (lat, lng *float64) {
	if cmd.Flags().Changed("lat") {
		lat = &o.lat
	}

	if cmd.Flags().Changed("lng") {
		lng = &o.lng
	}

	return lat, lng
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return eris.Wrap(enc.Encode(v), "encoding output")
}

var extractOptions struct {
	coords  coordOptions
	area    string
	explain bool
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the building named in a listing text read from stdin",
	Long: `Reads a listing text from stdin and prints the building it names.

$ echo "Stunning 2BR apartment located at Five Palm Jumeirah" | buildingid extract
{
  "building": "FIVE PALM JUMEIRAH, Palm Jumeirah",
  "confidence": "high",
  "rule": "located",
  "area": "PALM_JUMEIRAH"
}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			fmt.Fprintln(os.Stderr, "Enter the listing text, end with Ctrl-D…")
		}

		text, err := io.ReadAll(in)
		if err != nil {
			return eris.Wrap(err, "reading stdin")
		}

		area := extractOptions.area
		if area == "" {
			area = svc.AreaFor(extractOptions.coords.values(cmd))
		}

		resp := server.ExtractResponse{Area: area}

		if m, ok := svc.Extractor().Extract(string(text), area); ok {
			resp.Building = &m.Name
			resp.Confidence = &m.Confidence
			resp.Rule = m.Rule
		}

		if extractOptions.explain {
			resp.Candidates = svc.Extractor().Explain(string(text), area)
		}

		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var validateOptions struct {
	coords   coordOptions
	building string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a building against listing coordinates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		lat, lng := validateOptions.coords.values(cmd)

		return printJSON(cmd.OutOrStdout(), svc.Validator().Validate(lat, lng, validateOptions.building))
	},
}

var closestOptions struct {
	coords coordOptions
}

var closestCmd = &cobra.Command{
	Use:   "closest",
	Short: "Find the building nearest to some coordinates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		lat, lng := closestOptions.coords.values(cmd)

		return printJSON(cmd.OutOrStdout(), svc.Validator().FindClosestBuilding(lat, lng))
	},
}

func init() {
	extractOptions.coords.register(extractCmd)
	extractCmd.Flags().StringVar(&extractOptions.area, "area", "", "area id (default: detected from coordinates)")
	extractCmd.Flags().BoolVar(&extractOptions.explain, "explain", false, "list every candidate considered")

	validateOptions.coords.register(validateCmd)
	validateCmd.Flags().StringVar(&validateOptions.building, "building", "", "building name, canonical or display form")
	_ = validateCmd.MarkFlagRequired("building")

	closestOptions.coords.register(closestCmd)

	rootCmd.AddCommand(extractCmd, validateCmd, closestCmd)
}
