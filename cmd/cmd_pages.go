// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/buildingid/listing"
	"github.com/jcodagnone/buildingid/utils/textutils"
)

var pagesOptions struct {
	dir string
}

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Manage saved listing pages",
}

var pagesAddCmd = &cobra.Command{
	Use:   "add FILE...",
	Short: "Compress saved pages into the page store",
	Long: `Copies saved listing pages into the page store, gzip compressed. The
listing id is the file name without its .html extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps := listing.NewPageStore(pagesOptions.dir)

		for _, path := range args {
			id := strings.TrimSuffix(filepath.Base(path), ".html")

			if err := addPage(ps, id, path); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "✅ Stored %s pages in %s\n", textutils.FormatInt(int64(len(args))), pagesOptions.dir)

		return nil
	},
}

func addPage(ps *listing.PageStore, id, path string) error {
	f, err := os.Open(path) // #nosec G304 - operator supplied path
	if err != nil {
		return eris.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	return ps.Save(id, f)
}

var pagesShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print what is parsed from a saved page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		p, err := listing.ParsePageFile(listing.NewPageStore(pagesOptions.dir), args[0], svc.Registry().Region().Bounds)
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), p)
	},
}

var pagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the ids of the saved pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ids, err := listing.NewPageStore(pagesOptions.dir).IDs()
		if err != nil {
			return err
		}

		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}

		return nil
	},
}

func init() {
	pagesCmd.PersistentFlags().StringVar(&pagesOptions.dir, "dir", "pages", "page store directory")

	pagesCmd.AddCommand(pagesAddCmd, pagesShowCmd, pagesListCmd)
	rootCmd.AddCommand(pagesCmd)
}
