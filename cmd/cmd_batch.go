// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jcodagnone/buildingid/identify"
	"github.com/jcodagnone/buildingid/listing"
	"github.com/jcodagnone/buildingid/store"
	"github.com/jcodagnone/buildingid/utils/textutils"
)

var batchOptions struct {
	input   string
	pages   string
	output  string
	workers int
	resume  bool
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Identify every listing of a market export",
	Long: `Reads a market export csv, identifies the building of every listing and
stores the results. Listings with a saved page in --pages are enriched with the
page's title, description and coordinates. Listings already stored as villas
are not parsed again. With --resume, listings that already have a stored
result (other than an error) are skipped and their stored status is counted
in the totals, so an interrupted batch can be picked up where it stopped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := os.Open(batchOptions.input)
		if err != nil {
			return eris.Wrapf(err, "opening %s", batchOptions.input)
		}
		defer f.Close()

		listings, err := listing.ReadCSV(f)
		if err != nil {
			return eris.Wrapf(err, "reading %s", batchOptions.input)
		}

		svc, err := newService()
		if err != nil {
			return err
		}

		db, repo, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		villas, err := repo.KnownVillas(cmd.Context())
		if err != nil {
			return err
		}

		opts := identify.BatchOptions{
			Workers:     batchOptions.workers,
			KnownVillas: villas,
			Progress:    os.Stderr,
		}

		if opts.Workers == 0 {
			opts.Workers = cfg.Batch.Workers
		}

		if batchOptions.pages != "" {
			opts.Pages = listing.NewPageStore(batchOptions.pages)
		}

		prior := &identify.BatchMetrics{}

		if batchOptions.resume {
			listings, prior, err = pendingListings(cmd, repo, listings)
			if err != nil {
				return err
			}

			if prior.Total > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "⏭️  Skipping %s listings already stored\n", textutils.FormatInt(int64(prior.Total)))
			}
		}

		zap.L().Info("starting batch",
			zap.String("input", batchOptions.input),
			zap.Int("listings", len(listings)),
			zap.Int("known_villas", len(villas)),
			zap.Int("resumed", prior.Total),
		)

		results, metrics, batchErr := svc.Batch(cmd.Context(), listings, opts)

		recs := make([]*store.Record, 0, len(results))
		for _, r := range results {
			recs = append(recs, store.FromResult(r))
		}

		// partial results of a cancelled batch are still saved
		if err := repo.BulkSave(cmd.Context(), recs); err != nil {
			return errors.Join(batchErr, err)
		}

		printMetrics(cmd, prior.Merge(metrics))

		if batchErr != nil {
			return batchErr
		}

		if batchOptions.output != "" {
			return exportResults(cmd, repo, batchOptions.output, store.Filter{})
		}

		return nil
	},
}

// pendingListings drops the listings that already have a stored result and
// returns the counts of those stored results.
func pendingListings(cmd *cobra.Command, repo store.Repository, listings []listing.Listing) ([]listing.Listing, *identify.BatchMetrics, error) {
	stored, err := repo.ListResults(cmd.Context(), store.Filter{})
	if err != nil {
		return nil, nil, err
	}

	status := make(map[string]identify.Status, len(stored))
	for _, rec := range stored {
		if st := identify.Status(rec.Status); st != identify.StatusError {
			status[rec.ListingID] = st
		}
	}

	prior := &identify.BatchMetrics{}
	pending := make([]listing.Listing, 0, len(listings))

	for _, l := range listings {
		if st, ok := status[l.ID]; ok {
			prior.Add(st)

			continue
		}

		pending = append(pending, l)
	}

	return pending, prior, nil
}

func printMetrics(cmd *cobra.Command, m *identify.BatchMetrics) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "✅ %s listings identified\n", textutils.FormatInt(int64(m.Total)))

	statuses := make([]string, 0, len(m.ByStatus))
	for s := range m.ByStatus {
		statuses = append(statuses, string(s))
	}

	sort.Strings(statuses)

	for _, s := range statuses {
		fmt.Fprintf(out, "   %-18s %s\n", s, textutils.FormatInt(int64(m.ByStatus[identify.Status(s)])))
	}
}

func init() {
	batchCmd.Flags().StringVarP(&batchOptions.input, "input", "i", "", "market export csv")
	batchCmd.Flags().StringVar(&batchOptions.pages, "pages", "", "directory of saved listing pages (<id>.html or <id>.html.gz)")
	batchCmd.Flags().StringVarP(&batchOptions.output, "output", "o", "", "also export every stored result to this csv")
	batchCmd.Flags().IntVarP(&batchOptions.workers, "workers", "w", 0, "concurrent identifications (default from config, else number of CPUs)")
	batchCmd.Flags().BoolVar(&batchOptions.resume, "resume", false, "skip listings that already have a stored result")
	_ = batchCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(batchCmd)
}
