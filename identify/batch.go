// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package identify

import (
	"context"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/jcodagnone/buildingid/listing"
	"github.com/jcodagnone/buildingid/validator"
)

// BatchOptions configures Batch.
type BatchOptions struct {
	// Workers bounds the concurrent identifications, runtime.NumCPU() when 0.
	Workers int
	// Pages, when set, supplies the saved page of each listing.
	Pages *listing.PageStore
	// KnownVillas are listing ids already classified as villas.
	KnownVillas map[string]bool
	// Progress receives a progress bar. A bar is only drawn when it is a
	// terminal.
	Progress io.Writer
}

// BatchMetrics summarizes a batch.
type BatchMetrics struct {
	Total    int
	ByStatus map[Status]int
}

// Add counts one result with status st.
func (m *BatchMetrics) Add(st Status) {
	if m.ByStatus == nil {
		m.ByStatus = make(map[Status]int)
	}

	m.Total++
	m.ByStatus[st]++
}

// Merge adds the counts of o to m.
func (m *BatchMetrics) Merge(o *BatchMetrics) *BatchMetrics {
	if o == nil {
		return m
	}

	if m.ByStatus == nil {
		m.ByStatus = make(map[Status]int, len(o.ByStatus))
	}

	m.Total += o.Total
	for k, v := range o.ByStatus {
		m.ByStatus[k] += v
	}

	return m
}

// Batch identifies listings concurrently. Results keep the order of the
// input. Listings not started when ctx is cancelled are left out and the
// context error is returned.
func (s *Service) Batch(ctx context.Context, listings []listing.Listing, opts BatchOptions) ([]Result, *BatchMetrics, error) {
	n := len(listings)

	maxProcs := opts.Workers
	if maxProcs <= 0 {
		maxProcs = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if f, ok := opts.Progress.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription("Identifying"),
			progressbar.OptionSetWriter(f),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	results := make([]Result, n)
	done := make([]bool, n)

	var wg sync.WaitGroup

	semaphore := make(chan struct{}, maxProcs)

loop:
	for i := range listings {
		if ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
			break loop
		case semaphore <- struct{}{}:
		}

		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			results[i] = s.identifyOne(listings[i], opts)
			done[i] = true

			if bar == nil {
				s.log.Debug("identified", zap.String("listing", listings[i].ID), zap.String("status", string(results[i].Status)))
			} else if err := bar.Add(1); err != nil {
				s.log.Warn("updating progress bar", zap.Error(err))
			}
		}(i)
	}

	wg.Wait()

	metrics := &BatchMetrics{ByStatus: make(map[Status]int)}
	out := make([]Result, 0, n)

	for i, r := range results {
		if !done[i] {
			continue
		}

		out = append(out, r)
		metrics.Add(r.Status)
	}

	s.log.Info("batch complete",
		zap.Int("listings", n),
		zap.Int("identified", metrics.Total),
		zap.Int("validated", metrics.ByStatus[Status(validator.Validated)]),
		zap.Int("villas", metrics.ByStatus[StatusVilla]),
		zap.Int("not_found", metrics.ByStatus[StatusNotFound]),
	)

	return out, metrics, ctx.Err()
}

func (s *Service) identifyOne(l listing.Listing, opts BatchOptions) Result {
	if opts.KnownVillas[l.ID] {
		return Result{Listing: l, UnitType: UnitVilla, Method: MethodCachedVilla, Status: StatusVilla}
	}

	if opts.Pages != nil && opts.Pages.Has(l.ID) {
		p, err := listing.ParsePageFile(opts.Pages, l.ID, s.reg.Region().Bounds)
		if err != nil {
			s.log.Warn("skipping listing", zap.String("listing", l.ID), zap.Error(err))

			return Result{Listing: l, Status: StatusError, Error: err.Error()}
		}

		l.ApplyPage(p)
	}

	return s.Identify(l)
}
