// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/csv"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/jcodagnone/buildingid/listing"
)

// ExportHeader is the header row written by WriteCSV.
var ExportHeader = []string{
	listing.ColID, listing.ColBedrooms, listing.ColBathrooms, listing.ColRevenue,
	listing.ColOccupancy, listing.ColADR, listing.ColDaysAvailable,
	listing.ColLat, listing.ColLng,
	"Building Name", "Unit Type", "Distance (m)", "Confidence", "Status",
}

// ListingLinkHeader names the column added by WithListingLinks.
const ListingLinkHeader = "Airbnb Link"

// DefaultListingURL is the listing page prefix used for links.
const DefaultListingURL = "https://www.airbnb.co.uk/rooms/"

type exportOptions struct {
	linkPrefix string
}

// ExportOption configures WriteCSV.
type ExportOption func(*exportOptions)

// WithListingLinks appends a column linking each row to prefix+listing id.
func WithListingLinks(prefix string) ExportOption {
	return func(o *exportOptions) {
		o.linkPrefix = prefix
	}
}

// WriteCSV writes records as a market export enriched with the building
// columns. Distances are rounded to whole meters.
func WriteCSV(w io.Writer, recs []*Record, opts ...ExportOption) error {
	var o exportOptions
	for _, opt := range opts {
		opt(&o)
	}

	cw := csv.NewWriter(w)

	header := ExportHeader
	if o.linkPrefix != "" {
		header = append(slices.Clone(ExportHeader), ListingLinkHeader)
	}

	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: header")
	}

	for _, rec := range recs {
		var lat, lng, distance string

		if rec.Point != nil {
			lat = strconv.FormatFloat(rec.Point.Lat, 'f', -1, 64)
			lng = strconv.FormatFloat(rec.Point.Lng, 'f', -1, 64)
		}

		if rec.Distance != nil {
			distance = strconv.FormatInt(int64(math.Round(*rec.Distance)), 10)
		}

		row := []string{
			rec.ListingID, rec.Bedrooms, rec.Bathrooms, rec.Revenue,
			rec.Occupancy, rec.ADR, rec.DaysAvailable,
			lat, lng,
			rec.Building, rec.UnitType, distance, rec.Confidence, rec.Status,
		}

		if o.linkPrefix != "" {
			row = append(row, o.linkPrefix+rec.ListingID)
		}

		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "export: listing %s", rec.ListingID)
		}
	}

	cw.Flush()

	return eris.Wrap(cw.Error(), "export: flush")
}
