// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Column names of a market export. Lookups ignore case and surrounding
// spaces.
const (
	ColID            = "AirBnB ID"
	ColBedrooms      = "Bedrooms"
	ColBathrooms     = "Bathrooms"
	ColRevenue       = "Revenue"
	ColOccupancy     = "Occupancy Rate"
	ColADR           = "ADR"
	ColDaysAvailable = "Days Available"
	ColLat           = "Lat"
	ColLng           = "Lng"
	ColTitle         = "Title"
	ColDescription   = "Description"
	ColLocation      = "Location"
)

// ErrMissingIDColumn is returned when an export has no listing id column.
var ErrMissingIDColumn = errors.New("missing " + ColID + " column")

// ReadCSV reads a listing export. Rows without an id are skipped. Empty
// coordinates are left unset; malformed ones fail the read.
func ReadCSV(r io.Reader) ([]Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "reading csv header")
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	if _, ok := idx[strings.ToLower(ColID)]; !ok {
		return nil, ErrMissingIDColumn
	}

	var ret []Listing

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, eris.Wrapf(err, "reading csv line %d", line)
		}

		get := func(col string) string {
			if i, ok := idx[strings.ToLower(col)]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}

			return ""
		}

		l := Listing{
			ID:            get(ColID),
			Title:         get(ColTitle),
			Description:   get(ColDescription),
			Location:      get(ColLocation),
			Bedrooms:      get(ColBedrooms),
			Bathrooms:     get(ColBathrooms),
			Revenue:       get(ColRevenue),
			Occupancy:     get(ColOccupancy),
			ADR:           get(ColADR),
			DaysAvailable: get(ColDaysAvailable),
		}

		if l.ID == "" {
			continue
		}

		if l.Lat, err = parseCoordinate(get(ColLat)); err != nil {
			return nil, eris.Wrapf(err, "line %d: latitude", line)
		}

		if l.Lng, err = parseCoordinate(get(ColLng)); err != nil {
			return nil, eris.Wrapf(err, "line %d: longitude", line)
		}

		ret = append(ret, l)
	}

	return ret, nil
}

func parseCoordinate(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}

	return &f, nil
}
