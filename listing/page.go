// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"bytes"
	"io"
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/jcodagnone/buildingid/spatial"
	"github.com/jcodagnone/buildingid/utils/htmlutils"
)

// Page is what is read from a saved listing page.
type Page struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Location     string         `json:"location"`
	PropertyType string         `json:"property_type"`
	Coords       *spatial.Point `json:"coords"`
}

var propertyTypeRegex = regexp.MustCompile(`(?i)^Entire\s+.+\s+in\b`)

// ParsePage reads a saved listing page. Coordinates are searched in the raw
// source, where the page keeps its map state, and only kept when they fall
// within bounds.
func ParsePage(r io.Reader, bounds spatial.Bounds) (*Page, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "reading page")
	}

	rr, err := htmlutils.AsReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	n, err := htmlutils.AsNode(rr)
	if err != nil {
		return nil, err
	}

	p := &Page{
		Title:       htmlutils.Text(htmlutils.FindFirst(n, htmlutils.Tag("h1"))),
		Description: htmlutils.Text(htmlutils.FindFirst(n, htmlutils.AttrEquals("data-section-id", "DESCRIPTION_DEFAULT"))),
		Location:    htmlutils.Text(htmlutils.FindFirst(n, htmlutils.AttrEquals("data-section-id", "LOCATION_DEFAULT"))),
	}

	for _, h2 := range htmlutils.FindAll(n, htmlutils.Tag("h2")) {
		if s := htmlutils.Text(h2); propertyTypeRegex.MatchString(s) {
			p.PropertyType = s

			break
		}
	}

	if c, ok := ExtractCoordinates(string(raw), bounds); ok {
		p.Coords = c
	}

	return p, nil
}

// The textual forms coordinates take in page sources.
var coordinateRegexes = []*regexp.Regexp{
	regexp.MustCompile(`"latitude":([\d.-]+),"longitude":([\d.-]+)`),
	regexp.MustCompile(`"latitude":\s*([\d.-]+)\s*,\s*"longitude":\s*([\d.-]+)`),
	regexp.MustCompile(`'latitude':([\d.-]+),'longitude':([\d.-]+)`),
	regexp.MustCompile(`latitude&quot;:([\d.-]+),&quot;longitude&quot;:([\d.-]+)`),
}

// ExtractCoordinates returns the first latitude/longitude pair in source
// that lies within bounds. A pair outside bounds does not stop the search.
func ExtractCoordinates(source string, bounds spatial.Bounds) (*spatial.Point, bool) {
	for _, re := range coordinateRegexes {
		for _, m := range re.FindAllStringSubmatch(source, -1) {
			lat, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}

			lng, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}

			p := spatial.Point{Lat: lat, Lng: lng}
			if bounds.Contains(p) {
				return &p, true
			}
		}
	}

	return nil, false
}

// ParsePageFile is ParsePage over a page from a PageStore.
func ParsePageFile(store *PageStore, id string, bounds spatial.Bounds) (*Page, error) {
	rc, err := store.Open(id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	p, err := ParsePage(rc, bounds)
	if err != nil {
		return nil, eris.Wrapf(err, "parsing page %s", id)
	}

	return p, nil
}
