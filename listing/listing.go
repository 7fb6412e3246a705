// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

// Package listing models short-term rental listings: the rows of a market
// export and the pages saved for each of them.
package listing

import (
	"regexp"
	"strings"
)

// Listing is a rental listing. Metrics are kept verbatim from the export so
// they can be written back unchanged.
type Listing struct {
	ID           string   `json:"id"`
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	Location     string   `json:"location,omitempty"`
	PropertyType string   `json:"property_type,omitempty"` // e.g. "Entire rental unit in Dubai"
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`

	Bedrooms      string `json:"bedrooms,omitempty"`
	Bathrooms     string `json:"bathrooms,omitempty"`
	Revenue       string `json:"revenue,omitempty"`
	Occupancy     string `json:"occupancy,omitempty"`
	ADR           string `json:"adr,omitempty"`
	DaysAvailable string `json:"days_available,omitempty"`
}

// Text is the text searched for building mentions: title, description and
// location section, one per line.
func (l *Listing) Text() string {
	parts := make([]string, 0, 3)

	for _, s := range []string{l.Title, l.Description, l.Location} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	return strings.Join(parts, "\n")
}

// ApplyPage fills the text fields from the non-empty sections of a parsed
// page. Coordinates found in the page only fill coordinates the export did
// not have.
func (l *Listing) ApplyPage(p *Page) {
	if p.Title != "" {
		l.Title = p.Title
	}

	if p.Description != "" {
		l.Description = p.Description
	}

	if p.Location != "" {
		l.Location = p.Location
	}

	if p.PropertyType != "" {
		l.PropertyType = p.PropertyType
	}

	if (l.Lat == nil || l.Lng == nil) && p.Coords != nil {
		lat, lng := p.Coords.Lat, p.Coords.Lng
		l.Lat, l.Lng = &lat, &lng
	}
}

// IsVilla reports whether the listing is a stand-alone house rather than a
// unit in a building.
func (l *Listing) IsVilla() bool {
	return IsVilla(l.PropertyType, l.Title)
}

var (
	villaSubtitleRegex = regexp.MustCompile(`(?i)Entire\s+(?:villa|townhouse|vacation\s+home|home|house)\s+in`)
	villaTitleRegex    = regexp.MustCompile(`(?i)\b(?:villa|townhouse|beach\s+house)\b`)
)

// IsVilla reports whether a listing subtitle ("Entire villa in Dubai") or
// title describes a villa. Either one is enough.
func IsVilla(propertyType, title string) bool {
	return villaSubtitleRegex.MatchString(propertyType) || villaTitleRegex.MatchString(title)
}
