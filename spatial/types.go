// Copyright 2025 The BuildingID Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package spatial holds the coordinate primitives shared by the gazetteer,
// the validator and the result store.
package spatial

import (
	"fmt"
	"math"
	"strings"

	"github.com/uber/h3-go/v4"
)

const earthRadius = 6371e3 // meters

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// NewPoint returns a point when both coordinates are present.
func NewPoint(lat, lng *float64) (*Point, bool) {
	if lat == nil || lng == nil {
		return nil, false
	}

	return &Point{Lat: *lat, Lng: *lng}, true
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// IsFinite reports whether both coordinates are real numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lng) && !math.IsInf(p.Lng, 0)
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Distance is HaversineDistance for optional points: it reports false when
// either side is missing.
func Distance(a, b *Point) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	return a.HaversineDistance(b), true
}

// Cell returns the H3 cell containing the point at the given resolution.
func (p Point) Cell(res int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
	if err != nil {
		return 0, fmt.Errorf("spatial: h3 cell at res %d: %w", res, err)
	}

	return cell, nil
}

// ParseCell parses the hex form of an H3 cell, as printed by h3.Cell.String.
func ParseCell(s string) (h3.Cell, error) {
	cell := h3.CellFromString(strings.TrimSpace(s))
	if !cell.IsValid() {
		return 0, fmt.Errorf("spatial: invalid h3 cell %q", s)
	}

	return cell, nil
}

// Range is a closed interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Covers reports whether v lies within the range, both ends inclusive.
func (r Range) Covers(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Bounds is a rectangular latitude/longitude box.
type Bounds struct {
	Lat Range `json:"lat" yaml:"lat"`
	Lng Range `json:"lng" yaml:"lng"`
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p Point) bool {
	return b.Lat.Covers(p.Lat) && b.Lng.Covers(p.Lng)
}
