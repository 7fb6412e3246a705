// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

// Package validator checks a building match against the listing coordinates.
package validator

import (
	"encoding/json"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/jcodagnone/buildingid/gazetteer"
	"github.com/jcodagnone/buildingid/spatial"
)

// DefaultThreshold is the distance, in meters, under which a listing is
// considered to be in the matched building.
const DefaultThreshold = 400.0

// Status is the verdict of a validation.
type Status string

const (
	Validated       Status = "validated"
	ManualCheck     Status = "manual_check"
	WrongLocation   Status = "wrong_location"
	UnknownLocation Status = "unknown_location"
	NoCoords        Status = "no_coords"
)

// Result is the outcome of Validate. Distance and Area are nil when the
// validation stopped before computing them.
type Result struct {
	Status   Status
	Distance *float64
	Area     *gazetteer.Area
}

// Closest is the outcome of FindClosestBuilding. Building is the display
// name and is empty when nothing lies within the threshold.
type Closest struct {
	Building  string
	Canonical string
	Distance  *float64
	Area      *gazetteer.Area
}

// Validator validates matches against a registry. It is safe for concurrent
// use.
type Validator struct {
	reg       *gazetteer.Registry
	threshold float64
	log       *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithThreshold overrides DefaultThreshold. Non-positive values are ignored.
func WithThreshold(meters float64) Option {
	return func(v *Validator) {
		if meters > 0 && !math.IsInf(meters, 0) {
			v.threshold = meters
		}
	}
}

// New returns a Validator over reg.
func New(reg *gazetteer.Registry, opts ...Option) *Validator {
	v := &Validator{
		reg:       reg,
		threshold: DefaultThreshold,
		log:       zap.L().With(zap.String("component", "validator")),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Threshold returns the distance threshold in meters.
func (v *Validator) Threshold() float64 {
	return v.threshold
}

// Validate checks that buildingName, in either canonical or display form,
// stands within the threshold of the listing coordinates. The area is always
// resolved from the coordinates, never from the name.
func (v *Validator) Validate(lat, lng *float64, buildingName string) Result {
	p, ok := spatial.NewPoint(lat, lng)
	if !ok {
		return Result{Status: NoCoords}
	}

	area, ok := v.reg.AreaAt(*p)
	if !ok {
		v.log.Debug("coordinates outside known areas", zap.Stringer("point", p))

		return Result{Status: UnknownLocation}
	}

	canonical := CanonicalName(buildingName)

	target, ok := v.reg.Coordinates(canonical, area.ID)
	if !ok {
		v.log.Debug("building not in area", zap.String("building", canonical), zap.String("area", area.ID))

		return Result{Status: WrongLocation, Area: area}
	}

	d, ok := spatial.Distance(p, &target)
	if !ok || math.IsNaN(d) {
		return Result{Status: WrongLocation, Area: area}
	}

	status := ManualCheck
	if d <= v.threshold {
		status = Validated
	}

	return Result{Status: status, Distance: &d, Area: area}
}

// FindClosestBuilding returns the building of the resolved area nearest to
// the coordinates. Buildings are visited in registration order and the first
// one wins on equal distances.
func (v *Validator) FindClosestBuilding(lat, lng *float64) Closest {
	p, ok := spatial.NewPoint(lat, lng)
	if !ok {
		return Closest{}
	}

	area, ok := v.reg.AreaAt(*p)
	if !ok {
		return Closest{}
	}

	var closest *gazetteer.Building

	best := math.Inf(1)

	for _, b := range area.Buildings() {
		if d, ok := spatial.Distance(p, &b.Coords); ok && d < best {
			best = d
			closest = b
		}
	}

	if closest == nil || best > v.threshold {
		return Closest{Area: area}
	}

	name, _ := v.reg.FormatFullName(closest.Name, area.ID)

	return Closest{
		Building:  name,
		Canonical: closest.Name,
		Distance:  &best,
		Area:      area,
	}
}

// CanonicalName strips the ", COMPLEX, Area" suffix from a display name.
func CanonicalName(name string) string {
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}

	return strings.TrimSpace(name)
}

type resultJSON struct {
	Status   Status  `json:"status"`
	Distance *int64  `json:"distance_meters"`
	Area     *string `json:"area"`
}

// MarshalJSON rounds the distance to whole meters.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Status:   r.Status,
		Distance: roundMeters(r.Distance),
		Area:     areaID(r.Area),
	})
}

type closestJSON struct {
	Building *string `json:"building"`
	Distance *int64  `json:"distance_meters"`
	Area     *string `json:"area"`
}

// MarshalJSON rounds the distance to whole meters.
func (c Closest) MarshalJSON() ([]byte, error) {
	var building *string
	if c.Building != "" {
		building = &c.Building
	}

	return json.Marshal(closestJSON{
		Building: building,
		Distance: roundMeters(c.Distance),
		Area:     areaID(c.Area),
	})
}

func roundMeters(d *float64) *int64 {
	if d == nil {
		return nil
	}

	m := int64(math.Round(*d))

	return &m
}

func areaID(a *gazetteer.Area) *string {
	if a == nil {
		return nil
	}

	return &a.ID
}
