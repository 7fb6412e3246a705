// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

// Package identify resolves the building of a listing, combining text
// extraction, the nearest building fallback and coordinate validation.
package identify

import (
	"go.uber.org/zap"

	"github.com/jcodagnone/buildingid/extraction"
	"github.com/jcodagnone/buildingid/gazetteer"
	"github.com/jcodagnone/buildingid/listing"
	"github.com/jcodagnone/buildingid/validator"
)

// DefaultArea is used when the listing coordinates do not resolve an area.
const DefaultArea = "PALM_JUMEIRAH"

// Status of an identification. Besides its own values it carries every
// validator.Status.
type Status string

const (
	StatusNotFound Status = "not_found"
	StatusVilla    Status = "villa"
	StatusError    Status = "error"
)

// Method tells how the building was found.
type Method string

const (
	MethodText        Method = "text"
	MethodCoordinates Method = "coordinates"
	MethodVilla       Method = "villa"
	MethodCachedVilla Method = "cached_villa"
)

// Unit types.
const (
	UnitApartment = "Apartment"
	UnitVilla     = "Villa"
)

// ConfidenceCoordinates is the confidence reported for buildings found by
// proximity alone.
const ConfidenceCoordinates extraction.Confidence = "coord_only"

// Result is the identification of one listing.
type Result struct {
	Listing    listing.Listing       `json:"listing"`
	Building   string                `json:"building,omitempty"` // display form
	Canonical  string                `json:"canonical,omitempty"`
	Area       string                `json:"area,omitempty"`
	UnitType   string                `json:"unit_type,omitempty"`
	Confidence extraction.Confidence `json:"confidence,omitempty"`
	Method     Method                `json:"method,omitempty"`
	Status     Status                `json:"status"`
	Distance   *float64              `json:"distance_meters,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// Service identifies listings. It holds only immutable collaborators and is
// safe for concurrent use.
type Service struct {
	reg         *gazetteer.Registry
	extractor   *extraction.Extractor
	validator   *validator.Validator
	defaultArea string
	log         *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultArea sets the area assumed when coordinates are missing or
// outside every area.
func WithDefaultArea(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.defaultArea = id
		}
	}
}

// New returns a Service.
func New(reg *gazetteer.Registry, e *extraction.Extractor, v *validator.Validator, opts ...Option) *Service {
	s := &Service{
		reg:         reg,
		extractor:   e,
		validator:   v,
		defaultArea: DefaultArea,
		log:         zap.L().With(zap.String("component", "identify")),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Registry returns the gazetteer the service matches against.
func (s *Service) Registry() *gazetteer.Registry {
	return s.reg
}

// Extractor returns the text extractor.
func (s *Service) Extractor() *extraction.Extractor {
	return s.extractor
}

// Validator returns the coordinate validator.
func (s *Service) Validator() *validator.Validator {
	return s.validator
}

// DefaultArea returns the area assumed when coordinates resolve none.
func (s *Service) DefaultArea() string {
	return s.defaultArea
}

// AreaFor returns the area of the given coordinates, or the default area.
func (s *Service) AreaFor(lat, lng *float64) string {
	if area, ok := s.reg.DetectArea(lat, lng); ok {
		return area.ID
	}

	return s.defaultArea
}

// Identify resolves the building of l.
func (s *Service) Identify(l listing.Listing) Result {
	if l.IsVilla() {
		return Result{Listing: l, UnitType: UnitVilla, Method: MethodVilla, Status: StatusVilla}
	}

	res := Result{Listing: l, UnitType: UnitApartment, Area: s.AreaFor(l.Lat, l.Lng)}

	if m, ok := s.extractor.Extract(l.Text(), res.Area); ok {
		res.Building = m.Name
		res.Canonical = m.Building
		res.Confidence = m.Confidence
		res.Method = MethodText
	} else if c := s.validator.FindClosestBuilding(l.Lat, l.Lng); c.Building != "" {
		s.log.Debug("no text match, using closest building",
			zap.String("listing", l.ID), zap.String("building", c.Canonical))

		res.Building = c.Building
		res.Canonical = c.Canonical
		res.Confidence = ConfidenceCoordinates
		res.Method = MethodCoordinates
	}

	if res.Building == "" {
		res.Status = StatusNotFound

		return res
	}

	v := s.validator.Validate(l.Lat, l.Lng, res.Building)
	res.Status = Status(v.Status)
	res.Distance = v.Distance

	if v.Area != nil {
		res.Area = v.Area.ID
	}

	return res
}
