// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

// Package gazetteer is the static registry of geographic areas and the named
// buildings they contain.
//
// A Registry is built once from configuration and never mutated afterwards,
// so it can be shared freely between goroutines.
package gazetteer

import (
	"sort"

	"github.com/jcodagnone/buildingid/spatial"
	"github.com/jcodagnone/buildingid/utils/textutils"
)

// Metadata is descriptive building information. Matching never looks at it.
type Metadata struct {
	Type      string `json:"type,omitempty" yaml:"type"`
	YearBuilt int    `json:"year_built,omitempty" yaml:"year_built"`
	Floors    int    `json:"floors,omitempty" yaml:"floors"`
	Units     int    `json:"units,omitempty" yaml:"units"`
	Developer string `json:"developer,omitempty" yaml:"developer"`
}

// Building is a named property inside an area.
type Building struct {
	Name         string        `json:"name" yaml:"name"`
	Coords       spatial.Point `json:"coords" yaml:"coords"`
	Aliases      []string      `json:"aliases" yaml:"aliases"`
	Complex      string        `json:"complex,omitempty" yaml:"complex"`
	SubBuildings []string      `json:"sub_buildings,omitempty" yaml:"sub_buildings"`
	Metadata     Metadata      `json:"metadata" yaml:"metadata"`
}

// AreaConfig is the configuration form of an area.
type AreaConfig struct {
	ID          string         `yaml:"id"`
	DisplayName string         `yaml:"display_name"`
	Description string         `yaml:"description"`
	Bounds      spatial.Bounds `yaml:"bounds"`
	Qualifiers  []string       `yaml:"qualifiers"`
	Landmarks   []string       `yaml:"landmarks"`
	Idioms      []string       `yaml:"idioms"`
	Buildings   []Building     `yaml:"buildings"`
}

// Region is the wider geography the areas belong to.
type Region struct {
	Name   string         `json:"name" yaml:"name"`
	Bounds spatial.Bounds `json:"bounds" yaml:"bounds"`
}

// Config is the gazetteer document.
type Config struct {
	Version     string       `yaml:"version"`
	LastUpdated string       `yaml:"last_updated"`
	Region      Region       `yaml:"region"`
	Areas       []AreaConfig `yaml:"areas"`
}

// Area is a registered area together with its lookup indexes.
type Area struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Description string         `json:"description,omitempty"`
	Bounds      spatial.Bounds `json:"bounds"`
	Qualifiers  []string       `json:"qualifiers,omitempty"`
	Landmarks   []string       `json:"landmarks,omitempty"`
	Idioms      []string       `json:"-"`

	buildings []*Building
	byName    map[string]*Building
	byAlias   map[string]*Building // folded alias -> first building declaring it
	aliases   []string             // deduplicated, longest first
}

// Buildings returns the area's buildings in registration order.
func (a *Area) Buildings() []*Building {
	return a.buildings
}

// Registry is the immutable gazetteer.
type Registry struct {
	version     string
	lastUpdated string
	region      Region
	areas       []*Area
	byID        map[string]*Area
}

// New builds a registry without checking its integrity; Load is the normal
// entry point. Fixtures that need to inspect malformed data use New together
// with ValidateIntegrity.
func New(cfg Config) *Registry {
	r := &Registry{
		version:     cfg.Version,
		lastUpdated: cfg.LastUpdated,
		region:      cfg.Region,
		byID:        make(map[string]*Area, len(cfg.Areas)),
	}

	for _, ac := range cfg.Areas {
		area := &Area{
			ID:          ac.ID,
			DisplayName: ac.DisplayName,
			Description: ac.Description,
			Bounds:      ac.Bounds,
			Qualifiers:  append([]string(nil), ac.Qualifiers...),
			Landmarks:   append([]string(nil), ac.Landmarks...),
			Idioms:      append([]string(nil), ac.Idioms...),
			byName:      make(map[string]*Building, len(ac.Buildings)),
			byAlias:     make(map[string]*Building),
		}

		seen := make(map[string]bool)

		for i := range ac.Buildings {
			b := ac.Buildings[i]
			b.Aliases = append([]string(nil), b.Aliases...)
			b.SubBuildings = append([]string(nil), b.SubBuildings...)
			area.buildings = append(area.buildings, &b)

			if _, ok := area.byName[b.Name]; !ok {
				area.byName[b.Name] = &b
			}

			for _, alias := range b.Aliases {
				key := textutils.FoldKey(alias)
				if key == "" {
					continue
				}

				if _, ok := area.byAlias[key]; !ok {
					area.byAlias[key] = &b
				}

				if !seen[key] {
					seen[key] = true
					area.aliases = append(area.aliases, textutils.CollapseSpaces(alias))
				}
			}
		}

		sort.SliceStable(area.aliases, func(i, j int) bool {
			return len(area.aliases[i]) > len(area.aliases[j])
		})

		r.areas = append(r.areas, area)
		if _, ok := r.byID[area.ID]; !ok {
			r.byID[area.ID] = area
		}
	}

	return r
}

// Version is the gazetteer data version.
func (r *Registry) Version() string {
	return r.version
}

// LastUpdated is the date the gazetteer data was last revised.
func (r *Registry) LastUpdated() string {
	return r.lastUpdated
}

// Region returns the wider geography.
func (r *Registry) Region() Region {
	return r.region
}

// Areas returns the areas in registration order.
func (r *Registry) Areas() []*Area {
	return r.areas
}

// Area looks up an area by id.
func (r *Registry) Area(id string) (*Area, bool) {
	a, ok := r.byID[id]

	return a, ok
}

// DetectArea returns the first registered area whose bounds cover the point.
func (r *Registry) DetectArea(lat, lng *float64) (*Area, bool) {
	p, ok := spatial.NewPoint(lat, lng)
	if !ok {
		return nil, false
	}

	return r.AreaAt(*p)
}

// AreaAt is DetectArea for a known point.
func (r *Registry) AreaAt(p spatial.Point) (*Area, bool) {
	for _, a := range r.areas {
		if a.Bounds.Contains(p) {
			return a, true
		}
	}

	return nil, false
}

// DisplayName returns the human readable name of an area. Unknown ids are
// title-cased from the id itself.
func (r *Registry) DisplayName(id string) string {
	if a, ok := r.byID[id]; ok && a.DisplayName != "" {
		return a.DisplayName
	}

	return titleFromID(id)
}

// BuildingsForArea returns the area's buildings keyed by canonical name. The
// map is empty for an unknown area. Callers must not modify the buildings.
func (r *Registry) BuildingsForArea(id string) map[string]*Building {
	a, ok := r.byID[id]
	if !ok {
		return map[string]*Building{}
	}

	out := make(map[string]*Building, len(a.byName))
	for name, b := range a.byName {
		out[name] = b
	}

	return out
}

// AliasesForArea returns every alias of the area once, longest first. The
// slice is shared; callers must not modify it.
func (r *Registry) AliasesForArea(id string) []string {
	if a, ok := r.byID[id]; ok {
		return a.aliases
	}

	return nil
}

// Building returns a building by canonical name.
func (r *Registry) Building(name, areaID string) (*Building, bool) {
	a, ok := r.byID[areaID]
	if !ok {
		return nil, false
	}

	b, ok := a.byName[name]

	return b, ok
}

// Normalize maps any alias of a building to its canonical name. Comparison
// ignores case, accents and whitespace runs.
func (r *Registry) Normalize(raw, areaID string) (string, bool) {
	a, ok := r.byID[areaID]
	if !ok {
		return "", false
	}

	key := textutils.FoldKey(raw)
	if key == "" {
		return "", false
	}

	b, ok := a.byAlias[key]
	if !ok {
		return "", false
	}

	return b.Name, true
}

// Coordinates returns the registered coordinate of a building.
func (r *Registry) Coordinates(name, areaID string) (spatial.Point, bool) {
	b, ok := r.Building(name, areaID)
	if !ok {
		return spatial.Point{}, false
	}

	return b.Coords, true
}

// ComplexName returns the parent complex label of a building, if any.
func (r *Registry) ComplexName(name, areaID string) (string, bool) {
	b, ok := r.Building(name, areaID)
	if !ok || b.Complex == "" {
		return "", false
	}

	return b.Complex, true
}

// FormatFullName renders "NAME[, COMPLEX], Area".
func (r *Registry) FormatFullName(name, areaID string) (string, bool) {
	if name == "" || areaID == "" {
		return "", false
	}

	display := r.DisplayName(areaID)
	if complexName, ok := r.ComplexName(name, areaID); ok {
		return name + ", " + complexName + ", " + display, true
	}

	return name + ", " + display, true
}

// TotalBuildings counts the buildings of every area.
func (r *Registry) TotalBuildings() int {
	n := 0
	for _, a := range r.areas {
		n += len(a.buildings)
	}

	return n
}

// BuildingsCountByArea counts buildings per area id.
func (r *Registry) BuildingsCountByArea() map[string]int {
	out := make(map[string]int, len(r.areas))
	for _, a := range r.areas {
		out[a.ID] += len(a.buildings)
	}

	return out
}

func titleFromID(id string) string {
	out := make([]byte, 0, len(id))
	upper := true

	for i := range len(id) {
		c := id[i]

		switch {
		case c == '_':
			out = append(out, ' ')
			upper = true
		case upper && c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
			upper = false
		case !upper && c >= 'A' && c <= 'Z':
			out = append(out, c-'A'+'a')
		default:
			out = append(out, c)
			upper = false
		}
	}

	return string(out)
}
