// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

// Package extraction finds the building a listing text talks about.
//
// Every area gets a fixed, ordered set of rules. Rules are grouped in tiers,
// where a lower priority number is a stronger signal: explicit location
// statements first, bare mentions last, and well known landmarks (that hosts
// mention for their views) at the very end. Occurrences that follow a view,
// proximity or comparison phrase are excluded.
package extraction

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jcodagnone/buildingid/gazetteer"
	"github.com/jcodagnone/buildingid/utils/textutils"
)

// Match is the outcome of a successful extraction.
type Match struct {
	// Name is the display form "BUILDING[, COMPLEX], Area".
	Name       string     `json:"name"`
	Building   string     `json:"building"`
	Area       string     `json:"area"`
	Confidence Confidence `json:"confidence"`
	Rule       string     `json:"rule"`
}

// Candidate is one rule hit, before selection.
type Candidate struct {
	Text       string     `json:"text"`     // the whole matched span
	Building   string     `json:"building"` // the captured building text
	Rule       string     `json:"rule"`
	Confidence Confidence `json:"confidence"`
	Priority   int        `json:"priority"`
	Offset     int        `json:"offset"`
	Excluded   bool       `json:"excluded"`
	Selected   bool       `json:"selected"`

	ruleIndex int
	aliasRank int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExclusionWindow sets how many characters before an occurrence are
// searched for exclusion phrases.
func WithExclusionWindow(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.window = n
		}
	}
}

// Extractor matches listing text against the gazetteer. It compiles every
// area's rules up front and is safe for concurrent use.
type Extractor struct {
	reg    *gazetteer.Registry
	window int
	sets   map[string]*ruleSet
	log    *zap.Logger
}

// NewExtractor compiles the rules of every area in reg.
func NewExtractor(reg *gazetteer.Registry, opts ...Option) *Extractor {
	e := &Extractor{
		reg:    reg,
		window: DefaultExclusionWindow,
		sets:   make(map[string]*ruleSet),
		log:    zap.L().With(zap.String("component", "extraction")),
	}

	for _, opt := range opts {
		opt(e)
	}

	for _, area := range reg.Areas() {
		if _, ok := e.sets[area.ID]; ok {
			continue
		}

		e.sets[area.ID] = compileRuleSet(area, reg.AliasesForArea(area.ID), e.log)
	}

	return e
}

// Extract returns the strongest building mention in text for the area.
func (e *Extractor) Extract(text, areaID string) (Match, bool) {
	rs, candidates := e.candidates(text, areaID)
	if rs == nil {
		return Match{}, false
	}

	best := selectBest(candidates)

	if len(candidates) > 3 {
		e.logCandidates(areaID, candidates, best)
	}

	if best < 0 {
		return Match{}, false
	}

	c := candidates[best]

	canonical, ok := e.reg.Normalize(c.Building, areaID)
	if !ok {
		e.log.Debug("matched text is not a known alias",
			zap.String("area", areaID), zap.String("text", c.Building), zap.String("rule", c.Rule))

		return Match{}, false
	}

	name, ok := e.reg.FormatFullName(canonical, areaID)
	if !ok {
		return Match{}, false
	}

	return Match{
		Name:       name,
		Building:   canonical,
		Area:       areaID,
		Confidence: c.Confidence,
		Rule:       c.Rule,
	}, true
}

// Explain returns every candidate in selection order, flagging the excluded
// ones and the one Extract would pick.
func (e *Extractor) Explain(text, areaID string) []Candidate {
	_, candidates := e.candidates(text, areaID)
	if best := selectBest(candidates); best >= 0 {
		candidates[best].Selected = true
	}

	return candidates
}

func (e *Extractor) candidates(text, areaID string) (*ruleSet, []Candidate) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	rs, ok := e.sets[areaID]
	if !ok || len(rs.rules) == 0 {
		return nil, nil
	}

	var out []Candidate

	for i, r := range rs.rules {
		for _, loc := range r.re.FindAllStringSubmatchIndex(text, -1) {
			if len(loc) < 4 || loc[2] < 0 {
				continue
			}

			building := strings.TrimSpace(text[loc[2]:loc[3]])

			rank, ok := rs.rank[textutils.FoldKey(building)]
			if !ok {
				rank = len(rs.rank)
			}

			out = append(out, Candidate{
				Text:       text[loc[0]:loc[1]],
				Building:   building,
				Rule:       r.name,
				Confidence: r.confidence,
				Priority:   r.priority,
				Offset:     loc[0],
				Excluded:   excluded(text, loc[0], loc[1], e.window),
				ruleIndex:  i,
				aliasRank:  rank,
			})
		}
	}

	sortCandidates(out)

	return rs, out
}

// sortCandidates puts candidates in the order they are considered: priority,
// then rule order, then alias rank (longest alias first), then offset.
func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}

		if a.ruleIndex != b.ruleIndex {
			return a.ruleIndex < b.ruleIndex
		}

		if a.aliasRank != b.aliasRank {
			return a.aliasRank < b.aliasRank
		}

		return a.Offset < b.Offset
	})
}

// selectBest walks sorted candidates and keeps the first one that is not
// excluded. A later candidate would only replace it with a strictly lower
// priority, which sorted order rules out, so equal priority never overrides.
func selectBest(cs []Candidate) int {
	best := -1

	for i, c := range cs {
		if c.Excluded {
			continue
		}

		if best < 0 || c.Priority < cs[best].Priority {
			best = i
		}
	}

	return best
}

func (e *Extractor) logCandidates(areaID string, cs []Candidate, best int) {
	if ce := e.log.Check(zap.DebugLevel, "multiple candidates"); ce != nil {
		top := cs
		if len(top) > 5 {
			top = top[:5]
		}

		lines := make([]string, 0, len(top))
		for i, c := range top {
			status := "skipped"

			switch {
			case c.Excluded:
				status = "excluded"
			case i == best:
				status = "selected"
			}

			lines = append(lines, status+": "+c.Building+" (priority "+itoa(c.Priority)+")")
		}

		ce.Write(zap.String("area", areaID), zap.Int("total", len(cs)), zap.Strings("top", lines))
	}
}
