// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/buildingid/gazetteer"
	"github.com/jcodagnone/buildingid/spatial"
)

const palm = "PALM_JUMEIRAH"

func newDefaultExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()

	reg, err := gazetteer.Default()
	require.NoError(t, err)

	return NewExtractor(reg, opts...)
}

func TestExtract(t *testing.T) {
	e := newDefaultExtractor(t)

	tests := []struct {
		name       string
		text       string
		want       string
		confidence Confidence
		rule       string
	}{
		{
			name:       "explicit location statement",
			text:       "Stunning 2BR apartment located at Five Palm Jumeirah with direct beach access",
			want:       "FIVE PALM JUMEIRAH, Palm Jumeirah",
			confidence: High,
			rule:       "located",
		},
		{
			name:       "view of a landmark then the actual building",
			text:       "Enjoy views of Atlantis The Palm from this cozy studio in Shoreline Apartments",
			want:       "SHORELINE APARTMENTS, Palm Jumeirah",
			confidence: High,
			rule:       "preposition",
		},
		{
			name:       "building inside a complex",
			text:       "Bright apartment in Al Hamri with pool access",
			want:       "AL HAMRI, SHORELINE APARTMENTS, Palm Jumeirah",
			confidence: High,
			rule:       "preposition",
		},
		{
			name:       "curated idiom",
			text:       "Tiara Residence offers guests a private beach",
			want:       "TIARA RESIDENCES, Palm Jumeirah",
			confidence: High,
			rule:       "idiom-3",
		},
		{
			name:       "area qualifier",
			text:       "Luxury 1BR | Azure - Palm Jumeirah",
			want:       "AZURE RESIDENCES, Palm Jumeirah",
			confidence: High,
			rule:       "qualifier",
		},
		{
			name:       "possessive",
			text:       "All of our Oceana residents enjoy the gym",
			want:       "OCEANA RESIDENCES, Palm Jumeirah",
			confidence: Medium,
			rule:       "possessive",
		},
		{
			name:       "bare mention",
			text:       "Brand new Grandeur two bedroom",
			want:       "GRANDEUR RESIDENCES, Palm Jumeirah",
			confidence: Medium,
			rule:       "standalone",
		},
		{
			name:       "landmark is the last resort",
			text:       "Bright apartment with balcony, Atlantis nearby",
			want:       "ATLANTIS THE PALM, Palm Jumeirah",
			confidence: Low,
			rule:       "landmark",
		},
		{
			name:       "property phrase ends the exclusion",
			text:       "Sea views of the ocean from our flat at Azure",
			want:       "AZURE RESIDENCES, Palm Jumeirah",
			confidence: High,
			rule:       "preposition",
		},
		{
			name:       "exclusion does not cross sentences",
			text:       "Sea views of the ocean. Stay at Azure",
			want:       "AZURE RESIDENCES, Palm Jumeirah",
			confidence: High,
			rule:       "preposition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := e.Extract(tt.text, palm)
			require.True(t, ok)
			assert.Equal(t, tt.want, m.Name)
			assert.Equal(t, tt.confidence, m.Confidence)
			assert.Equal(t, tt.rule, m.Rule)
			assert.Equal(t, palm, m.Area)
		})
	}
}

func TestExtractNone(t *testing.T) {
	e := newDefaultExtractor(t)

	tests := []struct {
		name string
		text string
		area string
	}{
		{"no alias", "Cozy apartment with sea view and a large balcony", palm},
		{"empty text", "", palm},
		{"blank text", "  \n ", palm},
		{"unknown area", "Apartment located at Five Palm Jumeirah", "DUBAI_MARINA"},
		{"only excluded mentions", "Enjoy stunning views of Atlantis The Palm", palm},
		{"exclusion within the sentence", "Sea views of the ocean and Azure from the balcony", palm},
		{"view of two coordinated buildings", "Stunning views of Atlantis The Palm and The Palm Tower from the balcony", palm},
		{"view of a landmark and its sibling", "Enjoy views of Atlantis and Royal Atlantis from the terrace", palm},
		{"exclusion spans a list", "Close to Atlantis, Royal Atlantis & The Palm Tower", palm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := e.Extract(tt.text, tt.area)
			assert.False(t, ok)
			assert.Equal(t, Match{}, m)
		})
	}
}

func TestTieBreak(t *testing.T) {
	e := newDefaultExtractor(t)

	// same rule: the longer alias wins regardless of position
	m, ok := e.Extract("Stay at Tiara or at Five Palm Jumeirah", palm)
	require.True(t, ok)
	assert.Equal(t, "FIVE PALM JUMEIRAH, Palm Jumeirah", m.Name)

	// same priority: the earlier rule wins, a later equal-priority hit never overrides
	m, ok = e.Extract("Five Palm Jumeirah is a gem; apartment in the Tiara", palm)
	require.True(t, ok)
	assert.Equal(t, "TIARA RESIDENCES, Palm Jumeirah", m.Name)
	assert.Equal(t, "property", m.Rule)

	// lower priority number wins regardless of position
	m, ok = e.Extract("Tiara is lovely. Apartment located at Five Palm Jumeirah", palm)
	require.True(t, ok)
	assert.Equal(t, "FIVE PALM JUMEIRAH, Palm Jumeirah", m.Name)
	assert.Equal(t, "located", m.Rule)
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name string
		in   []Candidate
		want int
	}{
		{"empty", nil, -1},
		{"all excluded", []Candidate{{Priority: 0, Excluded: true}, {Priority: 3, Excluded: true}}, -1},
		{"first survivor", []Candidate{{Priority: 0, Excluded: true}, {Priority: 1}, {Priority: 1}}, 1},
		{"equal priority keeps the first", []Candidate{{Priority: 2, Building: "A"}, {Priority: 2, Building: "B"}}, 0},
		{"strictly lower replaces", []Candidate{{Priority: 3}, {Priority: 1}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectBest(tt.in))
		})
	}
}

func TestExplain(t *testing.T) {
	e := newDefaultExtractor(t)

	cs := e.Explain("Enjoy views of Atlantis The Palm from this cozy studio in Shoreline Apartments", palm)
	require.NotEmpty(t, cs)

	var selected, excluded []string

	for _, c := range cs {
		if c.Selected {
			selected = append(selected, c.Building)
		}

		if c.Excluded {
			excluded = append(excluded, c.Building)
		}
	}

	assert.Equal(t, []string{"Shoreline Apartments"}, selected)
	assert.Contains(t, excluded, "Atlantis The Palm")

	for i := 1; i < len(cs); i++ {
		assert.LessOrEqual(t, cs[i-1].Priority, cs[i].Priority)
	}

	assert.Empty(t, e.Explain("", palm))
}

func TestExclusionWindow(t *testing.T) {
	text := "Enjoy views of the sea, the pool and the gardens of Azure"

	_, ok := newDefaultExtractor(t).Extract(text, palm)
	assert.False(t, ok)

	m, ok := newDefaultExtractor(t, WithExclusionWindow(20)).Extract(text, palm)
	require.True(t, ok)
	assert.Equal(t, "AZURE RESIDENCES, Palm Jumeirah", m.Name)
}

func TestExcluded(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"no phrase", "Lovely flat at X", false},
		{"view phrase", "Lovely views of X", true},
		{"overlooking", "Balcony overlooking the X", true},
		{"comparison", "Feels like a X", true},
		{"dream metaphor", "Your holiday dream come true at X", true},
		{"previous sentence", "Walking distance to the mall. Flat at X", false},
		{"word boundary", "Revisit X", false},
		{"coordinated mention", "Views of Atlantis and X", true},
		{"long gap without a release", "Views of the sea from a balcony that looks across the bay to X", true},
		{"property phrase", "Views of Atlantis from this studio in X", false},
		{"located phrase", "Near the beach and located at X", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := len(tt.text) - 1
			assert.Equal(t, tt.want, excluded(tt.text, start, len(tt.text), DefaultExclusionWindow))
		})
	}

	// the occurrence itself may carry the release phrase
	text := "Views of Atlantis from this cozy studio in X"
	assert.False(t, excluded(text, strings.Index(text, "studio"), len(text), DefaultExclusionWindow))
	assert.False(t, excluded(text, strings.Index(text, "in X"), len(text), DefaultExclusionWindow))
	assert.True(t, excluded(text, strings.Index(text, "studio"), strings.Index(text, " in X"), DefaultExclusionWindow))
}

func TestExtractDeterministic(t *testing.T) {
	e := newDefaultExtractor(t)
	text := "Five Palm Jumeirah is a gem. Close to Atlantis, in the heart of the Palm, our Oceana residents love it"

	first, ok := e.Extract(text, palm)
	require.True(t, ok)

	for range 50 {
		m, ok := e.Extract(text, palm)
		require.True(t, ok)
		assert.Equal(t, first, m)
	}
}

func TestExtractUnknownAlias(t *testing.T) {
	reg := gazetteer.New(gazetteer.Config{
		Areas: []gazetteer.AreaConfig{{
			ID:          "HARBOUR",
			DisplayName: "Harbour",
			Bounds:      spatial.Bounds{Lat: spatial.Range{Min: 0, Max: 1}, Lng: spatial.Range{Min: 0, Max: 1}},
			Idioms:      []string{`\b(GHOST\s+TOWER)\s+residents`},
			Buildings: []gazetteer.Building{
				{Name: "HARBOUR TOWER", Coords: spatial.Point{Lat: 0.5, Lng: 0.5}, Aliases: []string{"HARBOUR TOWER"}},
			},
		}},
	})

	e := NewExtractor(reg)

	// the idiom fires but its capture does not canonicalize
	_, ok := e.Extract("Welcome, Ghost Tower residents", "HARBOUR")
	assert.False(t, ok)

	m, ok := e.Extract("Welcome to Harbour Tower", "HARBOUR")
	require.True(t, ok)
	assert.Equal(t, "HARBOUR TOWER, Harbour", m.Name)
	assert.Equal(t, Medium, m.Confidence)
}

func TestExtractEmptyArea(t *testing.T) {
	reg := gazetteer.New(gazetteer.Config{
		Areas: []gazetteer.AreaConfig{{
			ID:          "EMPTY",
			DisplayName: "Empty",
			Bounds:      spatial.Bounds{Lat: spatial.Range{Min: 0, Max: 1}, Lng: spatial.Range{Min: 0, Max: 1}},
		}},
	})

	_, ok := NewExtractor(reg).Extract("Apartment at Anywhere", "EMPTY")
	assert.False(t, ok)
}
