// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jcodagnone/buildingid/gazetteer"
	"github.com/jcodagnone/buildingid/utils/textutils"
)

// Confidence is the strength label attached to the rule that produced a match.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

var (
	prepositions  = []string{"at", "in", "within", "inside"}
	propertyTypes = []string{
		"apartment", "unit", "flat", "penthouse", "studio",
		"home", "residence", "property", "accommodation",
	}
	subjectVerbs = []string{"is", "was", "features", "provides", "offers", "boasts", "includes"}
	possessives  = []string{"the", "our", "their", "this", "these"}
)

// aliases shorter than this are too generic for the "located at" phrasing.
const longAliasLen = 6

type rule struct {
	name       string
	re         *regexp.Regexp
	priority   int
	confidence Confidence
}

// ruleSet is everything compiled for one area. It is read-only once built.
type ruleSet struct {
	area  *gazetteer.Area
	rules []rule
	rank  map[string]int // folded alias -> position in the longest-first list
}

func compileRuleSet(area *gazetteer.Area, aliases []string, log *zap.Logger) *ruleSet {
	rs := &ruleSet{
		area: area,
		rank: make(map[string]int, len(aliases)),
	}

	if len(aliases) == 0 {
		return rs
	}

	var long, plain, landmarks []string

	for i, a := range aliases {
		rs.rank[textutils.FoldKey(a)] = i

		if len(a) > longAliasLen {
			long = append(long, a)
		}

		if containsLandmark(a, area.Landmarks) {
			landmarks = append(landmarks, a)
		} else {
			plain = append(plain, a)
		}
	}

	all := aliasGroup(aliases)
	add := func(name string, priority int, confidence Confidence, expr string) {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			log.Warn("skipping rule", zap.String("area", area.ID), zap.String("rule", name), zap.Error(err))

			return
		}

		rs.rules = append(rs.rules, rule{name: name, re: re, priority: priority, confidence: confidence})
	}

	for i, idiom := range area.Idioms {
		add("idiom-"+itoa(i), 0, High, idiom)
	}

	if len(long) > 0 {
		add("located", 0, High,
			`\b(?:located|situated|residing|based|positioned)\s+(?:at|in|within)\s+(?:the\s+)?`+
				`(?:residences\s+of\s+(?:the\s+)?)?(?:luxurious\s+)?`+aliasGroup(long)+`\b`)
	}

	add("preposition", 0, High, `\b`+oneOf(prepositions)+`\s+`+all+`\b`)
	add("property", 1, High, `\b`+oneOf(propertyTypes)+`\s+`+oneOf(prepositions)+`\s+(?:the\s+)?`+all+`\b`)
	add("subject", 1, High, `\b`+all+`\s+`+oneOf(subjectVerbs)+`\s+(?:a|an|the)\b`)

	if len(area.Qualifiers) > 0 {
		add("qualifier", 2, High, `\b`+all+`\s*[-–,]\s*`+phraseGroup(area.Qualifiers))
	}

	add("possessive", 2, Medium, `\b`+oneOf(possessives)+`\s+`+all+`(?:'s|\s+(?:residents|facilities|apartments|units))`)

	if len(plain) > 0 {
		add("standalone", 3, Medium, `\b`+aliasGroup(plain)+`\b`)
	}

	if len(landmarks) > 0 {
		add("landmark", 5, Low, `\b`+aliasGroup(landmarks)+`\b`)
	}

	return rs
}

func containsLandmark(alias string, landmarks []string) bool {
	key := textutils.FoldKey(alias)
	for _, l := range landmarks {
		if lk := textutils.FoldKey(l); lk != "" && strings.Contains(key, lk) {
			return true
		}
	}

	return false
}

// phrasePattern quotes a phrase so that any run of whitespace matches
// between its words.
func phrasePattern(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}

	return strings.Join(words, `\s+`)
}

// aliasGroup is a capturing alternation. The order of aliases is kept, so
// longer aliases win at the same offset.
func aliasGroup(aliases []string) string {
	return "(" + alternation(aliases) + ")"
}

func phraseGroup(phrases []string) string {
	return "(?:" + alternation(phrases) + ")"
}

func alternation(phrases []string) string {
	parts := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if q := phrasePattern(p); q != "" {
			parts = append(parts, q)
		}
	}

	return strings.Join(parts, "|")
}

func oneOf(words []string) string {
	return "(?:" + strings.Join(words, "|") + ")"
}

func itoa(i int) string {
	return textutils.FormatInt(int64(i))
}
