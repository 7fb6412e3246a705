// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"regexp"
	"strings"

	"github.com/jcodagnone/buildingid/utils/textutils"
)

// DefaultExclusionWindow is how many characters before a match are inspected
// for an exclusion phrase.
const DefaultExclusionWindow = 150

// Phrases that put the following building in a view, proximity, tourism or
// comparison context rather than naming where the guest stays.
var exclusionPatterns = []*regexp.Regexp{
	// views and proximity
	regexp.MustCompile(`(?i)\bviews?\s+(?:of|over|to|towards|across|onto|on)\s+`),
	regexp.MustCompile(`(?i)\boverlooking\s+(?:the\s+)?`),
	regexp.MustCompile(`(?i)\bfacing\s+(?:the\s+)?`),
	regexp.MustCompile(`(?i)\bclose\s+(?:proximity\s+)?to\s+`),
	regexp.MustCompile(`(?i)\bnear(?:by)?\s+(?:to\s+)?(?:the\s+)?`),
	regexp.MustCompile(`(?i)\bwalking\s+distance\s+(?:to|from)\s+`),
	regexp.MustCompile(`(?i)\bminutes?\s+(?:from|to|away|walk)\s+`),
	regexp.MustCompile(`(?i)\bproximity\s+to\s+`),
	regexp.MustCompile(`(?i)\baccess\s+to\s+`),
	regexp.MustCompile(`(?i)\bnext\s+to\s+`),
	regexp.MustCompile(`(?i)\bopposite\s+`),
	regexp.MustCompile(`(?i)\bacross\s+from\s+`),
	regexp.MustCompile(`(?i)\bshort\s+(?:walk|drive|distance)\s+(?:to|from)\s+`),

	// tourism
	regexp.MustCompile(`(?i)\bperfect\s+for\s+visiting\s+`),
	regexp.MustCompile(`(?i)\bexplore\s+`),
	regexp.MustCompile(`(?i)\bvisit\s+`),
	regexp.MustCompile(`(?i)\biconic\s+`),

	// comparison and metaphor
	regexp.MustCompile(`(?i)\blike\s+(?:a|an|the)\s+`),
	regexp.MustCompile(`(?i)\bsimilar\s+to\s+`),
	regexp.MustCompile(`(?i)\breminiscent\s+of\s+`),
	regexp.MustCompile(`(?i)\b(?:a|an|your|the)\s+\w+\s+dream`),
	regexp.MustCompile(`(?i)\bas\s+(?:good|nice|beautiful|luxurious)\s+as\s+`),
}

const sentenceTerminators = ".!?\n"

// exclusionWindow returns the part of the current sentence that precedes
// start, at most n runes long.
func exclusionWindow(text string, start, n int) string {
	window := textutils.TailRunes(text[:start], n)
	if i := strings.LastIndexAny(window, sentenceTerminators); i >= 0 {
		window = window[i+1:]
	}

	return window
}

// A phrase that says where the guest stays ends an exclusion context, as in
// "views of Atlantis from this studio in Shoreline".
var releasePattern = regexp.MustCompile(`(?i)\b` + oneOf(propertyTypes) + `s?\s+` + oneOf(prepositions) + `\b|` +
	`\b(?:located|situated|residing|based|positioned|stay|staying|live|living)\s+(?:at|in|within)\b`)

// excluded reports whether the occurrence text[start:end] sits in an
// exclusion context. The last exclusion phrase in the window covers every
// building named after it, including ones joined by "and", "&", "," or "or",
// until a release phrase appears between it and the end of the occurrence.
func excluded(text string, start, end, n int) bool {
	window := exclusionWindow(text, start, n)
	if window == "" {
		return false
	}

	last := -1

	for _, re := range exclusionPatterns {
		for _, loc := range re.FindAllStringIndex(window, -1) {
			if loc[1] > last {
				last = loc[1]
			}
		}
	}

	if last < 0 {
		return false
	}

	return !releasePattern.MatchString(window[last:] + text[start:end])
}
