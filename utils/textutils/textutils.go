// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils holds the string normalization helpers shared by the
// gazetteer and the extractor.
package textutils

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// FoldKey is the comparison key for names and aliases: folded, lowercased and
// with every whitespace run collapsed to a single space.
func FoldKey(s string) string {
	return strings.Join(strings.Fields(LowerASCIIFolding(s)), " ")
}

// CollapseSpaces trims s and collapses internal whitespace runs.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TailRunes returns the suffix of s holding at most n runes.
func TailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}

	i := len(s)
	for count := 0; i > 0 && count < n; count++ {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}

	return s[i:]
}

// FormatInt formats an integer with commas for human readability.
func FormatInt(n int64) string {
	in := strconv.FormatInt(n, 10)

	numOfDigits := len(in)
	if n < 0 {
		numOfDigits-- // First character is the - sign (not a digit)
	}

	numOfCommas := (numOfDigits - 1) / 3

	out := make([]byte, len(in)+numOfCommas)
	if n < 0 {
		in, out[0] = in[1:], '-'
	}

	for i, j, k := len(in)-1, len(out)-1, 0; ; i, j = i-1, j-1 {
		out[j] = in[i]
		if i == 0 {
			return string(out)
		}

		if k++; k == 3 {
			j, k = j-1, 0
			out[j] = ','
		}
	}
}
