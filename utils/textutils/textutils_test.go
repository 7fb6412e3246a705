// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerAsciiFolding(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello world"},
		{"  Spaces  ", "spaces"},
		{"Áéíóú", "aeiou"},
		{"Crème Brûlée", "creme brulee"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LowerASCIIFolding(tc.input))
		})
	}
}

func TestFoldKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"FIVE PALM JUMEIRAH", "five palm jumeirah"},
		{"  Five\n Palm\tJumeirah ", "five palm jumeirah"},
		{"Résidence", "residence"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, FoldKey(tc.input))
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "ZABEEL SARAY", CollapseSpaces(" ZABEEL \n  SARAY "))
	assert.Equal(t, "", CollapseSpaces("   "))
}

func TestTailRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"shorter than n", "abc", 10, "abc"},
		{"exact", "abc", 3, "abc"},
		{"cut", "abcdef", 2, "ef"},
		{"multibyte", "vue sur l'été", 3, "été"},
		{"zero", "abc", 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TailRunes(tc.input, tc.n))
		})
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatInt(tc.input))
		})
	}
}
