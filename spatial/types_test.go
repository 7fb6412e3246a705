// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{
			name: "same point",
			a:    Point{Lat: 25.104334288891593, Lng: 55.14869174441605},
			b:    Point{Lat: 25.104334288891593, Lng: 55.14869174441605},
			want: 0,
			tol:  1e-9,
		},
		{
			name: "one degree of latitude",
			a:    Point{Lat: 0, Lng: 0},
			b:    Point{Lat: 1, Lng: 0},
			want: earthRadius * math.Pi / 180,
			tol:  1e-6,
		},
		{
			name: "five palm to one at palm",
			a:    Point{Lat: 25.104334288891593, Lng: 55.14869174441605},
			b:    Point{Lat: 25.103402706459573, Lng: 55.14986241168743},
			want: 155,
			tol:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.a.HaversineDistance(&tt.b), tt.tol)
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	points := []Point{
		{Lat: 25.130388378334434, Lng: 55.11713265962359},
		{Lat: 25.098499137118534, Lng: 55.14055790317492},
		{Lat: -34.9011, Lng: -56.1645},
		{Lat: 51.5074, Lng: -0.1278},
	}

	for i := range points {
		for j := range points {
			d1 := points[i].HaversineDistance(&points[j])
			d2 := points[j].HaversineDistance(&points[i])
			assert.InDelta(t, d1, d2, 1e-6)
		}
	}
}

func TestDistance(t *testing.T) {
	p := &Point{Lat: 25.1, Lng: 55.1}

	_, ok := Distance(nil, p)
	assert.False(t, ok)

	_, ok = Distance(p, nil)
	assert.False(t, ok)

	d, ok := Distance(p, p)
	require.True(t, ok)
	assert.Zero(t, d)
}

func TestNewPoint(t *testing.T) {
	lat, lng := 25.1, 55.1

	_, ok := NewPoint(&lat, nil)
	assert.False(t, ok)

	_, ok = NewPoint(nil, &lng)
	assert.False(t, ok)

	p, ok := NewPoint(&lat, &lng)
	require.True(t, ok)
	assert.Equal(t, Point{Lat: 25.1, Lng: 55.1}, *p)
}

func TestBoundsContains(t *testing.T) {
	b := Bounds{Lat: Range{Min: 25.09, Max: 25.14}, Lng: Range{Min: 55.10, Max: 55.16}}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"inside", Point{Lat: 25.11, Lng: 55.13}, true},
		{"lower corner", Point{Lat: 25.09, Lng: 55.10}, true},
		{"upper corner", Point{Lat: 25.14, Lng: 55.16}, true},
		{"north of box", Point{Lat: 25.1401, Lng: 55.13}, false},
		{"west of box", Point{Lat: 25.11, Lng: 55.0999}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Contains(tt.p))
		})
	}
}

func TestCell(t *testing.T) {
	p := Point{Lat: 25.104334288891593, Lng: 55.14869174441605}

	c9, err := p.Cell(9)
	require.NoError(t, err)
	assert.Equal(t, 9, c9.Resolution())

	parent, err := c9.Parent(7)
	require.NoError(t, err)

	c7, err := p.Cell(7)
	require.NoError(t, err)
	assert.Equal(t, c7, parent)

	_, err = p.Cell(16)
	assert.Error(t, err)
}

func TestIsFinite(t *testing.T) {
	assert.True(t, Point{Lat: 1, Lng: 2}.IsFinite())
	assert.False(t, Point{Lat: math.NaN(), Lng: 2}.IsFinite())
	assert.False(t, Point{Lat: 1, Lng: math.Inf(1)}.IsFinite())
}

func TestParseCell(t *testing.T) {
	c9, err := Point{Lat: 25.104334288891593, Lng: 55.14869174441605}.Cell(9)
	require.NoError(t, err)

	got, err := ParseCell(c9.String())
	require.NoError(t, err)
	assert.Equal(t, c9, got)

	got, err = ParseCell(" " + c9.String() + "\n")
	require.NoError(t, err)
	assert.Equal(t, c9, got)

	for _, s := range []string{"", "zz", "0", "ffffffffffffffff"} {
		_, err := ParseCell(s)
		assert.Error(t, err, s)
	}
}
