// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/buildingid/identify"
	"github.com/jcodagnone/buildingid/listing"
	"github.com/jcodagnone/buildingid/spatial"
)

func setupTestDB(t *testing.T) (*sql.DB, Repository) {
	t.Helper()

	db, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db)
	require.NoError(t, repo.CreateSchema(context.Background()))

	return db, repo
}

func ptr(f float64) *float64 { return &f }

func TestCreateSchema(t *testing.T) {
	db, repo := setupTestDB(t)

	var tableName string

	err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = 'results'").Scan(&tableName)
	require.NoError(t, err)
	assert.Equal(t, "results", tableName)

	// idempotent
	require.NoError(t, repo.CreateSchema(context.Background()))
	assert.Same(t, db, repo.DB())
}

func TestSaveAndGet(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	res := identify.Result{
		Listing: listing.Listing{
			ID:       "123",
			Title:    "Apartment located at Five Palm Jumeirah",
			Lat:      ptr(25.1045),
			Lng:      ptr(55.1487),
			Bedrooms: "2",
			Revenue:  "95,000",
		},
		Building:   "FIVE PALM JUMEIRAH, Palm Jumeirah",
		Canonical:  "FIVE PALM JUMEIRAH",
		Area:       "PALM_JUMEIRAH",
		UnitType:   identify.UnitApartment,
		Confidence: "high",
		Method:     identify.MethodText,
		Status:     identify.Status("validated"),
		Distance:   ptr(18.4),
	}

	rec := FromResult(res)
	require.NoError(t, repo.SaveResult(ctx, rec))

	got, err := repo.Get(ctx, "123")
	require.NoError(t, err)

	assert.Equal(t, "FIVE PALM JUMEIRAH, Palm Jumeirah", got.Building)
	assert.Equal(t, "FIVE PALM JUMEIRAH", got.Canonical)
	assert.Equal(t, "PALM_JUMEIRAH", got.Area)
	assert.Equal(t, "Apartment", got.UnitType)
	assert.Equal(t, "high", got.Confidence)
	assert.Equal(t, "text", got.Method)
	assert.Equal(t, "validated", got.Status)
	assert.Equal(t, "2", got.Bedrooms)
	assert.Equal(t, "95,000", got.Revenue)
	assert.Empty(t, got.Bathrooms)
	assert.Empty(t, got.Error)

	require.NotNil(t, got.Distance)
	assert.InDelta(t, 18.4, *got.Distance, 1e-9)

	require.NotNil(t, got.Point)
	assert.InDelta(t, 25.1045, got.Point.Lat, 1e-9)
	assert.InDelta(t, 55.1487, got.Point.Lng, 1e-9)

	cell, err := spatial.Point{Lat: 25.1045, Lng: 55.1487}.Cell(9)
	require.NoError(t, err)
	assert.Equal(t, int64(cell), got.H3[9-MinH3Res])
	assert.Equal(t, rec.H3, got.H3)

	for _, c := range got.H3 {
		assert.NotZero(t, c)
	}

	assert.False(t, got.UpdatedAt.IsZero())
	assert.WithinDuration(t, rec.UpdatedAt, got.UpdatedAt, 0)
}

func TestSaveWithoutCoordinates(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	rec := FromResult(identify.Result{Listing: listing.Listing{ID: "9"}, Status: identify.StatusNotFound})
	require.NoError(t, repo.SaveResult(ctx, rec))

	got, err := repo.Get(ctx, "9")
	require.NoError(t, err)
	assert.Nil(t, got.Point)
	assert.Nil(t, got.Distance)
	assert.Equal(t, [h3Levels]int64{}, got.H3)
	assert.Equal(t, "not_found", got.Status)
}

func TestSaveRejectsEmptyID(t *testing.T) {
	_, repo := setupTestDB(t)

	err := repo.SaveResult(context.Background(), &Record{Status: "villa"})
	require.Error(t, err)

	n, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Empty(t, n)
}

func TestUpsertReplaces(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveResult(ctx, &Record{ListingID: "1", Status: "not_found"}))
	require.NoError(t, repo.SaveResult(ctx, &Record{ListingID: "1", Status: "villa", UnitType: "Villa"}))

	got, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "villa", got.Status)
	assert.Equal(t, "Villa", got.UnitType)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"villa": 1}, counts)
}

func TestGetNotFound(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func seed(t *testing.T, repo Repository) {
	t.Helper()

	recs := []*Record{
		{ListingID: "a", Status: "validated", Area: "PALM_JUMEIRAH"},
		{ListingID: "b", Status: "villa"},
		{ListingID: "c", Status: "validated", Area: "PALM_JUMEIRAH"},
		{ListingID: "d", Status: "manual_check", Area: "PALM_JUMEIRAH"},
		{ListingID: "e", Status: "villa"},
		{ListingID: "f", Status: "validated", Area: "OTHER"},
	}
	require.NoError(t, repo.BulkSave(context.Background(), recs))
}

func TestListResults(t *testing.T) {
	_, repo := setupTestDB(t)
	seed(t, repo)

	ids := func(recs []*Record) []string {
		var ret []string
		for _, r := range recs {
			ret = append(ret, r.ListingID)
		}

		return ret
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"a", "b", "c", "d", "e", "f"}},
		{"by status", Filter{Status: "validated"}, []string{"a", "c", "f"}},
		{"by area", Filter{Area: "PALM_JUMEIRAH"}, []string{"a", "c", "d"}},
		{"status and area", Filter{Status: "validated", Area: "PALM_JUMEIRAH"}, []string{"a", "c"}},
		{"limit", Filter{Limit: 2}, []string{"a", "b"}},
		{"limit and offset", Filter{Limit: 2, Offset: 3}, []string{"d", "e"}},
		{"no match", Filter{Status: "wrong_location"}, nil},
		{"named only", Filter{Named: true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListResults(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestCountByStatus(t *testing.T) {
	_, repo := setupTestDB(t)
	seed(t, repo)

	got, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"validated": 3, "villa": 2, "manual_check": 1}, got)
}

func TestKnownVillas(t *testing.T) {
	_, repo := setupTestDB(t)
	seed(t, repo)

	got, err := repo.KnownVillas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"b": true, "e": true}, got)
}

func TestResultsByCell(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	five := &spatial.Point{Lat: 25.1045, Lng: 55.1487}
	atlantis := &spatial.Point{Lat: 25.1304, Lng: 55.1171}

	require.NoError(t, repo.BulkSave(ctx, []*Record{
		{ListingID: "1", Status: "validated", Point: five},
		{ListingID: "2", Status: "manual_check", Point: five},
		{ListingID: "3", Status: "validated", Point: atlantis},
		{ListingID: "4", Status: "not_found"},
	}))

	fiveCell, err := five.Cell(9)
	require.NoError(t, err)

	atlantisCell, err := atlantis.Cell(9)
	require.NoError(t, err)
	require.NotEqual(t, fiveCell, atlantisCell)

	got, err := repo.ListResults(ctx, Filter{Cell: fiveCell})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ListingID)
	assert.Equal(t, "2", got[1].ListingID)

	c, ok := got[0].Cell(9)
	require.True(t, ok)
	assert.Equal(t, fiveCell, c)

	parent, err := fiveCell.Parent(7)
	require.NoError(t, err)

	got, err = repo.ListResults(ctx, Filter{Cell: parent, Status: "validated"})
	require.NoError(t, err)
	assert.NotEmpty(t, got)

	coarse, err := fiveCell.Parent(5)
	require.NoError(t, err)

	_, err = repo.ListResults(ctx, Filter{Cell: coarse})
	assert.Error(t, err)

	counts, err := repo.CountByCell(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, []CellCount{
		{Cell: fiveCell, Total: 2, ByStatus: map[string]int{"validated": 1, "manual_check": 1}},
		{Cell: atlantisCell, Total: 1, ByStatus: map[string]int{"validated": 1}},
	}, counts)

	_, err = repo.CountByCell(ctx, 11)
	assert.Error(t, err)

	rec, err := repo.Get(ctx, "4")
	require.NoError(t, err)

	_, ok = rec.Cell(9)
	assert.False(t, ok)
}
