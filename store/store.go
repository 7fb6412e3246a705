// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists identification results in DuckDB.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver
	"github.com/rotisserie/eris"
	"github.com/uber/h3-go/v4"

	"github.com/jcodagnone/buildingid/identify"
	"github.com/jcodagnone/buildingid/spatial"
)

// H3 resolutions stored with every located result: from neighbourhood (7)
// down to a single tower footprint (10).
const (
	MinH3Res = 7
	MaxH3Res = 10

	h3Levels = MaxH3Res - MinH3Res + 1
)

// ErrNotFound is returned by Get for an unknown listing.
var ErrNotFound = errors.New("result not found")

// Record is a stored identification result.
type Record struct {
	ListingID  string         `json:"listing_id"`
	Building   string         `json:"building,omitempty"`
	Canonical  string         `json:"canonical,omitempty"`
	Area       string         `json:"area,omitempty"`
	UnitType   string         `json:"unit_type,omitempty"`
	Confidence string         `json:"confidence,omitempty"`
	Method     string         `json:"method,omitempty"`
	Status     string         `json:"status"`
	Distance   *float64       `json:"distance_meters,omitempty"`
	Point      *spatial.Point `json:"point,omitempty"`
	Error      string         `json:"error,omitempty"`

	Bedrooms      string `json:"bedrooms,omitempty"`
	Bathrooms     string `json:"bathrooms,omitempty"`
	Revenue       string `json:"revenue,omitempty"`
	Occupancy     string `json:"occupancy,omitempty"`
	ADR           string `json:"adr,omitempty"`
	DaysAvailable string `json:"days_available,omitempty"`

	// H3 holds the cells of Point at MinH3Res..MaxH3Res.
	H3        [h3Levels]int64 `json:"-"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// FromResult converts an identification result into a record.
func FromResult(r identify.Result) *Record {
	l := r.Listing
	rec := &Record{
		ListingID:     l.ID,
		Building:      r.Building,
		Canonical:     r.Canonical,
		Area:          r.Area,
		UnitType:      r.UnitType,
		Confidence:    string(r.Confidence),
		Method:        string(r.Method),
		Status:        string(r.Status),
		Distance:      r.Distance,
		Error:         r.Error,
		Bedrooms:      l.Bedrooms,
		Bathrooms:     l.Bathrooms,
		Revenue:       l.Revenue,
		Occupancy:     l.Occupancy,
		ADR:           l.ADR,
		DaysAvailable: l.DaysAvailable,
	}

	if p, ok := spatial.NewPoint(l.Lat, l.Lng); ok {
		rec.Point = p
	}

	return rec
}

func (rec *Record) computeH3() error {
	rec.H3 = [h3Levels]int64{}

	if rec.Point == nil || !rec.Point.IsFinite() {
		return nil
	}

	for res := MinH3Res; res <= MaxH3Res; res++ {
		cell, err := rec.Point.Cell(res)
		if err != nil {
			return eris.Wrapf(err, "listing %s", rec.ListingID)
		}

		rec.H3[res-MinH3Res] = int64(cell)
	}

	return nil
}

// Filter narrows ListResults. Zero values mean no restriction.
type Filter struct {
	Status string
	Area   string

	// Named keeps only results with a building name.
	Named bool

	// Cell keeps only results inside an H3 cell of resolution
	// MinH3Res..MaxH3Res.
	Cell h3.Cell

	Limit  int
	Offset int
}

// CellCount is the number of results located in one H3 cell.
type CellCount struct {
	Cell     h3.Cell        `json:"cell"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// Cell returns the stored H3 cell of the record at res.
func (rec *Record) Cell(res int) (h3.Cell, bool) {
	if res < MinH3Res || res > MaxH3Res || rec.H3[res-MinH3Res] == 0 {
		return 0, false
	}

	return h3.Cell(rec.H3[res-MinH3Res]), true
}

func h3Column(res int) (string, error) {
	if res < MinH3Res || res > MaxH3Res {
		return "", eris.Errorf("store: h3 resolution %d outside %d..%d", res, MinH3Res, MaxH3Res)
	}

	return fmt.Sprintf("h3_res%d", res), nil
}

// Repository handles persistence of identification results.
type Repository interface {
	// CreateSchema creates the results table
	CreateSchema(ctx context.Context) error

	// SaveResult inserts or replaces the result of a listing
	SaveResult(ctx context.Context, rec *Record) error

	// BulkSave saves many results in one transaction
	BulkSave(ctx context.Context, recs []*Record) error

	// Get returns the result of one listing
	Get(ctx context.Context, listingID string) (*Record, error)

	// ListResults returns results ordered by listing id
	ListResults(ctx context.Context, f Filter) ([]*Record, error)

	// CountByStatus counts results per status
	CountByStatus(ctx context.Context) (map[string]int, error)

	// CountByCell counts located results per H3 cell at res, busiest first
	CountByCell(ctx context.Context, res int) ([]CellCount, error)

	// KnownVillas returns the ids of listings already classified as villas
	KnownVillas(ctx context.Context) (map[string]bool, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a result repository over db.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

// Open opens the DuckDB database at path. An empty path opens an in-memory
// database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, eris.Wrapf(err, "opening duckdb %q", path)
	}

	return db, nil
}

// DB returns the underlying database connection for advanced queries.
func (r *sqlRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS results (
			listing_id VARCHAR PRIMARY KEY,
			building VARCHAR,
			canonical VARCHAR,
			area VARCHAR,
			unit_type VARCHAR,
			confidence VARCHAR,
			method VARCHAR,
			status VARCHAR NOT NULL,
			distance_meters DOUBLE,
			lat DOUBLE,
			lng DOUBLE,
			error VARCHAR,
			bedrooms VARCHAR,
			bathrooms VARCHAR,
			revenue VARCHAR,
			occupancy VARCHAR,
			adr VARCHAR,
			days_available VARCHAR,
			h3_res7 BIGINT,
			h3_res8 BIGINT,
			h3_res9 BIGINT,
			h3_res10 BIGINT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return eris.Wrap(err, "store: create schema")
}

const upsertSQL = `
	INSERT OR REPLACE INTO results(
		listing_id, building, canonical, area, unit_type, confidence, method,
		status, distance_meters, lat, lng, error,
		bedrooms, bathrooms, revenue, occupancy, adr, days_available,
		h3_res7, h3_res8, h3_res9, h3_res10, updated_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (r *sqlRepository) SaveResult(ctx context.Context, rec *Record) error {
	return r.BulkSave(ctx, []*Record{rec})
}

func (r *sqlRepository) BulkSave(ctx context.Context, recs []*Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin")
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return errors.Join(eris.Wrap(err, "store: prepare"), tx.Rollback())
	}
	defer stmt.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)

	for _, rec := range recs {
		if rec.ListingID == "" {
			return errors.Join(errors.New("store: listing id can't be empty"), tx.Rollback())
		}

		if err := rec.computeH3(); err != nil {
			return errors.Join(err, tx.Rollback())
		}

		rec.UpdatedAt = now

		var lat, lng any
		if rec.Point != nil {
			lat, lng = rec.Point.Lat, rec.Point.Lng
		}

		if _, err := stmt.ExecContext(ctx,
			rec.ListingID,
			nullString(rec.Building),
			nullString(rec.Canonical),
			nullString(rec.Area),
			nullString(rec.UnitType),
			nullString(rec.Confidence),
			nullString(rec.Method),
			rec.Status,
			nullFloat(rec.Distance),
			lat,
			lng,
			nullString(rec.Error),
			nullString(rec.Bedrooms),
			nullString(rec.Bathrooms),
			nullString(rec.Revenue),
			nullString(rec.Occupancy),
			nullString(rec.ADR),
			nullString(rec.DaysAvailable),
			nullCell(rec.H3[0]),
			nullCell(rec.H3[1]),
			nullCell(rec.H3[2]),
			nullCell(rec.H3[3]),
			rec.UpdatedAt,
		); err != nil {
			return errors.Join(eris.Wrapf(err, "store: save result %s", rec.ListingID), tx.Rollback())
		}
	}

	return eris.Wrap(tx.Commit(), "store: commit")
}

const selectSQL = `
	SELECT listing_id, building, canonical, area, unit_type, confidence, method,
	       status, distance_meters, lat, lng, error,
	       bedrooms, bathrooms, revenue, occupancy, adr, days_available,
	       h3_res7, h3_res8, h3_res9, h3_res10, updated_at
	FROM results
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	rec := &Record{}

	var (
		building, canonical, area, unitType, confidence, method, errMsg sql.NullString
		bedrooms, bathrooms, revenue, occupancy, adr, daysAvailable     sql.NullString
		distance, lat, lng                                              sql.NullFloat64
		h3                                                              [h3Levels]sql.NullInt64
	)

	err := row.Scan(
		&rec.ListingID, &building, &canonical, &area, &unitType, &confidence, &method,
		&rec.Status, &distance, &lat, &lng, &errMsg,
		&bedrooms, &bathrooms, &revenue, &occupancy, &adr, &daysAvailable,
		&h3[0], &h3[1], &h3[2], &h3[3], &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Building = building.String
	rec.Canonical = canonical.String
	rec.Area = area.String
	rec.UnitType = unitType.String
	rec.Confidence = confidence.String
	rec.Method = method.String
	rec.Error = errMsg.String
	rec.Bedrooms = bedrooms.String
	rec.Bathrooms = bathrooms.String
	rec.Revenue = revenue.String
	rec.Occupancy = occupancy.String
	rec.ADR = adr.String
	rec.DaysAvailable = daysAvailable.String

	if distance.Valid {
		d := distance.Float64
		rec.Distance = &d
	}

	if lat.Valid && lng.Valid {
		rec.Point = &spatial.Point{Lat: lat.Float64, Lng: lng.Float64}
	}

	for i := range h3 {
		if h3[i].Valid {
			rec.H3[i] = h3[i].Int64
		}
	}

	return rec, nil
}

func (r *sqlRepository) Get(ctx context.Context, listingID string) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, selectSQL+" WHERE listing_id = ?", listingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "listing %s", listingID)
	}

	if err != nil {
		return nil, eris.Wrapf(err, "store: get %s", listingID)
	}

	return rec, nil
}

func (r *sqlRepository) ListResults(ctx context.Context, f Filter) ([]*Record, error) {
	var (
		where []string
		args  []any
	)

	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	if f.Area != "" {
		where = append(where, "area = ?")
		args = append(args, f.Area)
	}

	if f.Named {
		where = append(where, "building IS NOT NULL AND trim(building) <> ''")
	}

	if f.Cell != 0 {
		col, err := h3Column(f.Cell.Resolution())
		if err != nil {
			return nil, err
		}

		where = append(where, col+" = ?")
		args = append(args, int64(f.Cell))
	}

	query := selectSQL
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY listing_id"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)

		if f.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", f.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list results")
	}
	defer rows.Close()

	var ret []*Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan result")
		}

		ret = append(ret, rec)
	}

	return ret, eris.Wrap(rows.Err(), "store: list results")
}

func (r *sqlRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM results GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "store: count by status")
	}
	defer rows.Close()

	ret := make(map[string]int)

	for rows.Next() {
		var (
			status string
			n      int
		)

		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "store: count by status")
		}

		ret[status] = n
	}

	return ret, eris.Wrap(rows.Err(), "store: count by status")
}

func (r *sqlRepository) CountByCell(ctx context.Context, res int) ([]CellCount, error) {
	col, err := h3Column(res)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %[1]s, status, count(*) FROM results WHERE %[1]s IS NOT NULL GROUP BY %[1]s, status`, col))
	if err != nil {
		return nil, eris.Wrap(err, "store: count by cell")
	}
	defer rows.Close()

	idx := make(map[int64]int)

	var ret []CellCount

	for rows.Next() {
		var (
			cell   int64
			status string
			n      int
		)

		if err := rows.Scan(&cell, &status, &n); err != nil {
			return nil, eris.Wrap(err, "store: count by cell")
		}

		i, ok := idx[cell]
		if !ok {
			i = len(ret)
			idx[cell] = i
			ret = append(ret, CellCount{Cell: h3.Cell(cell), ByStatus: make(map[string]int)})
		}

		ret[i].Total += n
		ret[i].ByStatus[status] += n
	}

	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: count by cell")
	}

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Total != ret[j].Total {
			return ret[i].Total > ret[j].Total
		}

		return ret[i].Cell < ret[j].Cell
	})

	return ret, nil
}

func (r *sqlRepository) KnownVillas(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT listing_id FROM results WHERE status = ?`, string(identify.StatusVilla))
	if err != nil {
		return nil, eris.Wrap(err, "store: known villas")
	}
	defer rows.Close()

	ret := make(map[string]bool)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "store: known villas")
		}

		ret[id] = true
	}

	return ret, eris.Wrap(rows.Err(), "store: known villas")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}

	return *f
}

func nullCell(c int64) any {
	if c == 0 {
		return nil
	}

	return c
}
