// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the identification engine as a local JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jcodagnone/buildingid/extraction"
	"github.com/jcodagnone/buildingid/identify"
	"github.com/jcodagnone/buildingid/listing"
	"github.com/jcodagnone/buildingid/spatial"
	"github.com/jcodagnone/buildingid/store"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	svc     *identify.Service
	repo    store.Repository // nil when no store is configured
	origins []string
	log     *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins enables CORS for the given origins, e.g.
// "http://localhost:3000".
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = append(s.origins, origins...)
	}
}

// NewServer returns a server over svc. repo may be nil, in which case the
// results endpoints are not registered and identifications are not persisted.
func NewServer(svc *identify.Service, repo store.Repository, opts ...Option) *Server {
	s := &Server{
		svc:  svc,
		repo: repo,
		log:  zap.L().With(zap.String("component", "server")),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	if len(s.origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/api/areas", s.listAreas)
	r.GET("/api/areas/:id/buildings", s.listBuildings)
	r.POST("/api/extract", s.extract)
	r.POST("/api/validate", s.validate)
	r.GET("/api/closest", s.closest)
	r.POST("/api/identify", s.identify)

	if s.repo != nil {
		r.GET("/api/results", s.listResults)
		r.GET("/api/results/stats", s.resultStats)
		r.GET("/api/results/cells", s.resultCells)
		r.GET("/api/results/:id", s.getResult)
	}

	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}

	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		s.log.Debug("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

type AreaInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Buildings   int    `json:"buildings"`
}

func (s *Server) listAreas(ctx *gin.Context) {
	areas := s.svc.Registry().Areas()

	ret := make([]AreaInfo, 0, len(areas))
	for _, a := range areas {
		ret = append(ret, AreaInfo{
			ID:          a.ID,
			DisplayName: a.DisplayName,
			Description: a.Description,
			Buildings:   len(a.Buildings()),
		})
	}

	ctx.JSON(http.StatusOK, ret)
}

func (s *Server) listBuildings(ctx *gin.Context) {
	area, ok := s.svc.Registry().Area(ctx.Param("id"))
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "unknown area"})

		return
	}

	ctx.JSON(http.StatusOK, area.Buildings())
}

type ExtractRequest struct {
	Text    string   `json:"text"`
	Area    string   `json:"area"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Explain bool     `json:"explain"`
}

type ExtractResponse struct {
	Building   *string                `json:"building"`
	Confidence *extraction.Confidence `json:"confidence"`
	Rule       string                 `json:"rule,omitempty"`
	Area       string                 `json:"area"`
	Candidates []extraction.Candidate `json:"candidates,omitempty"`
}

func (s *Server) extract(ctx *gin.Context) {
	var req ExtractRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	area := req.Area
	if area == "" {
		area = s.svc.AreaFor(req.Lat, req.Lng)
	}

	resp := ExtractResponse{Area: area}

	if m, ok := s.svc.Extractor().Extract(req.Text, area); ok {
		resp.Building = &m.Name
		resp.Confidence = &m.Confidence
		resp.Rule = m.Rule
	}

	if req.Explain {
		resp.Candidates = s.svc.Extractor().Explain(req.Text, area)
	}

	ctx.JSON(http.StatusOK, resp)
}

type ValidateRequest struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Building string   `json:"building" binding:"required"`
}

func (s *Server) validate(ctx *gin.Context) {
	var req ValidateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, s.svc.Validator().Validate(req.Lat, req.Lng, req.Building))
}

func (s *Server) closest(ctx *gin.Context) {
	lat, err := strconv.ParseFloat(ctx.Query("lat"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat"})

		return
	}

	lng, err := strconv.ParseFloat(ctx.Query("lng"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid lng"})

		return
	}

	ctx.JSON(http.StatusOK, s.svc.Validator().FindClosestBuilding(&lat, &lng))
}

type IdentifyRequest struct {
	Listing listing.Listing `json:"listing"`
}

func (s *Server) identify(ctx *gin.Context) {
	var req IdentifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	res := s.svc.Identify(req.Listing)

	if s.repo != nil && req.Listing.ID != "" {
		if err := s.repo.SaveResult(ctx.Request.Context(), store.FromResult(res)); err != nil {
			s.log.Error("saving result", zap.String("listing", req.Listing.ID), zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save result"})

			return
		}
	}

	ctx.JSON(http.StatusOK, res)
}

func (s *Server) listResults(ctx *gin.Context) {
	f := store.Filter{
		Status: ctx.Query("status"),
		Area:   ctx.Query("area"),
	}

	if p := ctx.Query("named"); p != "" {
		named, err := strconv.ParseBool(p)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid named"})

			return
		}

		f.Named = named
	}

	if p := ctx.Query("cell"); p != "" {
		cell, err := spatial.ParseCell(p)
		if err != nil || cell.Resolution() < store.MinH3Res || cell.Resolution() > store.MaxH3Res {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid cell"})

			return
		}

		f.Cell = cell
	}

	if p := ctx.Query("limit"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})

			return
		}

		f.Limit = n
	}

	if p := ctx.Query("offset"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})

			return
		}

		f.Offset = n
	}

	recs, err := s.repo.ListResults(ctx.Request.Context(), f)
	if err != nil {
		s.log.Error("listing results", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list results"})

		return
	}

	if recs == nil {
		recs = []*store.Record{}
	}

	ctx.JSON(http.StatusOK, recs)
}

func (s *Server) getResult(ctx *gin.Context) {
	rec, err := s.repo.Get(ctx.Request.Context(), ctx.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "result not found"})

		return
	}

	if err != nil {
		s.log.Error("getting result", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get result"})

		return
	}

	ctx.JSON(http.StatusOK, rec)
}

func (s *Server) resultStats(ctx *gin.Context) {
	counts, err := s.repo.CountByStatus(ctx.Request.Context())
	if err != nil {
		s.log.Error("counting results", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count results"})

		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	ctx.JSON(http.StatusOK, gin.H{"total": total, "by_status": counts})
}

func (s *Server) resultCells(ctx *gin.Context) {
	res := 9

	if p := ctx.Query("res"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < store.MinH3Res || n > store.MaxH3Res {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid res"})

			return
		}

		res = n
	}

	counts, err := s.repo.CountByCell(ctx.Request.Context(), res)
	if err != nil {
		s.log.Error("counting results per cell", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count results"})

		return
	}

	if counts == nil {
		counts = []store.CellCount{}
	}

	ctx.JSON(http.StatusOK, counts)
}
