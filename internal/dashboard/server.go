// Package dashboard serves the MentorTrack JSON API.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/zulandar/mentortrack/internal/progress"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	DB            *gorm.DB
	Port          int
	Out           io.Writer
	CORSOrigins   []string
	WindowWeeks   int // default look-back for /progress
	AnalysisWeeks int // default look-back for /analysis
}

// Start launches the API server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("dashboard: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 5000
	}

	gin.SetMode(gin.ReleaseMode)
	handler := NewHandler(opts)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "MentorTrack API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// NewHandler builds the gin router with all API routes, wrapped in CORS
// handling. With no origins configured every origin is allowed.
func NewHandler(opts StartOpts) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &server{
		db:            opts.DB,
		windowWeeks:   progress.ClampWeeks(opts.WindowWeeks, progress.DefaultWindowWeeks),
		analysisWeeks: progress.ClampWeeks(opts.AnalysisWeeks, progress.DefaultAnalysisWeeks),
	}
	if opts.DB != nil {
		s.agg = newAggregator(opts.DB)
	}
	registerRoutes(router, s)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
}
