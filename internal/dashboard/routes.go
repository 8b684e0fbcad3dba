package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/mentortrack/internal/account"
	"github.com/zulandar/mentortrack/internal/progress"
	"github.com/zulandar/mentortrack/internal/report"
	"gorm.io/gorm"
)

// server carries the dependencies shared by handlers.
type server struct {
	db            *gorm.DB
	agg           *progress.Aggregator
	windowWeeks   int
	analysisWeeks int
}

var newAggregator = func(db *gorm.DB) *progress.Aggregator {
	return report.NewAggregator(db)
}

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, s *server) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/mentees", s.handleMentees)
	api.POST("/mentees/sample", s.handleSampleMentee)
	api.GET("/mentees/:id/progress", s.handleProgress)
	api.GET("/mentees/:id/analysis", s.handleAnalysis)
	api.GET("/mentees/:id/reports", s.handleReportList)
	api.POST("/mentees/:id/reports", s.handleReportSubmit)
	api.GET("/mentees/:id/groups", s.handleGroupList)
	api.POST("/mentees/:id/groups", s.handleGroupCreate)
	api.PATCH("/groups/:id", s.handleGroupRename)
	api.DELETE("/groups/:id", s.handleGroupDelete)
	api.GET("/reports/:id", s.handleReportDetail)
	api.POST("/reports/:id/comments", s.handleCommentCreate)

	api.GET("/events", handleSSE(s.db))
}

// errorStatus maps package sentinels onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, report.ErrNotFound), errors.Is(err, account.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, report.ErrInvalidInput), errors.Is(err, account.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// weeksQuery reads ?weeks=, falling back to def and clamping to [1,52].
func weeksQuery(c *gin.Context, def int) (int, bool) {
	raw := c.Query("weeks")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weeks must be an integer"})
		return 0, false
	}
	return progress.ClampWeeks(n, def), true
}
