package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/mentortrack/internal/account"
	"github.com/zulandar/mentortrack/internal/db"
	"github.com/zulandar/mentortrack/internal/models"
	"github.com/zulandar/mentortrack/internal/progress"
	"github.com/zulandar/mentortrack/internal/report"
)

type submitRequest struct {
	ProductGroupID   uint               `json:"product_group_id"`
	Stage            string             `json:"planning_stage"`
	ProgressItems    string             `json:"progress_items"`
	ActionsTaken     string             `json:"actions_taken"`
	InsightsConcerns string             `json:"insights_concerns"`
	SelfEvaluation   int                `json:"self_evaluation"`
	Reflections      report.Reflections `json:"additional_responses"`
	ReportDate       *time.Time         `json:"report_date,omitempty"`
}

type groupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

type commentRequest struct {
	MentorID uint   `json:"mentor_id"`
	Body     string `json:"body"`
}

// reportJSON is the API view of a weekly report.
type reportJSON struct {
	ID               uint               `json:"id"`
	MenteeID         uint               `json:"mentee_id"`
	ProductGroupID   *uint              `json:"product_group_id"`
	ProductGroupName string             `json:"product_group_name"`
	Stage            string             `json:"planning_stage"`
	StageLabel       string             `json:"planning_stage_label"`
	ProgressItems    string             `json:"progress_items"`
	ActionsTaken     string             `json:"actions_taken"`
	InsightsConcerns string             `json:"insights_concerns"`
	SelfEvaluation   int                `json:"self_evaluation"`
	Reflections      report.Reflections `json:"additional_responses"`
	WeekStart        time.Time          `json:"week_start"`
	ReportDate       time.Time          `json:"report_date"`
}

type commentJSON struct {
	ID        uint      `json:"id"`
	MentorID  uint      `json:"mentor_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type groupJSON struct {
	ID          uint      `json:"id"`
	MenteeID    uint      `json:"mentee_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
}

func toReportJSON(r *models.WeeklyReport) reportJSON {
	// Undecodable reflections render as empty answers.
	refl, _ := report.DecodeReflections(r)
	return reportJSON{
		ID:               r.ID,
		MenteeID:         r.MenteeID,
		ProductGroupID:   r.ProductGroupID,
		ProductGroupName: r.ProductGroupName,
		Stage:            r.PlanningStage,
		StageLabel:       progress.Stage(r.PlanningStage).Label(),
		ProgressItems:    r.ProgressItems,
		ActionsTaken:     r.ActionsTaken,
		InsightsConcerns: r.InsightsConcerns,
		SelfEvaluation:   r.SelfEvaluation,
		Reflections:      refl,
		WeekStart:        r.WeekStart,
		ReportDate:       r.ReportDate,
	}
}

func toGroupJSON(g *models.ProductGroup) groupJSON {
	return groupJSON{
		ID:          g.ID,
		MenteeID:    g.MenteeID,
		Name:        g.Name,
		Description: g.Description,
		Images:      report.GroupImages(g),
		CreatedAt:   g.CreatedAt,
	}
}

func (s *server) handleMentees(c *gin.Context) {
	rows, err := MenteeOverview(s.db)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentees": rows})
}

func (s *server) handleSampleMentee(c *gin.Context) {
	u, created, err := db.EnsureSampleMentee(s.db)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"id": u.ID, "name": u.Name, "email": u.Email, "created": created})
}

// requireMentee resolves the :id path parameter to an existing mentee.
func (s *server) requireMentee(c *gin.Context) (uint, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return 0, false
	}
	if _, err := account.RequireRole(s.db, id, models.RoleMentee); err != nil {
		writeError(c, err)
		return 0, false
	}
	return id, true
}

func (s *server) handleProgress(c *gin.Context) {
	id, ok := s.requireMentee(c)
	if !ok {
		return
	}
	weeks, ok := weeksQuery(c, s.windowWeeks)
	if !ok {
		return
	}
	summaries, err := s.agg.Compute(c.Request.Context(), id, weeks)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentee_id": id, "weeks": weeks, "product_groups": summaries})
}

func (s *server) handleAnalysis(c *gin.Context) {
	id, ok := s.requireMentee(c)
	if !ok {
		return
	}
	weeks, ok := weeksQuery(c, s.analysisWeeks)
	if !ok {
		return
	}
	a, err := s.agg.Analyze(c.Request.Context(), id, weeks)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *server) handleReportList(c *gin.Context) {
	id, ok := s.requireMentee(c)
	if !ok {
		return
	}
	reports, err := report.List(s.db, report.ListFilters{MenteeID: id})
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]reportJSON, len(reports))
	for i := range reports {
		out[i] = toReportJSON(&reports[i])
	}
	c.JSON(http.StatusOK, gin.H{"reports": out})
}

func (s *server) handleReportSubmit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts := report.SubmitOpts{
		MenteeID:         id,
		ProductGroupID:   req.ProductGroupID,
		Stage:            req.Stage,
		ProgressItems:    req.ProgressItems,
		ActionsTaken:     req.ActionsTaken,
		InsightsConcerns: req.InsightsConcerns,
		SelfEvaluation:   req.SelfEvaluation,
		Reflections:      req.Reflections,
	}
	if req.ReportDate != nil {
		opts.ReportDate = *req.ReportDate
	}
	r, err := report.Submit(s.db, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReportJSON(r))
}

func (s *server) handleReportDetail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r, err := report.Get(s.db, id)
	if err != nil {
		writeError(c, err)
		return
	}
	prev, err := report.Previous(s.db, r)
	if err != nil {
		writeError(c, err)
		return
	}

	comments := make([]commentJSON, len(r.Comments))
	for i, cm := range r.Comments {
		comments[i] = commentJSON{ID: cm.ID, MentorID: cm.MentorID, Body: cm.Body, CreatedAt: cm.CreatedAt}
	}
	resp := gin.H{"report": toReportJSON(r), "comments": comments, "previous": nil}
	if prev != nil {
		resp["previous"] = toReportJSON(prev)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) handleCommentCreate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cm, err := report.AddComment(s.db, id, req.MentorID, req.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentJSON{ID: cm.ID, MentorID: cm.MentorID, Body: cm.Body, CreatedAt: cm.CreatedAt})
}

func (s *server) handleGroupList(c *gin.Context) {
	id, ok := s.requireMentee(c)
	if !ok {
		return
	}
	groups, err := report.ListGroups(s.db, id)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]groupJSON, len(groups))
	for i := range groups {
		out[i] = toGroupJSON(&groups[i])
	}
	c.JSON(http.StatusOK, gin.H{"product_groups": out})
}

func (s *server) handleGroupCreate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := report.CreateGroup(s.db, report.GroupOpts{
		MenteeID:    id,
		Name:        req.Name,
		Description: req.Description,
		Images:      req.Images,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toGroupJSON(g))
}

func (s *server) handleGroupRename(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := report.RenameGroup(s.db, id, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGroupJSON(g))
}

func (s *server) handleGroupDelete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := report.DeleteGroup(s.db, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
