package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/mentortrack/internal/models"
	"github.com/zulandar/mentortrack/internal/report"
	"gorm.io/gorm"
)

// Poll and heartbeat intervals for the event stream.
var (
	ssePollInterval      = 3 * time.Second
	sseHeartbeatInterval = 15 * time.Second
)

// reportEvent announces a newly submitted weekly report.
type reportEvent struct {
	ID               uint      `json:"id"`
	MenteeID         uint      `json:"mentee_id"`
	ProductGroupName string    `json:"product_group_name"`
	Stage            string    `json:"planning_stage"`
	SelfEvaluation   int       `json:"self_evaluation"`
	ReportDate       time.Time `json:"report_date"`
}

// handleSSE streams a "report" event for every report submitted after the
// client connects.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if db == nil {
			return
		}

		// Only announce reports newer than the current maximum.
		var lastSeenID uint
		var latest models.WeeklyReport
		if err := db.Select("id").Order("id DESC").Limit(1).First(&latest).Error; err == nil {
			lastSeenID = latest.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(ssePollInterval)
		heartbeat := time.NewTicker(sseHeartbeatInterval)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				reports, err := report.SubmittedSince(db.WithContext(ctx), lastSeenID, 50)
				if err != nil {
					log.Printf("dashboard: poll reports: %v", err)
					continue
				}
				for _, r := range reports {
					writeSSE(c.Writer, "report", reportEvent{
						ID:               r.ID,
						MenteeID:         r.MenteeID,
						ProductGroupName: r.ProductGroupName,
						Stage:            r.PlanningStage,
						SelfEvaluation:   r.SelfEvaluation,
						ReportDate:       r.ReportDate,
					})
					lastSeenID = r.ID
				}
				if len(reports) > 0 {
					c.Writer.Flush()
				}
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
