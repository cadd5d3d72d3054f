package web

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"meal-dashboard/internal/chat"
	"meal-dashboard/internal/config"
	"meal-dashboard/internal/metrics"
)

const defaultUsageDays = 7

type messageResponse struct {
	ID     uuid.UUID     `json:"id"`
	Text   string        `json:"text"`
	HTML   template.HTML `json:"html"`
	Sender chat.Sender   `json:"sender"`
	Time   time.Time     `json:"time"`
}

func toMessageResponses(msgs []chat.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			ID:     m.ID,
			Text:   m.Text,
			HTML:   m.HTML(),
			Sender: m.Sender,
			Time:   m.Time,
		})
	}
	return out
}

type chatRequest struct {
	Text string `json:"text"`
}

func (r *Router) getWeek(c *gin.Context) {
	c.JSON(http.StatusOK, r.dashboard.Week())
}

func (r *Router) changeWeek(c *gin.Context) {
	var direction int
	switch c.Param("direction") {
	case "prev":
		direction = -1
	case "next":
		direction = 1
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be prev or next"})
		return
	}
	c.JSON(http.StatusOK, r.dashboard.ChangeWeek(c.Request.Context(), direction))
}

func (r *Router) getChat(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": toMessageResponses(r.dashboard.Transcript())})
}

func (r *Router) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	status := http.StatusOK
	body := gin.H{}
	if err := r.dashboard.SendMessage(c.Request.Context(), req.Text); err != nil {
		status = http.StatusBadGateway
		body["error"] = err.Error()
	}
	body["messages"] = toMessageResponses(r.dashboard.Transcript())
	c.JSON(status, body)
}

func (r *Router) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, r.dashboard.Status())
}

func (r *Router) postSettings(c *gin.Context) {
	var creds config.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := r.dashboard.SaveSettings(c.Request.Context(), creds); err != nil {
		r.log.Error("Failed to save settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, r.dashboard.Status())
}

func (r *Router) reloadRecipes(c *gin.Context) {
	if err := r.dashboard.ReloadRecipes(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r.dashboard.Status())
}

func (r *Router) getMetrics(c *gin.Context) {
	days := defaultUsageDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	if r.usage == nil {
		c.JSON(http.StatusOK, gin.H{"days": days, "usage": []metrics.DailyUsage{}})
		return
	}

	usage, err := r.usage.GetDailyUsage(c.Request.Context(), days)
	if err != nil {
		r.log.Error("Failed to read metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read metrics"})
		return
	}
	if usage == nil {
		usage = []metrics.DailyUsage{}
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "usage": usage})
}
