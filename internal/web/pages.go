package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meal-dashboard/internal/app"
	"meal-dashboard/internal/chat"
	"meal-dashboard/internal/config"
)

type pageData struct {
	View     app.View
	Messages []chat.Message
	Status   app.Status
}

func (r *Router) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{
		View:     r.dashboard.Week(),
		Messages: r.dashboard.Transcript(),
		Status:   r.dashboard.Status(),
	})
}

func (r *Router) weekForm(direction int) gin.HandlerFunc {
	return func(c *gin.Context) {
		r.dashboard.ChangeWeek(c.Request.Context(), direction)
		c.Redirect(http.StatusSeeOther, "/")
	}
}

// chatForm sends the message; failures are already reported in the
// transcript shown after the redirect.
func (r *Router) chatForm(c *gin.Context) {
	_ = r.dashboard.SendMessage(c.Request.Context(), c.PostForm("message"))
	c.Redirect(http.StatusSeeOther, "/")
}

func (r *Router) settingsForm(c *gin.Context) {
	creds := config.Credentials{
		AirtableToken:  c.PostForm("airtableToken"),
		TelegramToken:  c.PostForm("telegramToken"),
		TelegramChatID: c.PostForm("telegramChatId"),
	}
	if err := r.dashboard.SaveSettings(c.Request.Context(), creds); err != nil {
		r.log.Sugar().Errorw("Failed to save settings", "error", err)
		c.String(http.StatusInternalServerError, "Failed to save settings")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
