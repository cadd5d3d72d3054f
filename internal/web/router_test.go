package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meal-dashboard/internal/app"
	"meal-dashboard/internal/chat"
	"meal-dashboard/internal/config"
	"meal-dashboard/internal/metrics"
	"meal-dashboard/internal/planner"
	"meal-dashboard/internal/recipe"
	"meal-dashboard/internal/week"
)

type fakeDashboard struct {
	sel        week.Selector
	recipes    recipe.Set
	entries    []planner.Entry
	transcript *chat.Transcript
	saved      []config.Credentials
	sendErr    error
	saveErr    error
	reloadErr  error
	reloads    int
	directions []int
}

func newFakeDashboard() *fakeDashboard {
	recipes := recipe.NewSet([]recipe.Recipe{{ID: "r1", Name: "Poulet curry", Calories: 512.4, Protein: 30.6}})
	return &fakeDashboard{
		sel:        week.Selector{Week: 10, Year: 2024},
		recipes:    recipes,
		entries:    []planner.Entry{{Date: "2024-03-04", Moment: planner.Lunch, Recipe: "r1"}},
		transcript: chat.NewTranscript(func() time.Time { return time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC) }),
	}
}

func (f *fakeDashboard) Week() app.View {
	return app.View{
		Selector: f.sel,
		Label:    "Semaine 10 - 2024",
		Days:     planner.BuildWeekGrid(f.sel, f.recipes, f.entries),
		Stats:    planner.ComputeWeeklyStats(f.sel, f.recipes, f.entries),
	}
}

func (f *fakeDashboard) ChangeWeek(ctx context.Context, direction int) app.View {
	f.directions = append(f.directions, direction)
	f.sel = week.Advance(f.sel, direction)
	return f.Week()
}

func (f *fakeDashboard) Transcript() []chat.Message { return f.transcript.Messages() }

func (f *fakeDashboard) SendMessage(ctx context.Context, text string) error {
	f.transcript.AppendUser(text)
	if f.sendErr != nil {
		f.transcript.AppendBot(chat.NoticeSendFailed)
		return f.sendErr
	}
	f.transcript.AppendBot(chat.CannedReply(text).Text)
	return nil
}

func (f *fakeDashboard) SaveSettings(ctx context.Context, creds config.Credentials) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, creds)
	return nil
}

func (f *fakeDashboard) ReloadRecipes(ctx context.Context) error {
	f.reloads++
	return f.reloadErr
}

func (f *fakeDashboard) Status() app.Status {
	return app.Status{AirtableConfigured: true, Mode: config.ModeRelay, Recipes: f.recipes.Len()}
}

type fakeUsage struct {
	days  int
	usage []metrics.DailyUsage
	err   error
}

func (f *fakeUsage) GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	f.days = days
	return f.usage, f.err
}

func newTestRouter(t *testing.T, d Dashboard, u UsageReporter) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	health := func() metrics.SysHealth { return metrics.SysHealth{Status: "ok", Uptime: "1m0s"} }
	r, err := NewRouter(d, u, health, zap.NewNop())
	require.NoError(t, err)
	return r.Handler()
}

func do(h http.Handler, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestIndexPage(t *testing.T) {
	d := newFakeDashboard()
	d.transcript.AppendInbound(7, "**Tarte** aux *pommes*")
	h := newTestRouter(t, d, nil)

	w := do(h, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)

	assert.Equal(t, "Semaine 10 - 2024", doc.Find(".week-label").Text())
	assert.Equal(t, 7, doc.Find(".day-column").Length())
	assert.Equal(t, "Poulet curry", doc.Find(".meal-name").First().Text())
	assert.Equal(t, "512 kcal · 31g prot", doc.Find(".meal-macros").First().Text())
	assert.Equal(t, 13, doc.Find(".meal.empty").Length())
	assert.Contains(t, doc.Find(".avg-calories").Text(), "73 kcal/jour")

	msg := doc.Find(".message.bot")
	require.Equal(t, 1, msg.Length())
	assert.Equal(t, "Tarte", msg.Find("strong").Text())
	assert.Equal(t, "pommes", msg.Find("em").Text())
}

func TestIndexEscapesUserText(t *testing.T) {
	d := newFakeDashboard()
	d.transcript.AppendUser("<script>alert(1)</script> **gras**")
	h := newTestRouter(t, d, nil)

	w := do(h, http.MethodGet, "/", "", "")
	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)

	user := doc.Find(".message.user")
	assert.Equal(t, 0, user.Find("script").Length())
	assert.Equal(t, 0, user.Find("strong").Length())
	assert.Contains(t, user.Text(), "<script>")
}

func TestForms(t *testing.T) {
	const form = "application/x-www-form-urlencoded"

	t.Run("WeekNavigation", func(t *testing.T) {
		d := newFakeDashboard()
		h := newTestRouter(t, d, nil)

		w := do(h, http.MethodPost, "/week/next", "", form)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		do(h, http.MethodPost, "/week/prev", "", form)
		assert.Equal(t, []int{1, -1}, d.directions)
	})

	t.Run("Chat", func(t *testing.T) {
		d := newFakeDashboard()
		h := newTestRouter(t, d, nil)

		w := do(h, http.MethodPost, "/chat", url.Values{"message": {"planning"}}.Encode(), form)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		msgs := d.Transcript()
		require.Len(t, msgs, 2)
		assert.Equal(t, chat.ReplyPlanning, msgs[1].Text)
	})

	t.Run("ChatFailureStillRedirects", func(t *testing.T) {
		d := newFakeDashboard()
		d.sendErr = errors.New("boom")
		h := newTestRouter(t, d, nil)

		w := do(h, http.MethodPost, "/chat", url.Values{"message": {"salut"}}.Encode(), form)
		assert.Equal(t, http.StatusSeeOther, w.Code)
	})

	t.Run("Settings", func(t *testing.T) {
		d := newFakeDashboard()
		h := newTestRouter(t, d, nil)

		body := url.Values{"airtableToken": {"pat"}, "telegramToken": {"bot"}, "telegramChatId": {"42"}}.Encode()
		w := do(h, http.MethodPost, "/settings", body, form)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, []config.Credentials{{AirtableToken: "pat", TelegramToken: "bot", TelegramChatID: "42"}}, d.saved)
	})

	t.Run("SettingsFailure", func(t *testing.T) {
		d := newFakeDashboard()
		d.saveErr = errors.New("disk full")
		h := newTestRouter(t, d, nil)

		w := do(h, http.MethodPost, "/settings", url.Values{"airtableToken": {"pat"}}.Encode(), form)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestWeekAPI(t *testing.T) {
	d := newFakeDashboard()
	h := newTestRouter(t, d, nil)

	w := do(h, http.MethodGet, "/api/week", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var view app.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, week.Selector{Week: 10, Year: 2024}, view.Selector)
	assert.Len(t, view.Days, 7)
	assert.Equal(t, 1, view.Stats.PlannedMeals)

	w = do(h, http.MethodPost, "/api/week/next", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, week.Selector{Week: 11, Year: 2024}, view.Selector)

	w = do(h, http.MethodPost, "/api/week/sideways", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []int{1}, d.directions)
}

func TestChatAPI(t *testing.T) {
	type chatResponse struct {
		Error    string            `json:"error"`
		Messages []messageResponse `json:"messages"`
	}

	t.Run("Send", func(t *testing.T) {
		d := newFakeDashboard()
		h := newTestRouter(t, d, nil)

		w := do(h, http.MethodPost, "/api/chat", `{"text":"Liste de courses"}`, "application/json")
		require.Equal(t, http.StatusOK, w.Code)

		var resp chatResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Messages, 2)
		assert.Equal(t, chat.User, resp.Messages[0].Sender)
		assert.Equal(t, chat.ReplyShopping, resp.Messages[1].Text)
	})

	t.Run("Blank", func(t *testing.T) {
		h := newTestRouter(t, newFakeDashboard(), nil)
		w := do(h, http.MethodPost, "/api/chat", `{"text":"   "}`, "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DeliveryFailure", func(t *testing.T) {
		d := newFakeDashboard()
		d.sendErr = errors.New("unreachable")
		h := newTestRouter(t, d, nil)

		w := do(h, http.MethodPost, "/api/chat", `{"text":"salut"}`, "application/json")
		assert.Equal(t, http.StatusBadGateway, w.Code)

		var resp chatResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unreachable", resp.Error)
		require.Len(t, resp.Messages, 2)
		assert.Equal(t, chat.NoticeSendFailed, resp.Messages[1].Text)
	})

	t.Run("List", func(t *testing.T) {
		d := newFakeDashboard()
		d.transcript.AppendBot("**ok**")
		h := newTestRouter(t, d, nil)

		w := do(h, http.MethodGet, "/api/chat", "", "")
		var resp chatResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, "<strong>ok</strong>", string(resp.Messages[0].HTML))
	})
}

func TestSettingsAPI(t *testing.T) {
	d := newFakeDashboard()
	h := newTestRouter(t, d, nil)

	w := do(h, http.MethodPost, "/api/settings",
		`{"airtable_token":"pat","telegram_token":"bot","telegram_chat_id":"42"}`, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", d.saved[0].TelegramChatID)
	assert.NotContains(t, w.Body.String(), "pat")

	w = do(h, http.MethodGet, "/api/settings", "", "")
	var status app.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.AirtableConfigured)
	assert.Equal(t, 1, status.Recipes)

	w = do(h, http.MethodPost, "/api/settings", `not json`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReloadRecipesAPI(t *testing.T) {
	d := newFakeDashboard()
	h := newTestRouter(t, d, nil)

	w := do(h, http.MethodPost, "/api/recipes/reload", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	d.reloadErr = errors.New("airtable down")
	w = do(h, http.MethodPost, "/api/recipes/reload", "", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 2, d.reloads)
}

func TestMetricsAPI(t *testing.T) {
	u := &fakeUsage{usage: []metrics.DailyUsage{{Date: "2024-03-04", Adapter: metrics.AdapterAirtable, Calls: 2}}}
	h := newTestRouter(t, newFakeDashboard(), u)

	w := do(h, http.MethodGet, "/api/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultUsageDays, u.days)
	assert.Contains(t, w.Body.String(), `"adapter":"airtable"`)

	do(h, http.MethodGet, "/api/metrics?days=30", "", "")
	assert.Equal(t, 30, u.days)

	w = do(h, http.MethodGet, "/api/metrics?days=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	u.err = errors.New("locked")
	w = do(h, http.MethodGet, "/api/metrics", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, newFakeDashboard(), nil)

	w := do(h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = do(h, http.MethodGet, "/api/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"usage":[]`)
}
