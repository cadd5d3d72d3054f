package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"meal-dashboard/internal/airtable"
	"meal-dashboard/internal/chat"
	"meal-dashboard/internal/config"
	"meal-dashboard/internal/metrics"
	"meal-dashboard/internal/planner"
	"meal-dashboard/internal/recipe"
	"meal-dashboard/internal/telegram"
	"meal-dashboard/internal/week"
)

// Delays applied before the follow-up actions of a message.
const (
	cannedReplyDelay   = 1 * time.Second
	recipeReloadDelay  = 2 * time.Second
	recipeSavedRefresh = 1 * time.Second
)

// RecipeSource reads the recipe and planning tables.
type RecipeSource interface {
	FetchRecipes(ctx context.Context) ([]recipe.Recipe, error)
	FetchPlanning(ctx context.Context, sel week.Selector) ([]planner.Entry, error)
}

// Messenger sends chat text to the bot and reads its messages back.
type Messenger interface {
	telegram.Source
	Send(ctx context.Context, text string) error
	Mode() string
}

// MetricsRecorder stores one row per external call.
type MetricsRecorder interface {
	Record(ctx context.Context, m metrics.CallMetric) error
}

// SettingsStore persists the credentials between runs.
type SettingsStore interface {
	Load(ctx context.Context) (config.Credentials, bool, error)
	Save(ctx context.Context, creds config.Credentials) error
}

// Scheduler runs f once after d and returns a function cancelling it. The
// cancel function reports whether f was prevented from running.
type Scheduler func(d time.Duration, f func()) (cancel func() bool)

func timerScheduler(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Option configures the App.
type Option func(*App)

// WithClock sets the time source used for the current week and message times.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithScheduler replaces the timer used for delayed replies and reloads.
func WithScheduler(s Scheduler) Option {
	return func(a *App) {
		a.schedule = s
	}
}

// WithMetrics records every adapter call in m.
func WithMetrics(m MetricsRecorder) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// WithSettingsStore persists saved credentials in s.
func WithSettingsStore(s SettingsStore) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithPollInterval sets the delay between two update polls.
func WithPollInterval(d time.Duration) Option {
	return func(a *App) {
		a.pollInterval = d
	}
}

// View is the rendered state of the selected week.
type View struct {
	Selector week.Selector     `json:"selector"`
	Label    string            `json:"label"`
	Days     []planner.DayView `json:"days"`
	Stats    planner.Stats     `json:"stats"`
}

// Status describes which services are usable, without exposing secrets.
type Status struct {
	AirtableConfigured bool   `json:"airtable_configured"`
	TelegramConfigured bool   `json:"telegram_configured"`
	Mode               string `json:"mode"`
	Polling            bool   `json:"polling"`
	Recipes            int    `json:"recipes"`
}

// App owns the dashboard state: the selected week, the loaded recipes and
// planning, and the chat transcript. All mutation goes through its methods;
// no external call is made while its lock is held.
type App struct {
	recipes   RecipeSource
	messenger Messenger
	creds     *config.CredentialsHolder
	log       *zap.Logger

	store        SettingsStore
	metrics      MetricsRecorder
	now          func() time.Time
	schedule     Scheduler
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	selector    week.Selector
	recipeSet   recipe.Set
	planning    []planner.Entry
	planningGen uint64
	transcript  *chat.Transcript
	poller      *telegram.Poller
	pending     map[int]func() bool
	nextTask    int
	tasks       sync.WaitGroup
	closed      bool
}

// New creates the App positioned on the current week.
func New(recipes RecipeSource, messenger Messenger, creds *config.CredentialsHolder, log *zap.Logger, opts ...Option) *App {
	a := &App{
		recipes:      recipes,
		messenger:    messenger,
		creds:        creds,
		log:          log,
		now:          time.Now,
		schedule:     timerScheduler,
		pollInterval: 2 * time.Second,
		recipeSet:    recipe.NewSet(nil),
		pending:      make(map[int]func() bool),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.selector = week.Current(a.now())
	a.transcript = chat.NewTranscript(a.now)
	return a
}

// Init restores saved credentials and loads the recipes then the planning of
// the current week. Without an Airtable token it only adds a setup prompt.
func (a *App) Init(ctx context.Context) {
	if a.store != nil {
		creds, saved, err := a.store.Load(ctx)
		switch {
		case err != nil:
			a.log.Error("Failed to load saved settings", zap.Error(err))
		case saved:
			a.creds.Set(creds)
		}
	}

	if !a.creds.Get().AirtableConfigured() {
		a.appendBot(chat.NoticeAirtableSetup)
		return
	}

	_ = a.ReloadRecipes(ctx)
	_ = a.ReloadPlanning(ctx)
}

// Start runs Init and starts polling when the bot feed is used.
func (a *App) Start(ctx context.Context) {
	a.Init(ctx)
	a.StartPolling()
}

// ReloadRecipes replaces the recipe set with a fresh copy of the table.
func (a *App) ReloadRecipes(ctx context.Context) error {
	start := time.Now()
	recs, err := a.recipes.FetchRecipes(ctx)
	a.record(ctx, metrics.AdapterAirtable, "fetch_recipes", start, err)

	if err != nil {
		switch {
		case errors.Is(err, airtable.ErrNotConfigured):
			a.log.Debug("Recipes not loaded", zap.Error(err))
		case errors.Is(err, airtable.ErrNetwork):
			a.log.Error("Failed to reach Airtable", zap.Error(err))
			a.appendBot(chat.NoticeAirtableUnreachable)
		default:
			a.log.Error("Failed to load recipes", zap.Error(err))
			a.appendBot(chat.NoticeRecipesFailed)
		}
		return fmt.Errorf("failed to load recipes: %w", err)
	}

	set := recipe.NewSet(recs)
	a.mu.Lock()
	a.recipeSet = set
	a.mu.Unlock()

	a.log.Info("Recipes loaded", zap.Int("count", set.Len()))
	return nil
}

// ReloadPlanning fetches the planning of the selected week. When the planning
// table is not configured a demo planning is used instead. A response that
// arrives after the selection changed again is dropped.
func (a *App) ReloadPlanning(ctx context.Context) error {
	a.mu.Lock()
	a.planningGen++
	gen := a.planningGen
	sel := a.selector
	a.mu.Unlock()

	start := time.Now()
	entries, err := a.recipes.FetchPlanning(ctx, sel)
	a.record(ctx, metrics.AdapterAirtable, "fetch_planning", start, err)

	a.mu.Lock()
	if gen != a.planningGen {
		a.mu.Unlock()
		a.log.Debug("Dropping stale planning", zap.Int("week", sel.Week), zap.Int("year", sel.Year))
		return nil
	}

	if errors.Is(err, airtable.ErrNotConfigured) {
		a.planning = planner.DemoPlanning(sel, week.Current(a.now()), a.recipeSet)
		a.mu.Unlock()
		a.log.Debug("Using demo planning", zap.Error(err))
		return nil
	}
	if err != nil {
		a.planning = nil
		a.transcript.AppendBot(chat.NoticePlanningFailed)
		a.mu.Unlock()
		a.log.Error("Failed to load planning", zap.Int("week", sel.Week), zap.Int("year", sel.Year), zap.Error(err))
		return fmt.Errorf("failed to load planning: %w", err)
	}

	a.planning = entries
	a.mu.Unlock()
	a.log.Info("Planning loaded", zap.Int("week", sel.Week), zap.Int("year", sel.Year), zap.Int("entries", len(entries)))
	return nil
}

// ChangeWeek moves the selection one week in direction and reloads the
// planning.
func (a *App) ChangeWeek(ctx context.Context, direction int) View {
	a.mu.Lock()
	a.selector = week.Advance(a.selector, direction)
	a.mu.Unlock()

	_ = a.ReloadPlanning(ctx)
	return a.Week()
}

// SelectWeek jumps to sel and reloads the planning.
func (a *App) SelectWeek(ctx context.Context, sel week.Selector) error {
	if sel.Week < 1 || sel.Week > week.WeeksPerYear {
		return fmt.Errorf("week must be between 1 and %d, got %d", week.WeeksPerYear, sel.Week)
	}

	a.mu.Lock()
	a.selector = sel
	a.mu.Unlock()
	return a.ReloadPlanning(ctx)
}

// Week builds the view of the selected week from the current state.
func (a *App) Week() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	return View{
		Selector: a.selector,
		Label:    fmt.Sprintf("Semaine %d - %d", a.selector.Week, a.selector.Year),
		Days:     planner.BuildWeekGrid(a.selector, a.recipeSet, a.planning),
		Stats:    planner.ComputeWeeklyStats(a.selector, a.recipeSet, a.planning),
	}
}

// Transcript returns the chat messages in order.
func (a *App) Transcript() []chat.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript.Messages()
}

// Status reports the configured services and the polling state.
func (a *App) Status() Status {
	creds := a.creds.Get()

	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{
		AirtableConfigured: creds.AirtableConfigured(),
		TelegramConfigured: creds.TelegramConfigured(),
		Mode:               a.messenger.Mode(),
		Polling:            a.poller != nil && a.poller.Running(),
		Recipes:            a.recipeSet.Len(),
	}
}

// SendMessage appends the user's text to the transcript and sends it to the
// bot. Blank text is ignored. Failures are reported in the transcript and
// returned. In direct mode a canned reply follows a successful send.
func (a *App) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	a.appendUser(text)

	start := time.Now()
	err := a.messenger.Send(ctx, text)
	a.record(ctx, metrics.AdapterTelegram, "send", start, err)

	if err != nil {
		a.log.Error("Failed to send message", zap.String("mode", a.messenger.Mode()), zap.Error(err))
		a.appendBot(a.sendNotice(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if a.messenger.Mode() == config.ModeDirect {
		reply := chat.CannedReply(text)
		a.after(cannedReplyDelay, func(ctx context.Context) {
			a.appendBot(reply.Text)
			if reply.ReloadRecipes {
				a.after(recipeReloadDelay, func(ctx context.Context) {
					_ = a.ReloadRecipes(ctx)
				})
			}
		})
	}
	return nil
}

func (a *App) sendNotice(err error) string {
	switch {
	case errors.Is(err, telegram.ErrNotConfigured):
		return chat.NoticeTelegramSetup
	case errors.Is(err, telegram.ErrUnreachable):
		if a.messenger.Mode() == config.ModeRelay {
			return chat.NoticeRelayUnreachable
		}
		return chat.NoticeBotUnreachable
	default:
		return chat.NoticeSendFailed
	}
}

// SaveSettings persists creds, makes them current, reloads the data and
// restarts polling with the new bot credentials.
func (a *App) SaveSettings(ctx context.Context, creds config.Credentials) error {
	if a.store != nil {
		if err := a.store.Save(ctx, creds); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	a.creds.Set(creds)
	a.appendBot(chat.NoticeSettingsSaved)
	a.log.Info("Settings saved",
		zap.Bool("airtable", creds.AirtableConfigured()),
		zap.Bool("telegram", creds.TelegramConfigured()))

	_ = a.ReloadRecipes(ctx)
	_ = a.ReloadPlanning(ctx)

	a.StopPolling()
	a.StartPolling()
	return nil
}

// StartPolling starts reading the bot feed when running in relay mode with
// Telegram configured. It is a no-op when already polling.
func (a *App) StartPolling() {
	if a.messenger.Mode() != config.ModeRelay || !a.creds.Get().TelegramConfigured() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.poller != nil {
		return
	}

	a.poller = telegram.NewPoller(instrumentedSource{a}, a.ingest, a.log, telegram.WithInterval(a.pollInterval))
	a.poller.Start(a.ctx)
}

// StopPolling halts the poll loop and waits for it to exit.
func (a *App) StopPolling() {
	a.mu.Lock()
	p := a.poller
	a.poller = nil
	a.mu.Unlock()

	if p != nil {
		p.Stop()
	}
}

// ingest appends the new bot messages of a batch. A recipe confirmation
// schedules a recipe reload.
func (a *App) ingest(batch telegram.Batch) {
	reload := false

	a.mu.Lock()
	for _, m := range batch.Messages {
		if _, ok := a.transcript.AppendInbound(m.ID, m.Text); ok && chat.IsRecipeSaved(m.Text) {
			reload = true
		}
	}
	a.mu.Unlock()

	if reload {
		a.after(recipeSavedRefresh, func(ctx context.Context) {
			_ = a.ReloadRecipes(ctx)
		})
	}
}

// Close stops polling and cancels the pending delayed actions.
func (a *App) Close() {
	a.mu.Lock()
	a.closed = true
	pending := a.pending
	a.pending = make(map[int]func() bool)
	a.mu.Unlock()

	a.StopPolling()
	a.cancel()

	// A nil cancel belongs to a task still being scheduled; it will find
	// itself missing from pending and return.
	for _, cancel := range pending {
		if cancel != nil && cancel() {
			a.tasks.Done()
		}
	}
	a.tasks.Wait()
}

// after runs f once d has elapsed, unless the App is closed first.
func (a *App) after(d time.Duration, f func(ctx context.Context)) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	id := a.nextTask
	a.nextTask++
	a.pending[id] = nil
	a.tasks.Add(1)
	a.mu.Unlock()

	cancel := a.schedule(d, func() {
		defer a.tasks.Done()

		a.mu.Lock()
		_, live := a.pending[id]
		delete(a.pending, id)
		a.mu.Unlock()

		if live && a.ctx.Err() == nil {
			f(a.ctx)
		}
	})

	a.mu.Lock()
	if _, ok := a.pending[id]; ok {
		a.pending[id] = cancel
	}
	a.mu.Unlock()
}

func (a *App) appendUser(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript.AppendUser(text)
}

func (a *App) appendBot(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript.AppendBot(text)
}

func (a *App) record(ctx context.Context, adapter, operation string, start time.Time, err error) {
	if a.metrics == nil {
		return
	}
	if rerr := a.metrics.Record(ctx, metrics.Since(adapter, operation, start, err)); rerr != nil {
		a.log.Warn("Failed to record metric", zap.String("operation", operation), zap.Error(rerr))
	}
}

// instrumentedSource records a metric for every feed read of the poller.
type instrumentedSource struct {
	app *App
}

func (s instrumentedSource) Recent(ctx context.Context) (telegram.Batch, error) {
	start := time.Now()
	batch, err := s.app.messenger.Recent(ctx)
	s.app.record(ctx, metrics.AdapterTelegram, "recent", start, err)
	return batch, err
}

func (s instrumentedSource) Poll(ctx context.Context, since int) (telegram.Batch, error) {
	start := time.Now()
	batch, err := s.app.messenger.Poll(ctx, since)
	s.app.record(ctx, metrics.AdapterTelegram, "poll", start, err)
	return batch, err
}
