package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"meal-dashboard/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned when the bot token, the chat id or the
	// relay URL needed by the current mode is missing.
	ErrNotConfigured = errors.New("telegram is not configured")
	// ErrDeliveryFailed is returned when the service answered with an error.
	ErrDeliveryFailed = errors.New("message delivery failed")
	// ErrUnreachable is returned when no answer could be obtained.
	ErrUnreachable = errors.New("messaging service is unreachable")
)

// bootstrapCount is how many recent updates are read when polling starts.
const bootstrapCount = 10

// InboundMessage is a bot-originated message read from the update feed.
type InboundMessage struct {
	ID   int       `json:"id"`
	Text string    `json:"text"`
	Date time.Time `json:"date"`
}

// Batch is the result of one update fetch. LastUpdateID is the high-water
// mark to poll from next; it covers updates that were filtered out.
type Batch struct {
	Messages     []InboundMessage
	LastUpdateID int
}

// Client wraps the Telegram Bot API for the configured chat. Outbound text
// goes to the bot directly or through the relay webhook depending on the
// configured mode; inbound messages are always read with getUpdates.
type Client struct {
	cfg        config.TelegramConfig
	creds      *config.CredentialsHolder
	httpClient *http.Client
	log        *zap.Logger

	mu       sync.Mutex
	api      *tgbotapi.BotAPI
	apiToken string
}

// NewClient creates a client reading its credentials from creds on every call.
func NewClient(cfg config.TelegramConfig, creds *config.CredentialsHolder, log *zap.Logger) *Client {
	return &Client{
		cfg:   cfg,
		creds: creds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// Mode returns the configured outbound mode.
func (c *Client) Mode() string {
	return c.cfg.Mode
}

// Send delivers text to the configured chat. It does not wait for a reply.
func (c *Client) Send(ctx context.Context, text string) error {
	creds := c.creds.Get()
	if !creds.TelegramConfigured() {
		return ErrNotConfigured
	}

	if c.cfg.Mode == config.ModeRelay {
		return c.sendRelay(ctx, creds.TelegramChatID, text)
	}
	return c.sendDirect(creds, text)
}

func (c *Client) sendDirect(creds config.Credentials, text string) error {
	api, err := c.botAPI(creds.TelegramToken)
	if err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(creds.TelegramChatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(creds.TelegramChatID, text)
	}

	if _, err := api.Send(msg); err != nil {
		return classify("sendMessage", err)
	}
	return nil
}

// Recent reads the last few updates of the feed, as done once when polling
// starts.
func (c *Client) Recent(ctx context.Context) (Batch, error) {
	return c.fetch(tgbotapi.UpdateConfig{Offset: -bootstrapCount, Limit: bootstrapCount}, 0)
}

// Poll reads every update newer than sinceUpdateID.
func (c *Client) Poll(ctx context.Context, sinceUpdateID int) (Batch, error) {
	return c.fetch(tgbotapi.UpdateConfig{Offset: sinceUpdateID + 1, Timeout: c.cfg.PollTimeout}, sinceUpdateID)
}

func (c *Client) fetch(u tgbotapi.UpdateConfig, since int) (Batch, error) {
	creds := c.creds.Get()
	if !creds.TelegramConfigured() {
		return Batch{LastUpdateID: since}, ErrNotConfigured
	}

	api, err := c.botAPI(creds.TelegramToken)
	if err != nil {
		return Batch{LastUpdateID: since}, err
	}

	updates, err := api.GetUpdates(u)
	if err != nil {
		return Batch{LastUpdateID: since}, classify("getUpdates", err)
	}
	return FilterUpdates(updates, creds.TelegramChatID, since), nil
}

// FilterUpdates keeps the messages posted in chatID by anyone other than
// chatID itself, so echoes of the user's own messages are dropped.
func FilterUpdates(updates []tgbotapi.Update, chatID string, since int) Batch {
	batch := Batch{LastUpdateID: since}
	for _, u := range updates {
		if u.UpdateID > batch.LastUpdateID {
			batch.LastUpdateID = u.UpdateID
		}

		m := u.Message
		if m == nil || m.Chat == nil {
			continue
		}
		if strconv.FormatInt(m.Chat.ID, 10) != chatID {
			continue
		}
		if m.From != nil && strconv.FormatInt(m.From.ID, 10) == chatID {
			continue
		}
		batch.Messages = append(batch.Messages, InboundMessage{
			ID:   m.MessageID,
			Text: m.Text,
			Date: m.Time(),
		})
	}
	return batch
}

// botAPI returns a Bot API handle for token, creating it when the token changed.
func (c *Client) botAPI(token string) (*tgbotapi.BotAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api != nil && c.apiToken == token {
		return c.api, nil
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, c.cfg.APIEndpoint, c.httpClient)
	if err != nil {
		return nil, classify("getMe", err)
	}
	c.log.Info("Authorized on bot account", zap.String("username", api.Self.UserName))

	c.api = api
	c.apiToken = token
	return api, nil
}

// classify maps Bot API errors to the package sentinels.
func classify(method string, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %v", ErrDeliveryFailed, method, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnreachable, method, err)
}
