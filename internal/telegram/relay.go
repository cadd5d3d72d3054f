package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// relayPayload is the JSON body accepted by the relay webhook.
type relayPayload struct {
	Text   string `json:"text"`
	ChatID string `json:"chat_id"`
}

// sendRelay posts the text to the relay webhook, which forwards it to the bot.
func (c *Client) sendRelay(ctx context.Context, chatID, text string) error {
	if c.cfg.RelayURL == "" {
		return fmt.Errorf("%w: relay url not set", ErrNotConfigured)
	}

	body, err := json.Marshal(relayPayload{Text: text, ChatID: chatID})
	if err != nil {
		return fmt.Errorf("failed to encode relay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RelayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.cfg.RelaySecret != "" {
		token, err := c.relayToken(chatID)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: relay: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: relay returned status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}

// relayToken signs a short-lived token the relay uses to authenticate us.
func (c *Client) relayToken(chatID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat":     now.Unix(),
		"exp":     now.Add(5 * time.Minute).Unix(),
		"chat_id": chatID,
	})

	signed, err := token.SignedString([]byte(c.cfg.RelaySecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign relay token: %w", err)
	}
	return signed, nil
}
