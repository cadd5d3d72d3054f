package config

import "sync"

// Credentials are the three user-editable secrets of the dashboard.
type Credentials struct {
	AirtableToken  string `json:"airtable_token"`
	TelegramToken  string `json:"telegram_token"`
	TelegramChatID string `json:"telegram_chat_id"`
}

// AirtableConfigured reports whether recipe fetches can be authorized.
func (c Credentials) AirtableConfigured() bool {
	return c.AirtableToken != ""
}

// TelegramConfigured reports whether the bot can be reached.
func (c Credentials) TelegramConfigured() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// CredentialsHolder shares the current credentials between the adapters,
// which read them on every call, and the settings action, which replaces them.
type CredentialsHolder struct {
	mu    sync.RWMutex
	creds Credentials
}

// NewCredentialsHolder creates a holder with initial credentials.
func NewCredentialsHolder(c Credentials) *CredentialsHolder {
	return &CredentialsHolder{creds: c}
}

// Get returns a copy of the current credentials.
func (h *CredentialsHolder) Get() Credentials {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.creds
}

// Set replaces the credentials.
func (h *CredentialsHolder) Set(c Credentials) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.creds = c
}
