// Package chat holds the dashboard's chat transcript and the text rules
// applied to its messages.
package chat

import (
	"html/template"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who wrote a message.
type Sender string

const (
	User Sender = "user"
	Bot  Sender = "bot"
)

// Message is one transcript entry. Markdown is set on messages that came
// from the bot feed and carry Telegram formatting.
type Message struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Sender   Sender    `json:"sender"`
	Time     time.Time `json:"time"`
	Markdown bool      `json:"markdown,omitempty"`
}

// HTML renders the message text for the dashboard.
func (m Message) HTML() template.HTML {
	if m.Markdown {
		return FormatHTML(m.Text)
	}
	return PlainHTML(m.Text)
}

// Transcript is the append-only list of chat messages. It also remembers the
// ids of the bot messages already shown so a message read twice from the
// update feed appears once. It is not safe for concurrent use.
type Transcript struct {
	messages []Message
	seen     map[int]struct{}
	now      func() time.Time
}

// NewTranscript creates an empty transcript stamping messages with now.
func NewTranscript(now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	return &Transcript{
		seen: make(map[int]struct{}),
		now:  now,
	}
}

// AppendUser records a message typed by the user.
func (t *Transcript) AppendUser(text string) Message {
	return t.append(text, User, false)
}

// AppendBot records a notice or canned reply shown as coming from the bot.
func (t *Transcript) AppendBot(text string) Message {
	return t.append(text, Bot, false)
}

// AppendInbound records a bot message read from the update feed. It returns
// false when id was already seen or the message has no text; the id is
// remembered either way.
func (t *Transcript) AppendInbound(id int, text string) (Message, bool) {
	if _, ok := t.seen[id]; ok {
		return Message{}, false
	}
	t.seen[id] = struct{}{}

	if text == "" {
		return Message{}, false
	}
	return t.append(text, Bot, true), true
}

// Seen reports whether the inbound message id was already processed.
func (t *Transcript) Seen(id int) bool {
	_, ok := t.seen[id]
	return ok
}

// Messages returns a copy of the transcript in append order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

func (t *Transcript) append(text string, sender Sender, markdown bool) Message {
	m := Message{
		ID:       uuid.New(),
		Text:     text,
		Sender:   sender,
		Time:     t.now(),
		Markdown: markdown,
	}
	t.messages = append(t.messages, m)
	return m
}
