// Package banner holds the per-session message feed shown at the top of the
// kiosk page.
package banner

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
)

// Level is the bootstrap alert level of a message.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Danger  Level = "danger"
)

// Message is one banner.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	Level     Level      `json:"level"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Notifier receives banners. The submitter and the desks write through it.
type Notifier interface {
	Notify(level Level, text string, ttl time.Duration)
}

// Feed is a goroutine-safe list of banners. Messages with a TTL disappear on
// their own; the others stay until dismissed.
type Feed struct {
	mu       sync.Mutex
	messages []Message
	now      func() time.Time
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{now: time.Now}
}

// Add appends a message. A ttl of zero or less keeps it until dismissed.
func (f *Feed) Add(level Level, text string, ttl time.Duration) Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg := Message{
		ID:        uuid.New(),
		Level:     level,
		Text:      text,
		CreatedAt: f.now(),
	}
	if ttl > 0 {
		expires := msg.CreatedAt.Add(ttl)
		msg.ExpiresAt = &expires
	}
	f.messages = append(f.messages, msg)
	return msg
}

// Notify implements Notifier.
func (f *Feed) Notify(level Level, text string, ttl time.Duration) {
	f.Add(level, text, ttl)
}

// ErrMsg adds one danger banner per message carried by err. API errors are
// fanned out field by field.
func (f *Feed) ErrMsg(err error, ttl time.Duration) []Message {
	if err == nil {
		return nil
	}
	texts := []string{err.Error()}
	if apiErr, ok := noteapi.AsAPIError(err); ok {
		if msgs := apiErr.Messages(); len(msgs) > 0 {
			texts = msgs
		}
	}

	added := make([]Message, 0, len(texts))
	for _, text := range texts {
		added = append(added, f.Add(Danger, text, ttl))
	}
	return added
}

// Dismiss removes a message.
func (f *Feed) Dismiss(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, msg := range f.messages {
		if msg.ID == id {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrMessageNotFound
}

// List returns the live messages, oldest first, and forgets expired ones.
func (f *Feed) List() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	live := f.messages[:0]
	for _, msg := range f.messages {
		if msg.ExpiresAt == nil || now.Before(*msg.ExpiresAt) {
			live = append(live, msg)
		}
	}
	f.messages = live

	out := make([]Message, len(live))
	copy(out, live)
	return out
}

var feedTemplate = template.Must(template.New("messages").Parse(
	`{{range .}}<div class="alert alert-{{.Level}} alert-dismissible" id="message-{{.ID}}">` +
		`<button class="close" data-dismiss="alert" data-action="/api/messages/{{.ID}}"><span aria-hidden="true">×</span></button>{{.Text}}</div>
{{end}}`))

// Fragment renders the live messages.
func (f *Feed) Fragment() (template.HTML, error) {
	var buf bytes.Buffer
	if err := feedTemplate.Execute(&buf, f.List()); err != nil {
		return "", fmt.Errorf("failed to render messages: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // output of html/template
}
