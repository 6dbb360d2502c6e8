package banner

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
)

func TestFeed(t *testing.T) {
	t.Run("messages expire after their ttl", func(t *testing.T) {
		f := NewFeed()
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		f.now = func() time.Time { return now }

		f.Add(Success, "done", 10*time.Second)
		f.Add(Danger, "sticky", 0)

		if got := len(f.List()); got != 2 {
			t.Fatalf("Expected 2 messages, got %d", got)
		}

		now = now.Add(11 * time.Second)
		msgs := f.List()
		if len(msgs) != 1 || msgs[0].Text != "sticky" {
			t.Errorf("Expected only the sticky message, got %+v", msgs)
		}
	})

	t.Run("dismiss removes a message", func(t *testing.T) {
		f := NewFeed()
		msg := f.Add(Info, "hello", 0)

		if err := f.Dismiss(msg.ID); err != nil {
			t.Fatalf("Dismiss() returned unexpected error: %v", err)
		}
		if len(f.List()) != 0 {
			t.Error("Expected feed to be empty")
		}
		if err := f.Dismiss(uuid.New()); !errors.Is(err, apperrors.ErrMessageNotFound) {
			t.Errorf("Expected ErrMessageNotFound, got %v", err)
		}
	})

	t.Run("errmsg fans out api errors", func(t *testing.T) {
		f := NewFeed()
		err := &noteapi.APIError{
			StatusCode:  400,
			FieldErrors: map[string][]string{"name": {"already taken"}, "note": {"required"}},
		}

		added := f.ErrMsg(err, 0)
		if len(added) != 2 {
			t.Fatalf("Expected 2 banners, got %d", len(added))
		}
		for _, msg := range added {
			if msg.Level != Danger {
				t.Errorf("Expected danger level, got %s", msg.Level)
			}
		}
	})

	t.Run("errmsg falls back to the error text", func(t *testing.T) {
		f := NewFeed()
		added := f.ErrMsg(errors.New("connection refused"), 0)
		if len(added) != 1 || added[0].Text != "connection refused" {
			t.Errorf("Unexpected banners %+v", added)
		}
	})

	t.Run("fragment escapes text", func(t *testing.T) {
		f := NewFeed()
		f.Add(Warning, "<b>careful</b>", 0)

		html, err := f.Fragment()
		if err != nil {
			t.Fatalf("Fragment() returned unexpected error: %v", err)
		}
		if !strings.Contains(string(html), "alert-warning") || !strings.Contains(string(html), "&lt;b&gt;") {
			t.Errorf("Unexpected fragment %s", html)
		}
	})
}
