package logging

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

const (
	persistBuffer  = 256
	persistTimeout = 5 * time.Second
	requestIDField = "request_id"
)

// Sink stores persisted log entries.
type Sink interface {
	InsertLog(ctx context.Context, entry model.Log) error
}

// Persist returns a logger that also hands entries at or above level to sink.
// Entries are written from a background goroutine and dropped when the buffer
// is full. Close flushes what is pending.
func (l *Logger) Persist(sink Sink, level string) (*Logger, error) {
	lvl, err := parsePersistLevel(level)
	if err != nil {
		return nil, err
	}
	l.persist.SetLevel(lvl)

	w := &writer{
		sink:    sink,
		entries: make(chan model.Log, persistBuffer),
		done:    make(chan struct{}),
	}
	go w.run()

	core := &persistCore{LevelEnabler: l.persist, writer: w}
	child := *l
	child.Logger = l.Logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, core)
	}))
	child.writer = w
	return &child, nil
}

// Close flushes and stops persistence. It is a no-op on loggers without it.
func (l *Logger) Close() {
	if l.writer != nil {
		l.writer.close()
	}
}

// Dropped reports how many entries could not be persisted.
func (l *Logger) Dropped() uint64 {
	if l.writer == nil {
		return 0
	}
	return l.writer.dropped.Load()
}

type writer struct {
	sink    Sink
	entries chan model.Log
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

func (w *writer) run() {
	defer close(w.done)
	for entry := range w.entries {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := w.sink.InsertLog(ctx, entry); err != nil {
			w.dropped.Add(1)
		}
		cancel()
	}
}

func (w *writer) enqueue(entry model.Log) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return
	}
	select {
	case w.entries <- entry:
	default:
		w.dropped.Add(1)
	}
}

func (w *writer) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.entries)
	}
	w.mu.Unlock()
	<-w.done
}

// persistCore turns zap entries into log rows.
type persistCore struct {
	zapcore.LevelEnabler
	fields []zapcore.Field
	writer *writer
}

func (c *persistCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *persistCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *persistCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	entry := model.Log{
		ID:        newLogID(),
		Timestamp: ent.Time.UTC(),
		Level:     ent.Level.String(),
		Category:  string(categoryOf(ent.LoggerName)),
		Message:   ent.Message,
		Source:    ent.LoggerName,
	}
	if entry.Source == "" {
		entry.Source = "main"
	}
	if id, ok := enc.Fields[requestIDField].(string); ok {
		entry.RequestID = id
		delete(enc.Fields, requestIDField)
	}
	if len(enc.Fields) > 0 {
		if details, err := json.Marshal(enc.Fields); err == nil {
			entry.Details = string(details)
		}
	}

	c.writer.enqueue(entry)
	return nil
}

func (c *persistCore) Sync() error { return nil }

// categoryOf maps a logger name such as "desk.transfer" onto its category.
func categoryOf(loggerName string) model.LogCategory {
	head, _, _ := strings.Cut(loggerName, ".")
	if cat := model.LogCategory(head); model.ValidLogCategories[cat] {
		return cat
	}
	return model.LogCategorySystem
}

// newLogID returns a time-ordered id so ties on the timestamp keep insertion order.
func newLogID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
