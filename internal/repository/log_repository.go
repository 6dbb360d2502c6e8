package repository

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

// logTimeLayout is fixed width so timestamps sort as text.
const logTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// LogRepository provides data access methods for the log table, where the
// application persists its warnings and errors.
type LogRepository struct {
	db *sql.DB
}

// NewLogRepository creates a new LogRepository with the provided database connection.
func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

// InsertLog stores one entry.
func (r *LogRepository) InsertLog(ctx context.Context, l model.Log) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO log (id, timestamp, level, category, message, details, source, request_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Timestamp.UTC().Format(logTimeLayout), l.Level, l.Category, l.Message,
		nullString(l.Details), l.Source, nullString(l.RequestID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert log: %w", err)
	}
	return nil
}

// GetLogs returns one page of entries matching the filters, newest first
// unless SortDir is "asc". The page is keyed on (timestamp, id).
//
//nolint:gocyclo // One branch per optional filter.
func (r *LogRepository) GetLogs(ctx context.Context, f *model.LogFilters) (*model.LogResponse, error) {
	var (
		where []string
		args  []any
	)

	if len(f.Levels) > 0 {
		where = append(where, "level IN ("+placeholders(len(f.Levels))+")")
		for _, l := range f.Levels {
			args = append(args, l)
		}
	}
	if len(f.Categories) > 0 {
		where = append(where, "category IN ("+placeholders(len(f.Categories))+")")
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}
	if f.StartDate != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, f.StartDate.UTC().Format(logTimeLayout))
	}
	if f.EndDate != nil {
		where = append(where, "timestamp < ?")
		args = append(args, f.EndDate.UTC().Format(logTimeLayout))
	}
	if f.Source != "" {
		where = append(where, "(source = ? OR source LIKE ?)")
		args = append(args, f.Source, f.Source+".%")
	}
	if f.Message != "" {
		where = append(where, "message LIKE ?")
		args = append(args, "%"+f.Message+"%")
	}

	desc := f.SortDir != "asc"
	if f.Cursor != "" {
		stamp, id, err := decodeCursor(f.Cursor)
		if err != nil {
			return nil, err
		}
		op := ">"
		if desc {
			op = "<"
		}
		where = append(where, fmt.Sprintf("(timestamp %s ? OR (timestamp = ? AND id %s ?))", op, op))
		args = append(args, stamp, stamp, id)
	}

	query := `SELECT id, timestamp, level, category, message, details, source, request_id FROM log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if desc {
		query += " ORDER BY timestamp DESC, id DESC"
	} else {
		query += " ORDER BY timestamp ASC, id ASC"
	}
	query += " LIMIT ?"
	args = append(args, f.PerPage+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query log table: %w", err)
	}
	defer rows.Close()

	logs := []model.Log{}
	for rows.Next() {
		var (
			l                  model.Log
			stamp              string
			details, requestID sql.NullString
		)
		if err := rows.Scan(&l.ID, &stamp, &l.Level, &l.Category, &l.Message, &details, &l.Source, &requestID); err != nil {
			return nil, fmt.Errorf("failed to scan log results: %w", err)
		}
		if l.Timestamp, err = ParseTime(stamp); err != nil {
			return nil, err
		}
		l.Details = details.String
		l.RequestID = requestID.String
		logs = append(logs, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log table: %w", err)
	}

	resp := &model.LogResponse{Logs: logs}
	if len(logs) > f.PerPage {
		resp.Logs = logs[:f.PerPage]
		resp.HasMore = true
		last := resp.Logs[len(resp.Logs)-1]
		resp.NextCursor = encodeCursor(last.Timestamp, last.ID)
	}
	resp.Count = len(resp.Logs)
	return resp, nil
}

// DeleteLogsBefore removes entries older than before and reports how many went.
func (r *LogRepository) DeleteLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM log WHERE timestamp < ?", before.UTC().Format(logTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune log table: %w", err)
	}
	return res.RowsAffected()
}

func encodeCursor(stamp time.Time, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(stamp.UTC().Format(logTimeLayout) + "|" + id))
}

func decodeCursor(cursor string) (string, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", apperrors.ErrInvalidCursor
	}
	stamp, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return "", "", apperrors.ErrInvalidCursor
	}
	if _, err := time.Parse(logTimeLayout, stamp); err != nil {
		return "", "", apperrors.ErrInvalidCursor
	}
	return stamp, id, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
