package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

// CatalogRepository provides data access methods for the category and
// item_template tables, the local copy of the consumption buttons.
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new CatalogRepository with the provided database connection.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ReplaceAll swaps the whole catalog for the given categories and templates
// in a single transaction. Category buttons are ignored.
func (r *CatalogRepository) ReplaceAll(ctx context.Context, categories []model.Category, templates []model.ItemTemplate, syncedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin catalog transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM item_template"); err != nil {
		return fmt.Errorf("failed to clear item_template table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM category"); err != nil {
		return fmt.Errorf("failed to clear category table: %w", err)
	}

	stamp := syncedAt.UTC().Format(time.RFC3339)

	for _, c := range categories {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO category (id, name, synced_at) VALUES (?, ?, ?)",
			c.ID, c.Name, stamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert category %d: %w", c.ID, err)
		}
	}

	for _, t := range templates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO item_template
				(id, name, amount, destination_id, resource_type, polymorphic_ctype, category_id, display, highlighted, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Name, t.UnitPriceCents, t.DestinationAccountID, t.TransactionTypeTag,
			t.PolymorphicCtype, t.CategoryID, t.Display, t.Highlighted, stamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item_template %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	return nil
}

const templateColumns = `
	t.id, t.name, t.amount, t.destination_id, t.resource_type, t.polymorphic_ctype,
	t.category_id, COALESCE(c.name, ''), t.display, t.highlighted, t.synced_at`

// GetTemplate retrieves one button by id.
func (r *CatalogRepository) GetTemplate(ctx context.Context, id int) (model.ItemTemplate, error) {
	query := `SELECT ` + templateColumns + `
		FROM item_template t
		LEFT JOIN category c ON c.id = t.category_id
		WHERE t.id = ?`

	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ItemTemplate{}, apperrors.ErrTemplateNotFound
	}
	if err != nil {
		return model.ItemTemplate{}, fmt.Errorf("failed to query item_template: %w", err)
	}
	return t, nil
}

// ListCategories returns the categories with their buttons, ordered by
// category name, highlighted buttons first. Hidden buttons are left out unless
// includeHidden is set; categories without buttons are always left out.
func (r *CatalogRepository) ListCategories(ctx context.Context, includeHidden bool) ([]model.Category, error) {
	query := `SELECT ` + templateColumns + `
		FROM item_template t
		LEFT JOIN category c ON c.id = t.category_id`
	if !includeHidden {
		query += " WHERE t.display = 1"
	}
	query += " ORDER BY COALESCE(c.name, ''), t.category_id, t.highlighted DESC, t.name"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query item_template table: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	index := make(map[int]int)

	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item_template results: %w", err)
		}

		i, ok := index[t.CategoryID]
		if !ok {
			i = len(categories)
			index[t.CategoryID] = i
			categories = append(categories, model.Category{ID: t.CategoryID, Name: t.CategoryName})
		}
		categories[i].Buttons = append(categories[i].Buttons, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item_template table: %w", err)
	}

	return categories, nil
}

// RecordSync stores the outcome of a catalog synchronisation.
func (r *CatalogRepository) RecordSync(ctx context.Context, s model.CatalogSync) error {
	var syncErr sql.NullString
	if s.Error != "" {
		syncErr = sql.NullString{String: s.Error, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO catalog_sync (started_at, finished_at, templates, categories, error)
		VALUES (?, ?, ?, ?, ?)`,
		s.StartedAt.UTC().Format(time.RFC3339), s.FinishedAt.UTC().Format(time.RFC3339),
		s.Templates, s.Categories, syncErr,
	)
	if err != nil {
		return fmt.Errorf("failed to insert catalog_sync: %w", err)
	}
	return nil
}

// LastSync returns the most recent synchronisation, or nil when the catalog
// was never synchronised.
func (r *CatalogRepository) LastSync(ctx context.Context) (*model.CatalogSync, error) {
	var (
		s                 model.CatalogSync
		started, finished string
		syncErr           sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, templates, categories, error
		FROM catalog_sync
		ORDER BY id DESC
		LIMIT 1`,
	).Scan(&s.ID, &started, &finished, &s.Templates, &s.Categories, &syncErr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog_sync: %w", err)
	}

	if s.StartedAt, err = ParseTime(started); err != nil {
		return nil, err
	}
	if s.FinishedAt, err = ParseTime(finished); err != nil {
		return nil, err
	}
	s.Error = syncErr.String
	return &s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (model.ItemTemplate, error) {
	var (
		t      model.ItemTemplate
		synced string
	)
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.UnitPriceCents,
		&t.DestinationAccountID,
		&t.TransactionTypeTag,
		&t.PolymorphicCtype,
		&t.CategoryID,
		&t.CategoryName,
		&t.Display,
		&t.Highlighted,
		&synced,
	)
	if err != nil {
		return model.ItemTemplate{}, err
	}
	if t.SyncedAt, err = ParseTime(synced); err != nil {
		return model.ItemTemplate{}, err
	}
	return t, nil
}
