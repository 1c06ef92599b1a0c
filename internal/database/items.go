package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/lib/pq"
)

const itemColumns = `id, type, title, description, datetime, priority, tags, completed, source, external_id, created_at, updated_at`

// ItemRepository handles item database operations
type ItemRepository struct {
	db *DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	item := &models.Item{}
	var (
		description sql.NullString
		datetime    sql.NullString
		externalID  sql.NullString
		tags        pq.StringArray
	)
	err := row.Scan(
		&item.ID,
		&item.Type,
		&item.Title,
		&description,
		&datetime,
		&item.Priority,
		&tags,
		&item.Completed,
		&item.Source,
		&externalID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Description = fromNullString(description)
	item.Datetime = fromNullString(datetime)
	item.ExternalID = fromNullString(externalID)
	item.Tags = models.Tags(tags)
	if item.Tags == nil {
		item.Tags = models.Tags{}
	}
	return item, nil
}

// Create inserts an item and fills in its id and timestamps
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (type, title, description, datetime, priority, tags, completed, source, external_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id, created_at, updated_at
	`

	tags := item.Tags
	if tags == nil {
		tags = models.Tags{}
	}

	err := r.db.QueryRowContext(ctx, query,
		string(item.Type),
		item.Title,
		toNullString(item.Description),
		toNullString(item.Datetime),
		string(item.Priority),
		pq.StringArray(tags),
		item.Completed,
		string(item.Source),
		toNullString(item.ExternalID),
		time.Now().UTC(),
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return wrapError("create item", err)
	}
	item.Tags = tags

	return nil
}

// GetByID retrieves an item by id
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapError("get item", err)
	}
	return item, nil
}

// GetByExternalID retrieves an item by its source-system identifier
func (r *ItemRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE external_id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapError("get item by external_id", err)
	}
	return item, nil
}

// Update applies a partial patch and always refreshes updated_at. An empty
// string clears description or datetime.
func (r *ItemRepository) Update(ctx context.Context, id int64, patch models.ItemPatch) (*models.Item, error) {
	setClause, args := buildUpdate(patch, time.Now().UTC())
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE items SET %s WHERE id = $%d RETURNING %s`, setClause, len(args), itemColumns)

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapError("update item", err)
	}
	return item, nil
}

// buildUpdate renders the SET clause for patch. updated_at is always the first assignment.
func buildUpdate(patch models.ItemPatch, now time.Time) (string, []any) {
	sets := []string{"updated_at = $1"}
	args := []any{now}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Type != nil {
		add("type", string(*patch.Type))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", emptyAsNull(*patch.Description))
	}
	if patch.Datetime != nil {
		add("datetime", emptyAsNull(*patch.Datetime))
	}
	if patch.Priority != nil {
		add("priority", string(*patch.Priority))
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = models.Tags{}
		}
		add("tags", pq.StringArray(tags))
	}
	if patch.Completed != nil {
		add("completed", *patch.Completed)
	}

	return strings.Join(sets, ", "), args
}

// Delete removes an item by id
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return wrapError("delete item", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapError("get rows affected", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns items newest first, optionally filtered by type
func (r *ItemRepository) List(ctx context.Context, filterType *models.ItemType) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var args []any
	if filterType != nil {
		query += ` WHERE type = $1`
		args = append(args, string(*filterType))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	return r.query(ctx, "list items", query, args...)
}

// ListInRange returns items whose datetime falls in [start, end), earliest first.
// Items with unparseable datetimes are never included.
func (r *ItemRepository) ListInRange(ctx context.Context, start, end time.Time) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
		WHERE datetime IS NOT NULL AND datetime >= $1 AND datetime < $2
		ORDER BY datetime ASC, id ASC`

	items, err := r.query(ctx, "list items in range", query,
		start.Format(models.DateTimeLayout), end.Format(models.DateTimeLayout))
	if err != nil {
		return nil, err
	}
	return filterInRange(items, start, end), nil
}

// ListPage returns up to limit items with id greater than afterID, in id order
func (r *ItemRepository) ListPage(ctx context.Context, afterID int64, limit int) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id > $1 ORDER BY id ASC LIMIT $2`
	return r.query(ctx, "list item page", query, afterID, limit)
}

func (r *ItemRepository) query(ctx context.Context, op, query string, args ...any) ([]*models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError(op, err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, wrapError(op, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(op, err)
	}
	return items, nil
}

// filterInRange drops items whose stored datetime sorts inside the range as text
// but does not parse to a time inside it.
func filterInRange(items []*models.Item, start, end time.Time) []*models.Item {
	out := items[:0]
	for _, item := range items {
		t, ok := item.Time()
		if !ok || t.Before(start) || !t.Before(end) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func emptyAsNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
