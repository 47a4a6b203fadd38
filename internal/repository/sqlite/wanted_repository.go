package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookarr/internal/domain"
	"bookarr/internal/repository"
)

const createWantedItemsTable = `
CREATE TABLE IF NOT EXISTS wanted_items (
	id TEXT NOT NULL,
	kind TEXT NOT NULL,
	author_name TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	subtitle TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'skipped',
	audio_status TEXT NOT NULL DEFAULT 'skipped',
	issue_status TEXT NOT NULL DEFAULT 'skipped',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (id, kind)
);
`

type WantedItemRepository struct {
	db *sql.DB
}

func NewWantedItemRepository(db *sql.DB) repository.WantedItemRepository {
	return &WantedItemRepository{db: db}
}

func (r *WantedItemRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createWantedItemsTable); err != nil {
		return fmt.Errorf("create wanted_items table: %w", err)
	}
	return nil
}

func (r *WantedItemRepository) Upsert(ctx context.Context, item *domain.WantedItem) error {
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO wanted_items (id, kind, author_name, title, subtitle, status, audio_status, issue_status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id, kind) DO UPDATE SET
	author_name=excluded.author_name,
	title=excluded.title,
	subtitle=excluded.subtitle,
	status=excluded.status,
	audio_status=excluded.audio_status,
	issue_status=excluded.issue_status,
	updated_at=excluded.updated_at`,
		item.ID,
		string(item.Kind),
		item.AuthorName,
		item.Title,
		item.Subtitle,
		string(item.Status),
		string(item.AudioStatus),
		string(item.IssueStatus),
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert wanted item: %w", err)
	}
	return nil
}

func (r *WantedItemRepository) Get(ctx context.Context, id string, kind domain.ItemKind) (*domain.WantedItem, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, kind, author_name, title, subtitle, status, audio_status, issue_status, created_at, updated_at
FROM wanted_items
WHERE id = ? AND kind = ?`,
		id,
		string(kind),
	)
	return scanWantedItem(row)
}

func (r *WantedItemRepository) List(ctx context.Context) ([]domain.WantedItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, kind, author_name, title, subtitle, status, audio_status, issue_status, created_at, updated_at
FROM wanted_items
ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query wanted items: %w", err)
	}
	defer rows.Close()

	return collectWantedItems(rows)
}

func (r *WantedItemRepository) ListByStatus(ctx context.Context, status domain.ItemStatus) ([]domain.WantedItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, kind, author_name, title, subtitle, status, audio_status, issue_status, created_at, updated_at
FROM wanted_items
WHERE status = ? OR audio_status = ? OR issue_status = ?
ORDER BY created_at ASC`,
		string(status),
		string(status),
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("query wanted items by status: %w", err)
	}
	defer rows.Close()

	return collectWantedItems(rows)
}

func (r *WantedItemRepository) UpdateStatus(ctx context.Context, id string, kind domain.ItemKind, status domain.ItemStatus) error {
	column := "status"
	switch kind {
	case domain.KindAudioBook:
		column = "audio_status"
	case domain.KindMagazine:
		column = "issue_status"
	}

	query := fmt.Sprintf(`UPDATE wanted_items SET %s=?, updated_at=? WHERE id=? AND kind=?`, column)
	_, err := r.db.ExecContext(ctx, query,
		string(status),
		time.Now().UTC(),
		id,
		string(kind),
	)
	if err != nil {
		return fmt.Errorf("update wanted item status: %w", err)
	}
	return nil
}

func (r *WantedItemRepository) Delete(ctx context.Context, id string, kind domain.ItemKind) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wanted_items WHERE id=? AND kind=?`, id, string(kind))
	if err != nil {
		return fmt.Errorf("delete wanted item: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("wanted item delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("wanted item: %w", repository.ErrNotFound)
	}
	return nil
}

func collectWantedItems(rows *sql.Rows) ([]domain.WantedItem, error) {
	var items []domain.WantedItem
	for rows.Next() {
		item, err := scanWantedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanWantedItem(scanner interface {
	Scan(dest ...any) error
}) (*domain.WantedItem, error) {
	var (
		item        domain.WantedItem
		kind        string
		status      string
		audioStatus string
		issueStatus string
	)

	if err := scanner.Scan(
		&item.ID,
		&kind,
		&item.AuthorName,
		&item.Title,
		&item.Subtitle,
		&status,
		&audioStatus,
		&issueStatus,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("wanted item: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan wanted item: %w", err)
	}

	item.Kind = domain.ItemKind(kind)
	item.Status = domain.ItemStatus(status)
	item.AudioStatus = domain.ItemStatus(audioStatus)
	item.IssueStatus = domain.ItemStatus(issueStatus)
	return &item, nil
}
