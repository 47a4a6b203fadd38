package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookarr/internal/domain"
	"bookarr/internal/repository"
)

const createWantedRecordsTable = `
CREATE TABLE IF NOT EXISTS wanted_records (
	url TEXT PRIMARY KEY,
	provider TEXT NOT NULL DEFAULT '',
	item_id TEXT NOT NULL DEFAULT '',
	aux_info TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	download_id TEXT NOT NULL DEFAULT '',
	result TEXT NOT NULL DEFAULT '',
	date DATETIME NOT NULL
);
`

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createWantedRecordsTable); err != nil {
		return fmt.Errorf("create wanted_records table: %w", err)
	}
	return nil
}

// Upsert writes the record in a single statement keyed by URL, which is the
// atomicity the concurrent-dispatch safety net relies on.
func (r *HistoryRepository) Upsert(ctx context.Context, rec *domain.WantedRecord) error {
	if rec.Date.IsZero() {
		rec.Date = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO wanted_records (url, provider, item_id, aux_info, size, title, mode, status, download_id, result, date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	provider=excluded.provider,
	item_id=excluded.item_id,
	aux_info=excluded.aux_info,
	size=excluded.size,
	title=excluded.title,
	mode=excluded.mode,
	status=excluded.status,
	download_id=excluded.download_id,
	result=excluded.result,
	date=excluded.date`,
		rec.URL,
		rec.Provider,
		rec.ItemID,
		string(rec.AuxInfo),
		rec.Size,
		rec.Title,
		string(rec.Mode),
		string(rec.Status),
		rec.DownloadID,
		rec.Result,
		rec.Date.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert wanted record: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Get(ctx context.Context, url string) (*domain.WantedRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT url, provider, item_id, aux_info, size, title, mode, status, download_id, result, date
FROM wanted_records
WHERE url = ?`,
		url,
	)
	return scanWantedRecord(row)
}

func (r *HistoryRepository) List(ctx context.Context) ([]domain.WantedRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT url, provider, item_id, aux_info, size, title, mode, status, download_id, result, date
FROM wanted_records
ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query wanted records: %w", err)
	}
	defer rows.Close()

	return collectWantedRecords(rows)
}

func (r *HistoryRepository) ListByStatusAndMode(ctx context.Context, status domain.RecordStatus, modes ...domain.SourceMode) ([]domain.WantedRecord, error) {
	if len(modes) == 0 {
		return []domain.WantedRecord{}, nil
	}

	placeholders := make([]string, len(modes))
	args := make([]interface{}, 0, len(modes)+1)
	args = append(args, string(status))
	for i, mode := range modes {
		placeholders[i] = "?"
		args = append(args, string(mode))
	}

	query := fmt.Sprintf(`
SELECT url, provider, item_id, aux_info, size, title, mode, status, download_id, result, date
FROM wanted_records
WHERE status = ? AND mode IN (%s)
ORDER BY date ASC`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query wanted records by status/mode: %w", err)
	}
	defer rows.Close()

	return collectWantedRecords(rows)
}

func (r *HistoryRepository) UpdateStatus(ctx context.Context, url string, status domain.RecordStatus, downloadID, result string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE wanted_records
SET status=?, download_id=?, result=?, date=?
WHERE url=?`,
		string(status),
		downloadID,
		result,
		time.Now().UTC(),
		url,
	)
	if err != nil {
		return fmt.Errorf("update wanted record status: %w", err)
	}
	return nil
}

func (r *HistoryRepository) HasFailed(ctx context.Context, url string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM wanted_records WHERE url = ? AND status = ?`,
		url,
		string(domain.RecordStatusFailed),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query failed record: %w", err)
	}
	return count > 0, nil
}

func collectWantedRecords(rows *sql.Rows) ([]domain.WantedRecord, error) {
	var records []domain.WantedRecord
	for rows.Next() {
		rec, err := scanWantedRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanWantedRecord(scanner interface {
	Scan(dest ...any) error
}) (*domain.WantedRecord, error) {
	var (
		rec     domain.WantedRecord
		auxInfo string
		mode    string
		status  string
	)

	if err := scanner.Scan(
		&rec.URL,
		&rec.Provider,
		&rec.ItemID,
		&auxInfo,
		&rec.Size,
		&rec.Title,
		&mode,
		&status,
		&rec.DownloadID,
		&rec.Result,
		&rec.Date,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("wanted record: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan wanted record: %w", err)
	}

	rec.AuxInfo = domain.ItemKind(auxInfo)
	rec.Mode = domain.SourceMode(mode)
	rec.Status = domain.RecordStatus(status)
	return &rec, nil
}
