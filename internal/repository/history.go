package repository

import (
	"context"

	"bookarr/internal/domain"
)

// HistoryRepository manages the per-URL record of dispatch decisions. Records
// are upserted by URL in a single statement; a Failed record permanently
// blacklists its URL.
type HistoryRepository interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, rec *domain.WantedRecord) error
	Get(ctx context.Context, url string) (*domain.WantedRecord, error)
	List(ctx context.Context) ([]domain.WantedRecord, error)
	ListByStatusAndMode(ctx context.Context, status domain.RecordStatus, modes ...domain.SourceMode) ([]domain.WantedRecord, error)
	UpdateStatus(ctx context.Context, url string, status domain.RecordStatus, downloadID, result string) error
	HasFailed(ctx context.Context, url string) (bool, error)
}
