package repository

import (
	"context"

	"bookarr/internal/domain"
)

// WantedItemRepository exposes persistence operations for WantedItem records.
type WantedItemRepository interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, item *domain.WantedItem) error
	Get(ctx context.Context, id string, kind domain.ItemKind) (*domain.WantedItem, error)
	List(ctx context.Context) ([]domain.WantedItem, error)
	ListByStatus(ctx context.Context, status domain.ItemStatus) ([]domain.WantedItem, error)
	UpdateStatus(ctx context.Context, id string, kind domain.ItemKind, status domain.ItemStatus) error
	Delete(ctx context.Context, id string, kind domain.ItemKind) error
}
