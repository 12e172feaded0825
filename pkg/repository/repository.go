package repository

import (
	"context"

	"github.com/smallbiznis/loyara/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store shared by the warehouse tables.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Delete(ctx context.Context, resourceID string) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
	DeleteAll(ctx context.Context) error
}
