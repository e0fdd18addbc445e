package port

import (
	"context"

	"skillmatch/internal/domain"
)

// CategoryStore persists the records of each category.
type CategoryStore interface {
	// Load returns the stored records of a category. A category with nothing
	// persisted yields empty, valid records.
	Load(ctx context.Context, category domain.Category) (domain.Records, error)

	// Save replaces the persisted records of a category.
	Save(ctx context.Context, category domain.Category, records domain.Records) error

	// Exists reports whether anything is persisted for the category.
	Exists(category domain.Category) bool

	// Lock acquires the single-writer lock. The returned func releases it.
	Lock(ctx context.Context) (func(), error)
}
