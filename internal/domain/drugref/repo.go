package drugref

import (
	"context"

	"github.com/gheop3s/gheop3s/pkg/pagination"
)

type Repository interface {
	// Upsert inserts products or replaces the name of existing codes.
	Upsert(ctx context.Context, products ...Product) error
	GetByCode(ctx context.Context, code string) (*Product, error)
	// Search returns products whose folded name contains the folded query
	// or whose code starts with the upper-cased query.
	Search(ctx context.Context, query string, limit int) ([]*Product, error)
	// List returns one page ordered by code and the total count. A
	// non-positive limit means pagination.DefaultLimit.
	List(ctx context.Context, limit, offset int) ([]*Product, int, error)
	Count(ctx context.Context) (int, error)
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
