package drugref

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryRepo struct {
	mu       sync.RWMutex
	products map[string]Product
	folded   map[string]string
	now      func() time.Time
}

// NewMemoryRepo returns a Repository backed by a map. It serves the
// reference table when no database is configured.
func NewMemoryRepo() Repository {
	return &memoryRepo{
		products: make(map[string]Product),
		folded:   make(map[string]string),
		now:      time.Now,
	}
}

func (r *memoryRepo) Upsert(ctx context.Context, products ...Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	for _, p := range products {
		p.UpdatedAt = now
		r.products[p.Code] = p
		r.folded[p.Code] = Fold(p.Name)
	}
	return nil
}

func (r *memoryRepo) GetByCode(ctx context.Context, code string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *memoryRepo) Search(ctx context.Context, query string, limit int) ([]*Product, error) {
	q := Fold(query)
	codePrefix := strings.ToUpper(strings.TrimSpace(query))

	r.mu.RLock()
	var matches []*Product
	for code, p := range r.products {
		if strings.Contains(r.folded[code], q) || (codePrefix != "" && strings.HasPrefix(code, codePrefix)) {
			p := p
			matches = append(matches, &p)
		}
	}
	folded := r.folded
	sort.Slice(matches, func(i, j int) bool {
		fi, fj := folded[matches[i].Code], folded[matches[j].Code]
		if fi != fj {
			return fi < fj
		}
		return matches[i].Code < matches[j].Code
	})
	r.mu.RUnlock()

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]*Product, int, error) {
	limit, offset = pageBounds(limit, offset)
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.products))
	for code := range r.products {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	total := len(codes)
	if offset >= total {
		return []*Product{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	items := make([]*Product, 0, end-offset)
	for _, code := range codes[offset:end] {
		p := r.products[code]
		items = append(items, &p)
	}
	return items, total, nil
}

func (r *memoryRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products), nil
}
