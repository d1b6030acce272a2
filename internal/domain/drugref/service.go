package drugref

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog"

	"github.com/gheop3s/gheop3s/internal/domain/screening"
	"github.com/gheop3s/gheop3s/internal/platform/metrics"
)

const defaultSearchLimit = 20

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "drugref").Logger(),
	}
}

// Import parses a reference file and upserts every product in it. Nothing
// is written when any line is malformed.
func (s *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	products, err := Parse(r)
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		return 0, nil
	}
	if err := s.repo.Upsert(ctx, products...); err != nil {
		return 0, fmt.Errorf("store drug products: %w", err)
	}
	metrics.DrugsImported.Add(float64(len(products)))
	s.logger.Info().Int("count", len(products)).Msg("drug reference imported")
	return len(products), nil
}

func (s *Service) Get(ctx context.Context, code string) (*Product, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByCode(ctx, code)
}

// Search matches products by name or code prefix. An empty query lists
// products by code.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*Product, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if Fold(query) == "" {
		items, _, err := s.repo.List(ctx, limit, 0)
		return items, err
	}
	return s.repo.Search(ctx, query, limit)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Product, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// EntryFor builds a regimen line for the product with the given code.
func (s *Service) EntryFor(ctx context.Context, code string, dosage float64, interval screening.DosageInterval, freq screening.Frequency) (screening.DrugEntry, error) {
	if dosage < 0 || math.IsNaN(dosage) || math.IsInf(dosage, 0) {
		return screening.DrugEntry{}, ErrInvalidDosage
	}
	if !interval.Known() {
		return screening.DrugEntry{}, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	p, err := s.Get(ctx, code)
	if err != nil {
		return screening.DrugEntry{}, err
	}
	return screening.DrugEntry{
		Drug:         p.Drug(),
		SelectedCode: p.Code,
		Frequency:    freq,
		Dosage:       dosage,
		Interval:     interval,
	}, nil
}
