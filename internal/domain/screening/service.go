package screening

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gheop3s/gheop3s/internal/platform/metrics"
)

// Screening sources, used as the metrics label.
const (
	SourceAPI      = "api"
	SourceCDSHooks = "cds-hooks"
	SourceCLI      = "cli"
)

var (
	ErrNilInput     = errors.New("screening input is required")
	ErrRuleNotFound = errors.New("rule not found")
)

// RuleSummary is the display form of a triggered rule.
type RuleSummary struct {
	Code        string `json:"code"`
	List        int    `json:"list"`
	Title       string `json:"title"`
	Criteria    string `json:"criteria,omitempty"`
	Rationale   string `json:"rationale,omitempty"`
	Alternative string `json:"alternative,omitempty"`
}

func Summarize(r *Rule) RuleSummary {
	return RuleSummary{
		Code:        r.Code,
		List:        r.List(),
		Title:       r.Title(),
		Criteria:    r.Criteria,
		Rationale:   r.Rationale,
		Alternative: r.Alternative,
	}
}

// Result is the outcome of one screening.
type Result struct {
	ID             uuid.UUID     `json:"id"`
	EvaluatedAt    time.Time     `json:"evaluated_at"`
	CatalogName    string        `json:"catalog_name"`
	CatalogVersion string        `json:"catalog_version"`
	Triggered      []RuleSummary `json:"triggered"`

	rules []*Rule
}

// Rules returns the triggered rules in catalog order.
func (r *Result) Rules() []*Rule {
	return r.rules
}

type Service struct {
	catalog   *Catalog
	evaluator *Evaluator
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(catalog *Catalog, evaluator *Evaluator, logger zerolog.Logger) *Service {
	if evaluator == nil {
		evaluator = DefaultEvaluator
	}
	return &Service{
		catalog:   catalog,
		evaluator: evaluator,
		logger:    logger.With().Str("component", "screening").Logger(),
		now:       time.Now,
	}
}

func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Screen evaluates the catalog against in. source labels the caller for
// metrics.
func (s *Service) Screen(ctx context.Context, in *Input, source string) (*Result, error) {
	if in == nil {
		return nil, ErrNilInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	matched := s.evaluator.EvaluateCatalog(s.catalog, in)
	metrics.ScreeningDuration.Observe(time.Since(start).Seconds())
	metrics.ScreeningsTotal.WithLabelValues(source).Inc()

	res := &Result{
		ID:          uuid.New(),
		EvaluatedAt: s.now().UTC(),
		Triggered:   make([]RuleSummary, 0, len(matched)),
		rules:       matched,
	}
	if s.catalog != nil {
		res.CatalogName = s.catalog.Name
		res.CatalogVersion = s.catalog.Version
	}

	triggered := make([]string, 0, len(matched))
	for _, r := range matched {
		res.Triggered = append(res.Triggered, Summarize(r))
		triggered = append(triggered, r.Code)
		metrics.RulesTriggeredTotal.WithLabelValues(r.Code).Inc()
	}

	s.logger.Debug().
		Str("screening_id", res.ID.String()).
		Str("source", source).
		Int("entries", len(in.Drugs)).
		Strs("triggered", triggered).
		Msg("regimen screened")

	return res, nil
}

// ListRules returns a page of the catalog and the total rule count.
func (s *Service) ListRules(limit, offset int) ([]*Rule, int) {
	rules := s.catalog.Rules
	total := len(rules)
	if offset >= total {
		return []*Rule{}, total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return rules[offset:end], total
}

func (s *Service) GetRule(code string) (*Rule, error) {
	r, ok := s.catalog.Lookup(code)
	if !ok {
		return nil, ErrRuleNotFound
	}
	return r, nil
}
