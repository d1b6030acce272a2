package drugref

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gheop3s/gheop3s/internal/domain/screening"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(seededRepo(t), zerolog.Nop())
}

func TestService_Import(t *testing.T) {
	svc := NewService(NewMemoryRepo(), zerolog.Nop())
	ctx := context.Background()

	n, err := svc.Import(ctx, strings.NewReader("name;code\nDigoxine;C01AA05\nClonidine;c02ac01\n"))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}
	if _, err := svc.Get(ctx, "c02ac01"); err != nil {
		t.Errorf("expected lowercase lookup to resolve, got %v", err)
	}
}

func TestService_Import_AllOrNothing(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.Import(context.Background(), strings.NewReader("Digoxine;C01AA05\nbroken\n"))
	var ie *ImportError
	if !errors.As(err, &ie) || ie.Line != 2 {
		t.Fatalf("expected import error on line 2, got %v", err)
	}
	if n, _ := repo.Count(context.Background()); n != 0 {
		t.Errorf("expected nothing stored, got %d products", n)
	}
}

func TestService_Get_InvalidCode(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Get(context.Background(), "  "); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}
}

func TestService_Search_EmptyQueryLists(t *testing.T) {
	svc := newTestService(t)
	items, err := svc.Search(context.Background(), "   ", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 3 || items[0].Code != "C01AA05" {
		t.Errorf("expected first 3 products by code, got %+v", items)
	}
}

func TestService_EntryFor(t *testing.T) {
	svc := newTestService(t)
	entry, err := svc.EntryFor(context.Background(), "c01aa05", 0.125, screening.IntervalDaily, screening.FrequencyChronic)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if entry.SelectedCode != "C01AA05" || entry.Drug.Name != "Digoxine" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if len(entry.Drug.Codes) != 1 || entry.Drug.Codes[0] != "C01AA05" {
		t.Errorf("unexpected codes: %v", entry.Drug.Codes)
	}
	if entry.Dosage != 0.125 || entry.Interval != screening.IntervalDaily || entry.Frequency != screening.FrequencyChronic {
		t.Errorf("unexpected dosage fields: %+v", entry)
	}
}

func TestService_EntryFor_FeedsScreening(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	thiazide, err := svc.EntryFor(ctx, "C03AA03", 25, screening.IntervalDaily, screening.FrequencyChronic)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	allopurinol, err := svc.EntryFor(ctx, "M04AA01", 300, screening.IntervalDaily, screening.FrequencyChronic)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}

	rule := &screening.Rule{
		Code: "2.26",
		Expression: screening.And(
			screening.Any(screening.DrugEntry{Drug: screening.Drug{Name: "thiazide", Codes: []string{"C03AA"}}}),
			screening.Any(screening.DrugEntry{Drug: screening.Drug{Name: "gout", Codes: []string{"M04"}}}),
		),
	}
	in := &screening.Input{Age: 80, Drugs: []screening.DrugEntry{thiazide, allopurinol}}
	if !rule.Matches(in) {
		t.Error("expected regimen built from the reference table to trigger the rule")
	}
}

func TestService_EntryFor_Rejects(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tests := []struct {
		name     string
		code     string
		dosage   float64
		interval screening.DosageInterval
		want     error
	}{
		{"negative dosage", "C01AA05", -1, screening.IntervalDaily, ErrInvalidDosage},
		{"nan dosage", "C01AA05", math.NaN(), screening.IntervalDaily, ErrInvalidDosage},
		{"infinite dosage", "C01AA05", math.Inf(1), screening.IntervalDaily, ErrInvalidDosage},
		{"unknown interval", "C01AA05", 1, screening.DosageInterval(5), ErrInvalidInterval},
		{"unknown code", "X00", 1, screening.IntervalDaily, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.EntryFor(ctx, tt.code, tt.dosage, tt.interval, screening.FrequencyAny)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
