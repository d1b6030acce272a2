package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gheop3s/gheop3s/internal/platform/cdshooks"
	"github.com/gheop3s/gheop3s/internal/platform/metrics"
)

const (
	CDSServiceID = "gheop3s-screening"
	CDSHook      = "medication-prescribe"

	cardSourceLabel = "GheOP³S"
	maxSummaryLen   = 140
)

// RegisterCDSServices exposes the screening service as a CDS Hooks service.
func RegisterCDSServices(h *cdshooks.Handler, svc *Service, logger zerolog.Logger) {
	h.RegisterService(cdshooks.Service{
		Hook:        CDSHook,
		Title:       "GheOP³S medication screening",
		Description: "Screens the prescribed regimen of an older patient against the GheOP³S criteria",
		ID:          CDSServiceID,
	}, func(ctx context.Context, req cdshooks.Request) (*cdshooks.Response, error) {
		in, err := InputFromHookContext(req.Context)
		if err != nil {
			return nil, &cdshooks.RequestError{Err: err}
		}
		res, err := svc.Screen(ctx, in, SourceCDSHooks)
		if err != nil {
			return nil, err
		}
		return &cdshooks.Response{Cards: Cards(res.Rules())}, nil
	})

	h.RegisterFeedbackHandler(CDSServiceID, func(ctx context.Context, serviceID string, fb cdshooks.Feedback) error {
		if fb.Outcome != cdshooks.OutcomeAccepted && fb.Outcome != cdshooks.OutcomeOverridden {
			return &cdshooks.RequestError{Err: fmt.Errorf("outcome must be %q or %q, got %q",
				cdshooks.OutcomeAccepted, cdshooks.OutcomeOverridden, fb.Outcome)}
		}
		metrics.CDSFeedbackTotal.WithLabelValues(fb.Outcome).Inc()
		logger.Info().
			Str("service", serviceID).
			Str("card", fb.Card).
			Str("outcome", fb.Outcome).
			Int("override_reasons", len(fb.OverrideReasons)).
			Msg("cds card feedback")
		return nil
	})
}

// InputFromHookContext reads patientAge, patientGender and medications from
// a hook context. Only medications is required.
func InputFromHookContext(hookCtx map[string]json.RawMessage) (*Input, error) {
	in := &Input{}
	if raw, ok := hookCtx["patientAge"]; ok {
		if err := json.Unmarshal(raw, &in.Age); err != nil {
			return nil, fmt.Errorf("context.patientAge: %w", err)
		}
	}
	if raw, ok := hookCtx["patientGender"]; ok {
		if err := json.Unmarshal(raw, &in.Gender); err != nil {
			return nil, fmt.Errorf("context.patientGender: %w", err)
		}
	}
	raw, ok := hookCtx["medications"]
	if !ok {
		return nil, errors.New("context.medications is required")
	}
	if err := json.Unmarshal(raw, &in.Drugs); err != nil {
		return nil, fmt.Errorf("context.medications: %w", err)
	}
	return in, nil
}

// Cards renders one warning card per rule.
func Cards(rules []*Rule) []cdshooks.Card {
	cards := make([]cdshooks.Card, 0, len(rules))
	for _, r := range rules {
		card := cdshooks.Card{
			UUID:      uuid.NewString(),
			Summary:   truncate(r.Code+": "+r.Title(), maxSummaryLen),
			Detail:    r.Rationale,
			Indicator: cdshooks.IndicatorWarning,
			Source:    cdshooks.Source{Label: cardSourceLabel},
		}
		if r.Alternative != "" {
			card.Suggestions = []cdshooks.Suggestion{{
				Label: r.Alternative,
				UUID:  uuid.NewString(),
			}}
		}
		cards = append(cards, card)
	}
	return cards
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
