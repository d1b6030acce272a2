package screening

import (
	"fmt"
	"strings"
)

// Evaluator applies expressions to inputs. It holds no per-call state and
// is safe for concurrent use.
type Evaluator struct {
	Dosage Normalizer
}

var DefaultEvaluator = &Evaluator{Dosage: DefaultNormalizer}

func NewEvaluator(n Normalizer) *Evaluator {
	return &Evaluator{Dosage: n}
}

// Evaluate decides expr against in. A nil input has an empty regimen.
// Evaluate panics with a *MalformedExpressionError when the tree holds a
// nil node or an unknown kind; catalogs are validated on construction so
// this only happens for trees built by hand.
func (ev *Evaluator) Evaluate(expr *Expression, in *Input) bool {
	if expr == nil {
		panic(&MalformedExpressionError{Reason: "nil node"})
	}
	switch expr.Kind {
	case KindAny:
		return ev.anyMatches(expr.Criterion, in)
	case KindAnd:
		for _, op := range expr.Operands {
			if !ev.Evaluate(op, in) {
				return false
			}
		}
		return true
	case KindOr:
		for _, op := range expr.Operands {
			if ev.Evaluate(op, in) {
				return true
			}
		}
		return false
	case KindNot:
		return !ev.Evaluate(expr.Operand, in)
	default:
		panic(&MalformedExpressionError{Reason: fmt.Sprintf("unknown kind %d", uint8(expr.Kind))})
	}
}

func (ev *Evaluator) anyMatches(criterion DrugEntry, in *Input) bool {
	if in == nil {
		return false
	}
	for _, entry := range in.Drugs {
		if !CodeMatches(entry.SelectedCode, criterion.Drug.Codes) {
			continue
		}
		if ev.Dosage.MeetsOrExceeds(entry.Dosage, entry.Interval, criterion.Dosage, criterion.Interval) {
			return true
		}
	}
	return false
}

// CodeMatches reports whether observed starts with one of the criterion
// codes. Empty criterion codes never match.
func CodeMatches(observed string, codes []string) bool {
	for _, code := range codes {
		if code != "" && strings.HasPrefix(observed, code) {
			return true
		}
	}
	return false
}

func (ev *Evaluator) Matches(r *Rule, in *Input) bool {
	return ev.Evaluate(r.Expression, in)
}

// EvaluateCatalog returns the rules of c that match in, in catalog order.
func (ev *Evaluator) EvaluateCatalog(c *Catalog, in *Input) []*Rule {
	if c == nil {
		return nil
	}
	var matched []*Rule
	for _, r := range c.Rules {
		if ev.Matches(r, in) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Evaluate decides expr against in with DefaultEvaluator.
func Evaluate(expr *Expression, in *Input) bool {
	return DefaultEvaluator.Evaluate(expr, in)
}

// EvaluateCatalog filters c against in with DefaultEvaluator.
func EvaluateCatalog(c *Catalog, in *Input) []*Rule {
	return DefaultEvaluator.EvaluateCatalog(c, in)
}
