package screening

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rule is one catalog criterion: advisory text plus the expression that
// triggers it. Code is the dotted criterion number, e.g. "2.26".
type Rule struct {
	Code        string      `json:"code"`
	Criteria    string      `json:"criteria"`
	Rationale   string      `json:"rationale"`
	Alternative string      `json:"alternative"`
	Expression  *Expression `json:"expression"`
}

// Matches evaluates the rule with DefaultEvaluator.
func (r *Rule) Matches(in *Input) bool {
	return DefaultEvaluator.Matches(r, in)
}

// List returns the catalog list the rule belongs to, taken from the first
// segment of its code (1 drug criteria, 2 drug-disease criteria,
// 3 omissions). It returns 0 when the code has no numeric first segment.
func (r *Rule) List() int {
	head, _, _ := strings.Cut(r.Code, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}

// Title is the criteria text, or a rendering of the expression for rules
// whose text has not been written yet.
func (r *Rule) Title() string {
	if t := strings.TrimSpace(r.Criteria); t != "" {
		return t
	}
	if r.Expression == nil {
		return r.Code
	}
	return r.Expression.String()
}

// Catalog is an ordered, read-only set of rules.
type Catalog struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Rules   []*Rule `json:"rules"`
}

var ErrDuplicateRule = errors.New("duplicate rule code")

// NewCatalog builds a catalog and validates it.
func NewCatalog(name, version string, rules ...*Rule) (*Catalog, error) {
	c := &Catalog{Name: name, Version: version, Rules: rules}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks for nil rules, empty or repeated codes and malformed
// expression trees.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		if r == nil {
			return fmt.Errorf("rule %d: %w", i, &MalformedExpressionError{Reason: "nil rule"})
		}
		if r.Code == "" {
			return fmt.Errorf("rule %d: code is required", i)
		}
		if seen[r.Code] {
			return fmt.Errorf("rule %s: %w", r.Code, ErrDuplicateRule)
		}
		seen[r.Code] = true
		if err := r.Expression.Validate(); err != nil {
			return fmt.Errorf("rule %s: %w", r.Code, err)
		}
	}
	return nil
}

// Lookup finds a rule by code.
func (c *Catalog) Lookup(code string) (*Rule, bool) {
	for _, r := range c.Rules {
		if r.Code == code {
			return r, true
		}
	}
	return nil, false
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Rules)
}
