// Package catalog reads and writes rule catalogs as YAML documents.
//
// A document has a name, a semantic version and an ordered list of rules.
// Each rule expression node is a mapping with exactly one of the keys any,
// and, or, not:
//
//	expression:
//	  and:
//	    - any: {drug: {name: Corticosteroïden, codes: [H02AB]}, dosage: 0.1, interval: any}
//	    - not:
//	        any: {drug: {name: Calcium, codes: [A12AX]}, dosage: 0.1, interval: any}
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blang/semver"
	"gopkg.in/yaml.v3"

	"github.com/gheop3s/gheop3s/internal/domain/screening"
)

// SupportedMajor is the catalog format major version this package reads.
// Documents with major version 1 predate named intervals but share the
// layout and are accepted too.
const SupportedMajor = 2

var ErrUnsupportedVersion = errors.New("unsupported catalog version")

type document struct {
	Name    string    `yaml:"name"`
	Version string    `yaml:"version"`
	Rules   []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	Code        string  `yaml:"code"`
	Criteria    string  `yaml:"criteria"`
	Rationale   string  `yaml:"rationale"`
	Alternative string  `yaml:"alternative"`
	Expression  exprDoc `yaml:"expression"`
}

// exprDoc adapts *screening.Expression to the YAML node layout.
type exprDoc struct {
	expr *screening.Expression
}

func (d *exprDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expression must be a mapping", node.Line)
	}
	if len(node.Content) != 2 {
		return fmt.Errorf("line %d: expression must have exactly one of any, and, or, not; got %d keys", node.Line, len(node.Content)/2)
	}
	key, body := node.Content[0].Value, node.Content[1]

	switch key {
	case "any":
		var entry screening.DrugEntry
		if err := body.Decode(&entry); err != nil {
			return fmt.Errorf("line %d: any: %w", body.Line, err)
		}
		d.expr = screening.Any(entry)
	case "and", "or":
		if body.Kind != yaml.SequenceNode {
			return fmt.Errorf("line %d: %s must be a list", body.Line, key)
		}
		ops := make([]*screening.Expression, 0, len(body.Content))
		for _, item := range body.Content {
			var op exprDoc
			if err := item.Decode(&op); err != nil {
				return err
			}
			ops = append(ops, op.expr)
		}
		if key == "and" {
			d.expr = screening.And(ops...)
		} else {
			d.expr = screening.Or(ops...)
		}
	case "not":
		var op exprDoc
		if err := body.Decode(&op); err != nil {
			return err
		}
		d.expr = screening.Not(op.expr)
	default:
		return fmt.Errorf("line %d: unknown expression node %q", node.Line, key)
	}
	return nil
}

func (d exprDoc) MarshalYAML() (interface{}, error) {
	e := d.expr
	if e == nil {
		return nil, &screening.MalformedExpressionError{Reason: "nil node"}
	}
	switch e.Kind {
	case screening.KindAny:
		return map[string]screening.DrugEntry{"any": e.Criterion}, nil
	case screening.KindAnd, screening.KindOr:
		ops := make([]exprDoc, 0, len(e.Operands))
		for _, op := range e.Operands {
			ops = append(ops, exprDoc{expr: op})
		}
		return map[string][]exprDoc{e.Kind.String(): ops}, nil
	case screening.KindNot:
		return map[string]exprDoc{"not": {expr: e.Operand}}, nil
	default:
		return nil, &screening.MalformedExpressionError{Reason: fmt.Sprintf("unknown kind %d", uint8(e.Kind))}
	}
}

// Load decodes and validates a catalog document.
func Load(r io.Reader) (*screening.Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("decode catalog: empty document")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	v, err := semver.Parse(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("catalog version %q: %w", doc.Version, err)
	}
	if v.Major < 1 || v.Major > SupportedMajor {
		return nil, fmt.Errorf("catalog version %s: %w", v, ErrUnsupportedVersion)
	}

	rules := make([]*screening.Rule, 0, len(doc.Rules))
	for _, rd := range doc.Rules {
		rules = append(rules, &screening.Rule{
			Code:        rd.Code,
			Criteria:    rd.Criteria,
			Rationale:   rd.Rationale,
			Alternative: rd.Alternative,
			Expression:  rd.Expression.expr,
		})
	}
	return screening.NewCatalog(doc.Name, doc.Version, rules...)
}

// LoadFile loads the catalog at path.
func LoadFile(path string) (*screening.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Encode writes c as a YAML document that Load reads back.
func Encode(w io.Writer, c *screening.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	doc := document{Name: c.Name, Version: c.Version, Rules: make([]ruleDoc, 0, len(c.Rules))}
	for _, r := range c.Rules {
		doc.Rules = append(doc.Rules, ruleDoc{
			Code:        r.Code,
			Criteria:    r.Criteria,
			Rationale:   r.Rationale,
			Alternative: r.Alternative,
			Expression:  exprDoc{expr: r.Expression},
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}
