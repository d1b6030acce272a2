package screening

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the variant an Expression node holds.
type Kind uint8

const (
	KindAny Kind = iota + 1
	KindAnd
	KindOr
	KindNot
)

var kindNames = map[Kind]string{
	KindAny: "any",
	KindAnd: "and",
	KindOr:  "or",
	KindNot: "not",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Expression is a boolean predicate over an Input. Which fields are used
// depends on Kind:
//
//	KindAny  Criterion
//	KindAnd  Operands (true when empty)
//	KindOr   Operands (false when empty)
//	KindNot  Operand
//
// Trees are built once and must not be mutated after they are handed to a
// Catalog.
type Expression struct {
	Kind      Kind
	Criterion DrugEntry
	Operands  []*Expression
	Operand   *Expression
}

// Any matches when some regimen entry falls under one of the criterion's
// codes at or above the criterion's dosage rate.
func Any(criterion DrugEntry) *Expression {
	return &Expression{Kind: KindAny, Criterion: criterion}
}

func And(operands ...*Expression) *Expression {
	return &Expression{Kind: KindAnd, Operands: operands}
}

func Or(operands ...*Expression) *Expression {
	return &Expression{Kind: KindOr, Operands: operands}
}

func Not(operand *Expression) *Expression {
	return &Expression{Kind: KindNot, Operand: operand}
}

// MalformedExpressionError reports a structurally invalid expression tree.
// It signals a broken catalog, not bad patient input.
type MalformedExpressionError struct {
	Path   string
	Reason string
}

func (e *MalformedExpressionError) Error() string {
	if e.Path == "" {
		return "malformed expression: " + e.Reason
	}
	return fmt.Sprintf("malformed expression at %s: %s", e.Path, e.Reason)
}

// Validate checks that every node in the tree is a known variant with the
// fields that variant needs.
func (e *Expression) Validate() error {
	return validateExpr(e, "expression")
}

func validateExpr(e *Expression, path string) error {
	if e == nil {
		return &MalformedExpressionError{Path: path, Reason: "nil node"}
	}
	switch e.Kind {
	case KindAny:
		return nil
	case KindAnd, KindOr:
		for i, op := range e.Operands {
			if err := validateExpr(op, fmt.Sprintf("%s.%s[%d]", path, e.Kind, i)); err != nil {
				return err
			}
		}
		return nil
	case KindNot:
		return validateExpr(e.Operand, path+".not")
	default:
		return &MalformedExpressionError{Path: path, Reason: fmt.Sprintf("unknown kind %d", uint8(e.Kind))}
	}
}

// String renders the tree using drug names, e.g.
// "Opioïd AND NOT Laxativum".
func (e *Expression) String() string {
	var b strings.Builder
	writeExpr(&b, e, false)
	return b.String()
}

func writeExpr(b *strings.Builder, e *Expression, nested bool) {
	if e == nil {
		b.WriteString("<nil>")
		return
	}
	switch e.Kind {
	case KindAny:
		name := e.Criterion.Drug.Name
		if name == "" {
			name = "[" + strings.Join(e.Criterion.Drug.Codes, ", ") + "]"
		}
		b.WriteString(name)
	case KindAnd, KindOr:
		sep := " AND "
		if e.Kind == KindOr {
			sep = " OR "
		}
		if nested && len(e.Operands) > 1 {
			b.WriteByte('(')
		}
		for i, op := range e.Operands {
			if i > 0 {
				b.WriteString(sep)
			}
			writeExpr(b, op, true)
		}
		if nested && len(e.Operands) > 1 {
			b.WriteByte(')')
		}
	case KindNot:
		b.WriteString("NOT ")
		writeExpr(b, e.Operand, true)
	default:
		b.WriteString(e.Kind.String())
	}
}

// MarshalJSON encodes a node as a single-key object: {"any": entry},
// {"and": [...]}, {"or": [...]} or {"not": node}.
func (e *Expression) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindAny:
		return json.Marshal(map[string]DrugEntry{"any": e.Criterion})
	case KindAnd, KindOr:
		ops := e.Operands
		if ops == nil {
			ops = []*Expression{}
		}
		return json.Marshal(map[string][]*Expression{e.Kind.String(): ops})
	case KindNot:
		return json.Marshal(map[string]*Expression{"not": e.Operand})
	default:
		return nil, &MalformedExpressionError{Reason: fmt.Sprintf("unknown kind %d", uint8(e.Kind))}
	}
}

func (e *Expression) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return &MalformedExpressionError{Reason: "null node"}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return &MalformedExpressionError{Reason: fmt.Sprintf("node must have exactly one of any, and, or, not; got %d keys", len(raw))}
	}
	for key, body := range raw {
		switch key {
		case "any":
			var entry DrugEntry
			if err := json.Unmarshal(body, &entry); err != nil {
				return fmt.Errorf("any: %w", err)
			}
			*e = Expression{Kind: KindAny, Criterion: entry}
		case "and", "or":
			var ops []*Expression
			if err := json.Unmarshal(body, &ops); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			kind := KindAnd
			if key == "or" {
				kind = KindOr
			}
			*e = Expression{Kind: kind, Operands: ops}
		case "not":
			var op Expression
			if err := json.Unmarshal(body, &op); err != nil {
				return fmt.Errorf("not: %w", err)
			}
			*e = Expression{Kind: KindNot, Operand: &op}
		default:
			return &MalformedExpressionError{Reason: fmt.Sprintf("unknown node %q", key)}
		}
	}
	return nil
}
