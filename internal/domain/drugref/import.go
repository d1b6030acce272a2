package drugref

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ImportError reports a malformed line of a reference file.
type ImportError struct {
	Line   int
	Reason string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

const bom = "\ufeff"

// Parse reads a semicolon-delimited reference file with one "name;code"
// record per line. A leading "name;code" header, blank lines, trailing empty
// fields and a UTF-8 byte order mark are tolerated. The first malformed line
// aborts the parse with an *ImportError.
func Parse(r io.Reader) ([]Product, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var products []Product
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &ImportError{Line: perr.StartLine, Reason: perr.Err.Error()}
			}
			return nil, fmt.Errorf("read reference file: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if first {
			rec[0] = strings.TrimPrefix(rec[0], bom)
		}
		rec = trimTrailingEmpty(rec)

		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}
		if len(rec) == 0 {
			continue
		}

		p, err := parseRecord(rec)
		if err != nil {
			return nil, &ImportError{Line: line, Reason: err.Error()}
		}
		products = append(products, p)
	}
	return products, nil
}

func parseRecord(rec []string) (Product, error) {
	if len(rec) != 2 {
		return Product{}, fmt.Errorf("expected 2 fields (name;code), got %d", len(rec))
	}
	name := strings.Join(strings.Fields(rec[0]), " ")
	if name == "" {
		return Product{}, errors.New("name is empty")
	}
	code, err := NormalizeCode(rec[1])
	if err != nil {
		return Product{}, fmt.Errorf("code %q: %w", rec[1], err)
	}
	return Product{Code: code, Name: name}, nil
}

func trimTrailingEmpty(rec []string) []string {
	for len(rec) > 0 && strings.TrimSpace(rec[len(rec)-1]) == "" {
		rec = rec[:len(rec)-1]
	}
	return rec
}

func isHeader(rec []string) bool {
	return len(rec) == 2 &&
		strings.EqualFold(strings.TrimSpace(rec[0]), "name") &&
		strings.EqualFold(strings.TrimSpace(rec[1]), "code")
}
