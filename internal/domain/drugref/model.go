package drugref

import (
	"errors"
	"strings"
	"time"

	"github.com/gheop3s/gheop3s/internal/domain/screening"
)

var (
	ErrNotFound        = errors.New("drug product not found")
	ErrInvalidCode     = errors.New("invalid classification code")
	ErrInvalidDosage   = errors.New("dosage must be a finite non-negative number")
	ErrInvalidInterval = errors.New("unknown dosage interval")
)

// Product maps a classification code to the display name of a medicinal
// product.
type Product struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Drug returns the engine view of the product.
func (p *Product) Drug() screening.Drug {
	return screening.Drug{Name: p.Name, Codes: []string{p.Code}}
}

// NormalizeCode upper-cases a code and strips whitespace. It returns
// ErrInvalidCode for empty codes and codes with characters other than
// ASCII letters and digits.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.Join(strings.Fields(code), ""))
	if code == "" {
		return "", ErrInvalidCode
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidCode
		}
	}
	return code, nil
}
