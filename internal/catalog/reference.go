package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/gheop3s/gheop3s/internal/domain/screening"
)

//go:embed gheop3s.yaml
var referenceYAML []byte

var (
	referenceOnce sync.Once
	reference     *screening.Catalog
	referenceErr  error
)

// Reference returns the embedded GheOP³S catalog. The same value is
// returned on every call and must not be modified.
func Reference() (*screening.Catalog, error) {
	referenceOnce.Do(func() {
		reference, referenceErr = Load(bytes.NewReader(referenceYAML))
		if referenceErr != nil {
			referenceErr = fmt.Errorf("reference catalog: %w", referenceErr)
		}
	})
	return reference, referenceErr
}

// Resolve loads the catalog at path, or the reference catalog when path is
// empty.
func Resolve(path string) (*screening.Catalog, error) {
	if path == "" {
		return Reference()
	}
	return LoadFile(path)
}
