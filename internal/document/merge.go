package document

import (
	"fmt"

	"dario.cat/mergo"

	"github.com/eugenenazirov/envoverlay/internal/overlay"
)

// Merge deep-merges docs in order. Later documents override earlier ones key
// by key; nested mappings are merged rather than replaced. Inputs are not
// modified.
func Merge(docs ...overlay.Document) (overlay.Document, error) {
	merged := make(map[string]any)
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		src := map[string]any(doc.Clone())
		if err := mergo.Merge(&merged, src, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge document %d: %w", i, err)
		}
	}
	return overlay.Document(merged), nil
}
