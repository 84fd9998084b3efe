package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/envoverlay/internal/overlay"
)

// Decode reads one document in format f. Empty input yields an empty
// document.
func Decode(r io.Reader, f Format) (overlay.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return overlay.Document{}, nil
	}

	var raw any
	switch f {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatTOML:
		var table map[string]any
		err = toml.Unmarshal(data, &table)
		raw = table
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f, err)
	}

	// a YAML file holding only comments decodes to nil
	if raw == nil {
		return overlay.Document{}, nil
	}
	root, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotMapping, raw)
	}
	return overlay.Document(root), nil
}

// Encode writes doc in format f. JSON and YAML use two-space indentation.
func Encode(w io.Writer, doc overlay.Document, f Format) error {
	if doc == nil {
		return overlay.ErrNilDocument
	}
	tree := map[string]any(doc)

	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tree); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(tree); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// normalize converts string-keyed map[any]any values into map[string]any.
// Maps with any non-string key are left as they are.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				for k2, e2 := range x {
					x[k2] = normalize(e2)
				}
				return x
			}
			out[ks] = normalize(e)
		}
		return out
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	default:
		return v
	}
}
