// Package document reads and writes configuration documents in YAML, JSON
// and TOML, and merges several documents into one. Decoded trees are
// normalized so that every string-keyed mapping is a map[string]any.
package document
