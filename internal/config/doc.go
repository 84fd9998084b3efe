// Package config loads envoverlay's own settings from multiple sources (YAML
// settings file, ENVOVERLAY_* environment variables, CLI flags) with
// precedence: CLI flags > YAML config > Environment variables > Defaults.
// These settings choose the documents to load, the overlay rules and the
// HTTP server parameters; they are unrelated to the documents themselves.
package config
