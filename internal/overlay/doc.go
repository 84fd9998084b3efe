// Package overlay projects environment variables into structured configuration
// documents. A Rule names an environment variable and the key path it should
// be written to; Apply walks the rules in order and writes every variable that
// is present, creating intermediate mappings as needed and refusing to replace
// a non-mapping value that sits on the way to the target.
//
// Environment access is injected through a Lookup so that callers (and tests)
// decide where values come from.
package overlay
