package overlay

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilDocument is returned when Apply receives a nil document.
	ErrNilDocument = errors.New("document must be a mapping at its root")
	// ErrPathConflict is matched by every *PathConflictError.
	ErrPathConflict = errors.New("target path conflicts with an existing value")
	// ErrInvalidRule is matched by every *InvalidRuleError.
	ErrInvalidRule = errors.New("invalid overlay rule")
)

// PathConflictError reports a target path that cannot be written without
// replacing an existing non-mapping value on the way to the final segment.
// Path is the prefix of the rule's target path up to and including the
// offending intermediate segment.
type PathConflictError struct {
	Rule     Rule
	Path     []string
	Existing any
	// Missing is set when the segment was absent and the overlay was
	// configured to require existing intermediate mappings.
	Missing bool
}

func (e *PathConflictError) Error() string {
	at := strings.Join(e.Path, PathSeparator)
	if e.Missing {
		return fmt.Sprintf("%s: rule %s: segment %q does not exist", ErrPathConflict, e.Rule, at)
	}
	return fmt.Sprintf("%s: rule %s: intermediate segment %q holds a %T value %v", ErrPathConflict, e.Rule, at, e.Existing, e.Existing)
}

func (e *PathConflictError) Unwrap() error {
	return ErrPathConflict
}

// InvalidRuleError reports a malformed rule.
type InvalidRuleError struct {
	Rule   Rule
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidRule, e.Rule.String(), e.Reason)
}

func (e *InvalidRuleError) Unwrap() error {
	return ErrInvalidRule
}
