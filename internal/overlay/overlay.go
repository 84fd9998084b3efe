package overlay

import (
	"strings"

	"go.uber.org/zap"
)

// Option configures an Overlay.
type Option func(*Overlay)

// WithNullForUnset writes nil at the target path when the variable is unset
// instead of leaving the path untouched.
func WithNullForUnset(enabled bool) Option {
	return func(o *Overlay) {
		o.nullForUnset = enabled
	}
}

// WithRequireExisting makes a missing intermediate segment a path conflict
// instead of creating an empty mapping for it.
func WithRequireExisting(enabled bool) Option {
	return func(o *Overlay) {
		o.requireExisting = enabled
	}
}

// WithLogger logs one debug line per rule. Variable values are never logged.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Overlay) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Overlay applies rules against an injected environment. It holds no state
// between calls.
type Overlay struct {
	lookup          Lookup
	nullForUnset    bool
	requireExisting bool
	logger          *zap.Logger
}

// New creates an Overlay reading variables through lookup. A nil lookup reads
// the process environment.
func New(lookup Lookup, opts ...Option) *Overlay {
	if lookup == nil {
		lookup = OSLookup
	}
	o := &Overlay{
		lookup: lookup,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Apply is shorthand for New(lookup, opts...).Apply(doc, rules).
func Apply(doc Document, rules []Rule, lookup Lookup, opts ...Option) (Document, error) {
	return New(lookup, opts...).Apply(doc, rules)
}

// Apply writes every set variable named by rules into doc, in rule order, and
// returns doc. The document is mutated in place.
//
// All rules are validated before doc is touched. A path conflict stops at the
// failing rule; rules before it have already been written.
func (o *Overlay) Apply(doc Document, rules []Rule) (Document, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
	}

	for _, rule := range rules {
		raw, ok := o.lookup(rule.Env)
		if !ok && !o.nullForUnset {
			o.logger.Debug("overlay rule skipped, variable unset",
				zap.String("env", rule.Env),
				zap.String("path", strings.Join(rule.Path, PathSeparator)),
			)
			continue
		}

		var value any
		if ok {
			value = raw
		}
		if err := o.set(doc, rule, value); err != nil {
			return nil, err
		}

		o.logger.Debug("overlay rule applied",
			zap.String("env", rule.Env),
			zap.String("path", strings.Join(rule.Path, PathSeparator)),
			zap.Bool("null", !ok),
		)
	}

	return doc, nil
}

func (o *Overlay) set(doc Document, rule Rule, value any) error {
	node := map[string]any(doc)
	last := len(rule.Path) - 1

	for i, segment := range rule.Path[:last] {
		next, exists := node[segment]
		if !exists {
			if o.requireExisting {
				return &PathConflictError{Rule: rule, Path: clonePath(rule.Path[:i+1]), Missing: true}
			}
			child := make(map[string]any)
			node[segment] = child
			node = child
			continue
		}

		child, ok := AsMapping(next)
		if !ok {
			return &PathConflictError{Rule: rule, Path: clonePath(rule.Path[:i+1]), Existing: next}
		}
		node = child
	}

	// the final segment is always overwritten, whatever it holds
	node[rule.Path[last]] = value
	return nil
}

func clonePath(path []string) []string {
	return append([]string(nil), path...)
}
