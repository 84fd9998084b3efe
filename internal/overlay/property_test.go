package overlay

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var segmentGen = rapid.SampledFrom([]string{"analytics", "google", "site", "build", "tracking_id"})

func pathGen() *rapid.Generator[[]string] {
	return rapid.SliceOfN(segmentGen, 1, 4)
}

// documentGen builds small trees mixing mappings and scalars over the same
// key alphabet as pathGen so that rules hit existing values and conflicts.
func documentGen() *rapid.Generator[Document] {
	return rapid.Custom(func(t *rapid.T) Document {
		return Document(drawMapping(t, 0))
	})
}

func drawMapping(t *rapid.T, depth int) map[string]any {
	keys := rapid.SliceOfNDistinct(segmentGen, 0, 3, rapid.ID[string]).Draw(t, fmt.Sprintf("keys%d", depth))
	m := make(map[string]any, len(keys))
	for _, k := range keys {
		if depth < 2 && rapid.Bool().Draw(t, "nested") {
			m[k] = drawMapping(t, depth+1)
			continue
		}
		m[k] = rapid.SampledFrom([]any{"disabled", 42, true, nil}).Draw(t, "scalar")
	}
	return m
}

func TestPropertyUnsetVariableIsNoop(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		doc := documentGen().Draw(t, "doc")
		rule := NewRule("UNSET", pathGen().Draw(t, "path")...)
		before := doc.Clone()

		got, err := Apply(doc, []Rule{rule}, MapLookup(map[string]string{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(got, before) {
			t.Fatalf("document changed: before %#v after %#v", before, got)
		}
	})
}

func TestPropertySetVariableIsWrittenExactly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		doc := documentGen().Draw(t, "doc")
		path := pathGen().Draw(t, "path")
		value := rapid.String().Draw(t, "value")
		before := doc.Clone()

		got, err := Apply(doc, []Rule{NewRule("SET", path...)}, MapLookup(map[string]string{"SET": value}))
		if err != nil {
			var conflict *PathConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("unexpected error: %v", err)
			}
			// only an intermediate segment holding a non-mapping may block a write
			if len(conflict.Path) >= len(path) {
				t.Fatalf("conflict reported at final segment %v", conflict.Path)
			}
			existing, ok := before.Value(conflict.Path)
			if !ok {
				t.Fatalf("conflict at %v, which is absent from %#v", conflict.Path, before)
			}
			if _, isMapping := AsMapping(existing); isMapping {
				t.Fatalf("conflict at %v, which holds a mapping", conflict.Path)
			}
			return
		}
		v, ok := got.Value(path)
		if !ok || v != value {
			t.Fatalf("expected %q at %v, got %#v (%v)", value, path, v, ok)
		}
	})
}

func TestPropertyIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		doc := documentGen().Draw(t, "doc")
		paths := rapid.SliceOfN(pathGen(), 0, 4).Draw(t, "paths")
		env := make(map[string]string)
		rules := make([]Rule, 0, len(paths))
		for i, path := range paths {
			// a rule writing over another rule's intermediate turns the
			// second pass into a conflict
			if overlapsAny(path, rules) {
				continue
			}
			name := fmt.Sprintf("VAR_%d", i)
			rules = append(rules, NewRule(name, path...))
			if rapid.Bool().Draw(t, "set") {
				env[name] = rapid.String().Draw(t, "value")
			}
		}

		once, err := Apply(doc, rules, MapLookup(env))
		if err != nil {
			return
		}
		snapshot := once.Clone()

		twice, err := Apply(once, rules, MapLookup(env))
		if err != nil {
			t.Fatalf("second application failed: %v", err)
		}
		if !reflect.DeepEqual(twice, snapshot) {
			t.Fatalf("not idempotent: once %#v twice %#v", snapshot, twice)
		}
	})
}

// overlapsAny reports whether path is a proper prefix of, or is prefixed
// by, the path of any rule. Equal paths do not overlap.
func overlapsAny(path []string, rules []Rule) bool {
	for _, rule := range rules {
		n := min(len(path), len(rule.Path))
		if len(path) == len(rule.Path) || !reflect.DeepEqual(path[:n], rule.Path[:n]) {
			continue
		}
		return true
	}
	return false
}

func TestPropertyDisjointRulesCommute(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "n")
		env := make(map[string]string, n)
		rules := make([]Rule, 0, n)
		for i := 0; i < n; i++ {
			// leaf names are unique and never used as intermediates, so no
			// path is a prefix of another
			prefix := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b"}), 0, 2).Draw(t, "prefix")
			path := append(prefix, fmt.Sprintf("leaf%d", i))
			name := fmt.Sprintf("VAR_%d", i)
			rules = append(rules, NewRule(name, path...))
			env[name] = rapid.String().Draw(t, "value")
		}
		shuffled := rapid.Permutation(rules).Draw(t, "shuffled")

		inOrder, err := Apply(Document{}, rules, MapLookup(env))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		permuted, err := Apply(Document{}, shuffled, MapLookup(env))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(inOrder, permuted) {
			t.Fatalf("order dependent result: %#v vs %#v", inOrder, permuted)
		}
	})
}

func TestScenarios(t *testing.T) {
	rule := NewRule("GOOGLE_ANALYTICS_TRACKING_ID", "analytics", "google", "tracking_id")

	t.Run("VariableSet", func(t *testing.T) {
		got, err := Apply(Document{}, []Rule{rule}, MapLookup(map[string]string{"GOOGLE_ANALYTICS_TRACKING_ID": "UA-12345-1"}))
		require.NoError(t, err)
		require.Equal(t, Document{
			"analytics": map[string]any{"google": map[string]any{"tracking_id": "UA-12345-1"}},
		}, got)
	})

	t.Run("VariableUnset", func(t *testing.T) {
		got, err := Apply(Document{}, []Rule{rule}, MapLookup(nil))
		require.NoError(t, err)
		require.Equal(t, Document{}, got)
	})

	t.Run("ScalarWhereMappingExpected", func(t *testing.T) {
		_, err := Apply(Document{"analytics": "disabled"}, []Rule{rule}, MapLookup(map[string]string{"GOOGLE_ANALYTICS_TRACKING_ID": "UA-12345-1"}))
		var conflict *PathConflictError
		require.ErrorAs(t, err, &conflict)
		require.ErrorIs(t, err, ErrPathConflict)
	})
}
