package patch

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// ErrPatchConflict indicates two fragments of the same class and scope set
// the identical scalar leaf to different values. Same-priority conflicts are
// ambiguous authorial intent and fail hard instead of being resolved by
// ordering.
var ErrPatchConflict = errors.New("patch conflict")

// Merge applies the fragments to an empty document in deterministic order:
// by class (committed, generated-secret, per-node), then by name within a
// class. Nested maps merge recursively; list and scalar values are replaced
// wholesale by the later fragment.
//
// Merging the same fragment set twice yields an identical document, and the
// input fragments are never modified.
func Merge(fragments []Fragment) (map[string]any, error) {
	if err := CheckConflicts(fragments); err != nil {
		return nil, err
	}

	ordered := make([]Fragment, len(fragments))
	copy(ordered, fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Class != ordered[j].Class {
			return ordered[i].Class < ordered[j].Class
		}
		return ordered[i].Name < ordered[j].Name
	})

	doc := map[string]any{}
	for _, f := range ordered {
		deepMerge(doc, f.Content)
	}
	return doc, nil
}

// CheckConflicts validates that no two fragments of the same class and scope
// disagree on a scalar leaf.
func CheckConflicts(fragments []Fragment) error {
	type leafOwner struct {
		fragment string
		value    any
	}

	groups := map[string]map[string]leafOwner{}
	for _, f := range fragments {
		key := fmt.Sprintf("%s/%s", f.Class, f.Scope)
		leaves := groups[key]
		if leaves == nil {
			leaves = map[string]leafOwner{}
			groups[key] = leaves
		}

		for path, value := range collectLeaves("", f.Content) {
			prev, ok := leaves[path]
			if ok && !reflect.DeepEqual(prev.value, value) {
				return fmt.Errorf("%w: fragments %q and %q (%s, %s) set %s to different values",
					ErrPatchConflict, prev.fragment, f.Name, f.Class, f.Scope, path)
			}
			if !ok {
				leaves[path] = leafOwner{fragment: f.Name, value: value}
			}
		}
	}
	return nil
}

// collectLeaves flattens a document into dotted leaf paths. Lists are leaves:
// they are replaced wholesale on merge, so two fragments disagreeing on a
// list is the same kind of conflict as disagreeing on a scalar.
func collectLeaves(prefix string, doc map[string]any) map[string]any {
	leaves := map[string]any{}
	for key, value := range doc {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for p, v := range collectLeaves(path, nested) {
				leaves[p] = v
			}
			continue
		}
		leaves[path] = value
	}
	return leaves
}

// deepMerge recursively merges src into dst.
// For maps, it merges recursively. For other types, src overwrites dst.
// Inserted values are deep copies: dst never aliases src's nested maps, so
// merging later fragments cannot write through into an earlier fragment's
// Content.
func deepMerge(dst, src map[string]any) {
	for key, srcVal := range src {
		if dstVal, exists := dst[key]; exists {
			srcMap, srcIsMap := srcVal.(map[string]any)
			dstMap, dstIsMap := dstVal.(map[string]any)
			if srcIsMap && dstIsMap {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = deepCopy(srcVal)
	}
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			out[k] = deepCopy(nested)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}
