package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Committed fragments live in a versioned directory, one YAML document per
// file. Scope is encoded in the filename: cp-*.yaml applies to control-plane
// nodes, worker-*.yaml to workers, everything else cluster-wide.
//
// Generated-secret fragments are never read from here; they are produced
// in-memory by the secret generator and written only to the ephemeral output
// directory. The separation is structural, not convention.

// LoadCommitted reads all committed fragments from dir, sorted by filename
// for deterministic ordering.
func LoadCommitted(dir string) ([]Fragment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read committed patches directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	fragments := make([]Fragment, 0, len(names))
	for _, name := range names {
		// #nosec G304 -- path comes from the operator-supplied patches directory
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read committed fragment %s: %w", name, err)
		}

		var content map[string]any
		if err := yaml.Unmarshal(data, &content); err != nil {
			return nil, fmt.Errorf("failed to parse committed fragment %s: %w", name, err)
		}

		base := strings.TrimSuffix(name, filepath.Ext(name))
		fragments = append(fragments, Fragment{
			Name:    base,
			Class:   ClassCommitted,
			Scope:   scopeFromName(base),
			Content: content,
		})
	}

	return fragments, nil
}

func scopeFromName(base string) Scope {
	switch {
	case strings.HasPrefix(base, "cp-"):
		return ScopeControlPlane
	case strings.HasPrefix(base, "worker-"):
		return ScopeWorker
	default:
		return ScopeCluster
	}
}
