package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLayersForNodeOrdering(t *testing.T) {
	spec := testSpec()

	committed := []Fragment{
		{Name: "system", Class: ClassCommitted, Scope: ScopeCluster, Content: map[string]any{"a": 1}},
		{Name: "cp-vip", Class: ClassCommitted, Scope: ScopeControlPlane, Content: map[string]any{"b": 2}},
	}
	generated := []Fragment{
		{Name: "registry-auth", Class: ClassGeneratedSecret, Scope: ScopeCluster, Content: map[string]any{"c": 3}},
	}

	ls, err := BuildLayers(spec, committed, generated)
	require.NoError(t, err)

	nodes := ls.Nodes()
	require.Len(t, nodes, 3)

	// Worker: the control-plane-scoped fragment is filtered out.
	workerLayers := ls.ForNode(nodes[1])
	require.Len(t, workerLayers, 3)
	assert.Equal(t, "system", workerLayers[0].Name)
	assert.Equal(t, "registry-auth", workerLayers[1].Name)
	assert.Equal(t, "node-worker-1", workerLayers[2].Name)

	// Control plane sees all shared fragments.
	cpLayers := ls.ForNode(nodes[0])
	require.Len(t, cpLayers, 4)
	assert.Equal(t, "node-control-plane-1", cpLayers[3].Name)
}

func TestBuildLayersRejectsMisclassifiedFragments(t *testing.T) {
	spec := testSpec()

	_, err := BuildLayers(spec, []Fragment{
		{Name: "sneaky", Class: ClassGeneratedSecret, Scope: ScopeCluster, Content: map[string]any{}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sneaky")

	_, err = BuildLayers(spec, nil, []Fragment{
		{Name: "wrong", Class: ClassCommitted, Scope: ScopeCluster, Content: map[string]any{}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong")
}

func TestBuildLayersDetectsConflicts(t *testing.T) {
	spec := testSpec()

	committed := []Fragment{
		{Name: "one", Class: ClassCommitted, Scope: ScopeCluster, Content: map[string]any{"k": "x"}},
		{Name: "two", Class: ClassCommitted, Scope: ScopeCluster, Content: map[string]any{"k": "y"}},
	}

	_, err := BuildLayers(spec, committed, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPatchConflict)
}
