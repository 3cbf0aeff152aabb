package patch

import (
	"fmt"

	"github.com/nbhdai/workshopctl/internal/config"
)

// LayerSet holds the ordered patch layers for a cluster: committed and
// generated-secret fragments shared across nodes, plus one synthesized
// per-node fragment for every declared IP.
type LayerSet struct {
	shared  []Fragment
	perNode map[string]Fragment
	nodes   []Node
}

// BuildLayers combines committed and generated-secret fragments with
// synthesized per-node fragments and validates them as a set. Same-class,
// same-scope scalar conflicts fail with ErrPatchConflict.
func BuildLayers(spec *config.ClusterSpec, committed, generated []Fragment) (*LayerSet, error) {
	for _, f := range committed {
		if f.Class != ClassCommitted {
			return nil, fmt.Errorf("fragment %q read from committed storage has class %s", f.Name, f.Class)
		}
	}
	for _, f := range generated {
		if f.Class != ClassGeneratedSecret {
			return nil, fmt.Errorf("generated fragment %q has class %s", f.Name, f.Class)
		}
	}

	nodes := Nodes(spec)
	perNode := make(map[string]Fragment, len(nodes))

	all := make([]Fragment, 0, len(committed)+len(generated)+len(nodes))
	all = append(all, committed...)
	all = append(all, generated...)
	for _, node := range nodes {
		f := BuildNodeFragment(spec, node)
		perNode[node.IP] = f
		all = append(all, f)
	}

	if err := CheckConflicts(all); err != nil {
		return nil, err
	}

	shared := make([]Fragment, 0, len(committed)+len(generated))
	shared = append(shared, committed...)
	shared = append(shared, generated...)

	return &LayerSet{shared: shared, perNode: perNode, nodes: nodes}, nil
}

// Nodes returns the declared nodes in declaration order.
func (ls *LayerSet) Nodes() []Node {
	return ls.nodes
}

// ForNode returns the ordered fragment sequence for a single node: applicable
// committed fragments, then applicable generated-secret fragments, then the
// node's own identity fragment. Merge re-sorts by class, so the per-node
// fragment always lands last.
func (ls *LayerSet) ForNode(node Node) []Fragment {
	layers := make([]Fragment, 0, len(ls.shared)+1)
	for _, f := range ls.shared {
		if f.AppliesTo(node.Role, node.IP) {
			layers = append(layers, f)
		}
	}
	layers = append(layers, ls.perNode[node.IP])
	return layers
}
