package patch

import "fmt"

// Class identifies where a fragment came from and where it sits in the merge
// order. Later classes override earlier ones on key conflict.
type Class int

const (
	// ClassCommitted fragments are read from the versioned patches directory.
	ClassCommitted Class = iota
	// ClassGeneratedSecret fragments embed credentials or rendered manifests.
	// They live only in the ephemeral output directory for the duration of a
	// pipeline run and are regenerated on demand, never cached.
	ClassGeneratedSecret
	// ClassPerNode fragments carry a single node's network identity.
	ClassPerNode
)

func (c Class) String() string {
	switch c {
	case ClassCommitted:
		return "committed"
	case ClassGeneratedSecret:
		return "generated-secret"
	case ClassPerNode:
		return "per-node"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Role of the node a fragment (or config) targets.
type Role string

const (
	RoleControlPlane Role = "controlplane"
	RoleWorker       Role = "worker"
)

// Scope narrows which nodes a fragment applies to.
type Scope string

const (
	ScopeCluster      Scope = "cluster-wide"
	ScopeControlPlane Scope = "control-plane"
	ScopeWorker       Scope = "worker"
)

// NodeScope returns the scope targeting a single node by IP.
func NodeScope(ip string) Scope {
	return Scope("node:" + ip)
}

// Fragment is a named, ordered unit of configuration to be merged.
type Fragment struct {
	Name    string
	Class   Class
	Scope   Scope
	Content map[string]any
}

// AppliesTo reports whether the fragment participates in the config of the
// given node.
func (f Fragment) AppliesTo(role Role, nodeIP string) bool {
	switch f.Scope {
	case ScopeCluster:
		return true
	case ScopeControlPlane:
		return role == RoleControlPlane
	case ScopeWorker:
		return role == RoleWorker
	default:
		return f.Scope == NodeScope(nodeIP)
	}
}
