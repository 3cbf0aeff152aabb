package patch

import (
	"fmt"

	"github.com/nbhdai/workshopctl/internal/config"
	"github.com/nbhdai/workshopctl/internal/util/naming"
)

// Node pairs a declared node IP with its positional name and role.
type Node struct {
	Name string
	IP   string
	Role Role
}

// Nodes returns the declared nodes in declaration order, control planes
// first. Names are positional and 1-indexed.
func Nodes(spec *config.ClusterSpec) []Node {
	nodes := make([]Node, 0, spec.NodeCount())
	for i, ip := range spec.ControlPlaneIPs {
		nodes = append(nodes, Node{Name: naming.ControlPlane(i + 1), IP: ip, Role: RoleControlPlane})
	}
	for i, ip := range spec.WorkerIPs {
		nodes = append(nodes, Node{Name: naming.Worker(i + 1), IP: ip, Role: RoleWorker})
	}
	return nodes
}

// BuildNodeFragment synthesizes the per-node network identity fragment:
// hostname, static address, default route and, on control-plane nodes of an
// HA cluster, the VIP binding.
func BuildNodeFragment(spec *config.ClusterSpec, node Node) Fragment {
	iface := map[string]any{
		"interface": "eth0",
		"dhcp":      false,
		"addresses": []any{fmt.Sprintf("%s/%d", node.IP, spec.PrefixLen())},
		"routes": []any{
			map[string]any{
				"network": "0.0.0.0/0",
				"gateway": spec.Gateway,
			},
		},
	}

	if node.Role == RoleControlPlane && spec.VIP != "" {
		iface["vip"] = map[string]any{"ip": spec.VIP}
	}

	return Fragment{
		Name:  "node-" + node.Name,
		Class: ClassPerNode,
		Scope: NodeScope(node.IP),
		Content: map[string]any{
			"machine": map[string]any{
				"network": map[string]any{
					"hostname":   node.Name,
					"interfaces": []any{iface},
				},
			},
		},
	}
}
