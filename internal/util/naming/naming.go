package naming

import "fmt"

// Node names are positional and 1-indexed, derived from the declared order of
// the node IP lists. Re-ordering a list renames nodes even though no machine
// changed; that trade-off keeps generated files human-navigable and stable
// across re-runs as long as the declaration is append-only.

func ControlPlane(n int) string {
	return fmt.Sprintf("control-plane-%d", n)
}

func Worker(n int) string {
	return fmt.Sprintf("worker-%d", n)
}

func MachineConfigFile(node string) string {
	return node + ".yaml"
}

// CredentialBundleFile is the well-known name of the cluster client
// credential bundle written next to the machine configs.
const CredentialBundleFile = "talosconfig"
