package config

// ClusterSpec is the validated cluster description.
//
// It is constructed once per invocation by Load and never mutated afterwards.
// Node IP lists are ordered; positional node names (control-plane-1, worker-1,
// ...) are derived from that order.
type ClusterSpec struct {
	ClusterName string `mapstructure:"cluster_name" yaml:"cluster_name"`

	// Endpoint is the cluster API endpoint URL, e.g. https://10.10.10.20:6443.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// VIP is the floating address shared across control-plane nodes.
	// Required whenever more than one control-plane node is declared.
	VIP string `mapstructure:"vip" yaml:"vip"`

	Gateway     string `mapstructure:"gateway" yaml:"gateway"`
	NetworkCIDR string `mapstructure:"network_cidr" yaml:"network_cidr"`

	TalosVersion      string `mapstructure:"talos_version" yaml:"talos_version"`
	KubernetesVersion string `mapstructure:"kubernetes_version" yaml:"kubernetes_version"`
	CiliumVersion     string `mapstructure:"cilium_version" yaml:"cilium_version"`

	InstallDisk string `mapstructure:"install_disk" yaml:"install_disk"`

	ControlPlaneIPs []string `mapstructure:"control_plane_ips" yaml:"control_plane_ips"`
	WorkerIPs       []string `mapstructure:"worker_ips" yaml:"worker_ips"`
}

// NodeCount returns the total number of declared nodes.
func (s *ClusterSpec) NodeCount() int {
	return len(s.ControlPlaneIPs) + len(s.WorkerIPs)
}

// HighlyAvailable reports whether the cluster has more than one control plane.
func (s *ClusterSpec) HighlyAvailable() bool {
	return len(s.ControlPlaneIPs) > 1
}
