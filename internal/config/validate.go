package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrInvalidConfig indicates a bad or missing field in the cluster
// declaration. All load and validation failures wrap this sentinel.
var ErrInvalidConfig = errors.New("invalid cluster configuration")

// Validate checks the spec for missing fields, malformed addresses and
// duplicate node IPs. It is called by Load; callers constructing a spec
// directly (tests, embedding) should call it themselves.
func (s *ClusterSpec) Validate() error {
	if s.ClusterName == "" {
		return fmt.Errorf("%w: cluster_name is required", ErrInvalidConfig)
	}
	if s.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if u, err := url.Parse(s.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: endpoint %q is not a valid URL", ErrInvalidConfig, s.Endpoint)
	}
	if s.TalosVersion == "" {
		return fmt.Errorf("%w: talos_version is required", ErrInvalidConfig)
	}
	if s.CiliumVersion == "" {
		return fmt.Errorf("%w: cilium_version is required", ErrInvalidConfig)
	}

	if err := s.validateNetwork(); err != nil {
		return err
	}

	return s.validateNodes()
}

func (s *ClusterSpec) validateNetwork() error {
	if s.Gateway == "" {
		return fmt.Errorf("%w: gateway is required", ErrInvalidConfig)
	}
	if net.ParseIP(s.Gateway) == nil {
		return fmt.Errorf("%w: gateway %q is not a valid IP address", ErrInvalidConfig, s.Gateway)
	}

	if s.NetworkCIDR == "" {
		return fmt.Errorf("%w: network_cidr is required", ErrInvalidConfig)
	}
	if _, _, err := net.ParseCIDR(s.NetworkCIDR); err != nil {
		return fmt.Errorf("%w: invalid network_cidr: %v", ErrInvalidConfig, err)
	}

	if s.VIP != "" && net.ParseIP(s.VIP) == nil {
		return fmt.Errorf("%w: vip %q is not a valid IP address", ErrInvalidConfig, s.VIP)
	}

	return nil
}

func (s *ClusterSpec) validateNodes() error {
	// Zero control planes is a declaration bug, not a silent no-op.
	if len(s.ControlPlaneIPs) == 0 {
		return fmt.Errorf("%w: at least one control plane IP is required", ErrInvalidConfig)
	}

	// An HA cluster without a VIP has no stable API endpoint.
	if len(s.ControlPlaneIPs) > 1 && s.VIP == "" {
		return fmt.Errorf("%w: vip is required when more than one control plane IP is declared", ErrInvalidConfig)
	}

	seen := make(map[string]string, s.NodeCount())
	check := func(role string, ips []string) error {
		for _, ip := range ips {
			if net.ParseIP(ip) == nil {
				return fmt.Errorf("%w: %s IP %q is not a valid IP address", ErrInvalidConfig, role, ip)
			}
			if prev, dup := seen[ip]; dup {
				return fmt.Errorf("%w: node IP %s declared twice (%s and %s)", ErrInvalidConfig, ip, prev, role)
			}
			seen[ip] = role
		}
		return nil
	}

	if err := check("control plane", s.ControlPlaneIPs); err != nil {
		return err
	}
	return check("worker", s.WorkerIPs)
}

// PrefixLen returns the prefix length of the cluster network CIDR.
// Validate must have succeeded before calling this.
func (s *ClusterSpec) PrefixLen() int {
	_, ipnet, err := net.ParseCIDR(s.NetworkCIDR)
	if err != nil {
		return 24
	}
	ones, _ := ipnet.Mask.Size()
	return ones
}
