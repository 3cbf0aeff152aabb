package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Load reads a cluster declaration from path and returns a validated spec.
//
// Files ending in .yaml or .yml are decoded as YAML; anything else is parsed
// as a key-value declaration (CLUSTER_NAME=..., CONTROL_PLANE_IPS="a b c").
func Load(path string) (*ClusterSpec, error) {
	// #nosec G304 -- path is the operator-supplied declaration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read cluster declaration: %v", ErrInvalidConfig, err)
	}

	var spec *ClusterSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		spec, err = parseYAML(data)
	default:
		spec, err = parseDeclaration(data)
	}
	if err != nil {
		return nil, err
	}

	spec.applyDefaults()

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return spec, nil
}

// parseYAML decodes a YAML cluster declaration.
func parseYAML(data []byte) (*ClusterSpec, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal yaml: %v", ErrInvalidConfig, err)
	}

	var spec ClusterSpec
	if err := mapstructure.Decode(raw, &spec); err != nil {
		return nil, fmt.Errorf("%w: failed to decode cluster declaration: %v", ErrInvalidConfig, err)
	}

	return &spec, nil
}

// declarationKeys maps declaration-file keys to ClusterSpec fields.
// IP list values are whitespace-separated.
var declarationKeys = map[string]func(*ClusterSpec, string){
	"CLUSTER_NAME":       func(s *ClusterSpec, v string) { s.ClusterName = v },
	"CLUSTER_ENDPOINT":   func(s *ClusterSpec, v string) { s.Endpoint = v },
	"VIP_IP":             func(s *ClusterSpec, v string) { s.VIP = v },
	"GATEWAY":            func(s *ClusterSpec, v string) { s.Gateway = v },
	"NETWORK_CIDR":       func(s *ClusterSpec, v string) { s.NetworkCIDR = v },
	"TALOS_VERSION":      func(s *ClusterSpec, v string) { s.TalosVersion = v },
	"KUBERNETES_VERSION": func(s *ClusterSpec, v string) { s.KubernetesVersion = v },
	"CILIUM_VERSION":     func(s *ClusterSpec, v string) { s.CiliumVersion = v },
	"INSTALL_DISK":       func(s *ClusterSpec, v string) { s.InstallDisk = v },
	"CONTROL_PLANE_IPS":  func(s *ClusterSpec, v string) { s.ControlPlaneIPs = strings.Fields(v) },
	"WORKER_IPS":         func(s *ClusterSpec, v string) { s.WorkerIPs = strings.Fields(v) },
}

// parseDeclaration parses the key-value declaration format.
//
// Blank lines and #-comments are skipped. Values may be single- or
// double-quoted; quotes are stripped. Unknown keys are rejected so that a
// typo in the declaration fails loudly instead of silently dropping a field.
func parseDeclaration(data []byte) (*ClusterSpec, error) {
	spec := &ClusterSpec{}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%w: line %d: expected KEY=VALUE, got %q", ErrInvalidConfig, lineNo, line)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)

		set, ok := declarationKeys[key]
		if !ok {
			return nil, fmt.Errorf("%w: line %d: unknown key %q", ErrInvalidConfig, lineNo, key)
		}
		set(spec, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to scan declaration: %v", ErrInvalidConfig, err)
	}

	return spec, nil
}

// applyDefaults fills optional fields the declaration may omit.
func (s *ClusterSpec) applyDefaults() {
	if s.KubernetesVersion == "" {
		s.KubernetesVersion = "v1.31.0"
	}
	if s.InstallDisk == "" {
		s.InstallDisk = "/dev/sda"
	}
}
