package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	machineryconfig "github.com/siderolabs/talos/pkg/machinery/config"
	"github.com/siderolabs/talos/pkg/machinery/config/configloader"
	"github.com/siderolabs/talos/pkg/machinery/config/generate"
	"github.com/siderolabs/talos/pkg/machinery/config/generate/secrets"
	"github.com/siderolabs/talos/pkg/machinery/config/machine"
	"github.com/siderolabs/talos/pkg/machinery/config/validation"
	"gopkg.in/yaml.v3"

	"github.com/nbhdai/workshopctl/internal/config"
	"github.com/nbhdai/workshopctl/internal/patch"
)

// ErrCompiler indicates the external config compiler rejected a merged
// document.
var ErrCompiler = errors.New("config compiler error")

// Compiler produces a machine config for a role from a merged patch
// document, and the cluster client credential bundle.
type Compiler interface {
	Compile(ctx context.Context, role patch.Role, merged map[string]any) ([]byte, error)
	ClientConfig(ctx context.Context) ([]byte, error)
}

// TalosCompiler compiles machine configs with the Talos machinery generator.
// The base template per role comes from generate.NewInput; the merged patch
// document is deep-merged on top.
type TalosCompiler struct {
	clusterName       string
	endpoint          string
	talosVersion      string
	kubernetesVersion string
	installDisk       string
	secretsBundle     *secrets.Bundle
}

// NewTalosCompiler builds a compiler for the cluster described by spec.
// Cluster secrets are loaded from secretsFile when it exists; otherwise a
// fresh bundle is generated and saved there. Re-running over the same
// secrets file reproduces identical machine configs, so a failed run can be
// inspected and retried from scratch without rotating the cluster CA. An
// empty secretsFile keeps the bundle in memory only.
func NewTalosCompiler(spec *config.ClusterSpec, secretsFile string) (*TalosCompiler, error) {
	vc, err := machineryconfig.ParseContractFromVersion(spec.TalosVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse version contract: %v", ErrCompiler, err)
	}

	sb, err := loadOrCreateSecrets(secretsFile, vc)
	if err != nil {
		return nil, err
	}

	return &TalosCompiler{
		clusterName:  spec.ClusterName,
		endpoint:     spec.Endpoint,
		talosVersion: spec.TalosVersion,
		// Talos machinery adds the 'v' prefix itself.
		kubernetesVersion: strings.TrimPrefix(spec.KubernetesVersion, "v"),
		installDisk:       spec.InstallDisk,
		secretsBundle:     sb,
	}, nil
}

func loadOrCreateSecrets(path string, vc *machineryconfig.VersionContract) (*secrets.Bundle, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			sb, err := secrets.LoadBundle(path)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to load secrets bundle: %v", ErrCompiler, err)
			}
			// Loaded bundles come back without a clock.
			sb.Clock = secrets.NewFixedClock(time.Now())
			return sb, nil
		}
	}

	sb, err := secrets.NewBundle(secrets.NewFixedClock(time.Now()), vc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create secrets bundle: %v", ErrCompiler, err)
	}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("%w: failed to create secrets directory: %v", ErrCompiler, err)
		}
		data, err := yaml.Marshal(sb)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to marshal secrets bundle: %v", ErrCompiler, err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, fmt.Errorf("%w: failed to write secrets bundle: %v", ErrCompiler, err)
		}
	}

	return sb, nil
}

// Compile generates the base config for the role and applies the merged
// patch document with a deep merge.
func (c *TalosCompiler) Compile(ctx context.Context, role patch.Role, merged map[string]any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompiler, err)
	}

	machineType := machine.TypeWorker
	if role == patch.RoleControlPlane {
		machineType = machine.TypeControlPlane
	}

	base, err := c.generateBase(machineType)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(base, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal base config: %v", ErrCompiler, err)
	}

	deepMerge(doc, merged)

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal machine config: %v", ErrCompiler, err)
	}

	// Round-trip through the machinery loader so a mistyped patch key or a
	// schema violation fails the run instead of shipping in the config.
	provider, err := configloader.NewFromBytes(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s config rejected: %v", ErrCompiler, role, err)
	}
	if _, err := provider.Validate(metalMode{}, validation.WithLocal()); err != nil {
		return nil, fmt.Errorf("%w: %s config invalid: %v", ErrCompiler, role, err)
	}

	return out, nil
}

// metalMode is the runtime mode machine configs are validated against.
type metalMode struct{}

func (metalMode) String() string        { return "metal" }
func (metalMode) RequiresInstall() bool { return true }
func (metalMode) InContainer() bool     { return false }

func (c *TalosCompiler) generateBase(machineType machine.Type) ([]byte, error) {
	input, err := c.newInput()
	if err != nil {
		return nil, err
	}

	cfg, err := input.Config(machineType)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate %s config: %v", ErrCompiler, machineType, err)
	}

	bytes, err := cfg.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompiler, err)
	}

	return stripComments(bytes), nil
}

// ClientConfig returns the talosconfig credential bundle for the cluster.
func (c *TalosCompiler) ClientConfig(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompiler, err)
	}

	input, err := c.newInput()
	if err != nil {
		return nil, err
	}

	clientCfg, err := input.Talosconfig()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate client config: %v", ErrCompiler, err)
	}

	bytes, err := clientCfg.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompiler, err)
	}

	return bytes, nil
}

func (c *TalosCompiler) newInput() (*generate.Input, error) {
	vc, err := machineryconfig.ParseContractFromVersion(c.talosVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse version contract: %v", ErrCompiler, err)
	}

	input, err := generate.NewInput(
		c.clusterName,
		c.endpoint,
		c.kubernetesVersion,
		generate.WithVersionContract(vc),
		generate.WithSecretsBundle(c.secretsBundle),
		generate.WithInstallDisk(c.installDisk),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create generator input: %v", ErrCompiler, err)
	}

	return input, nil
}

// deepMerge recursively merges src into dst.
// For maps, it merges recursively. For other types, src overwrites dst.
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
		dst[key] = srcVal
	}
}

func stripComments(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	var result []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		result = append(result, line)
	}
	return []byte(strings.Join(result, "\n"))
}
