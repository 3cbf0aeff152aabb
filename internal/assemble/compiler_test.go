package assemble

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbhdai/workshopctl/internal/config"
	"github.com/nbhdai/workshopctl/internal/patch"
)

func compilerSpec() *config.ClusterSpec {
	return &config.ClusterSpec{
		ClusterName:       "conference",
		Endpoint:          "https://10.10.10.21:6443",
		Gateway:           "10.10.10.1",
		NetworkCIDR:       "10.10.10.0/24",
		TalosVersion:      "v1.8.3",
		KubernetesVersion: "v1.31.0",
		CiliumVersion:     "1.16.5",
		InstallDisk:       "/dev/sda",
		ControlPlaneIPs:   []string{"10.10.10.21"},
		WorkerIPs:         []string{"10.10.10.22"},
	}
}

func identityPatch(hostname string) map[string]any {
	return map[string]any{
		"machine": map[string]any{"network": map[string]any{"hostname": hostname}},
	}
}

func TestTalosCompilerSavedSecretsReproduceIdenticalConfigs(t *testing.T) {
	secretsFile := filepath.Join(t.TempDir(), "secrets.json")
	spec := compilerSpec()

	first, err := NewTalosCompiler(spec, secretsFile)
	require.NoError(t, err)

	firstCP, err := first.Compile(context.Background(), patch.RoleControlPlane, identityPatch("control-plane-1"))
	require.NoError(t, err)
	firstWorker, err := first.Compile(context.Background(), patch.RoleWorker, identityPatch("worker-1"))
	require.NoError(t, err)

	info, err := os.Stat(secretsFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A second run over the same secrets file must emit the same bytes:
	// the cluster CA and tokens come from the saved bundle, not fresh
	// randomness.
	second, err := NewTalosCompiler(spec, secretsFile)
	require.NoError(t, err)

	secondCP, err := second.Compile(context.Background(), patch.RoleControlPlane, identityPatch("control-plane-1"))
	require.NoError(t, err)
	secondWorker, err := second.Compile(context.Background(), patch.RoleWorker, identityPatch("worker-1"))
	require.NoError(t, err)

	assert.Equal(t, firstCP, secondCP)
	assert.Equal(t, firstWorker, secondWorker)
}

func TestTalosCompilerInMemoryWithoutSecretsFile(t *testing.T) {
	c, err := NewTalosCompiler(compilerSpec(), "")
	require.NoError(t, err)

	data, err := c.Compile(context.Background(), patch.RoleWorker, identityPatch("worker-1"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "worker-1")
}

func TestTalosCompilerRejectsUnknownPatchKey(t *testing.T) {
	c, err := NewTalosCompiler(compilerSpec(), "")
	require.NoError(t, err)

	merged := map[string]any{
		"machine": map[string]any{"netwrok": map[string]any{"hostname": "worker-1"}},
	}

	_, err = c.Compile(context.Background(), patch.RoleWorker, merged)
	require.ErrorIs(t, err, ErrCompiler)
	assert.Contains(t, err.Error(), "worker")
}

func TestTalosCompilerCancelledContext(t *testing.T) {
	c, err := NewTalosCompiler(compilerSpec(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Compile(ctx, patch.RoleWorker, identityPatch("worker-1"))
	require.ErrorIs(t, err, ErrCompiler)
}
