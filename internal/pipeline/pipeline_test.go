package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nbhdai/workshopctl/internal/assemble"
	"github.com/nbhdai/workshopctl/internal/config"
	"github.com/nbhdai/workshopctl/internal/patch"
	"github.com/nbhdai/workshopctl/internal/secretgen"
)

type staticRenderer struct{ manifest string }

func (s staticRenderer) Render(context.Context, string, string, map[string]any) ([]byte, error) {
	return []byte(s.manifest), nil
}

// passthroughCompiler emits the merged document unchanged.
type passthroughCompiler struct{}

func (passthroughCompiler) Compile(_ context.Context, role patch.Role, merged map[string]any) ([]byte, error) {
	return yaml.Marshal(map[string]any{"role": string(role), "config": merged})
}

func (passthroughCompiler) ClientConfig(context.Context) ([]byte, error) {
	return []byte("context: conference\n"), nil
}

func pipelineSpec() *config.ClusterSpec {
	return &config.ClusterSpec{
		ClusterName:     "conference",
		Endpoint:        "https://10.10.10.21:6443",
		Gateway:         "10.10.10.1",
		NetworkCIDR:     "10.10.10.0/24",
		TalosVersion:    "v1.8.3",
		CiliumVersion:   "1.16.5",
		ControlPlaneIPs: []string{"10.10.10.21"},
		WorkerIPs:       []string{"10.10.10.22", "10.10.10.23"},
	}
}

func writePatches(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "system.yaml"),
		[]byte("machine:\n  install:\n    wipe: true\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cp-scheduling.yaml"),
		[]byte("cluster:\n  allowSchedulingOnControlPlanes: false\n"), 0o600))
	return dir
}

func defaultOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Spec:         pipelineSpec(),
		Credentials:  secretgen.Credentials{Username: "octocat", Token: "tok"},
		CNIValues:    []byte("ipam:\n  mode: kubernetes\n"),
		PatchesDir:   writePatches(t),
		EphemeralDir: filepath.Join(t.TempDir(), "generated"),
		OutputDir:    filepath.Join(t.TempDir(), "out"),
		Renderer:     staticRenderer{manifest: "kind: DaemonSet\n"},
		Compiler:     passthroughCompiler{},
	}
}

func TestRunEndToEnd(t *testing.T) {
	opts := defaultOptions(t)

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)

	// Exactly three configs, positionally named, plus one bundle.
	require.Len(t, result.Configs, 3)
	names := []string{}
	for _, c := range result.Configs {
		names = append(names, c.Node.Name)
	}
	assert.Equal(t, []string{"control-plane-1", "worker-1", "worker-2"}, names)

	data, err := os.ReadFile(result.CredentialBundlePath)
	require.NoError(t, err)
	assert.Equal(t, "context: conference\n", string(data))

	// The worker config carries committed, secret and per-node content.
	raw, err := os.ReadFile(filepath.Join(opts.OutputDir, "worker-1.yaml"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	cfg := doc["config"].(map[string]any)
	machine := cfg["machine"].(map[string]any)

	assert.Equal(t, true, machine["install"].(map[string]any)["wipe"])
	assert.Contains(t, machine, "registries")
	assert.Equal(t, "worker-1", machine["network"].(map[string]any)["hostname"])

	// Control-plane-scoped fragment is absent from the worker doc.
	_, hasCluster := cfg["cluster"].(map[string]any)["allowSchedulingOnControlPlanes"]
	assert.False(t, hasCluster)
}

func TestRunTwiceIsByteIdentical(t *testing.T) {
	optsA := defaultOptions(t)
	optsB := optsA
	optsB.OutputDir = filepath.Join(t.TempDir(), "out-b")
	optsB.EphemeralDir = filepath.Join(t.TempDir(), "generated-b")

	_, err := Run(context.Background(), optsA)
	require.NoError(t, err)
	_, err = Run(context.Background(), optsB)
	require.NoError(t, err)

	read := func(dir string) map[string]string {
		out := map[string]string{}
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			out[e.Name()] = string(data)
		}
		return out
	}

	assert.Equal(t, read(optsA.OutputDir), read(optsB.OutputDir))
}

func TestRunWritesSecretFragmentsOnlyToEphemeralDir(t *testing.T) {
	opts := defaultOptions(t)

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	// Ephemeral dir holds the two generated fragments.
	entries, err := os.ReadDir(opts.EphemeralDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"registry-auth.yaml", "cni.yaml"}, names)

	// The committed-fragment read path never lists them.
	committed, err := patch.LoadCommitted(opts.PatchesDir)
	require.NoError(t, err)
	for _, f := range committed {
		assert.NotContains(t, []string{"registry-auth", "cni"}, f.Name)
	}
}

func TestRunMissingCredentialsFails(t *testing.T) {
	opts := defaultOptions(t)
	opts.Credentials = secretgen.Credentials{}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, secretgen.ErrMissingCredentials)

	// Nothing was assembled.
	_, statErr := os.Stat(opts.OutputDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunConflictingCommittedFragmentsFail(t *testing.T) {
	opts := defaultOptions(t)
	require.NoError(t, os.WriteFile(filepath.Join(opts.PatchesDir, "zz-dup.yaml"),
		[]byte("machine:\n  install:\n    wipe: false\n"), 0o600))

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, patch.ErrPatchConflict)
}

var _ assemble.Compiler = passthroughCompiler{}
