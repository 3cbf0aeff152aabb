package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbhdai/workshopctl/internal/assemble"
	"github.com/nbhdai/workshopctl/internal/config"
	"github.com/nbhdai/workshopctl/internal/patch"
	"github.com/nbhdai/workshopctl/internal/pipeline"
	"github.com/nbhdai/workshopctl/internal/render"
	"github.com/nbhdai/workshopctl/internal/secretgen"
)

func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadSpec := loadSpec
	origCredentialsFromEnv := credentialsFromEnv
	origNewCompiler := newCompiler
	origRunPipeline := runPipeline
	origReadFile := readFile

	t.Cleanup(func() {
		loadSpec = origLoadSpec
		credentialsFromEnv = origCredentialsFromEnv
		newCompiler = origNewCompiler
		runPipeline = origRunPipeline
		readFile = origReadFile
	})
}

func testSpec() *config.ClusterSpec {
	return &config.ClusterSpec{
		ClusterName:       "workshop",
		Endpoint:          "https://10.10.10.10:6443",
		VIP:               "10.10.10.10",
		Gateway:           "10.10.10.1",
		NetworkCIDR:       "10.10.10.0/24",
		TalosVersion:      "v1.8.0",
		KubernetesVersion: "v1.31.0",
		CiliumVersion:     "1.16.3",
		InstallDisk:       "/dev/sda",
		ControlPlaneIPs:   []string{"10.10.10.11"},
		WorkerIPs:         []string{"10.10.10.21"},
	}
}

type nopCompiler struct{}

func (nopCompiler) Compile(context.Context, patch.Role, map[string]any) ([]byte, error) {
	return []byte("machine: {}\n"), nil
}

func (nopCompiler) ClientConfig(context.Context) ([]byte, error) {
	return []byte("context: workshop\n"), nil
}

func TestGenerate_WiresPipelineOptions(t *testing.T) {
	saveAndRestoreFactories(t)

	spec := testSpec()
	loadSpec = func(path string) (*config.ClusterSpec, error) {
		assert.Equal(t, "cluster.env", path)
		return spec, nil
	}
	credentialsFromEnv = func() secretgen.Credentials {
		return secretgen.Credentials{Username: "octocat", Token: "ghp_test"}
	}
	var secretsFile string
	newCompiler = func(_ *config.ClusterSpec, path string) (assemble.Compiler, error) {
		secretsFile = path
		return nopCompiler{}, nil
	}
	readFile = func(string) ([]byte, error) {
		return []byte("ipam:\n  mode: kubernetes\n"), nil
	}

	var got pipeline.Options
	runPipeline = func(_ context.Context, opts pipeline.Options) (*assemble.Result, error) {
		got = opts
		return &assemble.Result{}, nil
	}

	err := Generate(context.Background(), GenerateOptions{
		ClusterFile:   "cluster.env",
		PatchesDir:    "patches",
		ValuesFile:    "values/cilium.yaml",
		ChartDir:      "charts",
		OutputDir:     "generated/configs",
		EphemeralDir:  "generated/secrets",
		RenderTimeout: 2 * time.Minute,
	})
	require.NoError(t, err)

	assert.Same(t, spec, got.Spec)
	assert.Equal(t, "octocat", got.Credentials.Username)
	assert.Equal(t, "patches", got.PatchesDir)
	assert.Equal(t, "generated/secrets", got.EphemeralDir)
	assert.Equal(t, "generated/configs", got.OutputDir)
	assert.Equal(t, 2*time.Minute, got.RenderTimeout)
	assert.Equal(t, []byte("ipam:\n  mode: kubernetes\n"), got.CNIValues)
	assert.Equal(t, filepath.Join("generated/secrets", "secrets.json"), secretsFile)

	renderer, ok := got.Renderer.(*render.HelmRenderer)
	require.True(t, ok)
	assert.Equal(t, "charts", renderer.ChartDir)
	assert.Equal(t, "kube-system", renderer.Namespace)
	assert.Equal(t, spec.KubernetesVersion, renderer.KubeVersion)
}

func TestGenerate_InvalidSpec(t *testing.T) {
	saveAndRestoreFactories(t)

	loadSpec = func(string) (*config.ClusterSpec, error) {
		return nil, config.ErrInvalidConfig
	}
	ran := false
	runPipeline = func(context.Context, pipeline.Options) (*assemble.Result, error) {
		ran = true
		return &assemble.Result{}, nil
	}

	err := Generate(context.Background(), GenerateOptions{ClusterFile: "cluster.env"})
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.False(t, ran)
}

func TestGenerate_MissingCredentials(t *testing.T) {
	saveAndRestoreFactories(t)

	loadSpec = func(string) (*config.ClusterSpec, error) {
		return testSpec(), nil
	}
	credentialsFromEnv = func() secretgen.Credentials {
		return secretgen.Credentials{}
	}
	readFile = func(string) ([]byte, error) {
		return nil, os.ErrNotExist
	}
	newCompiler = func(*config.ClusterSpec, string) (assemble.Compiler, error) {
		return nopCompiler{}, nil
	}
	runPipeline = func(_ context.Context, opts pipeline.Options) (*assemble.Result, error) {
		// The pipeline surfaces empty credentials before writing anything.
		assert.Empty(t, opts.Credentials.Username)
		return nil, secretgen.ErrMissingCredentials
	}

	err := Generate(context.Background(), GenerateOptions{ClusterFile: "cluster.env"})
	require.ErrorIs(t, err, secretgen.ErrMissingCredentials)
}

func TestGenerate_CompilerError(t *testing.T) {
	saveAndRestoreFactories(t)

	loadSpec = func(string) (*config.ClusterSpec, error) {
		return testSpec(), nil
	}
	credentialsFromEnv = func() secretgen.Credentials {
		return secretgen.Credentials{Username: "u", Token: "t"}
	}
	readFile = func(string) ([]byte, error) {
		return nil, os.ErrNotExist
	}
	newCompiler = func(*config.ClusterSpec, string) (assemble.Compiler, error) {
		return nil, errors.New("unknown talos version")
	}

	err := Generate(context.Background(), GenerateOptions{ClusterFile: "cluster.env"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown talos version")
}

func TestLoadValues_MissingFileIsOptional(t *testing.T) {
	saveAndRestoreFactories(t)
	readFile = os.ReadFile

	values, err := loadValues(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Nil(t, values)
}

func TestLoadValues_ReadsRawDocument(t *testing.T) {
	saveAndRestoreFactories(t)

	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ipam:\n  mode: kubernetes\n"), 0o600))
	readFile = os.ReadFile

	values, err := loadValues(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("ipam:\n  mode: kubernetes\n"), values)
}
