// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/nbhdai/workshopctl/internal/assemble"
	"github.com/nbhdai/workshopctl/internal/config"
	"github.com/nbhdai/workshopctl/internal/pipeline"
	"github.com/nbhdai/workshopctl/internal/render"
	"github.com/nbhdai/workshopctl/internal/secretgen"
)

// GenerateOptions carries the file locations the generate command operates on.
type GenerateOptions struct {
	ClusterFile   string
	PatchesDir    string
	ValuesFile    string
	ChartDir      string
	OutputDir     string
	EphemeralDir  string
	RenderTimeout time.Duration
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadSpec loads the cluster declaration from file.
	loadSpec = config.Load

	// credentialsFromEnv reads registry credentials from the environment.
	credentialsFromEnv = secretgen.CredentialsFromEnv

	// newCompiler creates the machine config compiler for a cluster.
	newCompiler = func(spec *config.ClusterSpec, secretsFile string) (assemble.Compiler, error) {
		return assemble.NewTalosCompiler(spec, secretsFile)
	}

	// runPipeline executes the full generation pipeline.
	runPipeline = pipeline.Run

	// readFile reads a file (for testing injection).
	readFile = os.ReadFile
)

// logObserver reports pipeline progress through the standard logger.
type logObserver struct{}

func (logObserver) Printf(format string, args ...any) {
	log.Printf(format, args...)
}

// Generate produces machine configurations for every node declared in the
// cluster spec.
//
// The workflow loads and validates the cluster declaration, reads registry
// credentials from the environment, renders the CNI manifest from the local
// chart directory, merges committed and generated patches per node, and
// writes one machine config per node plus the client credential bundle to
// the output directory. Generated secret patches are written only to the
// ephemeral directory and never alongside the committed patches.
func Generate(ctx context.Context, opts GenerateOptions) error {
	spec, err := loadSpec(opts.ClusterFile)
	if err != nil {
		return err
	}

	creds := credentialsFromEnv()

	values, err := loadValues(opts.ValuesFile)
	if err != nil {
		return err
	}

	// The secrets bundle lives with the other generated secrets so identical
	// re-runs reuse it instead of rotating the cluster CA.
	compiler, err := newCompiler(spec, filepath.Join(opts.EphemeralDir, "secrets.json"))
	if err != nil {
		return err
	}

	renderer := &render.HelmRenderer{
		ChartDir:    opts.ChartDir,
		Namespace:   "kube-system",
		KubeVersion: spec.KubernetesVersion,
	}

	log.Printf("Generating machine configurations for cluster: %s", spec.ClusterName)

	result, err := runPipeline(ctx, pipeline.Options{
		Spec:          spec,
		Credentials:   creds,
		CNIValues:     values,
		PatchesDir:    opts.PatchesDir,
		EphemeralDir:  opts.EphemeralDir,
		OutputDir:     opts.OutputDir,
		Renderer:      renderer,
		Compiler:      compiler,
		RenderTimeout: opts.RenderTimeout,
		Observer:      logObserver{},
	})
	if err != nil {
		return err
	}

	log.Printf("Wrote %d machine configs and %s", len(result.Configs), result.CredentialBundlePath)
	return nil
}

// loadValues reads the raw CNI values document. A missing file is fine,
// the chart's defaults apply.
func loadValues(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := readFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading values file %s: %w", path, err)
	}
	return data, nil
}
