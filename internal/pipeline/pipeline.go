// Package pipeline runs the four config-generation stages in sequence:
// load committed patches, generate secret fragments, merge layers, assemble
// machine configs. Each stage consumes immutable inputs and produces new
// outputs; an error at any stage terminates the run, and re-running from
// scratch is the only recovery path.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/nbhdai/workshopctl/internal/assemble"
	"github.com/nbhdai/workshopctl/internal/config"
	"github.com/nbhdai/workshopctl/internal/patch"
	"github.com/nbhdai/workshopctl/internal/render"
	"github.com/nbhdai/workshopctl/internal/secretgen"
)

// Observer receives progress output from the pipeline.
type Observer interface {
	Printf(format string, args ...any)
}

type discardObserver struct{}

func (discardObserver) Printf(string, ...any) {}

// Options configures a pipeline run. Spec, Renderer and Compiler are
// required; everything else has a sensible zero value.
type Options struct {
	Spec        *config.ClusterSpec
	Credentials secretgen.Credentials

	// CNIValues is the raw YAML values document for the CNI chart.
	CNIValues []byte

	// PatchesDir is the versioned committed-fragment directory.
	PatchesDir string
	// EphemeralDir receives serialized generated-secret fragments.
	// Empty disables the on-disk copy.
	EphemeralDir string
	// OutputDir receives machine configs and the credential bundle.
	OutputDir string

	Renderer render.ManifestRenderer
	Compiler assemble.Compiler

	// RenderTimeout bounds the manifest-rendering stage. Zero means no
	// limit beyond the caller's context.
	RenderTimeout time.Duration

	Observer Observer
}

// Run executes the pipeline and returns the assembler result.
func Run(ctx context.Context, opts Options) (*assemble.Result, error) {
	obs := opts.Observer
	if obs == nil {
		obs = discardObserver{}
	}

	start := time.Now()
	spec := opts.Spec

	obs.Printf("generating configs for cluster %s (%d control plane, %d worker)",
		spec.ClusterName, len(spec.ControlPlaneIPs), len(spec.WorkerIPs))

	committed, err := patch.LoadCommitted(opts.PatchesDir)
	if err != nil {
		return nil, err
	}
	obs.Printf("loaded %d committed fragments from %s", len(committed), opts.PatchesDir)

	generated, err := generateSecrets(ctx, opts)
	if err != nil {
		return nil, err
	}
	obs.Printf("generated %d secret fragments", len(generated))

	if opts.EphemeralDir != "" {
		if err := secretgen.WriteEphemeral(opts.EphemeralDir, generated); err != nil {
			return nil, err
		}
	}

	layers, err := patch.BuildLayers(spec, committed, generated)
	if err != nil {
		return nil, err
	}

	assembler := &assemble.Assembler{
		Compiler:  opts.Compiler,
		OutputDir: opts.OutputDir,
		Observer:  obs,
	}

	result, err := assembler.Run(ctx, layers)
	if err != nil {
		return nil, err
	}

	obs.Printf("generated %d machine configs in %v",
		len(result.Configs), time.Since(start).Round(time.Millisecond))
	return result, nil
}

func generateSecrets(ctx context.Context, opts Options) ([]patch.Fragment, error) {
	if opts.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.RenderTimeout)
		defer cancel()
	}

	gen := &secretgen.Generator{Renderer: opts.Renderer}
	fragments, err := gen.Generate(ctx, opts.Spec, opts.Credentials, opts.CNIValues)
	if err != nil {
		return nil, fmt.Errorf("secret generation: %w", err)
	}
	return fragments, nil
}
