package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nbhdai/workshopctl/internal/patch"
	"github.com/nbhdai/workshopctl/internal/util/naming"
)

// MachineConfig is a fully resolved, per-node configuration document.
type MachineConfig struct {
	Node patch.Node
	Path string
}

// Result describes a completed assembler run.
type Result struct {
	Configs []MachineConfig
	// CredentialBundlePath is the well-known location of the talosconfig.
	CredentialBundlePath string
}

// Observer receives progress output. The zero value discards it.
type Observer interface {
	Printf(format string, args ...any)
}

type discardObserver struct{}

func (discardObserver) Printf(string, ...any) {}

// Assembler applies merged patch layers per node and emits machine configs
// through the compiler.
type Assembler struct {
	Compiler  Compiler
	OutputDir string
	Observer  Observer
}

// Run compiles one machine config per declared node, in declaration order,
// plus the cluster credential bundle.
//
// A compiler rejection aborts the run; files written for earlier nodes are
// left in place for inspection, since the whole pipeline is safe to re-run
// from scratch.
func (a *Assembler) Run(ctx context.Context, layers *patch.LayerSet) (*Result, error) {
	obs := a.Observer
	if obs == nil {
		obs = discardObserver{}
	}

	if err := os.MkdirAll(a.OutputDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	nodes := layers.Nodes()
	result := &Result{Configs: make([]MachineConfig, 0, len(nodes))}

	for _, node := range nodes {
		merged, err := patch.Merge(layers.ForNode(node))
		if err != nil {
			return nil, fmt.Errorf("node %s (%s, %s): %w", node.Name, node.IP, node.Role, err)
		}

		data, err := a.Compiler.Compile(ctx, node.Role, merged)
		if err != nil {
			return nil, fmt.Errorf("node %s (%s, %s): %w", node.Name, node.IP, node.Role, err)
		}

		path := filepath.Join(a.OutputDir, naming.MachineConfigFile(node.Name))
		if err := writeAtomic(path, data, 0o600); err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name, err)
		}

		obs.Printf("wrote %s (%s)", path, node.IP)
		result.Configs = append(result.Configs, MachineConfig{Node: node, Path: path})
	}

	bundle, err := a.Compiler.ClientConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("credential bundle: %w", err)
	}

	bundlePath := filepath.Join(a.OutputDir, naming.CredentialBundleFile)
	if err := writeAtomic(bundlePath, bundle, 0o600); err != nil {
		return nil, fmt.Errorf("credential bundle: %w", err)
	}
	obs.Printf("wrote %s", bundlePath)
	result.CredentialBundlePath = bundlePath

	return result, nil
}

// writeAtomic writes data to path via a temp file and rename so readers
// never observe a partially written config.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
