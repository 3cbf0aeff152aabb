package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/engine"
)

// ErrManifestRender indicates the chart-templating step failed. The
// underlying renderer diagnostic is preserved in the wrapped error.
var ErrManifestRender = errors.New("manifest render failed")

// ManifestRenderer renders a chart at a given version against a values
// document and returns the combined manifest text.
type ManifestRenderer interface {
	Render(ctx context.Context, chartName, version string, values map[string]any) ([]byte, error)
}

// HelmRenderer renders charts from a local chart directory using the Helm
// engine. Charts are expected at <dir>/<name>-<version>.tgz or as an
// unpacked directory <dir>/<name>.
type HelmRenderer struct {
	// ChartDir is the directory holding vendored charts.
	ChartDir string
	// Namespace for release options. Defaults to kube-system.
	Namespace string
	// KubeVersion sets template capabilities so charts pick modern API
	// versions. Defaults to v1.31.0.
	KubeVersion string
}

// Render loads the chart, merges values over the chart defaults and renders
// all templates into a single manifest document stream.
func (r *HelmRenderer) Render(ctx context.Context, chartName, version string, values map[string]any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestRender, err)
	}

	ch, err := r.loadChart(chartName, version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestRender, err)
	}

	manifest, err := renderChart(ch, chartName, r.namespace(), r.kubeVersion(), values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestRender, err)
	}

	return manifest, nil
}

func (r *HelmRenderer) namespace() string {
	if r.Namespace != "" {
		return r.Namespace
	}
	return "kube-system"
}

func (r *HelmRenderer) kubeVersion() string {
	if r.KubeVersion != "" {
		return r.KubeVersion
	}
	return "v1.31.0"
}

func (r *HelmRenderer) loadChart(chartName, version string) (*chart.Chart, error) {
	candidates := []string{
		filepath.Join(r.ChartDir, fmt.Sprintf("%s-%s.tgz", chartName, version)),
		filepath.Join(r.ChartDir, chartName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return loader.Load(path)
		}
	}

	return nil, fmt.Errorf("chart %s version %s not found under %s", chartName, version, r.ChartDir)
}

// renderChart runs the Helm engine and combines the rendered templates.
// NOTES.txt and empty documents are skipped; documents are joined with `---`.
func renderChart(ch *chart.Chart, releaseName, namespace, kubeVersion string, values map[string]any) ([]byte, error) {
	merged := mergeValues(ch.Values, values)

	releaseOptions := chartutil.ReleaseOptions{
		Name:      releaseName,
		Namespace: namespace,
		IsInstall: true,
	}

	capabilities := chartutil.DefaultCapabilities.Copy()
	capabilities.KubeVersion.Version = kubeVersion
	major, minor := splitKubeVersion(kubeVersion)
	capabilities.KubeVersion.Major = major
	capabilities.KubeVersion.Minor = minor

	valuesToRender, err := chartutil.ToRenderValues(ch, merged, releaseOptions, capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare values: %w", err)
	}

	eng := engine.Engine{}
	rendered, err := eng.Render(ch, valuesToRender)
	if err != nil {
		return nil, fmt.Errorf("failed to render templates: %w", err)
	}

	// Sort template names for deterministic output ordering.
	names := make([]string, 0, len(rendered))
	for name := range rendered {
		names = append(names, name)
	}
	sort.Strings(names)

	var combined bytes.Buffer
	for _, name := range names {
		if filepath.Base(name) == "NOTES.txt" {
			continue
		}
		trimmed := strings.TrimSpace(rendered[name])
		if trimmed == "" {
			continue
		}
		if combined.Len() > 0 {
			combined.WriteString("\n---\n")
		}
		combined.WriteString(trimmed)
		combined.WriteString("\n")
	}

	return combined.Bytes(), nil
}

// mergeValues deep-merges overrides into the chart defaults without mutating
// either input.
func mergeValues(defaults, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		if base, ok := out[k].(map[string]any); ok {
			if over, ok := v.(map[string]any); ok {
				out[k] = mergeValues(base, over)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func splitKubeVersion(v string) (major, minor string) {
	v = strings.TrimPrefix(v, "v")
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return "1", "31"
	}
	return parts[0], parts[1]
}
