package secretgen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/nbhdai/workshopctl/internal/config"
	"github.com/nbhdai/workshopctl/internal/patch"
	"github.com/nbhdai/workshopctl/internal/render"
)

// ErrMissingCredentials indicates the registry username or token is absent.
// A cluster with broken registry auth is a guaranteed-failure state, so the
// pipeline surfaces this immediately instead of proceeding.
var ErrMissingCredentials = errors.New("missing registry credentials")

// Credentials is the registry username/token pair. Injected explicitly so
// tests can supply fakes without environment mutation.
type Credentials struct {
	Username string
	Token    string
}

// CredentialsFromEnv reads the registry credentials at the process boundary.
// This is the only place the pipeline touches the environment for secrets.
func CredentialsFromEnv() Credentials {
	return Credentials{
		Username: os.Getenv("GITHUB_USERNAME"),
		Token:    os.Getenv("GHCR_PAT"),
	}
}

const (
	registryHost = "ghcr.io"

	// bootTimeout extends the machine boot window so image pulls from the
	// authenticated registry can finish on slow conference uplinks.
	bootTimeout = "2m0s"

	cniChartName    = "cilium"
	cniManifestName = "cilium"
)

// Generator produces the generated-secret fragments for a cluster.
type Generator struct {
	Renderer render.ManifestRenderer
}

// Generate returns the registry-auth and CNI fragments for the spec.
// cniValues is the raw YAML values document passed to the chart renderer.
func (g *Generator) Generate(ctx context.Context, spec *config.ClusterSpec, creds Credentials, cniValues []byte) ([]patch.Fragment, error) {
	authFragment, err := registryAuthFragment(creds)
	if err != nil {
		return nil, err
	}

	cniFragment, err := g.cniFragment(ctx, spec, cniValues)
	if err != nil {
		return nil, err
	}

	return []patch.Fragment{authFragment, cniFragment}, nil
}

// registryAuthFragment embeds base64(username:token) under the fixed
// registries schema path, plus the boot-timeout directive.
func registryAuthFragment(creds Credentials) (patch.Fragment, error) {
	if creds.Username == "" || creds.Token == "" {
		return patch.Fragment{}, fmt.Errorf("%w: GITHUB_USERNAME and GHCR_PAT must both be set", ErrMissingCredentials)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Token))

	return patch.Fragment{
		Name:  "registry-auth",
		Class: patch.ClassGeneratedSecret,
		Scope: patch.ScopeCluster,
		Content: map[string]any{
			"machine": map[string]any{
				"registries": map[string]any{
					"config": map[string]any{
						registryHost: map[string]any{
							"auth": map[string]any{
								"auth": auth,
							},
						},
					},
				},
				"time": map[string]any{
					"bootTimeout": bootTimeout,
				},
			},
		},
	}, nil
}

// cniFragment renders the CNI chart and wraps the full manifest as an inline
// manifest so it is applied at first boot, before any API server is
// reachable.
func (g *Generator) cniFragment(ctx context.Context, spec *config.ClusterSpec, cniValues []byte) (patch.Fragment, error) {
	values := map[string]any{}
	if len(cniValues) > 0 {
		if err := yaml.Unmarshal(cniValues, &values); err != nil {
			return patch.Fragment{}, fmt.Errorf("%w: invalid CNI values document: %v", render.ErrManifestRender, err)
		}
	}

	manifest, err := g.Renderer.Render(ctx, cniChartName, spec.CiliumVersion, values)
	if err != nil {
		return patch.Fragment{}, err
	}

	return patch.Fragment{
		Name:  "cni",
		Class: patch.ClassGeneratedSecret,
		Scope: patch.ScopeCluster,
		Content: map[string]any{
			"cluster": map[string]any{
				"inlineManifests": []any{
					map[string]any{
						"name":     cniManifestName,
						"contents": string(manifest),
					},
				},
			},
		},
	}, nil
}
