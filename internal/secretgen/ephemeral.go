package secretgen

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nbhdai/workshopctl/internal/patch"
)

// WriteEphemeral serializes generated-secret fragments into dir for operator
// inspection. The directory is gitignored and treated as
// regenerate-on-demand; the next run overwrites it. Files are written 0600
// since they hold credentials.
func WriteEphemeral(dir string, fragments []patch.Fragment) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create ephemeral directory: %w", err)
	}

	for _, f := range fragments {
		if f.Class != patch.ClassGeneratedSecret {
			return fmt.Errorf("refusing to write %s fragment %q to the ephemeral directory", f.Class, f.Name)
		}

		data, err := yaml.Marshal(f.Content)
		if err != nil {
			return fmt.Errorf("failed to serialize fragment %q: %w", f.Name, err)
		}

		path := filepath.Join(dir, f.Name+".yaml")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to write fragment %q: %w", f.Name, err)
		}
	}

	return nil
}
