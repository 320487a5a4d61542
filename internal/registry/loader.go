package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"modelgw/internal/config"
	"modelgw/internal/prompt"
	"modelgw/pkg/types"
)

// descriptor is the on-disk shape of a model description file.
type descriptor struct {
	ID           string                 `json:"id" yaml:"id" toml:"id"`
	WorkerModel  string                 `json:"worker_model" yaml:"worker_model" toml:"worker_model"`
	OwnedBy      string                 `json:"owned_by" yaml:"owned_by" toml:"owned_by"`
	Created      int64                  `json:"created" yaml:"created" toml:"created"`
	Family       string                 `json:"family" yaml:"family" toml:"family"`
	Permission   []string               `json:"permission" yaml:"permission" toml:"permission"`
	PromptFormat *prompt.TemplateConfig `json:"prompt_format" yaml:"prompt_format" toml:"prompt_format"`
}

// LoadDir scans dir for model description files (*.yaml, *.yml, *.json,
// *.toml) and builds a registry from them. Files with other extensions and
// subdirectories are ignored. Every invalid file, missing id, duplicate id
// and invalid prompt format is reported in one aggregated error.
func LoadDir(dir string) (*Registry, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var result *multierror.Error
	var loaded []Entry
	seen := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !isDescriptor(e.Name()) {
			continue
		}
		p := filepath.Join(abs, e.Name())
		ent, err := loadFile(p)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if prev, dup := seen[ent.Model.ID]; dup {
			result = multierror.Append(result, fmt.Errorf("%s: duplicate model id %q (first defined in %s)", p, ent.Model.ID, prev))
			continue
		}
		seen[ent.Model.ID] = p
		loaded = append(loaded, ent)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return New(loaded...), nil
}

func isDescriptor(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json", ".toml":
		return true
	}
	return false
}

func loadFile(path string) (Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var d descriptor
	if err := config.Decode(path, b, &d); err != nil {
		return Entry{}, fmt.Errorf("%s: %w", path, err)
	}
	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		return Entry{}, fmt.Errorf("%s: missing id", path)
	}
	if d.PromptFormat == nil {
		return Entry{}, fmt.Errorf("%s: model %q has no prompt_format", path, d.ID)
	}
	tmpl, err := prompt.NewTemplate(*d.PromptFormat)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: model %q: %w", path, d.ID, err)
	}
	return Entry{
		Model: types.Model{
			ID:          d.ID,
			WorkerModel: d.WorkerModel,
			OwnedBy:     d.OwnedBy,
			Created:     d.Created,
			Family:      d.Family,
			Permission:  d.Permission,
			Path:        path,
		},
		Template: tmpl,
	}, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/llm
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
