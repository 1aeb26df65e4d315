package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"veritas-hq/sentinel/pkg/policy"
)

// Source loads a full policy set from somewhere external.
type Source interface {
	// Load returns all policies from the source. Implementations return
	// an error if any policy fails validation; a partial set is never
	// returned.
	Load(ctx context.Context) ([]*policy.Policy, error)
}

// policyFile is the YAML document shape: either a single policy or a
// list under "policies".
type policyFile struct {
	Policies []*policy.Policy `yaml:"policies"`

	// Inline single-policy form.
	policy.Policy `yaml:",inline"`
}

// ParseYAML decodes one YAML document into policies. Both a single
// top-level policy and a "policies:" list are accepted.
func ParseYAML(data []byte) ([]*policy.Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
	}

	if len(f.Policies) > 0 {
		return f.Policies, nil
	}
	if f.ID != "" {
		p := f.Policy
		return []*policy.Policy{&p}, nil
	}
	return nil, fmt.Errorf("policy YAML contains neither a policy nor a policies list")
}

// loadDir reads every .yaml/.yml file under dir (non-recursive) and
// validates the combined set.
func loadDir(dir string) ([]*policy.Policy, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy directory %q: %w", dir, err)
	}

	var policies []*policy.Policy
	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !isPolicyFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		parsed, err := ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, p := range parsed {
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if prev, dup := seen[p.ID]; dup {
				return nil, fmt.Errorf("policy id %q defined in both %s and %s", p.ID, prev, path)
			}
			seen[p.ID] = path
			policies = append(policies, p)
		}
	}

	if len(policies) == 0 {
		return nil, fmt.Errorf("no policy files found in %q", dir)
	}
	return policies, nil
}

func isPolicyFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
