package plans

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source defines how plans are loaded into the registry.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// inMemSource implements the Source interface using an in-memory plan map.
type inMemSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemSource returns an in-memory Source with a copy of the given plans.
func NewInMemSource(plans map[string]Plan) Source {
	return &inMemSource{plans: clonePlans(plans)}
}

// Load returns a copy of all available plans from memory.
func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePlans(s.plans), nil
}

type yamlDocument struct {
	Plans []Plan `yaml:"plans"`
}

// NewYAMLSource parses a plan table of the form:
//
//	plans:
//	  - id: pro
//	    name: Pro
//	    monthly_limit: 150
//	    daily_limit: 5
//	    overage_rate: "0.08"
//
// The document is parsed eagerly so malformed files fail at startup.
func NewYAMLSource(r io.Reader) (Source, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	table := make(map[string]Plan, len(doc.Plans))
	for _, p := range doc.Plans {
		if _, dup := table[p.ID]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("duplicate plan id %q", p.ID))
		}
		table[p.ID] = p
	}
	return NewInMemSource(table), nil
}

// LoadYAMLFile opens path and parses it with NewYAMLSource.
func LoadYAMLFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	defer f.Close()
	return NewYAMLSource(f)
}

func clonePlans(plans map[string]Plan) map[string]Plan {
	out := make(map[string]Plan, len(plans))
	for id, p := range plans {
		out[id] = p.clone()
	}
	return out
}
