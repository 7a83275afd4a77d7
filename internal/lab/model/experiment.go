package model

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
)

// Kind tags which apparatus variant an experiment runs.
type Kind string

const (
	KindHeater      Kind = "heater"
	KindBeamBalance Kind = "beam-balance"
	KindThermometer Kind = "thermometer"
)

// ParseKind accepts the canonical names used in config and the catalog.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindHeater, KindBeamBalance, KindThermometer:
		return k, nil
	}
	return "", errx.Newf(errx.InvalidCommand, "unknown experiment kind %q", s)
}

// Experiment is one practical the student can open.
type Experiment struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Kind        Kind   `yaml:"kind"`
	Section     string `yaml:"section"`
	Subject     string `yaml:"subject"`
	RewardXP    int    `yaml:"reward_xp"`
}

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog indexes experiments by id.
type Catalog struct {
	byID map[string]Experiment
}

// LoadCatalog parses the embedded experiment catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Experiments []Experiment `yaml:"experiments"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]Experiment, len(doc.Experiments))}
	for _, e := range doc.Experiments {
		if e.ID == "" {
			return nil, fmt.Errorf("parse catalog: experiment without id")
		}
		if _, err := ParseKind(string(e.Kind)); err != nil {
			return nil, fmt.Errorf("parse catalog: experiment %s: %w", e.ID, err)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate experiment %s", e.ID)
		}
		c.byID[e.ID] = e
	}
	return c, nil
}

// Get looks up an experiment by id.
func (c *Catalog) Get(id string) (Experiment, error) {
	e, ok := c.byID[id]
	if !ok {
		return Experiment{}, errx.Newf(errx.InvalidCommand, "unknown experiment %q", id)
	}
	return e, nil
}

// List returns all experiments ordered by id.
func (c *Catalog) List() []Experiment {
	out := make([]Experiment, 0, len(c.byID))
	for _, e := range c.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
