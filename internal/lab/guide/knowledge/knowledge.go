// Package knowledge answers lab guide questions offline from canned,
// experiment-specific rules.
package knowledge

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

//go:embed rules.yaml
var rulesYAML []byte

// defaultHint is used for kinds without a rule set.
const defaultHint = "I can help with this experiment: ask about the apparatus, how to use it safely, or what your readings mean."

type rule struct {
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

type ruleSet struct {
	Hint  string `yaml:"hint"`
	Rules []rule `yaml:"rules"`
}

// Base is an immutable keyword → answer table per experiment kind.
type Base struct {
	sets map[model.Kind]ruleSet
}

// Default returns the knowledge base built from the embedded rules.
func Default() *Base {
	b, err := Parse(rulesYAML)
	if err != nil {
		// embedded data is fixed at build time
		panic(err)
	}
	return b
}

// Parse builds a knowledge base from a YAML document keyed by kind.
func Parse(data []byte) (*Base, error) {
	var doc map[string]ruleSet
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse knowledge rules: %w", err)
	}
	b := &Base{sets: make(map[model.Kind]ruleSet, len(doc))}
	for k, set := range doc {
		kind, err := model.ParseKind(k)
		if err != nil {
			return nil, fmt.Errorf("parse knowledge rules: %w", err)
		}
		for i, r := range set.Rules {
			if r.Answer == "" || len(r.Keywords) == 0 {
				return nil, fmt.Errorf("parse knowledge rules: %s rule %d is incomplete", k, i)
			}
			for j := range r.Keywords {
				r.Keywords[j] = strings.ToLower(r.Keywords[j])
			}
		}
		b.sets[kind] = set
	}
	return b, nil
}

// Answer returns the first matching canned answer for question, or the
// kind's hint when nothing matches. It never fails.
func (b *Base) Answer(kind model.Kind, question string) string {
	set, ok := b.sets[kind]
	if !ok {
		return defaultHint
	}
	q := strings.ToLower(question)
	for _, r := range set.Rules {
		for _, kw := range r.Keywords {
			if strings.Contains(q, kw) {
				return r.Answer
			}
		}
	}
	if set.Hint == "" {
		return defaultHint
	}
	return set.Hint
}
