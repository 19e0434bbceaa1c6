package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyCatalog      = errors.New("catalog has no algorithms")
	ErrEmptyAlgorithm    = errors.New("algorithm has no models")
	ErrInvalidSelection  = errors.New("invalid model selection")
	ErrSelectionNotFound = errors.New("model selection not in catalog")
)

// Algorithm is one catalog group: an enhancement algorithm and the models
// the service offers for it, in service order.
type Algorithm struct {
	Name   string
	Models []string
}

// Catalog is the algorithm→models mapping offered for selection. Every
// algorithm has at least one model and model names are unique per
// algorithm.
type Catalog struct {
	Algorithms []Algorithm
}

// ModelOption is a single selectable entry of the catalog.
type ModelOption struct {
	Selection Selection
	Key       string
}

// NewCatalog builds a catalog from the service payload. Duplicate model
// names keep their first occurrence; algorithms without models are
// rejected.
func NewCatalog(raw map[string][]string) (Catalog, error) {
	if len(raw) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	algorithms := make([]Algorithm, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return Catalog{}, fmt.Errorf("%w: empty algorithm name", ErrInvalidSelection)
		}

		seen := make(map[string]struct{}, len(raw[name]))
		models := make([]string, 0, len(raw[name]))
		for _, model := range raw[name] {
			if model == "" {
				continue
			}
			if _, ok := seen[model]; ok {
				continue
			}
			seen[model] = struct{}{}
			models = append(models, model)
		}

		if len(models) == 0 {
			return Catalog{}, fmt.Errorf("%w: %s", ErrEmptyAlgorithm, name)
		}

		algorithms = append(algorithms, Algorithm{Name: name, Models: models})
	}

	return Catalog{Algorithms: algorithms}, nil
}

// Options lists every model exactly once, grouped in algorithm order.
func (c Catalog) Options() []ModelOption {
	var options []ModelOption
	for _, algo := range c.Algorithms {
		for _, model := range algo.Models {
			sel := Selection{Algorithm: algo.Name, Model: model}
			options = append(options, ModelOption{Selection: sel, Key: sel.Key()})
		}
	}
	return options
}

// Lookup resolves a composite "<algorithm>:<model>" key to its catalog
// entry.
func (c Catalog) Lookup(key string) (Selection, error) {
	sel, err := ParseSelection(key)
	if err != nil {
		return Selection{}, err
	}

	for _, algo := range c.Algorithms {
		if algo.Name != sel.Algorithm {
			continue
		}
		for _, model := range algo.Models {
			if model == sel.Model {
				return sel, nil
			}
		}
	}

	return Selection{}, fmt.Errorf("%w: %s", ErrSelectionNotFound, key)
}

func (c Catalog) IsEmpty() bool {
	return len(c.Algorithms) == 0
}
