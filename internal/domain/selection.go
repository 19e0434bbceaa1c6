package domain

import (
	"fmt"
	"strings"
)

const selectionSeparator = ":"

// Selection is an algorithm+model pair. It travels as one composite form
// value so the service can recover both parts from a single field.
type Selection struct {
	Algorithm string
	Model     string
}

func (s Selection) Key() string {
	return s.Algorithm + selectionSeparator + s.Model
}

func (s Selection) String() string {
	return s.Key()
}

// ParseSelection splits a composite key on its first separator.
func ParseSelection(key string) (Selection, error) {
	algo, model, ok := strings.Cut(key, selectionSeparator)
	if !ok || algo == "" || model == "" {
		return Selection{}, fmt.Errorf("%w: %q", ErrInvalidSelection, key)
	}
	return Selection{Algorithm: algo, Model: model}, nil
}
