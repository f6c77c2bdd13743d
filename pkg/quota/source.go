package quota

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Source loads quota policies.
type Source interface {
	Load(ctx context.Context) ([]Policy, error)
}

type inMemSource struct {
	policies []Policy
}

// NewInMemSource returns a Source backed by a copy of the given policies.
func NewInMemSource(policies ...Policy) Source {
	return &inMemSource{policies: slices.Clone(policies)}
}

func (s *inMemSource) Load(context.Context) ([]Policy, error) {
	return slices.Clone(s.policies), nil
}

type fileSource struct {
	path string
}

// NewFileSource returns a Source that reads policies from a YAML file.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

type policyFile struct {
	Policies []Policy `yaml:"policies"`
}

func (s *fileSource) Load(ctx context.Context) ([]Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(ErrInvalidPolicy, fmt.Errorf("parse %s: %w", s.path, err))
	}
	return f.Policies, nil
}
