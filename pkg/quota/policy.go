package quota

import (
	"fmt"
	"regexp"
	"strings"
)

// Feature ids end up in cookie names, URL paths and document field paths.
var featureID = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Policy is the free-tier allowance of a single feature.
type Policy struct {
	Feature       string `yaml:"feature"`
	FreeAllowance int64  `yaml:"free_allowance"`
	Description   string `yaml:"description,omitempty"`
}

// ProOnly reports whether Free callers are never allowed to use the feature.
func (p Policy) ProOnly() bool {
	return p.FreeAllowance == 0
}

func (p Policy) validate() error {
	if strings.TrimSpace(p.Feature) == "" {
		return fmt.Errorf("%w: empty feature id", ErrInvalidPolicy)
	}
	if !featureID.MatchString(p.Feature) {
		return fmt.Errorf("%w: feature id %q must match %s", ErrInvalidPolicy, p.Feature, featureID)
	}
	if p.FreeAllowance < 0 {
		return fmt.Errorf("%w: feature %q has negative allowance %d", ErrInvalidPolicy, p.Feature, p.FreeAllowance)
	}
	return nil
}

// DefaultPolicies returns the built-in tool catalogue: every content tool
// gets a single free run.
func DefaultPolicies() []Policy {
	tools := []struct{ id, desc string }{
		{"caption", "Caption generator"},
		{"hashtags", "Hashtag generator"},
		{"hooks", "Video hook generator"},
		{"bio", "Profile bio writer"},
		{"script", "Short-form video script"},
		{"content-ideas", "Content idea brainstorm"},
		{"rewrite", "Post rewriter"},
		{"title", "Title generator"},
		{"thread", "Thread writer"},
		{"description", "Video description writer"},
		{"trends", "Trend analyzer"},
		{"posting-times", "Best posting time finder"},
	}

	out := make([]Policy, 0, len(tools))
	for _, t := range tools {
		out = append(out, Policy{Feature: t.id, FreeAllowance: 1, Description: t.desc})
	}
	return out
}
