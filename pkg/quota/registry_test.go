package quota_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotakit/pkg/quota"
)

type failingSource struct{ err error }

func (s failingSource) Load(context.Context) ([]quota.Policy, error) { return nil, s.err }

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	t.Run("loads default policies", func(t *testing.T) {
		t.Parallel()

		reg, err := quota.NewRegistry(context.Background(), quota.NewInMemSource(quota.DefaultPolicies()...))
		require.NoError(t, err)

		p, err := reg.Get("caption")
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.FreeAllowance)
		assert.False(t, p.ProOnly())
		assert.Equal(t, len(quota.DefaultPolicies()), reg.Len())
	})

	t.Run("rejects invalid policies", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			policies []quota.Policy
		}{
			{"empty id", []quota.Policy{{Feature: "", FreeAllowance: 1}}},
			{"whitespace id", []quota.Policy{{Feature: " caption", FreeAllowance: 1}}},
			{"inner space", []quota.Policy{{Feature: "blog post", FreeAllowance: 1}}},
			{"semicolon", []quota.Policy{{Feature: "caption;v2", FreeAllowance: 1}}},
			{"dot", []quota.Policy{{Feature: "a.b", FreeAllowance: 1}}},
			{"dollar", []quota.Policy{{Feature: "$caption", FreeAllowance: 1}}},
			{"slash", []quota.Policy{{Feature: "tools/caption", FreeAllowance: 1}}},
			{"upper case", []quota.Policy{{Feature: "Caption", FreeAllowance: 1}}},
			{"leading dash", []quota.Policy{{Feature: "-caption", FreeAllowance: 1}}},
			{"negative allowance", []quota.Policy{{Feature: "caption", FreeAllowance: -1}}},
			{"duplicate", []quota.Policy{{Feature: "caption", FreeAllowance: 1}, {Feature: "caption", FreeAllowance: 2}}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				_, err := quota.NewRegistry(context.Background(), quota.NewInMemSource(tt.policies...))
				assert.ErrorIs(t, err, quota.ErrInvalidPolicy)
			})
		}
	})

	t.Run("accepts cookie and path safe ids", func(t *testing.T) {
		t.Parallel()

		reg, err := quota.NewRegistry(context.Background(), quota.NewInMemSource(
			quota.Policy{Feature: "posting-times", FreeAllowance: 1},
			quota.Policy{Feature: "brand_kit2", FreeAllowance: 0},
		))
		require.NoError(t, err)
		assert.Equal(t, []string{"brand_kit2", "posting-times"}, reg.Features())
	})

		t.Run("wraps source failures", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("disk on fire")
		_, err := quota.NewRegistry(context.Background(), failingSource{err: cause})
		assert.ErrorIs(t, err, quota.ErrFailedToLoadPolicies)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("nil source", func(t *testing.T) {
		t.Parallel()

		_, err := quota.NewRegistry(context.Background(), nil)
		assert.ErrorIs(t, err, quota.ErrFailedToLoadPolicies)
	})

	t.Run("must panics on error", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			quota.MustNewRegistry(context.Background(), quota.NewInMemSource(quota.Policy{Feature: ""}))
		})
	})
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	reg := quota.MustNewRegistry(context.Background(), quota.NewInMemSource(
		quota.Policy{Feature: "caption", FreeAllowance: 1},
		quota.Policy{Feature: "brand-kit", FreeAllowance: 0},
		quota.Policy{Feature: "bio", FreeAllowance: 3},
	))

	t.Run("unknown feature is a configuration error", func(t *testing.T) {
		t.Parallel()

		_, err := reg.Get("nope")
		assert.ErrorIs(t, err, quota.ErrUnknownFeature)
	})

	t.Run("pro only", func(t *testing.T) {
		t.Parallel()

		p, err := reg.Get("brand-kit")
		require.NoError(t, err)
		assert.True(t, p.ProOnly())
	})

	t.Run("require", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, reg.Require("caption", "bio"))
		err := reg.Require("caption", "nope", "missing")
		assert.ErrorIs(t, err, quota.ErrUnknownFeature)
		assert.Contains(t, err.Error(), "nope")
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("features sorted", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, []string{"bio", "brand-kit", "caption"}, reg.Features())
	})
}

func TestInMemSourceCopies(t *testing.T) {
	t.Parallel()

	policies := []quota.Policy{{Feature: "caption", FreeAllowance: 1}}
	src := quota.NewInMemSource(policies...)
	policies[0].FreeAllowance = 99

	loaded, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded[0].FreeAllowance)
}

func TestFileSource(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "quota.yaml")
		content := "policies:\n  - feature: caption\n    free_allowance: 1\n  - feature: brand-kit\n    free_allowance: 0\n    description: Brand kit\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		reg, err := quota.NewRegistry(context.Background(), quota.NewFileSource(path))
		require.NoError(t, err)

		p, err := reg.Get("brand-kit")
		require.NoError(t, err)
		assert.Equal(t, "Brand kit", p.Description)
		assert.True(t, p.ProOnly())
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "quota.yaml")
		require.NoError(t, os.WriteFile(path, []byte("policies: [this is: not"), 0o600))

		_, err := quota.NewRegistry(context.Background(), quota.NewFileSource(path))
		assert.ErrorIs(t, err, quota.ErrInvalidPolicy)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := quota.NewRegistry(context.Background(), quota.NewFileSource(filepath.Join(t.TempDir(), "absent.yaml")))
		assert.ErrorIs(t, err, quota.ErrFailedToLoadPolicies)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
