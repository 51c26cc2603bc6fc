package kind

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/louisbranch/reactions/internal/platform/errors"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(
		[]Kind{
			{ID: `App\Models\Article`, Capabilities: []Capability{CapabilityReactable}},
			{ID: `App\Models\Comment`, Capabilities: []Capability{CapabilityReactable}},
			{ID: `App\Models\User`, Capabilities: []Capability{CapabilityReacter}},
		},
		[]Alias{
			{Name: "article", Kind: `App\Models\Article`},
			{Name: "post", Kind: "article"},
			{Name: "user", Kind: `App\Models\User`},
			{Name: "ghost", Kind: `App\Models\Ghost`},
		},
	)
	require.NoError(t, err)
	return r
}

func TestResolve(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name string
		want string
	}{
		{name: `App\Models\Article`, want: "article"},
		{name: "article", want: "article"},
		{name: "post", want: "article"},
		{name: `App\Models\Comment`, want: `App\Models\Comment`},
		{name: ` App\Models\Comment `, want: `App\Models\Comment`},
	}
	for _, tc := range tests {
		got, err := r.Resolve(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestResolveFailures(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name   string
		cause  error
		reason string
	}{
		{name: "Bogus", cause: ErrKindNotExists, reason: "class_not_exists"},
		{name: "ghost", cause: ErrKindNotExists, reason: "class_not_exists"},
		{name: "user", cause: ErrNotReactable, reason: "not_implement_interface"},
		{name: `App\Models\User`, cause: ErrNotReactable, reason: "not_implement_interface"},
	}
	for _, tc := range tests {
		_, err := r.Resolve(tc.name)
		require.Error(t, err, tc.name)
		assert.True(t, errors.Is(err, tc.cause), "%s: %v", tc.name, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSubjectKindInvalid), tc.name)

		var domainErr *apperrors.Error
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, tc.reason, domainErr.Metadata["reason"], tc.name)
	}
}

func TestResolveAliasCycle(t *testing.T) {
	r, err := NewRegistry(nil, []Alias{{Name: "a", Kind: "b"}, {Name: "b", Kind: "a"}})
	require.NoError(t, err)

	_, err = r.Resolve("a")
	assert.True(t, errors.Is(err, ErrKindNotExists))
}

func TestResolveNilRegistry(t *testing.T) {
	var r *Registry
	_, err := r.Resolve("article")
	assert.True(t, errors.Is(err, ErrKindNotExists))
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]Kind{{ID: "a"}, {ID: "a"}}, nil)
	assert.Error(t, err)

	_, err = NewRegistry(nil, []Alias{{Name: "x", Kind: "a"}, {Name: "x", Kind: "b"}})
	assert.Error(t, err)

	_, err = NewRegistry([]Kind{{ID: " "}}, nil)
	assert.Error(t, err)
}

const registryYAML = `
kinds:
  - id: App\Models\Article
    capabilities: [reactable]
  - id: App\Models\User
    capabilities: [reacter]
aliases:
  - name: article
    kind: App\Models\Article
`

func TestParse(t *testing.T) {
	r, err := Parse(strings.NewReader(registryYAML))
	require.NoError(t, err)

	got, err := r.Resolve(`App\Models\Article`)
	require.NoError(t, err)
	assert.Equal(t, "article", got)

	_, err = r.Resolve("App\\Models\\User")
	assert.True(t, errors.Is(err, ErrNotReactable))
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("kinds:\n  - id: a\n    capability: reactable\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	empty, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	_, err = empty.Resolve("article")
	assert.True(t, errors.Is(err, ErrKindNotExists))

	path := filepath.Join(dir, "kinds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(registryYAML), 0o600))
	r, err := LoadFile(path)
	require.NoError(t, err)
	got, err := r.Resolve("article")
	require.NoError(t, err)
	assert.Equal(t, "article", got)
}
