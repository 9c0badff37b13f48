package agents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbcode/internal/orchestrator"
)

func TestDefaultRolesCoverEveryRole(t *testing.T) {
	roles, err := DefaultRoles()
	require.NoError(t, err)

	for _, role := range orchestrator.KnownRoles() {
		prompt, err := roles.Prompt(role)
		require.NoError(t, err, "role %s", role)
		assert.NotEmpty(t, prompt.System)
		assert.Greater(t, prompt.MaxTokens, 0)
	}
}

func TestLoadRolesOverridesSubset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`roles:
  reviewer:
    system: "custom reviewer prompt"
    temperature: 0.7
    max_tokens: 1024
`), 0o644))

	roles, err := LoadRoles(path)
	require.NoError(t, err)

	reviewer, err := roles.Prompt(orchestrator.RoleReviewer)
	require.NoError(t, err)
	assert.Equal(t, "custom reviewer prompt", reviewer.System)
	assert.Equal(t, 0.7, reviewer.Temperature)

	// Roles absent from the override file keep the built-in prompt.
	architect, err := roles.Prompt(orchestrator.RoleArchitect)
	require.NoError(t, err)
	assert.NotEmpty(t, architect.System)
	assert.NotEqual(t, "custom reviewer prompt", architect.System)
}

func TestLoadRolesRejectsUnknownRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`roles:
  wizard:
    system: "abracadabra"
`), 0o644))

	_, err := LoadRoles(path)
	assert.Error(t, err)
}

func TestRoleSetRolesStableOrder(t *testing.T) {
	roles, err := DefaultRoles()
	require.NoError(t, err)

	first := roles.Roles()
	second := roles.Roles()
	assert.Equal(t, first, second)
	assert.Len(t, first, len(orchestrator.KnownRoles()))
}
