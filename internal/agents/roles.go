package agents

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"thumbcode/internal/orchestrator"
)

//go:embed roles.yaml
var defaultRolesYAML []byte

// RolePrompt describes how one agent role talks to the model.
type RolePrompt struct {
	Name         string   `yaml:"name"`
	System       string   `yaml:"system"`
	Temperature  float64  `yaml:"temperature"`
	MaxTokens    int      `yaml:"max_tokens"`
	Instructions []string `yaml:"instructions"`
}

// RoleSet maps orchestrator roles to their prompts.
type RoleSet struct {
	prompts map[orchestrator.AgentRole]RolePrompt
}

type rolesFile struct {
	Roles map[string]RolePrompt `yaml:"roles"`
}

// DefaultRoles loads the built-in role prompts.
func DefaultRoles() (*RoleSet, error) {
	return parseRoles(defaultRolesYAML)
}

// LoadRoles reads role prompts from a YAML file, falling back to the
// built-in set for any role the file does not define.
func LoadRoles(path string) (*RoleSet, error) {
	base, err := DefaultRoles()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}
	overrides, err := parseRoles(data)
	if err != nil {
		return nil, err
	}
	for role, prompt := range overrides.prompts {
		base.prompts[role] = prompt
	}
	return base, nil
}

func parseRoles(data []byte) (*RoleSet, error) {
	var file rolesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse roles yaml: %w", err)
	}
	set := &RoleSet{prompts: make(map[orchestrator.AgentRole]RolePrompt, len(file.Roles))}
	known := make(map[orchestrator.AgentRole]bool)
	for _, role := range orchestrator.KnownRoles() {
		known[role] = true
	}
	for name, prompt := range file.Roles {
		role := orchestrator.AgentRole(name)
		if !known[role] {
			return nil, fmt.Errorf("unknown role %q in prompts", name)
		}
		if prompt.Name == "" {
			prompt.Name = name
		}
		set.prompts[role] = prompt
	}
	return set, nil
}

// Prompt returns the prompt for a role.
func (s *RoleSet) Prompt(role orchestrator.AgentRole) (RolePrompt, error) {
	prompt, ok := s.prompts[role]
	if !ok {
		return RolePrompt{}, fmt.Errorf("no prompt defined for role %q", role)
	}
	return prompt, nil
}

// Roles lists the configured roles in stable order.
func (s *RoleSet) Roles() []orchestrator.AgentRole {
	roles := make([]orchestrator.AgentRole, 0, len(s.prompts))
	for role := range s.prompts {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
