package permissions

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opentrusty/opentrusty/internal/apperr"
)

//go:embed registry.yaml
var registryYAML []byte

// Registry is the closed set of permission strings plus the mapping from
// OAuth scope labels to the permissions they grant.
type Registry struct {
	permissions map[string]struct{}
	scopes      map[string][]string
}

type registryFile struct {
	Permissions []string            `yaml:"permissions"`
	Scopes      map[string][]string `yaml:"scopes"`
}

// Load parses the embedded registry. Called once at startup; an invalid
// registry file is a build defect, not a runtime condition.
func Load() (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(registryYAML, &f); err != nil {
		return nil, fmt.Errorf("failed to parse permission registry: %w", err)
	}

	r := &Registry{
		permissions: make(map[string]struct{}, len(f.Permissions)),
		scopes:      f.Scopes,
	}
	for _, p := range f.Permissions {
		r.permissions[p] = struct{}{}
	}

	// Scopes may only grant registered permissions.
	for scope, perms := range f.Scopes {
		for _, p := range perms {
			if _, ok := r.permissions[p]; !ok {
				return nil, fmt.Errorf("scope %q grants unknown permission %q", scope, p)
			}
		}
	}
	return r, nil
}

// MustLoad is Load for wiring paths that cannot return an error.
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

// IsKnown reports whether the permission string is registered.
func (r *Registry) IsKnown(perm string) bool {
	_, ok := r.permissions[perm]
	return ok
}

// Validate rejects any permission outside the registry.
func (r *Registry) Validate(perms []string) error {
	for _, p := range perms {
		if !r.IsKnown(p) {
			return apperr.Ef(apperr.KindValidation, "unknown permission: %s", p)
		}
	}
	return nil
}

// KnownScope reports whether the scope label is registered.
func (r *Registry) KnownScope(scope string) bool {
	_, ok := r.scopes[scope]
	return ok
}

// ValidateScope checks every label in a space-delimited scope string.
func (r *Registry) ValidateScope(scope string) error {
	for _, s := range strings.Fields(scope) {
		if !r.KnownScope(s) {
			return apperr.Ef(apperr.KindInvalidScope, "unknown scope: %s", s)
		}
	}
	return nil
}

// ScopeGrants returns the permissions a space-delimited scope string
// translates to, deduplicated and sorted.
func (r *Registry) ScopeGrants(scope string) []string {
	set := make(map[string]struct{})
	for _, s := range strings.Fields(scope) {
		for _, p := range r.scopes[s] {
			set[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
