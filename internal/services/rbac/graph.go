package rbac

import (
	"context"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// Graph resolves role inheritance. Parent edges point from a role to the
// stronger role that subsumes it, so expansion walks the inverse (child)
// direction collecting everything an assigned role covers. Each public
// call loads one snapshot of the role table; traversal is memoized within
// that snapshot.
type Graph struct {
	roles repository.RoleRepository
}

// NewGraph builds a Graph over the role repository.
func NewGraph(roles repository.RoleRepository) *Graph {
	return &Graph{roles: roles}
}

// snapshot is one consistent read of the role table.
type snapshot struct {
	byID     map[string]models.Role
	children map[string][]string
}

func (g *Graph) load(ctx context.Context) (*snapshot, error) {
	roles, err := g.roles.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	s := &snapshot{
		byID:     make(map[string]models.Role, len(roles)),
		children: make(map[string][]string),
	}
	for _, r := range roles {
		s.byID[r.ID] = r
		if r.ParentID != nil {
			s.children[*r.ParentID] = append(s.children[*r.ParentID], r.ID)
		}
	}
	return s, nil
}

// descend BFS-walks child edges from the seed set, returning every role
// reached including the seeds themselves.
func (s *snapshot) descend(seeds []string) []models.Role {
	visited := make(map[string]bool, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if _, ok := s.byID[id]; ok && !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}

	var out []models.Role
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, s.byID[id])
		for _, child := range s.children[id] {
			if !visited[child] {
				visited[child] = true
				queue = append(queue, child)
			}
		}
	}
	return out
}

// Expand returns the transitive closure of the given roles: each role
// plus every role it subsumes. Unknown ids are skipped; disabled roles
// are returned but contribute no permissions (see PermissionUnion).
func (g *Graph) Expand(ctx context.Context, roleIDs []string) ([]models.Role, error) {
	s, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.descend(roleIDs), nil
}

// AllDescendants returns every role subsumed by roleID, excluding the
// role itself.
func (g *Graph) AllDescendants(ctx context.Context, roleID string) ([]models.Role, error) {
	s, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := s.byID[roleID]; !ok {
		return nil, apperr.Ef(apperr.KindNotFound, "role not found: %s", roleID)
	}

	all := s.descend([]string{roleID})
	out := make([]models.Role, 0, len(all))
	for _, r := range all {
		if r.ID != roleID {
			out = append(out, r)
		}
	}
	return out, nil
}

// PermissionUnion collects the permission set of expanded roles.
// Disabled roles appear in expansion but grant nothing.
func PermissionUnion(roles []models.Role) map[string]bool {
	perms := make(map[string]bool)
	for _, r := range roles {
		if r.Disabled {
			continue
		}
		for _, p := range r.Permissions {
			perms[p] = true
		}
	}
	return perms
}

// CheckCycle simulates setting roleID's parent to newParentID and
// rejects the edge if it would close a cycle. Called before any role
// write that sets parent_id.
func (g *Graph) CheckCycle(ctx context.Context, roleID, newParentID string) error {
	if roleID == newParentID {
		return apperr.E(apperr.KindValidation, "self parent would create a cycle")
	}

	s, err := g.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := s.byID[newParentID]; !ok {
		return apperr.Ef(apperr.KindNotFound, "parent role not found: %s", newParentID)
	}

	// Walk up from the proposed parent; reaching roleID means the new
	// edge would point back into roleID's own subtree.
	cur := newParentID
	seen := map[string]bool{}
	for {
		if cur == roleID {
			return apperr.E(apperr.KindValidation, "role parent edge would create a cycle")
		}
		if seen[cur] {
			// Pre-existing cycle in stored data; refuse the write anyway.
			return apperr.E(apperr.KindValidation, "role graph contains a cycle")
		}
		seen[cur] = true
		role, ok := s.byID[cur]
		if !ok || role.ParentID == nil {
			return nil
		}
		cur = *role.ParentID
	}
}
