package rbac

import (
	"context"
	"sort"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// Subject is the evaluator's view of an authenticated caller. API keys
// carry their scope resource; users do not.
type Subject struct {
	ID            string
	IsAPIKey      bool
	KeyResourceID string

	// ScopePermissions, when non-nil, caps the granted set. Tokens minted
	// for third-party clients carry the translation of their OAuth scope;
	// first-party credentials leave it nil.
	ScopePermissions []string
}

// Decision is the outcome of an evaluation.
type Decision struct {
	Allowed bool
	Reason  string
	Missing []string
}

// Allow is the affirmative decision.
var Allow = Decision{Allowed: true}

// Deny builds a negative decision with a reason.
func Deny(reason string, missing ...string) Decision {
	return Decision{Reason: reason, Missing: missing}
}

// Evaluator walks the resource hierarchy and decides whether a subject
// holds a required permission set at a resource.
type Evaluator struct {
	store *repository.Store
	graph *Graph
}

// NewEvaluator builds an Evaluator over the store and role graph.
func NewEvaluator(store *repository.Store, graph *Graph) *Evaluator {
	return &Evaluator{store: store, graph: graph}
}

// ResourceWalk returns the scopes participating in an evaluation at
// resourceID: the resource itself, its parent organization when the
// resource is a project, and always the platform root. Unknown resources
// are not_found.
func (e *Evaluator) ResourceWalk(ctx context.Context, resourceID string) ([]string, error) {
	if resourceID == models.PlatformResourceID {
		return []string{models.PlatformResourceID}, nil
	}

	if project, err := e.store.Projects.GetByID(ctx, resourceID); err == nil {
		return []string{resourceID, project.OrganizationID, models.PlatformResourceID}, nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	if _, err := e.store.Organizations.GetByID(ctx, resourceID); err == nil {
		return []string{resourceID, models.PlatformResourceID}, nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	return nil, apperr.Ef(apperr.KindNotFound, "unknown resource: %s", resourceID)
}

// Evaluate decides whether the subject holds every required permission at
// resourceID. The store only participates through reads; no state is
// mutated.
func (e *Evaluator) Evaluate(ctx context.Context, subject Subject, resourceID string, required []string) (Decision, error) {
	if len(required) == 0 {
		return Allow, nil
	}

	scopes, err := e.ResourceWalk(ctx, resourceID)
	if err != nil {
		return Decision{}, err
	}

	// API keys act only inside their own scope chain: the key's resource
	// or an ancestor of it. Anything else is denied before any store
	// read, and assignments outside the chain are never honored.
	if subject.IsAPIKey {
		keyChain, err := e.ResourceWalk(ctx, subject.KeyResourceID)
		if err != nil {
			return Decision{}, err
		}
		allowed := make(map[string]bool, len(keyChain))
		for _, s := range keyChain {
			allowed[s] = true
		}
		if !allowed[resourceID] {
			return Deny("resource outside api key scope"), nil
		}
		filtered := scopes[:0]
		for _, s := range scopes {
			if allowed[s] {
				filtered = append(filtered, s)
			}
		}
		scopes = filtered
	}

	assignments, err := e.store.RoleAssignments.ListByTargetAtResources(ctx, subject.ID, scopes)
	if err != nil {
		return Decision{}, err
	}
	if len(assignments) == 0 {
		return Deny("no role assignments at resource", required...), nil
	}

	roleIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		roleIDs = append(roleIDs, a.RoleID)
	}
	expanded, err := e.graph.Expand(ctx, roleIDs)
	if err != nil {
		return Decision{}, err
	}
	granted := PermissionUnion(expanded)

	if subject.ScopePermissions != nil {
		granted = intersect(granted, subject.ScopePermissions)
	}

	var missing []string
	for _, p := range required {
		if !granted[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Deny("insufficient permissions", missing...), nil
	}
	return Allow, nil
}

// Permissions returns the full granted permission set for a subject at a
// resource, sorted. Used by the /me/permissions surface.
func (e *Evaluator) Permissions(ctx context.Context, subject Subject, resourceID string) ([]string, error) {
	scopes, err := e.ResourceWalk(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if subject.IsAPIKey {
		keyChain, err := e.ResourceWalk(ctx, subject.KeyResourceID)
		if err != nil {
			return nil, err
		}
		allowed := make(map[string]bool, len(keyChain))
		for _, s := range keyChain {
			allowed[s] = true
		}
		if !allowed[resourceID] {
			return []string{}, nil
		}
		filtered := scopes[:0]
		for _, s := range scopes {
			if allowed[s] {
				filtered = append(filtered, s)
			}
		}
		scopes = filtered
	}

	assignments, err := e.store.RoleAssignments.ListByTargetAtResources(ctx, subject.ID, scopes)
	if err != nil {
		return nil, err
	}
	roleIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		roleIDs = append(roleIDs, a.RoleID)
	}
	expanded, err := e.graph.Expand(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	granted := PermissionUnion(expanded)
	if subject.ScopePermissions != nil {
		granted = intersect(granted, subject.ScopePermissions)
	}

	out := make([]string, 0, len(granted))
	for p := range granted {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func intersect(granted map[string]bool, limit []string) map[string]bool {
	allowed := make(map[string]bool, len(limit))
	for _, p := range limit {
		allowed[p] = true
	}
	out := make(map[string]bool, len(granted))
	for p := range granted {
		if allowed[p] {
			out[p] = true
		}
	}
	return out
}
