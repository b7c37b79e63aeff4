package rbac

import (
	"context"
	"log"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// Service owns role and assignment writes. Every mutation that touches
// parent_id runs the cycle pre-check, and assignment creation runs the
// legality check against the calling subject.
type Service struct {
	store    *repository.Store
	graph    *Graph
	eval     *Evaluator
	registry *permissions.Registry
}

// NewService builds the RBAC service.
func NewService(store *repository.Store, graph *Graph, eval *Evaluator, registry *permissions.Registry) *Service {
	return &Service{store: store, graph: graph, eval: eval, registry: registry}
}

// Graph exposes the role graph for read paths.
func (s *Service) Graph() *Graph {
	return s.graph
}

// Evaluator exposes the permission evaluator.
func (s *Service) Evaluator() *Evaluator {
	return s.eval
}

// CreateRoleInput carries a role write.
type CreateRoleInput struct {
	Name        string
	Description string
	Permissions []string
	ParentID    *string
}

// CreateRole validates the permission set against the registry and the
// parent edge against the cycle check, then persists the role.
func (s *Service) CreateRole(ctx context.Context, in CreateRoleInput) (*models.Role, error) {
	if in.Name == "" {
		return nil, apperr.E(apperr.KindValidation, "role name is required")
	}
	if err := s.registry.Validate(in.Permissions); err != nil {
		return nil, err
	}

	role := &models.Role{
		ID:          bunx.NewUUIDv7(),
		Name:        in.Name,
		Description: in.Description,
		Permissions: models.StringSlice(in.Permissions),
	}
	if in.ParentID != nil {
		// A fresh id cannot be reachable from the parent, but the check
		// also verifies the parent exists and the stored graph is sound.
		if err := s.graph.CheckCycle(ctx, role.ID, *in.ParentID); err != nil {
			return nil, err
		}
		role.ParentID = in.ParentID
	}

	if err := s.store.Roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRoleInput carries a partial role update. Nil fields are left
// unchanged.
type UpdateRoleInput struct {
	Description *string
	Permissions []string
	ParentID    *string
	ClearParent bool
	Disabled    *bool
}

// UpdateRole applies a partial update, re-running the cycle check when
// the parent edge moves.
func (s *Service) UpdateRole(ctx context.Context, roleID string, in UpdateRoleInput) (*models.Role, error) {
	role, err := s.store.Roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if in.Description != nil {
		role.Description = *in.Description
	}
	if in.Permissions != nil {
		if err := s.registry.Validate(in.Permissions); err != nil {
			return nil, err
		}
		role.Permissions = models.StringSlice(in.Permissions)
	}
	if in.Disabled != nil {
		role.Disabled = *in.Disabled
	}
	reparent := false
	switch {
	case in.ClearParent:
		role.ParentID = nil
	case in.ParentID != nil:
		role.ParentID = in.ParentID
		reparent = true
	}

	// The cycle check must see the same graph the write lands on, so
	// both run in one transaction when the parent edge moves.
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		if reparent {
			if err := NewGraph(tx.Roles).CheckCycle(ctx, role.ID, *in.ParentID); err != nil {
				return err
			}
		}
		return tx.Roles.Update(ctx, role)
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole removes a role that has no live assignments.
func (s *Service) DeleteRole(ctx context.Context, roleID string) error {
	count, err := s.store.RoleAssignments.CountByRole(ctx, roleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Ef(apperr.KindConflict, "role has %d active assignments", count)
	}
	return s.store.Roles.Delete(ctx, roleID)
}

// CheckAssignmentLegality enforces the two-part rule guarding assignment
// creation: the caller needs iam.setPolicy at the target resource, and
// the role being granted must lie within a role the caller already holds
// there (the role itself or any of its descendants).
func (s *Service) CheckAssignmentLegality(ctx context.Context, caller Subject, roleID, resourceID string) error {
	decision, err := s.eval.Evaluate(ctx, caller, resourceID, []string{permissions.IAMSetPolicy})
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return apperr.E(apperr.KindForbidden, "insufficient permissions")
	}

	scopes, err := s.eval.ResourceWalk(ctx, resourceID)
	if err != nil {
		return err
	}
	held, err := s.store.RoleAssignments.ListByTargetAtResources(ctx, caller.ID, scopes)
	if err != nil {
		return err
	}
	heldIDs := make([]string, 0, len(held))
	for _, a := range held {
		heldIDs = append(heldIDs, a.RoleID)
	}

	reachable, err := s.graph.Expand(ctx, heldIDs)
	if err != nil {
		return err
	}
	for _, r := range reachable {
		if r.ID == roleID {
			return nil
		}
	}
	return apperr.E(apperr.KindForbidden, "role is outside the caller's grantable set")
}

// CreateAssignment runs the legality check and persists the assignment.
// The (target, role, resource) triple is unique; duplicates are conflict.
func (s *Service) CreateAssignment(ctx context.Context, caller Subject, targetID, roleID, resourceID string) (*models.RoleAssignment, error) {
	if _, err := s.store.Roles.GetByID(ctx, roleID); err != nil {
		return nil, err
	}
	if _, err := s.eval.ResourceWalk(ctx, resourceID); err != nil {
		return nil, err
	}
	if err := s.CheckAssignmentLegality(ctx, caller, roleID, resourceID); err != nil {
		return nil, err
	}

	assignment := &models.RoleAssignment{
		ID:         bunx.NewUUIDv7(),
		TargetID:   targetID,
		RoleID:     roleID,
		ResourceID: resourceID,
		AssignedAt: time.Now(),
		AssignedBy: caller.ID,
	}
	if err := s.store.RoleAssignments.Create(ctx, assignment); err != nil {
		return nil, err
	}
	log.Printf("role assignment created: target=%s role=%s resource=%s by=%s",
		targetID, roleID, resourceID, caller.ID)
	return assignment, nil
}

// DeleteAssignment removes an assignment after checking the caller holds
// iam.setPolicy at its scope.
func (s *Service) DeleteAssignment(ctx context.Context, caller Subject, assignmentID string) error {
	assignment, err := s.store.RoleAssignments.GetByID(ctx, assignmentID)
	if err != nil {
		return err
	}
	decision, err := s.eval.Evaluate(ctx, caller, assignment.ResourceID, []string{permissions.IAMSetPolicy})
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return apperr.E(apperr.KindForbidden, "insufficient permissions")
	}
	return s.store.RoleAssignments.Delete(ctx, assignmentID)
}
