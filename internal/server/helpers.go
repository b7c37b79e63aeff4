package server

import (
	"context"
	"log"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/services/iam"
	"github.com/opentrusty/opentrusty/internal/services/rbac"
)

// principal returns the authenticated principal or unauthenticated.
func principalFrom(ctx context.Context) (*iam.Principal, error) {
	p := iam.PrincipalFromContext(ctx)
	if p == nil {
		return nil, apperr.E(apperr.KindUnauthenticated, "authentication required")
	}
	return p, nil
}

// subject translates a principal into the evaluator's view. Third-party
// OAuth tokens are capped to the permissions their scope grants;
// first-party credentials carry no cap.
func (s *Server) subject(p *iam.Principal) rbac.Subject {
	var granted []string
	if p.Scope != "" {
		granted = s.registry.ScopeGrants(p.Scope)
	}
	return p.Subject(granted)
}

// authorize resolves the principal and evaluates the required
// permissions at the resource. The missing set is logged, never
// returned.
func (s *Server) authorize(ctx context.Context, resourceID string, required ...string) (*iam.Principal, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	decision, err := s.rbac.Evaluator().Evaluate(ctx, s.subject(p), resourceID, required)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		log.Printf("deny %s at %s: %s (missing %v)", p.ID, resourceID, decision.Reason, decision.Missing)
		return nil, apperr.E(apperr.KindForbidden, "insufficient permissions")
	}
	return p, nil
}
