package repository

import (
	"context"
	"fmt"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunMemberRepository implements MemberRepository using Bun ORM
type BunMemberRepository struct {
	db bun.IDB
}

// NewBunMemberRepository creates a new Bun-based membership repository
func NewBunMemberRepository(db bun.IDB) *BunMemberRepository {
	return &BunMemberRepository{db: db}
}

// Create inserts a new membership
func (r *BunMemberRepository) Create(ctx context.Context, member *models.Member) error {
	_, err := r.db.NewInsert().
		Model(member).
		Exec(ctx)
	if err != nil {
		return translate(err, "create member")
	}
	return nil
}

// Get retrieves a membership by (resource, user)
func (r *BunMemberRepository) Get(ctx context.Context, resourceID, userID string) (*models.Member, error) {
	member := new(models.Member)
	err := r.db.NewSelect().
		Model(member).
		Where("resource_id = ?", resourceID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get member")
	}
	return member, nil
}

// GetByID retrieves a membership by its ID
func (r *BunMemberRepository) GetByID(ctx context.Context, id string) (*models.Member, error) {
	member := new(models.Member)
	err := r.db.NewSelect().
		Model(member).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get member by id")
	}
	return member, nil
}

// Delete removes a membership
func (r *BunMemberRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Member)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "delete member")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "delete member rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "member not found: %s", id)
	}
	return nil
}

// ListByResource returns a page of a resource's members. Members sort by
// (joined_at, id); the shared paginate helper expects created_at, so the
// filter aliases the column.
func (r *BunMemberRepository) ListByResource(ctx context.Context, resourceID string, page Page) ([]models.Member, bool, error) {
	return paginateMembers(ctx, r.db, page, resourceID)
}

// ListByUser returns every membership a user holds
func (r *BunMemberRepository) ListByUser(ctx context.Context, userID string) ([]models.Member, error) {
	var members []models.Member
	err := r.db.NewSelect().
		Model(&members).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "list members by user")
	}
	return members, nil
}

// paginateMembers pages the members table on (joined_at, id).
func paginateMembers(ctx context.Context, db bun.IDB, page Page, resourceID string) ([]models.Member, bool, error) {
	if page.StartingAfter != "" && page.EndingBefore != "" {
		return nil, false, apperr.E(apperr.KindValidation, "starting_after and ending_before are mutually exclusive")
	}
	fwdCmp, fwdOrder, revCmp, revOrder, err := page.direction()
	if err != nil {
		return nil, false, err
	}

	limit := page.effectiveLimit()
	var members []models.Member
	q := db.NewSelect().
		Model(&members).
		Where("resource_id = ?", resourceID)

	anchor := func(id string) (*models.Member, error) {
		m := new(models.Member)
		err := db.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
		if err != nil {
			if apperr.IsKind(translate(err, "resolve cursor"), apperr.KindNotFound) {
				return nil, apperr.Ef(apperr.KindNotFound, "unknown cursor: %s", id)
			}
			return nil, translate(err, "resolve cursor")
		}
		return m, nil
	}

	reversed := false
	switch {
	case page.StartingAfter != "":
		m, err := anchor(page.StartingAfter)
		if err != nil {
			return nil, false, err
		}
		q = q.Where("(joined_at, id) "+fwdCmp+" (?, ?)", m.JoinedAt, m.ID).
			OrderExpr(fmt.Sprintf(fwdOrder, "joined_at"))
	case page.EndingBefore != "":
		m, err := anchor(page.EndingBefore)
		if err != nil {
			return nil, false, err
		}
		q = q.Where("(joined_at, id) "+revCmp+" (?, ?)", m.JoinedAt, m.ID).
			OrderExpr(fmt.Sprintf(revOrder, "joined_at"))
		reversed = true
	default:
		q = q.OrderExpr(fmt.Sprintf(fwdOrder, "joined_at"))
	}

	if err := q.Limit(limit + 1).Scan(ctx); err != nil {
		return nil, false, translate(err, "list members")
	}

	hasMore := len(members) > limit
	if hasMore {
		members = members[:limit]
	}
	if reversed {
		for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
			members[i], members[j] = members[j], members[i]
		}
	}
	return members, hasMore, nil
}
