package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/uptrace/bun"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Sort directions for list pagination.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Page carries cursor pagination parameters. Cursors are entity ids; the
// sort key is the (created_at, id) composite so rows created in the same
// instant still page deterministically. An empty Order means newest
// first.
type Page struct {
	Limit         int
	Order         string
	StartingAfter string
	EndingBefore  string
}

// direction resolves Order into the comparison operators and ORDER BY
// clauses for the forward and reversed (ending_before) legs.
func (p Page) direction() (fwdCmp, fwdOrder, revCmp, revOrder string, err error) {
	switch p.Order {
	case "", OrderDesc:
		return "<", "%s DESC, id DESC", ">", "%s ASC, id ASC", nil
	case OrderAsc:
		return ">", "%s ASC, id ASC", "<", "%s DESC, id DESC", nil
	default:
		return "", "", "", "", apperr.Ef(apperr.KindValidation, "invalid order: %s", p.Order)
	}
}

func (p Page) effectiveLimit() int {
	switch {
	case p.Limit <= 0:
		return defaultPageLimit
	case p.Limit > maxPageLimit:
		return maxPageLimit
	default:
		return p.Limit
	}
}

// cursorAnchor resolves a cursor id to its sort-key values. An id that no
// longer exists (or never did) is not_found, distinguishing a bad cursor
// from an empty page.
func cursorAnchor[T any](ctx context.Context, db bun.IDB, id string) (time.Time, string, error) {
	var createdAt time.Time
	var anchorID string
	err := db.NewSelect().
		Model((*T)(nil)).
		Column("created_at", "id").
		Where("id = ?", id).
		Scan(ctx, &createdAt, &anchorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, "", apperr.Ef(apperr.KindNotFound, "unknown cursor: %s", id)
		}
		return time.Time{}, "", translate(err, "resolve cursor")
	}
	return createdAt, anchorID, nil
}

// paginate runs a cursor-paginated select. It fetches limit+1 rows to
// decide has_more without a count query. filter narrows the base query;
// nil means the whole table.
func paginate[T any](ctx context.Context, db bun.IDB, page Page, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]T, bool, error) {
	if page.StartingAfter != "" && page.EndingBefore != "" {
		return nil, false, apperr.E(apperr.KindValidation, "starting_after and ending_before are mutually exclusive")
	}

	fwdCmp, fwdOrder, revCmp, revOrder, err := page.direction()
	if err != nil {
		return nil, false, err
	}

	limit := page.effectiveLimit()
	var items []T
	q := db.NewSelect().Model(&items)
	if filter != nil {
		q = filter(q)
	}

	reversed := false
	switch {
	case page.StartingAfter != "":
		createdAt, id, err := cursorAnchor[T](ctx, db, page.StartingAfter)
		if err != nil {
			return nil, false, err
		}
		q = q.Where("(created_at, id) "+fwdCmp+" (?, ?)", createdAt, id).
			OrderExpr(fmt.Sprintf(fwdOrder, "created_at"))
	case page.EndingBefore != "":
		createdAt, id, err := cursorAnchor[T](ctx, db, page.EndingBefore)
		if err != nil {
			return nil, false, err
		}
		q = q.Where("(created_at, id) "+revCmp+" (?, ?)", createdAt, id).
			OrderExpr(fmt.Sprintf(revOrder, "created_at"))
		reversed = true
	default:
		q = q.OrderExpr(fmt.Sprintf(fwdOrder, "created_at"))
	}

	if err := q.Limit(limit + 1).Scan(ctx); err != nil {
		return nil, false, translate(err, "list page")
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	if reversed {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return items, hasMore, nil
}
