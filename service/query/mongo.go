// Package query wraps the official mongo driver behind a small interface so
// repositories stay oblivious of driver details and tests can run against the
// in-memory store instead.
package query

import (
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/xerrors"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/domain"
)

var (
	// ErrNotFound is mongo document not found error
	ErrNotFound = xerrors.Errorf("document not found")

	// ErrDuplicateKey is an error when violating unique index
	ErrDuplicateKey = xerrors.Errorf("duplicate key")
)

type patchOp struct {
	patchMany bool
}

// PatchOp is an alias for functional argument
type PatchOp func(*patchOp)

// WithPatchMany patches all entries matched by the selector instead of one.
func WithPatchMany(patchMany bool) PatchOp {
	return func(o *patchOp) {
		o.patchMany = patchMany
	}
}

// Mongo abstract the mongo layer.
type Mongo interface {
	// Insert inserts a new document to the table
	Insert(context ctx.Ctx, table domain.Table, insert interface{}) error

	// FindOne get data from the table
	FindOne(context ctx.Ctx, table domain.Table, query, result interface{}) error

	// Count return counting for matched entry in the table
	Count(context ctx.Ctx, table domain.Table, selector interface{}) (n int, err error)

	// Search sort order by `sort` argument (ex "bidTime" ascending, or
	// "-bidTime" descending). If `sort` is "", the order of results is
	// whatever mongo returns.
	Search(context ctx.Ctx, table domain.Table, offset, limit int, sort string, query, results interface{}) error

	// SearchNSorts sorts with multiple fields
	SearchNSorts(context ctx.Ctx, table domain.Table, offset, limit int, sortFields []string, query, results interface{}) error

	// Upsert replaces the entry matched by selector, inserting when absent
	Upsert(context ctx.Ctx, table domain.Table, selector, update interface{}) error

	// Patch patches the entry matched by selector with a $set of update.
	// Returns ErrNotFound when the selector matches nothing; selectors that
	// embed an expected version or status therefore double as a
	// compare-and-swap.
	Patch(context ctx.Ctx, table domain.Table, selector, update interface{}, ops ...PatchOp) error

	// CustomPatch patches with a caller-built update document ($inc,
	// $addToSet, ...). Returns ErrNotFound when upsert is false and the
	// selector matches nothing.
	CustomPatch(context ctx.Ctx, table domain.Table, selector, update bson.M, upsert bool) error

	// RemoveAll removes all entries matching the selector from the table
	RemoveAll(context ctx.Ctx, table domain.Table, selector interface{}) (removedCnt int64, err error)
}
