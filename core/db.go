package core

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNoTx = errors.New("no transaction in context")

// Transactor runs a unit of work atomically.
// The transaction travels in the context handed to fn: every repository call made
// with that context joins it. Nested calls join the outer transaction.
// If fn returns an error, nothing it wrote is kept.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	// LockTx holds the exclusive lock key until the transaction carried by ctx ends.
	// Transactions locking the same key run one after the other.
	LockTx(ctx context.Context, key int64) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy returns a descending ordering on field, optionally ascending.
func OrderBy(field string, ascending ...bool) DBOrdering {
	return DBOrdering{Field: field, Ascending: len(ascending) > 0 && ascending[0]}
}
