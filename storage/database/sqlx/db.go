// Package sqlxrepos holds the PostgreSQL repositories.
package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type txKey struct{}

// DB wraps a PostgreSQL connection pool and carries transactions in contexts.
type DB struct {
	*sqlx.DB
}

var _ core.Transactor = (*DB)(nil)

func NewDB(db *sqlx.DB) *DB {
	return &DB{DB: db}
}

// WithinTx implements core.Transactor.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// LockTx implements core.Transactor with a transaction-level advisory lock.
func (db *DB) LockTx(ctx context.Context, key int64) error {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	if !ok {
		return core.ErrNoTx
	}
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", key)
	return errors.Wrap(err, "taking advisory lock")
}

// ext returns the transaction carried by ctx, or the pool.
func (db *DB) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db.DB
}

func (db *DB) get(ctx context.Context, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, db.ext(ctx), dest, query, args...)
}

func (db *DB) selectAll(ctx context.Context, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, db.ext(ctx), dest, query, args...)
}

// exec runs b and returns the number of affected rows.
func (db *DB) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := db.ext(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// pqErrorCode returns the PostgreSQL error code and constraint of err, if any.
func pqErrorCode(err error) (code, constraint string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

// orderBy returns the ORDER BY clauses for the allowed fields of ordering,
// with id as tie-breaker in the direction of the first ordering.
func orderBy(ordering []core.DBOrdering, allowed ...string) []string {
	clauses := make([]string, 0, len(ordering)+1)
	asc := true
	for _, ord := range ordering {
		for _, field := range allowed {
			if ord.Field == field {
				if len(clauses) == 0 {
					asc = ord.Ascending
				}
				clauses = append(clauses, ord.String())
				break
			}
		}
	}
	return append(clauses, core.DBOrdering{Field: "id", Ascending: asc}.String())
}

func dateRange(b sq.SelectBuilder, from, to core.Date) sq.SelectBuilder {
	if !from.IsZero() {
		b = b.Where(sq.GtOrEq{"date": from})
	}
	if !to.IsZero() {
		b = b.Where(sq.LtOrEq{"date": to})
	}
	return b
}

func limit(b sq.SelectBuilder, n int) sq.SelectBuilder {
	if n > 0 {
		b = b.Limit(uint64(n))
	}
	return b
}
