// Package inmemdb holds in-memory repositories, used by tests and local demos.
package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/attendance"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/progress"
	"github.com/trezcool/attendtrack/core/user"
)

type txKey struct{}

// DB is an in-memory store. Tables hold values so that a snapshot taken at the
// start of a transaction can be restored on failure.
// Transactions run one at a time, and writes made outside a transaction wait for the
// running one to end, so a rollback only discards the transaction's own writes.
// Reads are not isolated: they may see writes of a transaction that later rolls back.
type DB struct {
	mutex sync.RWMutex
	txMu  sync.Mutex // serializes transactions

	seq        int64
	accounts   map[int64]user.Account
	students   map[int64]profile.Student
	teachers   map[int64]profile.Teacher
	parents    map[int64]profile.Parent
	attendance map[int64]attendance.Entry
	progress   map[int64]progress.Entry
}

var _ core.Transactor = (*DB)(nil)

func NewDB() *DB {
	db := new(DB)
	db.reset()
	return db
}

func (db *DB) reset() {
	db.seq = 0
	db.accounts = make(map[int64]user.Account)
	db.students = make(map[int64]profile.Student)
	db.teachers = make(map[int64]profile.Teacher)
	db.parents = make(map[int64]profile.Parent)
	db.attendance = make(map[int64]attendance.Entry)
	db.progress = make(map[int64]progress.Entry)
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.reset()
}

// lock takes the write lock and returns its release.
// Outside a transaction it first waits for the running transaction, if any.
func (db *DB) lock(ctx context.Context) (unlock func()) {
	if ctx.Value(txKey{}) != nil {
		db.mutex.Lock()
		return db.mutex.Unlock
	}
	db.txMu.Lock()
	db.mutex.Lock()
	return func() {
		db.mutex.Unlock()
		db.txMu.Unlock()
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

type snapshot struct {
	seq        int64
	accounts   map[int64]user.Account
	students   map[int64]profile.Student
	teachers   map[int64]profile.Teacher
	parents    map[int64]profile.Parent
	attendance map[int64]attendance.Entry
	progress   map[int64]progress.Entry
}

func (db *DB) snapshot() snapshot {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return snapshot{
		seq:        db.seq,
		accounts:   copyMap(db.accounts),
		students:   copyMap(db.students),
		teachers:   copyMap(db.teachers),
		parents:    copyMap(db.parents),
		attendance: copyMap(db.attendance),
		progress:   copyMap(db.progress),
	}
}

func (db *DB) restore(s snapshot) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.seq = s.seq
	db.accounts = s.accounts
	db.students = s.students
	db.teachers = s.teachers
	db.parents = s.parents
	db.attendance = s.attendance
	db.progress = s.progress
}

// WithinTx implements core.Transactor.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	defer func() {
		if p := recover(); p != nil {
			db.restore(snap)
			panic(p)
		}
		if err != nil {
			db.restore(snap)
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, true))
}

// LockTx implements core.Transactor. Transactions already run one at a time.
func (db *DB) LockTx(ctx context.Context, _ int64) error {
	if ctx.Value(txKey{}) == nil {
		return core.ErrNoTx
	}
	return nil
}

// paginate applies limit (when positive) to a sorted slice.
func paginate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// sortByDate sorts items by date, with id as tie-breaker in the same direction.
// Unknown orderings fall back to id ascending.
func sortByDate[T any](items []T, ordering []core.DBOrdering, date func(T) core.Date, id func(T) int64) {
	asc := true
	byDate := false
	if len(ordering) > 0 && ordering[0].Field == "date" {
		byDate = true
		asc = ordering[0].Ascending
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if byDate && !date(a).Equal(date(b)) {
			if asc {
				return date(a).Before(date(b).Time)
			}
			return date(a).After(date(b).Time)
		}
		if asc {
			return id(a) < id(b)
		}
		return id(a) > id(b)
	})
}

func inRange(d, from, to core.Date) bool {
	if !from.IsZero() && d.Before(from.Time) {
		return false
	}
	if !to.IsZero() && d.After(to.Time) {
		return false
	}
	return true
}
