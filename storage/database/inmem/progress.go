package inmemdb

import (
	"context"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) CreateEntry(ctx context.Context, e progress.Entry) (progress.Entry, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.students[e.StudentID]; !ok {
		return progress.Entry{}, profile.ErrStudentNotFound
	}
	if _, ok := repo.db.teachers[e.TeacherID]; !ok {
		return progress.Entry{}, profile.ErrNotFound
	}
	e.ID = repo.db.nextID()
	repo.db.progress[e.ID] = e
	return e, nil
}

func (repo *progressRepository) QueryEntries(
	_ context.Context,
	filter progress.Filter,
	ordering ...core.DBOrdering,
) ([]progress.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]progress.Entry, 0)
	for _, e := range repo.db.progress {
		if filter.StudentID != 0 && e.StudentID != filter.StudentID {
			continue
		}
		if filter.TeacherID != 0 && e.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Subject != "" && e.Subject != filter.Subject {
			continue
		}
		if !inRange(e.Date, filter.From, filter.To) {
			continue
		}
		entries = append(entries, e)
	}
	sortByDate(entries, ordering,
		func(e progress.Entry) core.Date { return e.Date },
		func(e progress.Entry) int64 { return e.ID },
	)
	return paginate(entries, filter.Limit), nil
}
