package inmemdb

import (
	"context"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/attendance"
	"github.com/trezcool/attendtrack/core/profile"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertEntry(ctx context.Context, e attendance.Entry) (attendance.Entry, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.students[e.StudentID]; !ok {
		return attendance.Entry{}, profile.ErrStudentNotFound
	}
	if _, ok := repo.db.teachers[e.TeacherID]; !ok {
		return attendance.Entry{}, profile.ErrNotFound
	}

	for id, existing := range repo.db.attendance {
		if existing.StudentID == e.StudentID && existing.TeacherID == e.TeacherID && existing.Date.Equal(e.Date) {
			existing.Present = e.Present
			existing.Remarks = e.Remarks
			existing.MarkedAt = e.MarkedAt
			repo.db.attendance[id] = existing
			return existing, nil
		}
	}
	e.ID = repo.db.nextID()
	repo.db.attendance[e.ID] = e
	return e, nil
}

func (repo *attendanceRepository) QueryEntries(
	_ context.Context,
	filter attendance.Filter,
	ordering ...core.DBOrdering,
) ([]attendance.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]attendance.Entry, 0)
	for _, e := range repo.db.attendance {
		if filter.StudentID != 0 && e.StudentID != filter.StudentID {
			continue
		}
		if filter.TeacherID != 0 && e.TeacherID != filter.TeacherID {
			continue
		}
		if !inRange(e.Date, filter.From, filter.To) {
			continue
		}
		entries = append(entries, e)
	}
	sortByDate(entries, ordering,
		func(e attendance.Entry) core.Date { return e.Date },
		func(e attendance.Entry) int64 { return e.ID },
	)
	return paginate(entries, filter.Limit), nil
}
