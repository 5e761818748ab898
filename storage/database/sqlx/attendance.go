package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/attendance"
	"github.com/trezcool/attendtrack/core/profile"
)

type attendanceRow struct {
	ID        int64       `db:"id"`
	StudentID int64       `db:"student_id"`
	TeacherID int64       `db:"teacher_id"`
	Date      core.Date   `db:"date"`
	Present   bool        `db:"present"`
	Remarks   null.String `db:"remarks"`
	MarkedAt  time.Time   `db:"marked_at"`
}

func (row attendanceRow) toEntry() attendance.Entry {
	e := attendance.Entry(row)
	e.MarkedAt = e.MarkedAt.UTC()
	return e
}

// recordErr maps foreign key violations of attendance and progress inserts.
func recordErr(err error, table string) error {
	if code, constraint := pqErrorCode(err); code == pqForeignKeyViolation {
		switch constraint {
		case table + "_student_id_fkey":
			return profile.ErrStudentNotFound
		case table + "_teacher_id_fkey":
			return profile.ErrNotFound
		}
	}
	return err
}

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertEntry(ctx context.Context, e attendance.Entry) (attendance.Entry, error) {
	q := psql.Insert("attendance").
		Columns("student_id", "teacher_id", "date", "present", "remarks", "marked_at").
		Values(e.StudentID, e.TeacherID, e.Date, e.Present, e.Remarks, e.MarkedAt).
		Suffix(`ON CONFLICT (student_id, teacher_id, date) DO UPDATE
			SET present = EXCLUDED.present, remarks = EXCLUDED.remarks, marked_at = EXCLUDED.marked_at
			RETURNING *`)

	var row attendanceRow
	if err := repo.db.get(ctx, &row, q); err != nil {
		return attendance.Entry{}, recordErr(err, "attendance")
	}
	return row.toEntry(), nil
}

func (repo *attendanceRepository) QueryEntries(
	ctx context.Context,
	filter attendance.Filter,
	ordering ...core.DBOrdering,
) ([]attendance.Entry, error) {
	q := psql.Select("*").From("attendance")
	if filter.StudentID != 0 {
		q = q.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if filter.TeacherID != 0 {
		q = q.Where(sq.Eq{"teacher_id": filter.TeacherID})
	}
	q = dateRange(q, filter.From, filter.To)
	q = limit(q.OrderBy(orderBy(ordering, "date", "marked_at")...), filter.Limit)

	var rows []attendanceRow
	if err := repo.db.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	entries := make([]attendance.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}
