package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/progress"
)

type progressRow struct {
	ID             int64        `db:"id"`
	StudentID      int64        `db:"student_id"`
	TeacherID      int64        `db:"teacher_id"`
	Subject        string       `db:"subject"`
	AssignmentName string       `db:"assignment_name"`
	MarksObtained  float64      `db:"marks_obtained"`
	TotalMarks     float64      `db:"total_marks"`
	Percentage     null.Float64 `db:"percentage"`
	Comments       string       `db:"comments"`
	Date           core.Date    `db:"date"`
	CreatedAt      time.Time    `db:"created_at"`
}

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) CreateEntry(ctx context.Context, e progress.Entry) (progress.Entry, error) {
	q := psql.Insert("progress").
		SetMap(map[string]interface{}{
			"student_id":      e.StudentID,
			"teacher_id":      e.TeacherID,
			"subject":         e.Subject,
			"assignment_name": e.AssignmentName,
			"marks_obtained":  e.MarksObtained,
			"total_marks":     e.TotalMarks,
			"percentage":      e.Percentage,
			"comments":        e.Comments,
			"date":            e.Date,
			"created_at":      e.CreatedAt,
		}).
		Suffix("RETURNING *")

	var row progressRow
	if err := repo.db.get(ctx, &row, q); err != nil {
		return progress.Entry{}, recordErr(err, "progress")
	}
	created := progress.Entry(row)
	created.CreatedAt = created.CreatedAt.UTC()
	return created, nil
}

func (repo *progressRepository) QueryEntries(
	ctx context.Context,
	filter progress.Filter,
	ordering ...core.DBOrdering,
) ([]progress.Entry, error) {
	q := psql.Select("*").From("progress")
	if filter.StudentID != 0 {
		q = q.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if filter.TeacherID != 0 {
		q = q.Where(sq.Eq{"teacher_id": filter.TeacherID})
	}
	if filter.Subject != "" {
		q = q.Where(sq.Eq{"subject": filter.Subject})
	}
	q = dateRange(q, filter.From, filter.To)
	q = limit(q.OrderBy(orderBy(ordering, "date", "created_at")...), filter.Limit)

	var rows []progressRow
	if err := repo.db.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	entries := make([]progress.Entry, 0, len(rows))
	for _, row := range rows {
		e := progress.Entry(row)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, nil
}
