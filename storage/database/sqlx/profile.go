package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/profile"
)

const (
	studentsTable = "student_profiles"
	teachersTable = "teacher_profiles"
	parentsTable  = "parent_profiles"
)

type studentRow struct {
	ID         int64      `db:"id"`
	AccountID  int64      `db:"account_id"`
	RollNumber string     `db:"roll_number"`
	FullName   string     `db:"full_name"`
	ClassName  string     `db:"class_name"`
	Phone      string     `db:"phone"`
	ParentID   null.Int64 `db:"parent_id"`
}

func (row studentRow) toStudent() profile.Student {
	return profile.Student(row)
}

type teacherRow struct {
	ID         int64  `db:"id"`
	AccountID  int64  `db:"account_id"`
	FullName   string `db:"full_name"`
	Department string `db:"department"`
	Subject    string `db:"subject"`
	Phone      string `db:"phone"`
}

type parentRow struct {
	ID        int64  `db:"id"`
	AccountID int64  `db:"account_id"`
	FullName  string `db:"full_name"`
	Phone     string `db:"phone"`
	Email     string `db:"email"`
}

func profileErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return profile.ErrNotFound
	}
	switch code, constraint := pqErrorCode(err); code {
	case pqUniqueViolation:
		if constraint == "student_profiles_roll_number_key" {
			return profile.ErrRollNumberExists
		}
		return profile.ErrAccountHasProfile
	case pqForeignKeyViolation:
		if constraint == "student_profiles_parent_id_fkey" {
			return profile.ErrParentNotFound
		}
	}
	return err
}

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) accountHasProfile(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := repo.db.get(ctx, &exists, sq.Expr(
		`SELECT EXISTS (
			SELECT 1 FROM student_profiles WHERE account_id = $1
			UNION ALL SELECT 1 FROM teacher_profiles WHERE account_id = $1
			UNION ALL SELECT 1 FROM parent_profiles WHERE account_id = $1
		)`,
		accountID,
	))
	return exists, err
}

func (repo *profileRepository) ensureNoProfile(ctx context.Context, accountID int64) error {
	exists, err := repo.accountHasProfile(ctx, accountID)
	if err != nil {
		return err
	}
	if exists {
		return profile.ErrAccountHasProfile
	}
	return nil
}

func (repo *profileRepository) CreateStudent(ctx context.Context, s profile.Student) (profile.Student, error) {
	if err := repo.ensureNoProfile(ctx, s.AccountID); err != nil {
		return profile.Student{}, err
	}
	q := psql.Insert(studentsTable).
		SetMap(map[string]interface{}{
			"account_id":  s.AccountID,
			"roll_number": s.RollNumber,
			"full_name":   s.FullName,
			"class_name":  s.ClassName,
			"phone":       s.Phone,
			"parent_id":   s.ParentID,
		}).
		Suffix("RETURNING *")

	var row studentRow
	if err := repo.db.get(ctx, &row, q); err != nil {
		return profile.Student{}, profileErr(err)
	}
	return row.toStudent(), nil
}

func (repo *profileRepository) CreateTeacher(ctx context.Context, t profile.Teacher) (profile.Teacher, error) {
	if err := repo.ensureNoProfile(ctx, t.AccountID); err != nil {
		return profile.Teacher{}, err
	}
	q := psql.Insert(teachersTable).
		SetMap(map[string]interface{}{
			"account_id": t.AccountID,
			"full_name":  t.FullName,
			"department": t.Department,
			"subject":    t.Subject,
			"phone":      t.Phone,
		}).
		Suffix("RETURNING *")

	var row teacherRow
	if err := repo.db.get(ctx, &row, q); err != nil {
		return profile.Teacher{}, profileErr(err)
	}
	return profile.Teacher(row), nil
}

func (repo *profileRepository) CreateParent(ctx context.Context, p profile.Parent) (profile.Parent, error) {
	if err := repo.ensureNoProfile(ctx, p.AccountID); err != nil {
		return profile.Parent{}, err
	}
	q := psql.Insert(parentsTable).
		SetMap(map[string]interface{}{
			"account_id": p.AccountID,
			"full_name":  p.FullName,
			"phone":      p.Phone,
			"email":      p.Email,
		}).
		Suffix("RETURNING *")

	var row parentRow
	if err := repo.db.get(ctx, &row, q); err != nil {
		return profile.Parent{}, profileErr(err)
	}
	return profile.Parent(row), nil
}

func getWhere(filter profile.GetFilter) sq.And {
	where := sq.And{}
	if filter.ID != 0 {
		where = append(where, sq.Eq{"id": filter.ID})
	}
	if filter.AccountID != 0 {
		where = append(where, sq.Eq{"account_id": filter.AccountID})
	}
	if filter.RollNumber != "" {
		where = append(where, sq.Eq{"roll_number": filter.RollNumber})
	}
	if filter.Email != "" {
		where = append(where, sq.Eq{"email": filter.Email})
	}
	return where
}

func (repo *profileRepository) GetStudent(ctx context.Context, filter profile.GetFilter) (profile.Student, error) {
	var row studentRow
	q := psql.Select("*").From(studentsTable).Where(getWhere(filter)).OrderBy("id").Limit(1)
	if err := repo.db.get(ctx, &row, q); err != nil {
		return profile.Student{}, profileErr(err)
	}
	return row.toStudent(), nil
}

func (repo *profileRepository) GetTeacher(ctx context.Context, filter profile.GetFilter) (profile.Teacher, error) {
	var row teacherRow
	q := psql.Select("*").From(teachersTable).Where(getWhere(filter)).OrderBy("id").Limit(1)
	if err := repo.db.get(ctx, &row, q); err != nil {
		return profile.Teacher{}, profileErr(err)
	}
	return profile.Teacher(row), nil
}

func (repo *profileRepository) GetParent(ctx context.Context, filter profile.GetFilter) (profile.Parent, error) {
	var row parentRow
	q := psql.Select("*").From(parentsTable).Where(getWhere(filter)).OrderBy("id").Limit(1)
	if err := repo.db.get(ctx, &row, q); err != nil {
		return profile.Parent{}, profileErr(err)
	}
	return profile.Parent(row), nil
}

func studentsWhere(filter profile.StudentFilter) sq.And {
	where := sq.And{}
	if filter.ClassName != "" {
		where = append(where, sq.Eq{"class_name": filter.ClassName})
	}
	if filter.ParentID != 0 {
		where = append(where, sq.Eq{"parent_id": filter.ParentID})
	}
	if len(filter.IDs) > 0 {
		where = append(where, sq.Eq{"id": filter.IDs})
	}
	return where
}

func (repo *profileRepository) QueryStudents(
	ctx context.Context,
	filter profile.StudentFilter,
	ordering ...core.DBOrdering,
) ([]profile.Student, error) {
	q := psql.Select("*").
		From(studentsTable).
		Where(studentsWhere(filter)).
		OrderBy(orderBy(ordering, "roll_number", "full_name")...)

	var rows []studentRow
	if err := repo.db.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	students := make([]profile.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *profileRepository) CountStudents(ctx context.Context, filter profile.StudentFilter) (int, error) {
	var n int
	err := repo.db.get(ctx, &n, psql.Select("COUNT(*)").From(studentsTable).Where(studentsWhere(filter)))
	return n, err
}

func (repo *profileRepository) UpdateStudent(ctx context.Context, s profile.Student) (profile.Student, error) {
	q := psql.Update(studentsTable).
		SetMap(map[string]interface{}{
			"roll_number": s.RollNumber,
			"full_name":   s.FullName,
			"class_name":  s.ClassName,
			"phone":       s.Phone,
			"parent_id":   s.ParentID,
		}).
		Where(sq.Eq{"id": s.ID}).
		Suffix("RETURNING *")

	var row studentRow
	if err := repo.db.get(ctx, &row, q); err != nil {
		return profile.Student{}, profileErr(err)
	}
	return row.toStudent(), nil
}

func (repo *profileRepository) delete(ctx context.Context, table string, id int64) error {
	n, err := repo.db.exec(ctx, psql.Delete(table).Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if n == 0 {
		return profile.ErrNotFound
	}
	return nil
}

// DeleteStudent also removes the student's attendance and progress records.
func (repo *profileRepository) DeleteStudent(ctx context.Context, id int64) error {
	return repo.delete(ctx, studentsTable, id)
}

// DeleteTeacher also removes the attendance and progress records the teacher wrote.
func (repo *profileRepository) DeleteTeacher(ctx context.Context, id int64) error {
	return repo.delete(ctx, teachersTable, id)
}

// DeleteParent unlinks the parent's children.
func (repo *profileRepository) DeleteParent(ctx context.Context, id int64) error {
	return repo.delete(ctx, parentsTable, id)
}
