package profile

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/user"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrParentNotFound    = errors.New("parent not found")
	ErrRollNumberExists  = errors.New("a student with this roll number already exists")
	ErrAccountHasProfile = errors.New("this account already has a profile")
)

type Repository interface {
	CreateStudent(ctx context.Context, s Student) (Student, error)
	CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	CreateParent(ctx context.Context, p Parent) (Parent, error)
	GetStudent(ctx context.Context, filter GetFilter) (Student, error)
	GetTeacher(ctx context.Context, filter GetFilter) (Teacher, error)
	GetParent(ctx context.Context, filter GetFilter) (Parent, error)
	QueryStudents(ctx context.Context, filter StudentFilter, ordering ...core.DBOrdering) ([]Student, error)
	CountStudents(ctx context.Context, filter StudentFilter) (int, error)
	UpdateStudent(ctx context.Context, s Student) (Student, error)
	// DeleteStudent also removes the student's attendance and progress rows.
	DeleteStudent(ctx context.Context, id int64) error
	// DeleteTeacher also removes the attendance and progress rows the teacher recorded.
	DeleteTeacher(ctx context.Context, id int64) error
	// DeleteParent unlinks the parent's children.
	DeleteParent(ctx context.Context, id int64) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var rosterOrdering = core.OrderBy("roll_number", true /* ascending */)

func ownProfileErr(err error, what string) error {
	if errors.Cause(err) == ErrNotFound {
		return access.ErrProfileNotFound
	}
	return errors.Wrap(err, "getting "+what+" profile")
}

// Teacher returns the profile of the teacher identified by id.
func (svc *Service) Teacher(ctx context.Context, id access.Identity) (Teacher, error) {
	if err := access.Require(id, user.RoleTeacher); err != nil {
		return Teacher{}, err
	}
	t, err := svc.repo.GetTeacher(ctx, GetFilter{AccountID: id.AccountID})
	if err != nil {
		return Teacher{}, ownProfileErr(err, "teacher")
	}
	return t, nil
}

// Student returns the profile of the student identified by id.
func (svc *Service) Student(ctx context.Context, id access.Identity) (Student, error) {
	if err := access.Require(id, user.RoleStudent); err != nil {
		return Student{}, err
	}
	s, err := svc.repo.GetStudent(ctx, GetFilter{AccountID: id.AccountID})
	if err != nil {
		return Student{}, ownProfileErr(err, "student")
	}
	return s, nil
}

// Parent returns the profile of the parent identified by id.
func (svc *Service) Parent(ctx context.Context, id access.Identity) (Parent, error) {
	if err := access.Require(id, user.RoleParent); err != nil {
		return Parent{}, err
	}
	p, err := svc.repo.GetParent(ctx, GetFilter{AccountID: id.AccountID})
	if err != nil {
		return Parent{}, ownProfileErr(err, "parent")
	}
	return p, nil
}

// Roster returns the students of the teacher's class, ordered by roll number.
func (svc *Service) Roster(ctx context.Context, t Teacher) ([]Student, error) {
	students, err := svc.repo.QueryStudents(ctx, StudentFilter{ClassName: t.Department}, rosterOrdering)
	if err != nil {
		return nil, errors.Wrap(err, "querying roster")
	}
	return students, nil
}

func (svc *Service) RosterSize(ctx context.Context, t Teacher) (int, error) {
	n, err := svc.repo.CountStudents(ctx, StudentFilter{ClassName: t.Department})
	if err != nil {
		return 0, errors.Wrap(err, "counting roster")
	}
	return n, nil
}

// RosterStudent returns the student studentID if they are in the teacher's roster.
func (svc *Service) RosterStudent(ctx context.Context, t Teacher, studentID int64) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, GetFilter{ID: studentID})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, access.ErrNotInRoster
		}
		return Student{}, errors.Wrap(err, "getting student")
	}
	if s.ClassName != t.Department {
		return Student{}, access.ErrNotInRoster
	}
	return s, nil
}

// Children returns the students linked to the parent, ordered by roll number.
func (svc *Service) Children(ctx context.Context, p Parent) ([]Student, error) {
	students, err := svc.repo.QueryStudents(ctx, StudentFilter{ParentID: p.ID}, rosterOrdering)
	if err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	return students, nil
}

// ChildOf returns the student studentID if it belongs to the parent.
func (svc *Service) ChildOf(ctx context.Context, p Parent, studentID int64) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, GetFilter{ID: studentID})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, ErrStudentNotFound
		}
		return Student{}, errors.Wrap(err, "getting student")
	}
	if err = access.CheckOwnership(p.ID, s.ParentID); err != nil {
		return Student{}, err
	}
	return s, nil
}

func (svc *Service) CreateStudent(ctx context.Context, accountID int64, ns NewStudent) (Student, error) {
	s := Student{
		AccountID:  accountID,
		RollNumber: ns.RollNumber,
		FullName:   ns.FullName,
		ClassName:  ns.ClassName,
		Phone:      ns.Phone,
	}
	if ns.ParentID != 0 {
		s.ParentID = null.Int64From(ns.ParentID)
	}
	s, err := svc.repo.CreateStudent(ctx, s)
	if err != nil {
		return Student{}, profileCreateErr(err)
	}
	return s, nil
}

func (svc *Service) CreateTeacher(ctx context.Context, accountID int64, nt NewTeacher) (Teacher, error) {
	t, err := svc.repo.CreateTeacher(ctx, Teacher{
		AccountID:  accountID,
		FullName:   nt.FullName,
		Department: nt.Department,
		Subject:    nt.Subject,
		Phone:      nt.Phone,
	})
	if err != nil {
		return Teacher{}, profileCreateErr(err)
	}
	return t, nil
}

func (svc *Service) CreateParent(ctx context.Context, accountID int64, np NewParent) (Parent, error) {
	p, err := svc.repo.CreateParent(ctx, Parent{
		AccountID: accountID,
		FullName:  np.FullName,
		Phone:     np.Phone,
		Email:     np.Email,
	})
	if err != nil {
		return Parent{}, profileCreateErr(err)
	}
	return p, nil
}

func profileCreateErr(err error) error {
	switch cause := errors.Cause(err); cause {
	case ErrRollNumberExists:
		return core.NewValidationError(cause, core.FieldError{Field: "roll_number", Error: cause.Error()})
	case ErrAccountHasProfile:
		return core.NewValidationError(cause)
	}
	return errors.Wrap(err, "creating profile")
}

// LinkParent links the student known by rollNumber to the parent known by email.
func (svc *Service) LinkParent(ctx context.Context, rollNumber, parentEmail string) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, GetFilter{RollNumber: core.CleanString(rollNumber, true /* lower */)})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, ErrStudentNotFound
		}
		return Student{}, errors.Wrap(err, "getting student")
	}
	p, err := svc.repo.GetParent(ctx, GetFilter{Email: core.CleanString(parentEmail, true /* lower */)})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, ErrParentNotFound
		}
		return Student{}, errors.Wrap(err, "getting parent")
	}
	s.ParentID = null.Int64From(p.ID)
	return svc.repo.UpdateStudent(ctx, s)
}
