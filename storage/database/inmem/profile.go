package inmemdb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db}
}

// accountHasProfile must be called with a lock held.
func (repo *profileRepository) accountHasProfile(accountID int64) bool {
	for _, s := range repo.db.students {
		if s.AccountID == accountID {
			return true
		}
	}
	for _, t := range repo.db.teachers {
		if t.AccountID == accountID {
			return true
		}
	}
	for _, p := range repo.db.parents {
		if p.AccountID == accountID {
			return true
		}
	}
	return false
}

func (repo *profileRepository) CreateStudent(ctx context.Context, s profile.Student) (profile.Student, error) {
	defer repo.db.lock(ctx)()

	if repo.accountHasProfile(s.AccountID) {
		return profile.Student{}, profile.ErrAccountHasProfile
	}
	for _, other := range repo.db.students {
		if other.RollNumber == s.RollNumber {
			return profile.Student{}, profile.ErrRollNumberExists
		}
	}
	s.ID = repo.db.nextID()
	repo.db.students[s.ID] = s
	return s, nil
}

func (repo *profileRepository) CreateTeacher(ctx context.Context, t profile.Teacher) (profile.Teacher, error) {
	defer repo.db.lock(ctx)()

	if repo.accountHasProfile(t.AccountID) {
		return profile.Teacher{}, profile.ErrAccountHasProfile
	}
	t.ID = repo.db.nextID()
	repo.db.teachers[t.ID] = t
	return t, nil
}

func (repo *profileRepository) CreateParent(ctx context.Context, p profile.Parent) (profile.Parent, error) {
	defer repo.db.lock(ctx)()

	if repo.accountHasProfile(p.AccountID) {
		return profile.Parent{}, profile.ErrAccountHasProfile
	}
	p.ID = repo.db.nextID()
	repo.db.parents[p.ID] = p
	return p, nil
}

func (repo *profileRepository) GetStudent(_ context.Context, filter profile.GetFilter) (profile.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.students {
		if (filter.ID == 0 || s.ID == filter.ID) &&
			(filter.AccountID == 0 || s.AccountID == filter.AccountID) &&
			(filter.RollNumber == "" || s.RollNumber == filter.RollNumber) {
			return s, nil
		}
	}
	return profile.Student{}, profile.ErrNotFound
}

func (repo *profileRepository) GetTeacher(_ context.Context, filter profile.GetFilter) (profile.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, t := range repo.db.teachers {
		if (filter.ID == 0 || t.ID == filter.ID) && (filter.AccountID == 0 || t.AccountID == filter.AccountID) {
			return t, nil
		}
	}
	return profile.Teacher{}, profile.ErrNotFound
}

func (repo *profileRepository) GetParent(_ context.Context, filter profile.GetFilter) (profile.Parent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.db.parents {
		if (filter.ID == 0 || p.ID == filter.ID) &&
			(filter.AccountID == 0 || p.AccountID == filter.AccountID) &&
			(filter.Email == "" || p.Email == filter.Email) {
			return p, nil
		}
	}
	return profile.Parent{}, profile.ErrNotFound
}

func matchStudent(s profile.Student, filter profile.StudentFilter) bool {
	if filter.ClassName != "" && s.ClassName != filter.ClassName {
		return false
	}
	if filter.ParentID != 0 && s.ParentID != null.Int64From(filter.ParentID) {
		return false
	}
	if len(filter.IDs) > 0 && !containsID(s.ID, filter.IDs) {
		return false
	}
	return true
}

func (repo *profileRepository) QueryStudents(
	_ context.Context,
	filter profile.StudentFilter,
	ordering ...core.DBOrdering,
) ([]profile.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]profile.Student, 0)
	for _, s := range repo.db.students {
		if matchStudent(s, filter) {
			students = append(students, s)
		}
	}

	asc := true
	byRoll := false
	if len(ordering) > 0 && ordering[0].Field == "roll_number" {
		byRoll = true
		asc = ordering[0].Ascending
	}
	sort.Slice(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if byRoll && a.RollNumber != b.RollNumber {
			return (a.RollNumber < b.RollNumber) == asc
		}
		return a.ID < b.ID
	})
	return students, nil
}

func (repo *profileRepository) CountStudents(_ context.Context, filter profile.StudentFilter) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, s := range repo.db.students {
		if matchStudent(s, filter) {
			n++
		}
	}
	return n, nil
}

func (repo *profileRepository) UpdateStudent(ctx context.Context, s profile.Student) (profile.Student, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.students[s.ID]; !ok {
		return profile.Student{}, profile.ErrNotFound
	}
	for _, other := range repo.db.students {
		if other.ID != s.ID && other.RollNumber == s.RollNumber {
			return profile.Student{}, profile.ErrRollNumberExists
		}
	}
	repo.db.students[s.ID] = s
	return s, nil
}

func (repo *profileRepository) DeleteStudent(ctx context.Context, id int64) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.students[id]; !ok {
		return profile.ErrNotFound
	}
	delete(repo.db.students, id)
	for eid, e := range repo.db.attendance {
		if e.StudentID == id {
			delete(repo.db.attendance, eid)
		}
	}
	for eid, e := range repo.db.progress {
		if e.StudentID == id {
			delete(repo.db.progress, eid)
		}
	}
	return nil
}

func (repo *profileRepository) DeleteTeacher(ctx context.Context, id int64) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.teachers[id]; !ok {
		return profile.ErrNotFound
	}
	delete(repo.db.teachers, id)
	for eid, e := range repo.db.attendance {
		if e.TeacherID == id {
			delete(repo.db.attendance, eid)
		}
	}
	for eid, e := range repo.db.progress {
		if e.TeacherID == id {
			delete(repo.db.progress, eid)
		}
	}
	return nil
}

func (repo *profileRepository) DeleteParent(ctx context.Context, id int64) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.parents[id]; !ok {
		return profile.ErrNotFound
	}
	delete(repo.db.parents, id)
	for sid, s := range repo.db.students {
		if s.ParentID.Valid && s.ParentID.Int64 == id {
			s.ParentID = null.Int64{}
			repo.db.students[sid] = s
		}
	}
	return nil
}
