package testutil

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/attendance"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/progress"
	"github.com/trezcool/attendtrack/core/user"
)

// RunRepositoryTests checks the behaviour every store must share.
// newStores must return empty stores.
func RunRepositoryTests(t *testing.T, newStores func(t *testing.T) Stores) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStores(t)) })
	t.Run("profiles", func(t *testing.T) { testProfiles(t, newStores(t)) })
	t.Run("attendance", func(t *testing.T) { testAttendance(t, newStores(t)) })
	t.Run("progress", func(t *testing.T) { testProgress(t, newStores(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStores(t)) })
}

func testAccounts(t *testing.T, st Stores) {
	ctx := context.Background()

	n, err := st.Users.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	jdoe := CreateAccount(t, st.Users, "jdoe", user.RoleTeacher, "")
	other := CreateAccount(t, st.Users, "other", user.RoleStudent, "")
	assert.NotZero(t, jdoe.ID)
	assert.NotEqual(t, jdoe.ID, other.ID)

	n, err = st.Users.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dup := jdoe
	dup.ID = 0
	_, err = st.Users.CreateAccount(ctx, dup)
	assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))

	dup.Username = "jdoe2"
	_, err = st.Users.CreateAccount(ctx, dup)
	assert.Equal(t, user.ErrEmailExists, errors.Cause(err))

	assert.Equal(t, user.ErrUsernameExists, errors.Cause(st.Users.CheckUniqueness(ctx, "jdoe", "new@college.com")))
	assert.Equal(t, user.ErrEmailExists, errors.Cause(st.Users.CheckUniqueness(ctx, "new", "jdoe@college.com")))
	assert.NoError(t, st.Users.CheckUniqueness(ctx, "jdoe", "jdoe@college.com", jdoe.ID))
	assert.NoError(t, st.Users.CheckUniqueness(ctx, "new", "new@college.com"))

	for _, filter := range []user.GetFilter{
		{ID: jdoe.ID},
		{Username: "jdoe"},
		{Email: "jdoe@college.com"},
		{UsernameOrEmail: "jdoe"},
		{UsernameOrEmail: "jdoe@college.com"},
	} {
		got, err := st.Users.GetAccount(ctx, filter)
		if assert.NoError(t, err, "%+v", filter) {
			assert.Equal(t, jdoe.ID, got.ID)
			assert.Equal(t, user.RoleTeacher, got.Role)
		}
	}
	_, err = st.Users.GetAccount(ctx, user.GetFilter{Username: "nobody"})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	jdoe.IsActive = false
	jdoe.MustChangePassword = true
	jdoe.LastLogin.SetValid(core.Now())
	updated, err := st.Users.UpdateAccount(ctx, jdoe)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.MustChangePassword)
	assert.True(t, updated.LastLogin.Valid)

	other.Username = "jdoe"
	_, err = st.Users.UpdateAccount(ctx, other)
	assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))

	_, err = st.Users.UpdateAccount(ctx, user.Account{ID: 999, Username: "ghost", Email: "ghost@college.com"})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func testProfiles(t *testing.T, st Stores) {
	ctx := context.Background()

	pAcc, parent := CreateParent(t, st, "mum")
	_, teacher := CreateTeacher(t, st, "prof", "CSE-A")
	_, s2 := CreateStudent(t, st, "bob", "cse002", "CSE-A", parent.ID)
	_, s1 := CreateStudent(t, st, "alice", "cse001", "CSE-A", 0)
	_, s3 := CreateStudent(t, st, "carl", "ece001", "ECE-B", parent.ID)

	_, err := st.Profiles.CreateTeacher(ctx, profile.Teacher{AccountID: pAcc.ID, FullName: "X", Department: "X", Subject: "X"})
	assert.Equal(t, profile.ErrAccountHasProfile, errors.Cause(err))

	acc := CreateAccount(t, st.Users, "dave", user.RoleStudent, "")
	_, err = st.Profiles.CreateStudent(ctx, profile.Student{AccountID: acc.ID, RollNumber: "cse001", FullName: "Dave", ClassName: "CSE-A"})
	assert.Equal(t, profile.ErrRollNumberExists, errors.Cause(err))

	got, err := st.Profiles.GetTeacher(ctx, profile.GetFilter{AccountID: teacher.AccountID})
	require.NoError(t, err)
	assert.Equal(t, teacher, got)

	gotParent, err := st.Profiles.GetParent(ctx, profile.GetFilter{Email: "mum@college.com"})
	require.NoError(t, err)
	assert.Equal(t, parent, gotParent)

	gotStudent, err := st.Profiles.GetStudent(ctx, profile.GetFilter{RollNumber: "cse002"})
	require.NoError(t, err)
	assert.Equal(t, s2, gotStudent)

	_, err = st.Profiles.GetStudent(ctx, profile.GetFilter{RollNumber: "nope"})
	assert.Equal(t, profile.ErrNotFound, errors.Cause(err))

	roster, err := st.Profiles.QueryStudents(ctx, profile.StudentFilter{ClassName: "CSE-A"}, core.OrderBy("roll_number", true))
	require.NoError(t, err)
	assert.Equal(t, []profile.Student{s1, s2}, roster)

	children, err := st.Profiles.QueryStudents(ctx, profile.StudentFilter{ParentID: parent.ID})
	require.NoError(t, err)
	assert.Equal(t, []profile.Student{s2, s3}, children)

	n, err := st.Profiles.CountStudents(ctx, profile.StudentFilter{ClassName: "CSE-A"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s1.ParentID.SetValid(parent.ID)
	s1.Phone = "0700000000"
	updated, err := st.Profiles.UpdateStudent(ctx, s1)
	require.NoError(t, err)
	assert.Equal(t, s1, updated)

	// children are unlinked, not deleted
	require.NoError(t, st.Profiles.DeleteParent(ctx, parent.ID))
	n, err = st.Profiles.CountStudents(ctx, profile.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	gotStudent, err = st.Profiles.GetStudent(ctx, profile.GetFilter{ID: s3.ID})
	require.NoError(t, err)
	assert.False(t, gotStudent.ParentID.Valid)

	assert.Equal(t, profile.ErrNotFound, errors.Cause(st.Profiles.DeleteParent(ctx, parent.ID)))
}

func testAttendance(t *testing.T, st Stores) {
	ctx := context.Background()

	_, teacher := CreateTeacher(t, st, "prof", "CSE-A")
	_, alice := CreateStudent(t, st, "alice", "cse001", "CSE-A", 0)
	_, bob := CreateStudent(t, st, "bob", "cse002", "CSE-A", 0)

	first := MarkAttendance(t, st, alice.ID, teacher.ID, 0, false)
	again := MarkAttendance(t, st, alice.ID, teacher.ID, 0, true)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, again.Present)

	MarkAttendance(t, st, alice.ID, teacher.ID, 1, true)
	MarkAttendance(t, st, alice.ID, teacher.ID, 40, false)
	MarkAttendance(t, st, bob.ID, teacher.ID, 0, false)

	entries, err := st.Attendance.QueryEntries(ctx, attendance.Filter{StudentID: alice.ID}, core.OrderBy("date"))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Date.Equal(core.Today()))
	assert.True(t, entries[2].Date.Equal(core.Today().AddDays(-40)))

	entries, err = st.Attendance.QueryEntries(ctx, attendance.Filter{StudentID: alice.ID, From: core.Today().AddDays(-30)})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 100.0, attendance.Percentage(entries))

	entries, err = st.Attendance.QueryEntries(ctx, attendance.Filter{TeacherID: teacher.ID, To: core.Today(), Limit: 2}, core.OrderBy("date"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = st.Attendance.UpsertEntry(ctx, attendance.Entry{
		StudentID: 999, TeacherID: teacher.ID, Date: core.Today(), MarkedAt: core.Now(),
	})
	assert.Equal(t, profile.ErrStudentNotFound, errors.Cause(err))

	// a student's records go with them
	require.NoError(t, st.Profiles.DeleteStudent(ctx, alice.ID))
	entries, err = st.Attendance.QueryEntries(ctx, attendance.Filter{TeacherID: teacher.ID})
	require.NoError(t, err)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, bob.ID, entries[0].StudentID)
	}
}

func testProgress(t *testing.T, st Stores) {
	ctx := context.Background()

	_, teacher := CreateTeacher(t, st, "prof", "CSE-A")
	_, alice := CreateStudent(t, st, "alice", "cse001", "CSE-A", 0)

	RecordProgress(t, st, alice.ID, teacher.ID, 2, 80, 100)
	latest := RecordProgress(t, st, alice.ID, teacher.ID, 1, 30, 50)
	assert.Equal(t, 60.0, latest.Percentage.Float64)

	entries, err := st.Progress.QueryEntries(ctx, progress.Filter{StudentID: alice.ID}, core.OrderBy("date"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, latest.ID, entries[0].ID)
	assert.Equal(t, 70.0, progress.AveragePercentage(entries))

	entries, err = st.Progress.QueryEntries(ctx, progress.Filter{StudentID: alice.ID, Subject: "History"})
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = st.Progress.QueryEntries(ctx, progress.Filter{TeacherID: teacher.ID, Limit: 1}, core.OrderBy("date"))
	require.NoError(t, err)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, latest.ID, entries[0].ID)
	}
}

func testTransactions(t *testing.T, st Stores) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	newAccount := func(uname string) user.Account {
		return user.Account{
			Username: uname, Email: uname + "@college.com", Role: user.RoleParent, PasswordHash: []byte("!"),
			CreatedAt: core.Now(), UpdatedAt: core.Now(),
		}
	}

	err := st.Tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := st.Users.CreateAccount(ctx, newAccount("kept"))
		return err
	})
	require.NoError(t, err)

	err = st.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := st.Users.CreateAccount(ctx, newAccount("dropped")); err != nil {
			return err
		}
		return st.Tx.WithinTx(ctx, func(context.Context) error { return errBoom })
	})
	assert.Equal(t, errBoom, errors.Cause(err))

	_, err = st.Users.GetAccount(ctx, user.GetFilter{Username: "dropped"})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	_, err = st.Users.GetAccount(ctx, user.GetFilter{Username: "kept"})
	assert.NoError(t, err)

	t.Run("lock", func(t *testing.T) {
		assert.Equal(t, core.ErrNoTx, st.Tx.LockTx(ctx, 42))

		err := st.Tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := st.Tx.LockTx(ctx, 42); err != nil {
				return err
			}
			return st.Tx.LockTx(ctx, 42)
		})
		assert.NoError(t, err)
	})
}
