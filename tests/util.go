// Package testutil holds fixtures shared by the test suites.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/attendance"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/progress"
	"github.com/trezcool/attendtrack/core/user"
	"github.com/trezcool/attendtrack/storage/database"
	"github.com/trezcool/attendtrack/storage/database/inmem"
	"github.com/trezcool/attendtrack/storage/database/sqlx"
)

// DatabaseURLEnv names the env var holding the PostgreSQL test database URL.
// Tests needing PostgreSQL are skipped when it is not set.
const DatabaseURLEnv = "TEST_DATABASE_URL"

// Stores bundles the repositories the services are built on.
type Stores struct {
	Tx         core.Transactor
	Users      user.Repository
	Profiles   profile.Repository
	Attendance attendance.Repository
	Progress   progress.Repository
}

func NewInmemStores() Stores {
	db := inmemdb.NewDB()
	return Stores{
		Tx:         db,
		Users:      inmemdb.NewUserRepository(db),
		Profiles:   inmemdb.NewProfileRepository(db),
		Attendance: inmemdb.NewAttendanceRepository(db),
		Progress:   inmemdb.NewProgressRepository(db),
	}
}

func NewPostgresStores(db *sqlx.DB) Stores {
	wrapped := sqlxrepos.NewDB(db)
	return Stores{
		Tx:         wrapped,
		Users:      sqlxrepos.NewUserRepository(wrapped),
		Profiles:   sqlxrepos.NewProfileRepository(wrapped),
		Attendance: sqlxrepos.NewAttendanceRepository(wrapped),
		Progress:   sqlxrepos.NewProgressRepository(wrapped),
	}
}

var migrateOnce sync.Once

// OpenDB opens the PostgreSQL test database, migrates and empties it.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv(DatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s not set", DatabaseURLEnv)
	}
	db, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	migrateOnce.Do(func() {
		err = database.Migrate(db.DB)
	})
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	tables := []string{"progress", "attendance", "student_profiles", "teacher_profiles", "parent_profiles", "accounts"}
	q := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

// CreateAccount creates an active account. Its password is hashed at the minimum cost;
// without pwd the account gets an unusable password.
func CreateAccount(t *testing.T, repo user.Repository, uname string, role user.Role, pwd string) user.Account {
	t.Helper()
	now := core.Now()
	acc := user.Account{
		Username:  uname,
		Email:     uname + "@college.com",
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,

		PasswordHash: []byte("!"),
	}
	if pwd != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
		acc.PasswordHash = hash
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

// CreateTeacher creates a teacher of class.
func CreateTeacher(t *testing.T, st Stores, uname, class string) (user.Account, profile.Teacher) {
	t.Helper()
	acc := CreateAccount(t, st.Users, uname, user.RoleTeacher, "")
	teacher, err := st.Profiles.CreateTeacher(context.Background(), profile.Teacher{
		AccountID:  acc.ID,
		FullName:   "Teacher " + uname,
		Department: class,
		Subject:    "Computer Science",
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return acc, teacher
}

// CreateStudent creates a student of class, linked to parentID when not 0.
func CreateStudent(t *testing.T, st Stores, uname, rollNumber, class string, parentID int64) (user.Account, profile.Student) {
	t.Helper()
	acc := CreateAccount(t, st.Users, uname, user.RoleStudent, "")
	s := profile.Student{
		AccountID:  acc.ID,
		RollNumber: rollNumber,
		FullName:   "Student " + uname,
		ClassName:  class,
	}
	if parentID != 0 {
		s.ParentID.SetValid(parentID)
	}
	student, err := st.Profiles.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return acc, student
}

func CreateParent(t *testing.T, st Stores, uname string) (user.Account, profile.Parent) {
	t.Helper()
	acc := CreateAccount(t, st.Users, uname, user.RoleParent, "")
	parent, err := st.Profiles.CreateParent(context.Background(), profile.Parent{
		AccountID: acc.ID,
		FullName:  "Parent " + uname,
		Email:     acc.Email,
	})
	if err != nil {
		t.Fatalf("CreateParent() failed: %v", err)
	}
	return acc, parent
}

// MarkAttendance writes an attendance entry daysAgo days before today.
func MarkAttendance(t *testing.T, st Stores, studentID, teacherID int64, daysAgo int, present bool) attendance.Entry {
	t.Helper()
	e, err := st.Attendance.UpsertEntry(context.Background(), attendance.Entry{
		StudentID: studentID,
		TeacherID: teacherID,
		Date:      core.Today().AddDays(-daysAgo),
		Present:   present,
		MarkedAt:  core.Now(),
	})
	if err != nil {
		t.Fatalf("MarkAttendance() failed: %v", err)
	}
	return e
}

// RecordProgress writes a progress entry daysAgo days before today.
func RecordProgress(t *testing.T, st Stores, studentID, teacherID int64, daysAgo int, obtained, total float64) progress.Entry {
	t.Helper()
	e := progress.Entry{
		StudentID:      studentID,
		TeacherID:      teacherID,
		Subject:        "Computer Science",
		AssignmentName: fmt.Sprintf("Assignment %d", daysAgo),
		MarksObtained:  obtained,
		TotalMarks:     total,
		Date:           core.Today().AddDays(-daysAgo),
		CreatedAt:      core.Now().Add(-time.Duration(daysAgo) * 24 * time.Hour),
	}
	e.CalculatePercentage()
	e, err := st.Progress.CreateEntry(context.Background(), e)
	if err != nil {
		t.Fatalf("RecordProgress() failed: %v", err)
	}
	return e
}

// Logger records what is logged.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, level+": "+msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }
