package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core/user"
)

func TestRequire(t *testing.T) {
	student := Identity{AccountID: 1, Username: "21cs01", Role: user.RoleStudent, IsActive: true}
	teacher := Identity{AccountID: 2, Username: "admin", Role: user.RoleTeacher, IsActive: true}
	parent := Identity{AccountID: 3, Username: "jdoe", Role: user.RoleParent, IsActive: true}

	inactive := teacher
	inactive.IsActive = false
	rotating := student
	rotating.MustChangePassword = true
	unknown := student
	unknown.Role = user.Role("admin")

	tests := []struct {
		name string
		id   Identity
		role user.Role
		want error
	}{
		{name: "anonymous", id: Identity{}, role: user.RoleStudent, want: ErrUnauthenticated},
		{name: "student as student", id: student, role: user.RoleStudent},
		{name: "student as teacher", id: student, role: user.RoleTeacher, want: ErrUnauthorized},
		{name: "teacher as teacher", id: teacher, role: user.RoleTeacher},
		{name: "teacher as parent", id: teacher, role: user.RoleParent, want: ErrUnauthorized},
		{name: "parent as parent", id: parent, role: user.RoleParent},
		{name: "parent as student", id: parent, role: user.RoleStudent, want: ErrUnauthorized},
		{name: "inactive", id: inactive, role: user.RoleTeacher, want: ErrUnauthorized},
		{name: "pending rotation", id: rotating, role: user.RoleStudent, want: ErrPasswordChangeRequired},
		{name: "pending rotation, wrong role", id: rotating, role: user.RoleParent, want: ErrUnauthorized},
		{name: "unknown role", id: unknown, role: user.Role("admin"), want: ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Require(tt.id, tt.role))
		})
	}
}

func TestRequireAuthenticated(t *testing.T) {
	assert.Equal(t, ErrUnauthenticated, RequireAuthenticated(Identity{}))
	assert.Equal(t, ErrUnauthorized, RequireAuthenticated(Identity{AccountID: 1}))
	assert.NoError(t, RequireAuthenticated(Identity{AccountID: 1, IsActive: true, MustChangePassword: true}))
}

func TestCheckOwnership(t *testing.T) {
	assert.NoError(t, CheckOwnership(7, null.Int64From(7)))
	assert.Equal(t, ErrOwnership, CheckOwnership(7, null.Int64From(8)))
	assert.Equal(t, ErrOwnership, CheckOwnership(7, null.Int64{}))
}

func TestNewIdentity(t *testing.T) {
	acc := user.Account{ID: 9, Username: "jdoe", Email: "jdoe@test.cd", Role: user.RoleParent, IsActive: true, MustChangePassword: true}
	id := NewIdentity(acc)
	assert.Equal(t, Identity{AccountID: 9, Username: "jdoe", Email: "jdoe@test.cd", Role: user.RoleParent, IsActive: true, MustChangePassword: true}, id)
	assert.True(t, id.IsAuthenticated())
}
