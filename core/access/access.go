// Package access decides what an authenticated account may see and do.
package access

import (
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core/user"
)

var (
	ErrUnauthenticated        = errors.New("user not authenticated")
	ErrUnauthorized           = errors.New("unauthorized access")
	ErrPasswordChangeRequired = errors.New("you must change your password before continuing")
	ErrOwnership              = errors.New("you cannot view this student")
	ErrNotInRoster            = errors.New("student is not in your class")
	ErrProfileNotFound        = errors.New("profile not found")
)

// Identity is the authenticated caller, resolved once per request.
type Identity struct {
	AccountID          int64
	Username           string
	Email              string
	Role               user.Role
	IsActive           bool
	MustChangePassword bool
}

func NewIdentity(acc user.Account) Identity {
	return Identity{
		AccountID:          acc.ID,
		Username:           acc.Username,
		Email:              acc.Email,
		Role:               acc.Role,
		IsActive:           acc.IsActive,
		MustChangePassword: acc.MustChangePassword,
	}
}

func (id Identity) IsAuthenticated() bool {
	return id.AccountID != 0
}

// Account returns the minimal account known from the identity (for logging).
func (id Identity) Account() user.Account {
	return user.Account{ID: id.AccountID, Username: id.Username, Email: id.Email, Role: id.Role}
}

// RequireAuthenticated checks that id belongs to an active account.
// A pending password rotation is allowed here.
func RequireAuthenticated(id Identity) error {
	if !id.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !id.IsActive {
		return ErrUnauthorized
	}
	return nil
}

// Require checks that id is an active account of the given role with no pending
// password rotation.
func Require(id Identity, role user.Role) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}

	var allowed bool
	switch id.Role {
	case user.RoleStudent:
		allowed = role == user.RoleStudent
	case user.RoleTeacher:
		allowed = role == user.RoleTeacher
	case user.RoleParent:
		allowed = role == user.RoleParent
	}
	if !allowed {
		return ErrUnauthorized
	}

	if id.MustChangePassword {
		return ErrPasswordChangeRequired
	}
	return nil
}

// CheckOwnership checks that the student whose parent is studentParentID belongs to
// the parent parentID.
func CheckOwnership(parentID int64, studentParentID null.Int64) error {
	if !studentParentID.Valid || studentParentID.Int64 != parentID {
		return ErrOwnership
	}
	return nil
}
