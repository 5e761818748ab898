package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/attendtrack/core"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
)

var (
	AllRoles = []Role{RoleStudent, RoleTeacher, RoleParent}

	ErrInvalidRole = errors.New("invalid role")
)

// ParseRole returns the Role named by s, or ErrInvalidRole.
func ParseRole(s string) (Role, error) {
	switch r := Role(core.CleanString(s, true /* lower */)); r {
	case RoleStudent, RoleTeacher, RoleParent:
		return r, nil
	}
	return "", ErrInvalidRole
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string { return string(r) }

type Account struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	Role               Role      `json:"role"`
	IsActive           bool      `json:"is_active"`
	MustChangePassword bool      `json:"must_change_password"`
	PasswordHash       []byte    `json:"-"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
	LastLogin          null.Time `json:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// NewAccount contains information needed to register a new Account.
type NewAccount struct {
	Username        string `json:"username" validate:"required,min=3,max=150,alphanum_"`
	Email           string `json:"email" validate:"required,email,max=120"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,role"`
}

func (na *NewAccount) Clean() {
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Role = core.CleanString(na.Role, true /* lower */)
}

func (na *NewAccount) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	na.Clean()
	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, na.Username, na.Email)
}

// ChangePassword is submitted by an authenticated account to rotate its password.
type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// attributes the new password must not resemble
	username, email string
}

func (cp *ChangePassword) Validate(validate *validator.Validate, acc Account) error {
	cp.username = acc.Username
	cp.email = acc.Email
	return validate.Struct(cp)
}

type GetFilter struct {
	ID              int64
	Username        string
	Email           string
	UsernameOrEmail string
}
