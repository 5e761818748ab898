package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core"
)

var (
	ErrNotFound             = errors.New("account not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrUsernameExists       = errors.New("a user with this username already exists")
	ErrAuthenticationFailed = errors.New("invalid username or password")
	ErrAccountDeactivated   = errors.New("account deactivated")

	errIncorrectPassword = "incorrect password"
)

type Repository interface {
	// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when another account,
	// outside of excluded, already holds username or email.
	CheckUniqueness(ctx context.Context, username, email string, excluded ...int64) error
	CreateAccount(ctx context.Context, acc Account) (Account, error)
	GetAccount(ctx context.Context, filter GetFilter) (Account, error)
	CountAccounts(ctx context.Context) (int, error)
	UpdateAccount(ctx context.Context, acc Account) (Account, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// uniquenessError turns a repository uniqueness error into a field ValidationError.
func uniquenessError(err error) error {
	var field string
	switch errors.Cause(err) {
	case ErrUsernameExists:
		field = "username"
	case ErrEmailExists:
		field = "email"
	default:
		return err
	}
	cause := errors.Cause(err)
	return core.NewValidationError(cause, core.FieldError{Field: field, Error: cause.Error()})
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string, excluded ...int64) error {
	return uniquenessError(svc.repo.CheckUniqueness(ctx, uname, email, excluded...))
}

// Register creates an active Account from validated input.
func (svc *Service) Register(ctx context.Context, na NewAccount) (Account, error) {
	na.Clean()
	role, err := ParseRole(na.Role)
	if err != nil {
		return Account{}, core.NewFieldValidationError("role", err.Error())
	}
	return svc.Create(ctx, na.Username, na.Email, na.Password, role, false)
}

// Create stores a new active Account. The password policy is not applied here.
func (svc *Service) Create(ctx context.Context, uname, email, pwd string, role Role, mustChangePwd bool) (Account, error) {
	if !role.Valid() {
		return Account{}, core.NewFieldValidationError("role", ErrInvalidRole.Error())
	}
	now := core.Now()
	acc := Account{
		Username:           core.CleanString(uname, true /* lower */),
		Email:              core.CleanString(email, true /* lower */),
		Role:               role,
		IsActive:           true,
		MustChangePassword: mustChangePwd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := svc.CheckUniqueness(ctx, acc.Username, acc.Email); err != nil {
		return Account{}, err
	}
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc, err := svc.repo.CreateAccount(ctx, acc)
	if err != nil {
		return Account{}, uniquenessError(err)
	}
	return acc, nil
}

// Authenticate checks the credentials of the account known by username or email.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (Account, error) {
	acc, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, ErrAuthenticationFailed
		}
		return Account{}, errors.Wrap(err, "finding account by username or email")
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrAuthenticationFailed
	}
	if !acc.IsActive {
		return Account{}, ErrAccountDeactivated
	}

	acc.LastLogin = null.TimeFrom(core.Now())
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	if err != nil {
		return Account{}, errors.Wrap(err, "setting last_login")
	}
	return acc, nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountAccounts(ctx)
}

// ChangePassword sets a new password once the current one is confirmed and clears
// any pending password rotation.
func (svc *Service) ChangePassword(ctx context.Context, acc Account, cp ChangePassword) (Account, error) {
	if err := acc.CheckPassword(cp.CurrentPassword); err != nil {
		return Account{}, core.NewFieldValidationError("current_password", errIncorrectPassword)
	}
	if err := acc.SetPassword(cp.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc.MustChangePassword = false
	acc.UpdatedAt = core.Now()
	return svc.repo.UpdateAccount(ctx, acc)
}

// ResetPassword sets pwd on the account and forces its rotation on next login.
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) (Account, error) {
	acc, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return Account{}, err
	}
	if err = acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc.MustChangePassword = true
	acc.UpdatedAt = core.Now()
	return svc.repo.UpdateAccount(ctx, acc)
}

// SetActive activates or deactivates an account.
func (svc *Service) SetActive(ctx context.Context, uname string, active bool) (Account, error) {
	acc, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return Account{}, err
	}
	acc.IsActive = active
	acc.UpdatedAt = core.Now()
	return svc.repo.UpdateAccount(ctx, acc)
}

var GeneratePassword = generatePassword // mockable

// generatePassword returns a random one-time password.
func generatePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
