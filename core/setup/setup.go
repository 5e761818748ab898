// Package setup provisions accounts: the one-time bootstrap and later additions.
package setup

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/user"
)

var (
	ErrSetupCompleted = errors.New("setup has already been completed")

	nonWordRegex = regexp.MustCompile(`\W+`)
)

// setupLockKey serializes concurrent bootstraps.
const setupLockKey int64 = 0x61747472

const (
	DefaultAdminUsername   = "admin"
	DefaultAdminEmail      = "admin@college.com"
	DefaultAdminFullName   = "Admin Teacher"
	DefaultAdminDepartment = "CSE-A"
	DefaultAdminSubject    = "Computer Science"
	DefaultAdminPhone      = "9999999999"
)

type (
	AdminRequest struct {
		Username   string `json:"username" validate:"omitempty,min=3,max=150,alphanum_"`
		Email      string `json:"email" validate:"omitempty,email"`
		FullName   string `json:"full_name" validate:"max=100"`
		Department string `json:"department" validate:"max=50"`
		Subject    string `json:"subject" validate:"max=50"`
		Phone      string `json:"phone" validate:"max=15"`
	}

	StudentRequest struct {
		RollNumber  string `json:"roll_number" validate:"required,max=20,alphanum_"`
		FullName    string `json:"full_name" validate:"notblank,max=100"`
		Email       string `json:"email" validate:"required,email"`
		Phone       string `json:"phone" validate:"max=15"`
		ClassName   string `json:"class_name" validate:"notblank,max=50"`
		ParentEmail string `json:"parent_email" validate:"omitempty,email"`
	}

	ParentRequest struct {
		FullName string `json:"full_name" validate:"notblank,max=100"`
		Email    string `json:"email" validate:"required,email"`
		Phone    string `json:"phone" validate:"max=15"`
	}

	// Request is the bootstrap payload. The admin teacher is always created.
	Request struct {
		Admin    AdminRequest     `json:"admin"`
		Parents  []ParentRequest  `json:"parents" validate:"dive"`
		Students []StudentRequest `json:"students" validate:"dive"`
	}

	// Credential is a created account and its one-time password.
	Credential struct {
		Username  string    `json:"username"`
		Role      user.Role `json:"role"`
		Password  string    `json:"password"`
		ProfileID int64     `json:"profile_id"`
	}

	Result struct {
		Credentials []Credential `json:"credentials"`
	}

	// Provision describes one account and its role profile.
	Provision struct {
		Role     user.Role
		Username string
		Email    string
		Password string // generated when empty
		FullName string
		Phone    string

		RollNumber string // student; also its username
		ClassName  string // student
		ParentID   int64  // student, optional

		Department string // teacher
		Subject    string // teacher
	}
)

func (r *Request) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type Service struct {
	tx       core.Transactor
	users    *user.Service
	profiles *profile.Service
	logger   core.Logger
}

func NewService(tx core.Transactor, users *user.Service, profiles *profile.Service, logger core.Logger) *Service {
	return &Service{tx: tx, users: users, profiles: profiles, logger: logger}
}

// Required reports whether the bootstrap has not been run yet, i.e. no account exists.
func (svc *Service) Required(ctx context.Context) (bool, error) {
	n, err := svc.users.Count(ctx)
	if err != nil {
		return false, errors.Wrap(err, "counting accounts")
	}
	return n == 0, nil
}

// UsernameFromEmail derives a username from the local part of email.
func UsernameFromEmail(email string) string {
	local := strings.SplitN(core.CleanString(email, true /* lower */), "@", 2)[0]
	return strings.Trim(nonWordRegex.ReplaceAllString(local, "_"), "_")
}

func withDefault(s, def string) string {
	if s = core.CleanString(s); s == "" {
		return def
	}
	return s
}

// Run creates the admin teacher, then the parents and students of req, in one
// transaction. It is refused once any account exists.
func (svc *Service) Run(ctx context.Context, req Request) (Result, error) {
	var res Result
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := svc.tx.LockTx(ctx, setupLockKey); err != nil {
			return errors.Wrap(err, "locking setup")
		}
		required, err := svc.Required(ctx)
		if err != nil {
			return err
		}
		if !required {
			return ErrSetupCompleted
		}

		admin := Provision{
			Role:       user.RoleTeacher,
			Username:   withDefault(req.Admin.Username, DefaultAdminUsername),
			Email:      withDefault(req.Admin.Email, DefaultAdminEmail),
			FullName:   withDefault(req.Admin.FullName, DefaultAdminFullName),
			Department: withDefault(req.Admin.Department, DefaultAdminDepartment),
			Subject:    withDefault(req.Admin.Subject, DefaultAdminSubject),
			Phone:      withDefault(req.Admin.Phone, DefaultAdminPhone),
		}
		cred, err := svc.provision(ctx, admin)
		if err != nil {
			return errors.Wrap(err, "creating admin")
		}
		res.Credentials = append(res.Credentials, cred)

		parentIDs := make(map[string]int64, len(req.Parents))
		for _, p := range req.Parents {
			email := core.CleanString(p.Email, true /* lower */)
			cred, err = svc.provision(ctx, Provision{
				Role:     user.RoleParent,
				Username: UsernameFromEmail(email),
				Email:    email,
				FullName: p.FullName,
				Phone:    p.Phone,
			})
			if err != nil {
				return errors.Wrapf(err, "creating parent %s", email)
			}
			res.Credentials = append(res.Credentials, cred)
			parentIDs[email] = cred.ProfileID
		}

		for _, s := range req.Students {
			pv := Provision{
				Role:       user.RoleStudent,
				RollNumber: s.RollNumber,
				Email:      s.Email,
				FullName:   s.FullName,
				Phone:      s.Phone,
				ClassName:  s.ClassName,
			}
			if pe := core.CleanString(s.ParentEmail, true /* lower */); pe != "" {
				id, ok := parentIDs[pe]
				if !ok {
					msg := "no parent with this email in the request"
					return core.NewValidationError(errors.New(msg), core.FieldError{Field: "parent_email", Error: msg})
				}
				pv.ParentID = id
			}
			cred, err = svc.provision(ctx, pv)
			if err != nil {
				return errors.Wrapf(err, "creating student %s", s.RollNumber)
			}
			res.Credentials = append(res.Credentials, cred)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	svc.logger.Info("setup completed", map[string]interface{}{"accounts": len(res.Credentials)})
	return res, nil
}

// Provision creates one account with its profile. The account must change its
// password on first login.
func (svc *Service) Provision(ctx context.Context, pv Provision) (Credential, error) {
	var cred Credential
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		cred, err = svc.provision(ctx, pv)
		return err
	})
	return cred, err
}

func (svc *Service) provision(ctx context.Context, pv Provision) (Credential, error) {
	if pv.Role == user.RoleStudent && pv.Username == "" {
		pv.Username = pv.RollNumber
	}
	pwd := pv.Password
	if pwd == "" {
		var err error
		if pwd, err = user.GeneratePassword(); err != nil {
			return Credential{}, err
		}
	}

	acc, err := svc.users.Create(ctx, pv.Username, pv.Email, pwd, pv.Role, true /* mustChangePwd */)
	if err != nil {
		return Credential{}, err
	}

	var profileID int64
	switch acc.Role {
	case user.RoleStudent:
		var s profile.Student
		s, err = svc.profiles.CreateStudent(ctx, acc.ID, profile.NewStudent{
			RollNumber: core.CleanString(withDefault(pv.RollNumber, acc.Username), true /* lower */),
			FullName:   core.CleanString(pv.FullName),
			ClassName:  core.CleanString(pv.ClassName),
			Phone:      core.CleanString(pv.Phone),
			ParentID:   pv.ParentID,
		})
		profileID = s.ID
	case user.RoleTeacher:
		var t profile.Teacher
		t, err = svc.profiles.CreateTeacher(ctx, acc.ID, profile.NewTeacher{
			FullName:   core.CleanString(pv.FullName),
			Department: core.CleanString(pv.Department),
			Subject:    core.CleanString(pv.Subject),
			Phone:      core.CleanString(pv.Phone),
		})
		profileID = t.ID
	case user.RoleParent:
		var p profile.Parent
		p, err = svc.profiles.CreateParent(ctx, acc.ID, profile.NewParent{
			FullName: core.CleanString(pv.FullName),
			Phone:    core.CleanString(pv.Phone),
			Email:    acc.Email,
		})
		profileID = p.ID
	default:
		err = user.ErrInvalidRole
	}
	if err != nil {
		return Credential{}, err
	}
	return Credential{Username: acc.Username, Role: acc.Role, Password: pwd, ProfileID: profileID}, nil
}
