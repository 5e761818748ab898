package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/user"
	"github.com/trezcool/attendtrack/tests"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	st := testutil.NewInmemStores()
	return user.NewService(st.Users), st.Users
}

func TestService_Create(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	testutil.CreateAccount(t, repo, "taken", user.RoleStudent, "")

	tests := []struct {
		name      string
		uname     string
		email     string
		role      user.Role
		wantField string
	}{
		{name: "invalid role", uname: "fresh", email: "fresh@college.com", role: user.Role("admin"), wantField: "role"},
		{name: "username taken", uname: " TAKEN ", email: "fresh@college.com", role: user.RoleStudent, wantField: "username"},
		{name: "email taken", uname: "fresh", email: "Taken@College.com", role: user.RoleStudent, wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.uname, tt.email, "Str0ng#Pass!", tt.role, false)
			require.Error(t, err)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok, "err = %v; want *core.ValidationError", err)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}

	acc, err := svc.Create(ctx, " Fresh ", "FRESH@college.com ", "Str0ng#Pass!", user.RoleParent, true)
	require.NoError(t, err)
	assert.NotZero(t, acc.ID)
	assert.Equal(t, "fresh", acc.Username)
	assert.Equal(t, "fresh@college.com", acc.Email)
	assert.True(t, acc.IsActive)
	assert.True(t, acc.MustChangePassword)
	assert.NoError(t, acc.CheckPassword("Str0ng#Pass!"))
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	testutil.CreateAccount(t, repo, "jdoe", user.RoleStudent, "Secret#123")
	naughty := testutil.CreateAccount(t, repo, "ndog", user.RoleStudent, "Secret#123")
	naughty.IsActive = false
	_, err := repo.UpdateAccount(ctx, naughty)
	require.NoError(t, err)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "unknown", uname: "lol", pwd: "Secret#123", wantErr: user.ErrAuthenticationFailed},
		{name: "wrong password", uname: "jdoe", pwd: "lol", wantErr: user.ErrAuthenticationFailed},
		{name: "deactivated", uname: "ndog", pwd: "Secret#123", wantErr: user.ErrAccountDeactivated},
		{name: "username", uname: "JDOE", pwd: "Secret#123"},
		{name: "email", uname: "jdoe@college.com", pwd: "Secret#123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := svc.Authenticate(ctx, tt.uname, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "jdoe", acc.Username)
			assert.True(t, acc.LastLogin.Valid)
		})
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	acc := testutil.CreateAccount(t, repo, "jdoe", user.RoleStudent, "Secret#123")
	acc.MustChangePassword = true
	acc, err := repo.UpdateAccount(ctx, acc)
	require.NoError(t, err)

	_, err = svc.ChangePassword(ctx, acc, user.ChangePassword{CurrentPassword: "lol", Password: "N3w#Passw0rd"})
	assert.True(t, core.IsValidationError(err), "err = %v", err)

	acc, err = svc.ChangePassword(ctx, acc, user.ChangePassword{CurrentPassword: "Secret#123", Password: "N3w#Passw0rd"})
	require.NoError(t, err)
	assert.False(t, acc.MustChangePassword)

	stored, err := svc.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, stored.MustChangePassword)
	assert.NoError(t, stored.CheckPassword("N3w#Passw0rd"))
}

func TestService_ResetPassword(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	testutil.CreateAccount(t, repo, "jdoe", user.RoleTeacher, "Secret#123")

	_, err := svc.ResetPassword(ctx, "lol", "whatever")
	assert.Equal(t, user.ErrNotFound, err)

	acc, err := svc.ResetPassword(ctx, "JDoe@college.com", "whatever")
	require.NoError(t, err)
	assert.True(t, acc.MustChangePassword)
	assert.NoError(t, acc.CheckPassword("whatever"))
}

func TestService_SetActive(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	testutil.CreateAccount(t, repo, "jdoe", user.RoleParent, "")

	acc, err := svc.SetActive(ctx, "jdoe", false)
	require.NoError(t, err)
	assert.False(t, acc.IsActive)

	acc, err = svc.SetActive(ctx, "jdoe", true)
	require.NoError(t, err)
	assert.True(t, acc.IsActive)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGeneratePassword(t *testing.T) {
	p1, err := user.GeneratePassword()
	require.NoError(t, err)
	p2, err := user.GeneratePassword()
	require.NoError(t, err)
	assert.Len(t, p1, 16)
	assert.NotEqual(t, p1, p2)
}

func TestNewAccount_Validate(t *testing.T) {
	svc, repo := setup(t)
	testutil.CreateAccount(t, repo, "taken", user.RoleStudent, "")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	tests := []struct {
		name     string
		na       user.NewAccount
		wantErrs map[string]string
	}{
		{
			name:     "required",
			na:       user.NewAccount{},
			wantErrs: map[string]string{"username": "this field is required", "email": "this field is required", "password": "this field is required", "password_confirm": "this field is required", "role": "this field is required"},
		},
		{
			name:     "invalid username",
			na:       user.NewAccount{Username: "j doe!", Email: "jdoe@college.com", Password: "Str0ng#Pass!", PasswordConfirm: "Str0ng#Pass!", Role: "student"},
			wantErrs: map[string]string{"username": "only alphanumeric characters and underscores are allowed"},
		},
		{
			name:     "invalid role",
			na:       user.NewAccount{Username: "jdoe", Email: "jdoe@college.com", Password: "Str0ng#Pass!", PasswordConfirm: "Str0ng#Pass!", Role: "admin"},
			wantErrs: map[string]string{"role": "role must be one of student, teacher or parent"},
		},
		{
			name:     "too short",
			na:       user.NewAccount{Username: "jdoe", Email: "jdoe@college.com", Password: "S#1a", PasswordConfirm: "S#1a", Role: "student"},
			wantErrs: map[string]string{"password": "password must contain at least 8 characters"},
		},
		{
			name:     "whitespace",
			na:       user.NewAccount{Username: "jdoe", Email: "jdoe@college.com", Password: "Str0ng #Pass", PasswordConfirm: "Str0ng #Pass", Role: "student"},
			wantErrs: map[string]string{"password": "password must not contain whitespace"},
		},
		{
			name:     "all numeric",
			na:       user.NewAccount{Username: "jdoe", Email: "jdoe@college.com", Password: "83920174", PasswordConfirm: "83920174", Role: "student"},
			wantErrs: map[string]string{"password": "password cannot be entirely numeric"},
		},
		{
			name:     "not complex",
			na:       user.NewAccount{Username: "jdoe", Email: "jdoe@college.com", Password: "weakpassword", PasswordConfirm: "weakpassword", Role: "student"},
			wantErrs: map[string]string{"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		},
		{
			name:     "similar to username",
			na:       user.NewAccount{Username: "jonathan_doe", Email: "jd@college.com", Password: "Jonathan_Doe1", PasswordConfirm: "Jonathan_Doe1", Role: "student"},
			wantErrs: map[string]string{"password": "password cannot be similar to user attributes"},
		},
		{
			name:     "common",
			na:       user.NewAccount{Username: "jdoe", Email: "jdoe@college.com", Password: "P@ssw0rd", PasswordConfirm: "P@ssw0rd", Role: "student"},
			wantErrs: map[string]string{"password": "password is too common"},
		},
		{
			name:     "username taken",
			na:       user.NewAccount{Username: "Taken", Email: "jdoe@college.com", Password: "Str0ng#Pass!", PasswordConfirm: "Str0ng#Pass!", Role: "student"},
			wantErrs: map[string]string{"username": "a user with this username already exists"},
		},
		{
			name: "valid",
			na:   user.NewAccount{Username: " JDoe ", Email: "jdoe@college.com", Password: "Str0ng#Pass!", PasswordConfirm: "Str0ng#Pass!", Role: "Student"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.na.Validate(context.Background(), validate, svc)
			if tt.wantErrs == nil {
				assert.NoError(t, err)
				assert.Equal(t, "jdoe", tt.na.Username)
				assert.Equal(t, "student", tt.na.Role)
				return
			}

			got := make(map[string]string)
			switch vErr := err.(type) {
			case validator.ValidationErrors:
				for _, fe := range vErr {
					got[fe.Field()] = fe.Translate(translator)
				}
			case *core.ValidationError:
				for _, fe := range vErr.Fields {
					got[fe.Field] = fe.Error
				}
			default:
				t.Fatalf("unexpected error: %v", err)
			}
			assert.Equal(t, tt.wantErrs, got)
		})
	}
}
