package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core/user"
)

type accountRow struct {
	ID                 int64     `db:"id"`
	Username           string    `db:"username"`
	Email              string    `db:"email"`
	PasswordHash       []byte    `db:"password_hash"`
	Role               string    `db:"role"`
	IsActive           bool      `db:"is_active"`
	MustChangePassword bool      `db:"must_change_password"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
	LastLogin          null.Time `db:"last_login"`
}

func (row accountRow) toAccount() user.Account {
	acc := user.Account{
		ID:                 row.ID,
		Username:           row.Username,
		Email:              row.Email,
		Role:               user.Role(row.Role),
		IsActive:           row.IsActive,
		MustChangePassword: row.MustChangePassword,
		PasswordHash:       row.PasswordHash,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
		LastLogin:          row.LastLogin,
	}
	if acc.LastLogin.Valid {
		acc.LastLogin.Time = acc.LastLogin.Time.UTC()
	}
	return acc
}

func accountValues(acc user.Account) map[string]interface{} {
	return map[string]interface{}{
		"username":             acc.Username,
		"email":                acc.Email,
		"password_hash":        acc.PasswordHash,
		"role":                 string(acc.Role),
		"is_active":            acc.IsActive,
		"must_change_password": acc.MustChangePassword,
		"created_at":           acc.CreatedAt,
		"updated_at":           acc.UpdatedAt,
		"last_login":           acc.LastLogin,
	}
}

func accountErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return user.ErrNotFound
	}
	if code, constraint := pqErrorCode(err); code == pqUniqueViolation {
		switch constraint {
		case "accounts_username_key":
			return user.ErrUsernameExists
		case "accounts_email_key":
			return user.ErrEmailExists
		}
	}
	return err
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excluded ...int64) error {
	q := psql.Select("username", "email").
		From("accounts").
		Where(sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}}).
		OrderBy("id").
		Limit(1)
	if len(excluded) > 0 {
		q = q.Where(sq.NotEq{"id": excluded})
	}

	var row struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := repo.db.get(ctx, &row, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if username != "" && row.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateAccount(ctx context.Context, acc user.Account) (user.Account, error) {
	q := psql.Insert("accounts").SetMap(accountValues(acc)).Suffix("RETURNING *")

	var row accountRow
	if err := repo.db.get(ctx, &row, q); err != nil {
		return user.Account{}, accountErr(err)
	}
	return row.toAccount(), nil
}

func (repo *userRepository) GetAccount(ctx context.Context, filter user.GetFilter) (user.Account, error) {
	q := psql.Select("*").From("accounts").Limit(1)
	switch {
	case filter.ID != 0:
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		q = q.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		q = q.Where(sq.Eq{"email": filter.Email})
	case filter.UsernameOrEmail != "":
		q = q.Where(sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}})
	default:
		return user.Account{}, user.ErrNotFound
	}

	var row accountRow
	if err := repo.db.get(ctx, &row, q); err != nil {
		return user.Account{}, accountErr(err)
	}
	return row.toAccount(), nil
}

func (repo *userRepository) CountAccounts(ctx context.Context) (int, error) {
	var n int
	err := repo.db.get(ctx, &n, psql.Select("COUNT(*)").From("accounts"))
	return n, err
}

func (repo *userRepository) UpdateAccount(ctx context.Context, acc user.Account) (user.Account, error) {
	q := psql.Update("accounts").
		SetMap(accountValues(acc)).
		Where(sq.Eq{"id": acc.ID}).
		Suffix("RETURNING *")

	var row accountRow
	if err := repo.db.get(ctx, &row, q); err != nil {
		return user.Account{}, accountErr(err)
	}
	return row.toAccount(), nil
}
