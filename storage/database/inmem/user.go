package inmemdb

import (
	"context"

	"github.com/trezcool/attendtrack/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func containsID(id int64, ids []int64) bool {
	for _, other := range ids {
		if id == other {
			return true
		}
	}
	return false
}

func (repo *userRepository) checkUniqueness(username, email string, excluded ...int64) error {
	for _, acc := range repo.db.accounts {
		if containsID(acc.ID, excluded) {
			continue
		}
		if username != "" && acc.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && acc.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excluded ...int64) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.checkUniqueness(username, email, excluded...)
}

func (repo *userRepository) CreateAccount(ctx context.Context, acc user.Account) (user.Account, error) {
	defer repo.db.lock(ctx)()

	if err := repo.checkUniqueness(acc.Username, acc.Email); err != nil {
		return user.Account{}, err
	}
	acc.ID = repo.db.nextID()
	repo.db.accounts[acc.ID] = acc
	return acc, nil
}

func (repo *userRepository) GetAccount(_ context.Context, filter user.GetFilter) (user.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != 0 {
		if acc, ok := repo.db.accounts[filter.ID]; ok {
			return acc, nil
		}
		return user.Account{}, user.ErrNotFound
	}
	for _, acc := range repo.db.accounts {
		switch {
		case filter.Username != "" && acc.Username == filter.Username,
			filter.Email != "" && acc.Email == filter.Email,
			filter.UsernameOrEmail != "" && (acc.Username == filter.UsernameOrEmail || acc.Email == filter.UsernameOrEmail):
			return acc, nil
		}
	}
	return user.Account{}, user.ErrNotFound
}

func (repo *userRepository) CountAccounts(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.accounts), nil
}

func (repo *userRepository) UpdateAccount(ctx context.Context, acc user.Account) (user.Account, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.accounts[acc.ID]; !ok {
		return user.Account{}, user.ErrNotFound
	}
	if err := repo.checkUniqueness(acc.Username, acc.Email, acc.ID); err != nil {
		return user.Account{}, err
	}
	repo.db.accounts[acc.ID] = acc
	return acc, nil
}
