package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/basketlog/auth-service/internal/common"
	"github.com/basketlog/auth-service/internal/server/models"
)

type fakeUsersRepo struct {
	byID   map[int64]*models.User
	nextID int64
	err    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: make(map[int64]*models.User), nextID: 1}
}

func (f *fakeUsersRepo) add(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		ID:           f.nextID,
		Email:        email,
		PasswordHash: string(hash),
		Role:         common.RoleUser,
		CreatedAt:    time.Now(),
	}
	f.byID[u.ID] = u
	f.nextID++
	return u
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return nil, common.ErrUserAlreadyExists
		}
	}
	created := *user
	created.ID = f.nextID
	created.Role = common.RoleUser
	created.CreatedAt = time.Now()
	f.byID[created.ID] = &created
	f.nextID++
	return &created, nil
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if f.err != nil {
		return f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUsersRepo) UpdateEmail(ctx context.Context, id int64, email string) error {
	if f.err != nil {
		return f.err
	}
	for otherID, u := range f.byID {
		if otherID != id && u.Email == email {
			return common.ErrUserAlreadyExists
		}
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Email = email
	u.IsVerified = false
	return nil
}

func (f *fakeUsersRepo) SetVerified(ctx context.Context, email string) error {
	if f.err != nil {
		return f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			u.IsVerified = true
			return nil
		}
	}
	return common.ErrorNotFound
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		repo := newFakeUsersRepo()
		svc := NewAuthService(nil, &fakeRepoManager{users: repo})

		user, err := svc.Register(ctx, "new@example.com", "secret", "New User")
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.Equal(t, "new@example.com", user.Email)
		assert.NotEqual(t, "secret", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret")))
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newFakeUsersRepo()
		repo.add(t, "taken@example.com", "secret")
		svc := NewAuthService(nil, &fakeRepoManager{users: repo})

		_, err := svc.Register(ctx, "taken@example.com", "secret", "")
		assert.ErrorIs(t, err, common.ErrUserAlreadyExists)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := newFakeUsersRepo()
		want := repo.add(t, "user@example.com", "secret")
		svc := NewAuthService(nil, &fakeRepoManager{users: repo})

		user, err := svc.Login(ctx, "user@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, want.ID, user.ID)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc := NewAuthService(nil, &fakeRepoManager{users: newFakeUsersRepo()})

		_, err := svc.Login(ctx, "nobody@example.com", "secret")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := newFakeUsersRepo()
		repo.add(t, "user@example.com", "secret")
		svc := NewAuthService(nil, &fakeRepoManager{users: repo})

		_, err := svc.Login(ctx, "user@example.com", "wrong")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("updates hash and revokes refresh token", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		usersRepo := newFakeUsersRepo()
		user := usersRepo.add(t, "user@example.com", "old")
		tokensRepo := newFakeRefreshTokensRepo()
		tokensRepo.rows[user.ID] = &models.RefreshToken{UserID: user.ID, Token: "live", Expires: time.Now().Add(time.Hour)}

		svc := NewAuthService(db, &fakeRepoManager{users: usersRepo, tokens: tokensRepo})

		mock.ExpectBegin()
		mock.ExpectCommit()

		require.NoError(t, svc.ChangePassword(ctx, user.ID, "old", "new"))

		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new")))
		assert.NotContains(t, tokensRepo.rows, user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong old password", func(t *testing.T) {
		usersRepo := newFakeUsersRepo()
		user := usersRepo.add(t, "user@example.com", "old")
		svc := NewAuthService(nil, &fakeRepoManager{users: usersRepo})

		err := svc.ChangePassword(ctx, user.ID, "wrong", "new")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := NewAuthService(nil, &fakeRepoManager{users: newFakeUsersRepo()})

		err := svc.ChangePassword(ctx, 99, "old", "new")
		assert.ErrorIs(t, err, common.ErrUserNotExist)
	})
}

func TestChangeEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("changes email and resets verification", func(t *testing.T) {
		repo := newFakeUsersRepo()
		user := repo.add(t, "old@example.com", "secret")
		user.IsVerified = true
		svc := NewAuthService(nil, &fakeRepoManager{users: repo})

		require.NoError(t, svc.ChangeEmail(ctx, user.ID, "secret", "new@example.com"))
		assert.Equal(t, "new@example.com", user.Email)
		assert.False(t, user.IsVerified)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := newFakeUsersRepo()
		user := repo.add(t, "old@example.com", "secret")
		svc := NewAuthService(nil, &fakeRepoManager{users: repo})

		err := svc.ChangeEmail(ctx, user.ID, "wrong", "new@example.com")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("email taken", func(t *testing.T) {
		repo := newFakeUsersRepo()
		user := repo.add(t, "old@example.com", "secret")
		repo.add(t, "taken@example.com", "other")
		svc := NewAuthService(nil, &fakeRepoManager{users: repo})

		err := svc.ChangeEmail(ctx, user.ID, "secret", "taken@example.com")
		assert.ErrorIs(t, err, common.ErrUserAlreadyExists)
	})
}

func TestVerifyUserByEmail(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUsersRepo()
	user := repo.add(t, "user@example.com", "secret")
	svc := NewAuthService(nil, &fakeRepoManager{users: repo})

	require.NoError(t, svc.VerifyUserByEmail(ctx, "user@example.com"))
	assert.True(t, user.IsVerified)
}

func TestFindUserByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := newFakeUsersRepo()
		want := repo.add(t, "user@example.com", "secret")
		svc := NewAuthService(nil, &fakeRepoManager{users: repo})

		user, err := svc.FindUserByID(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Email, user.Email)
	})

	t.Run("not found", func(t *testing.T) {
		svc := NewAuthService(nil, &fakeRepoManager{users: newFakeUsersRepo()})

		_, err := svc.FindUserByID(ctx, 99)
		assert.ErrorIs(t, err, common.ErrUserNotExist)
	})
}
