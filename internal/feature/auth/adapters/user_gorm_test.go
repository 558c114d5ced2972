package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"focusflow/internal/feature/auth/domain/entity"
	"focusflow/internal/feature/auth/usecase"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to initialize test database")

	err = db.AutoMigrate(&entity.User{})
	require.NoError(t, err, "failed to migrate table")

	return db
}

func TestNewUserGorm(t *testing.T) {
	db := setupTestDB(t)

	repo := NewUserGorm(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestUserGorm_Create(t *testing.T) {
	t.Run("successful user creation", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))

		user := &entity.User{Email: "test@example.com", Password: "hashed_password", FirstName: "Ada"}

		err := repo.Create(context.Background(), user)

		assert.NoError(t, err, "failed to create user")
		assert.NotZero(t, user.ID, "ID is not set")
		assert.False(t, user.CreatedAt.IsZero(), "CreatedAt is not set")
		assert.False(t, user.UpdatedAt.IsZero(), "UpdatedAt is not set")
	})

	t.Run("duplicate email error", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))

		err := repo.Create(context.Background(), &entity.User{Email: "duplicate@example.com", Password: "password1"})
		require.NoError(t, err, "failed to create first user")

		err = repo.Create(context.Background(), &entity.User{Email: "duplicate@example.com", Password: "password2"})

		assert.ErrorIs(t, err, usecase.ErrEmailAlreadyExists)
	})

	t.Run("email is case-sensitive", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))

		require.NoError(t, repo.Create(context.Background(), &entity.User{Email: "case@example.com", Password: "p"}))
		err := repo.Create(context.Background(), &entity.User{Email: "Case@example.com", Password: "p"})

		assert.NoError(t, err)
	})

	t.Run("nil user error", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))

		err := repo.Create(context.Background(), nil)

		assert.Error(t, err, "should return error for nil user")
	})
}

func TestUserGorm_FindByEmail(t *testing.T) {
	t.Run("find correct user when multiple users exist", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))

		users := []*entity.User{
			{Email: "user1@example.com", Password: "pass1"},
			{Email: "user2@example.com", Password: "pass2"},
			{Email: "user3@example.com", Password: "pass3"},
		}
		for _, u := range users {
			require.NoError(t, repo.Create(context.Background(), u), "failed to create test data")
		}

		found, err := repo.FindByEmail(context.Background(), "user2@example.com")

		require.NoError(t, err, "failed to find user")
		assert.Equal(t, users[1].ID, found.ID, "ID does not match")
		assert.Equal(t, "pass2", found.Password, "password does not match")
	})

	t.Run("email not found error", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))

		found, err := repo.FindByEmail(context.Background(), "notfound@example.com")

		assert.Nil(t, found, "user should be nil")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound, "should return ErrUserNotFound")
	})
}

func TestUserGorm_FindByID(t *testing.T) {
	t.Run("find user by ID successfully", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))

		expected := &entity.User{Email: "findbyid@example.com", Password: "hashed_password"}
		require.NoError(t, repo.Create(context.Background(), expected), "failed to create test data")

		found, err := repo.FindByID(context.Background(), expected.ID)

		require.NoError(t, err, "failed to find user")
		assert.Equal(t, expected.Email, found.Email, "email does not match")
	})

	t.Run("ID not found error", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))

		found, err := repo.FindByID(context.Background(), 999)

		assert.Nil(t, found, "user should be nil")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound, "should return ErrUserNotFound")
	})
}

func TestUserGorm_Update(t *testing.T) {
	t.Run("profile fields are saved", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))
		user := &entity.User{Email: "update@example.com", Password: "hash", FirstName: "Old"}
		require.NoError(t, repo.Create(context.Background(), user))

		dob := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)
		user.FirstName = "New"
		user.Country = "JP"
		user.DateOfBirth = &dob
		user.Avatar = "/uploads/avatars/1/a.png"
		user.UpdatedAt = user.UpdatedAt.Add(time.Hour)

		require.NoError(t, repo.Update(context.Background(), user))

		found, err := repo.FindByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, "New", found.FirstName)
		assert.Equal(t, "JP", found.Country)
		assert.Equal(t, "/uploads/avatars/1/a.png", found.Avatar)
		assert.Equal(t, "hash", found.Password, "password must not change")
		require.NotNil(t, found.DateOfBirth)
		assert.True(t, dob.Equal(*found.DateOfBirth))
		assert.Equal(t, user.UpdatedAt.Unix(), found.UpdatedAt.Unix())
	})

	t.Run("clearing the date of birth stores null", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))
		dob := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)
		user := &entity.User{Email: "dob@example.com", Password: "hash", DateOfBirth: &dob}
		require.NoError(t, repo.Create(context.Background(), user))

		user.DateOfBirth = nil
		require.NoError(t, repo.Update(context.Background(), user))

		found, err := repo.FindByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Nil(t, found.DateOfBirth)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := NewUserGorm(setupTestDB(t))

		err := repo.Update(context.Background(), &entity.User{ID: 999})

		assert.ErrorIs(t, err, usecase.ErrUserNotFound)
	})
}
