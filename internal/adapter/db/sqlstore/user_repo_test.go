package sqlstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "registration-service/internal/domain/user"
	apperrors "registration-service/pkg/errors"
)

func TestUserRepo_Create(t *testing.T) {
	db := setupMigratedDB(t)
	repo := NewUserRepo(db, zaptest.NewLogger(t))

	created, err := repo.Create(context.Background(), &domain.User{
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Password: "$2a$04$hash",
	})
	require.NoError(t, err)

	assert.Positive(t, created.ID)
	assert.Equal(t, "jane@example.com", created.Email)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	second, err := repo.Create(context.Background(), &domain.User{
		Name:     "John Doe",
		Email:    "john@example.com",
		Password: "$2a$04$hash",
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, second.ID)
}

func TestUserRepo_Create_Nil(t *testing.T) {
	repo := NewUserRepo(setupMigratedDB(t), zaptest.NewLogger(t))

	_, err := repo.Create(context.Background(), nil)
	assert.EqualError(t, err, "user cannot be nil")
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	db := setupMigratedDB(t)
	repo := NewUserRepo(db, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Name: "Jane", Email: "jane@example.com", Password: "h"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Name: "Other Jane", Email: "jane@example.com", Password: "h"})

	var dup *apperrors.AlreadyExistsError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, apperrors.DuplicateEmailMessage, err.Error())

	var count int64
	require.NoError(t, db.Model(&UserSchema{}).Where("email = ?", "jane@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepo_Create_ConcurrentSameEmail(t *testing.T) {
	db := setupMigratedDB(t)
	repo := NewUserRepo(db, zaptest.NewLogger(t))

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(context.Background(), &domain.User{Name: "Racer", Email: "race@example.com", Password: "h"})

			mu.Lock()
			defer mu.Unlock()
			var dup *apperrors.AlreadyExistsError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &dup):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, dupes)
}

func TestUserRepo_Create_FieldValidation(t *testing.T) {
	repo := NewUserRepo(setupMigratedDB(t), zaptest.NewLogger(t))

	tests := []struct {
		name     string
		user     domain.User
		messages []string
	}{
		{
			name:     "name too long",
			user:     domain.User{Name: strings.Repeat("n", MaxNameLength+1), Email: "a@example.com", Password: "h"},
			messages: []string{"name must be at most 100 characters"},
		},
		{
			name: "every column invalid",
			user: domain.User{Name: "", Email: strings.Repeat("e", MaxEmailLength+1), Password: ""},
			messages: []string{
				"name cannot be empty",
				"email must be at most 255 characters",
				"password cannot be empty",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			_, err := repo.Create(context.Background(), &u)

			var invalid *apperrors.FieldValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.messages, invalid.Messages)
			assert.Equal(t, strings.Join(tt.messages, ", "), err.Error())
		})
	}
}

func TestUserRepo_Create_UnexpectedError(t *testing.T) {
	// No migration: the users table does not exist.
	repo := NewUserRepo(setupTestDB(t), zaptest.NewLogger(t))

	_, err := repo.Create(context.Background(), &domain.User{Name: "Jane", Email: "jane@example.com", Password: "h"})
	require.Error(t, err)

	var dup *apperrors.AlreadyExistsError
	var invalid *apperrors.FieldValidationError
	assert.False(t, errors.As(err, &dup))
	assert.False(t, errors.As(err, &invalid))
	assert.Contains(t, err.Error(), "failed to create user")
}

func TestUserRepo_GetByEmail(t *testing.T) {
	repo := NewUserRepo(setupMigratedDB(t), zaptest.NewLogger(t))
	ctx := context.Background()

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := repo.Create(ctx, &domain.User{Name: "Jane", Email: "jane@example.com", Password: "h"})
	require.NoError(t, err)

	found, err := repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "h", found.Password)
}

func TestErrorMarkers(t *testing.T) {
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email"`)))
	assert.True(t, isUniqueViolation(errors.New("Error 1062 (23000): Duplicate entry 'a@b.c' for key 'users.idx_users_email'")))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))

	assert.True(t, isNotNullViolation(errors.New("NOT NULL constraint failed: users.name")))
	assert.True(t, isNotNullViolation(errors.New("Error 1048 (23000): Column 'name' cannot be null")))
	assert.False(t, isNotNullViolation(errors.New("syntax error")))
}
