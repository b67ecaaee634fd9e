package user_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/order-fulfillment/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type mockRepository struct {
	CreateFunc     func(ctx context.Context, u *user.User) error
	GetByIDFunc    func(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*user.User, error)
}

func (m *mockRepository) Create(ctx context.Context, u *user.User) error {
	return m.CreateFunc(ctx, u)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.GetByEmailFunc(ctx, email)
}

func TestService_CreateUser(t *testing.T) {
	t.Run("hashes the password before storing", func(t *testing.T) {
		var stored *user.User
		svc := user.NewService(&mockRepository{
			CreateFunc: func(ctx context.Context, u *user.User) error {
				stored = u
				return nil
			},
		})

		created, err := svc.CreateUser(context.Background(), &user.User{
			Name:         "Alice",
			Email:        "alice@example.com",
			PasswordHash: "s3cret",
		})

		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.NotEqual(t, "s3cret", stored.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")))
		assert.Equal(t, stored, created)
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		svc := user.NewService(&mockRepository{})

		_, err := svc.CreateUser(context.Background(), &user.User{
			Name:  "Alice",
			Email: "alice@example.com",
		})

		assert.Error(t, err)
	})

	t.Run("duplicate email passes through", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			CreateFunc: func(ctx context.Context, u *user.User) error {
				return user.ErrEmailExists
			},
		})

		_, err := svc.CreateUser(context.Background(), &user.User{
			Name:         "Alice",
			Email:        "alice@example.com",
			PasswordHash: "s3cret",
		})

		assert.ErrorIs(t, err, user.ErrEmailExists)
	})
}

func TestService_GetUserByID(t *testing.T) {
	id, err := uuid.NewV4()
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			GetByIDFunc: func(ctx context.Context, gotID uuid.UUID) (*user.User, error) {
				assert.Equal(t, id, gotID)
				return &user.User{ID: gotID, Name: "Alice", Email: "alice@example.com"}, nil
			},
		})

		u, err := svc.GetUserByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Alice", u.Name)
	})

	t.Run("not found", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			GetByIDFunc: func(ctx context.Context, gotID uuid.UUID) (*user.User, error) {
				return nil, user.ErrNotFound
			},
		})

		_, err := svc.GetUserByID(context.Background(), id)
		assert.ErrorIs(t, err, user.ErrNotFound)
	})
}

func TestService_GetUserByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
				assert.Equal(t, "alice@example.com", email)
				return &user.User{Name: "Alice", Email: email}, nil
			},
		})

		u, err := svc.GetUserByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Alice", u.Name)
	})

	t.Run("not found", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
				return nil, user.ErrNotFound
			},
		})

		_, err := svc.GetUserByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, user.ErrNotFound)
	})
}
