package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaorder/internal/model"
	"pharmaorder/internal/repository"
)

func newAuth() *AuthService {
	return NewAuthService(repository.NewMemoryUsers(repository.NewMemoryStore()))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	auth := newAuth()

	user, err := auth.Register(ctx, "anna", "secret", "Anna", model.RolePatient)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, model.RolePatient, user.Role)
	assert.NotEqual(t, []byte("secret"), user.PasswordHash)

	got, err := auth.Authenticate(ctx, "anna", "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestRegister_DuplicateLogin(t *testing.T) {
	ctx := context.Background()
	auth := newAuth()

	_, err := auth.Register(ctx, "anna", "secret", "Anna", model.RolePatient)
	require.NoError(t, err)

	_, err = auth.Register(ctx, "anna", "other", "Another Anna", model.RoleDoctor)
	assert.ErrorIs(t, err, ErrLoginTaken)
}

func TestRegister_InvalidRole(t *testing.T) {
	ctx := context.Background()
	auth := newAuth()

	_, err := auth.Register(ctx, "anna", "secret", "Anna", model.Role("admin"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAuthenticate_Failures(t *testing.T) {
	ctx := context.Background()
	auth := newAuth()

	_, err := auth.Register(ctx, "anna", "secret", "Anna", model.RolePatient)
	require.NoError(t, err)

	_, err = auth.Authenticate(ctx, "anna", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
