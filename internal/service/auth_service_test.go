package service

import (
	"context"
	"io"
	"testing"

	"todo-webapp/internal/domain"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users     map[uint]*domain.User
	nextID    uint
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*domain.User), nextID: 1}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	user.ID = f.nextID
	f.nextID++
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := f.FindByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func newTestAuthService(repo *fakeUserRepo) AuthService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewAuthService(repo, logger)
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Name:                 "Alice",
		Email:                "a@x.com",
		Password:             "secret1",
		PasswordConfirmation: "secret1",
	}
}

func TestRegisterCreatesUserWithHashedPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	user, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "a@x.com", user.Email)

	stored := repo.users[user.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	req := validRegistration()
	req.Email = "  Alice@X.COM "
	user, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", user.Email)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	cases := []struct {
		name   string
		mutate func(*RegisterRequest)
		field  string
	}{
		{"missing name", func(r *RegisterRequest) { r.Name = "" }, "name"},
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"short password", func(r *RegisterRequest) { r.Password = "abc"; r.PasswordConfirmation = "abc" }, "password"},
		{"confirmation mismatch", func(r *RegisterRequest) { r.PasswordConfirmation = "different" }, "password_confirmation"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRegistration()
			tc.mutate(&req)
			_, err := svc.Register(context.Background(), req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tc.field)
		})
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validRegistration())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
}

func TestRegisterDuplicateKeyOnInsertIsValidationError(t *testing.T) {
	// Two concurrent registrations can both pass the uniqueness check;
	// the losing insert hits the unique index and must still come back
	// as the taken-email message, not an internal error.
	repo := newFakeUserRepo()
	repo.createErr = gorm.ErrDuplicatedKey
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), validRegistration())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "The email has already been taken.", ve.Fields["email"])
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	registered, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	user, err := svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	// Wrong password and unknown email must be indistinguishable.
	_, err = svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
