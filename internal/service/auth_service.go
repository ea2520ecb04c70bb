package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"todo-webapp/internal/domain"
	"todo-webapp/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterRequest holds the registration form fields.
type RegisterRequest struct {
	Name                 string `form:"name" validate:"required,max=50"`
	Email                string `form:"email" validate:"required,email,max=255"`
	Password             string `form:"password" validate:"required,min=6"`
	PasswordConfirmation string `form:"password_confirmation" validate:"eqfield=Password"`
}

// LoginRequest holds the login form fields.
type LoginRequest struct {
	Email    string `form:"email" validate:"required,email,max=255"`
	Password string `form:"password" validate:"required,min=6"`
}

// UserResponse is the representation of a user exposed to the client.
// The password hash never leaves the service layer.
type UserResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthService handles registration and credential verification. Session
// issuance lives in the transport layer; this service only answers "who
// is this" questions.
type AuthService interface {
	// Register validates the form, creates the user, and returns it so
	// the caller can establish a session (auto-login).
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)

	// Login verifies the credentials and returns the matching user, or
	// ErrInvalidCredentials without revealing which field was wrong.
	Login(ctx context.Context, req LoginRequest) (*UserResponse, error)

	// GetUser resolves a session user id back to a user.
	GetUser(ctx context.Context, id uint) (*UserResponse, error)
}

type authService struct {
	users  repository.UserRepository
	logger logrus.FieldLogger
}

func NewAuthService(users repository.UserRepository, logger logrus.FieldLogger) AuthService {
	return &authService{users: users, logger: logger}
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if ve := checkStruct(req); ve != nil {
		return nil, ve
	}

	taken, err := s.users.EmailTaken(ctx, req.Email)
	if err != nil {
		s.logger.WithError(err).Error("checking email uniqueness")
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if taken {
		ve := newValidationError()
		ve.Fields["email"] = "The email has already been taken."
		return nil, ve
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The uniqueness check above races with concurrent registrations;
		// the unique index is what actually decides.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ve := newValidationError()
			ve.Fields["email"] = "The email has already been taken."
			return nil, ve
		}
		s.logger.WithError(err).Error("creating user")
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return toUserResponse(user), nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*UserResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if ve := checkStruct(req); ve != nil {
		return nil, ve
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.WithError(err).Error("looking up user by email")
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return toUserResponse(user), nil
}

func (s *authService) GetUser(ctx context.Context, id uint) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up user %d: %w", id, err)
	}
	return toUserResponse(user), nil
}

func toUserResponse(user *domain.User) *UserResponse {
	return &UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}
