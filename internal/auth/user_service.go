package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/config"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
	"github.com/lexivault/vocab-web-app/api-service/internal/repository"
	"github.com/lexivault/vocab-web-app/api-service/internal/session"
)

// ErrInvalidCredentials is returned on login when the username or password
// does not match. It deliberately does not distinguish the two cases.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserService handles account registration, login, and logout.
type UserService interface {
	RegisterUser(ctx context.Context, req *models.RegistrationRequest, userAgent, ipAddress string) (*models.LoginResponse, error)
	LoginUser(ctx context.Context, req *models.LoginRequest, userAgent, ipAddress string) (*models.LoginResponse, error)
	LogoutUser(ctx context.Context, token string) (*models.LogoutResponse, error)
	LogoutEverywhere(ctx context.Context, userID uuid.UUID) (*models.LogoutResponse, error)
}

type userService struct {
	config   *config.Config
	users    repository.UserRepository
	sessions session.Store
	logger   *logrus.Logger
}

// NewUserService creates the user service backed by the given repositories.
func NewUserService(
	cfg *config.Config,
	users repository.UserRepository,
	sessions session.Store,
	logger *logrus.Logger,
) UserService {
	return &userService{
		config:   cfg,
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *userService) RegisterUser(
	ctx context.Context,
	req *models.RegistrationRequest,
	userAgent, ipAddress string,
) (*models.LoginResponse, error) {
	s.logger.WithField("username", req.Username).Info("Processing user registration request")

	if errs := req.Validate(); errs.HasErrors() {
		s.logger.WithError(errs).Warn("Invalid user registration request")
		return nil, errs
	}

	exists, err := s.users.IsUsernameExists(ctx, req.Username)
	if err != nil {
		s.logger.WithError(err).Error("Failed to check username availability")
		return nil, errors.New("failed to create user")
	}
	if exists {
		return nil, errors.New("username already exists")
	}

	if req.Email != nil && *req.Email != "" {
		emailTaken, emailErr := s.users.IsEmailExists(ctx, *req.Email)
		if emailErr != nil {
			s.logger.WithError(emailErr).Error("Failed to check email availability")
			return nil, errors.New("failed to create user")
		}
		if emailTaken {
			return nil, errors.New("email already registered")
		}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return nil, errors.New("failed to process password")
	}

	now := time.Now()
	user := &models.UserWithPassword{
		User: models.User{
			UserID:    uuid.New(),
			Username:  req.Username,
			Email:     req.Email,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	}

	if storeErr := s.users.CreateUser(ctx, user); storeErr != nil {
		s.logger.WithError(storeErr).Error("Failed to store user")
		return nil, errors.New("failed to create user")
	}

	resp, err := s.establishSession(ctx, user, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"username": user.Username,
		"user_id":  user.UserID.String(),
	}).Info("User registered successfully")

	return resp, nil
}

func (s *userService) LoginUser(
	ctx context.Context,
	req *models.LoginRequest,
	userAgent, ipAddress string,
) (*models.LoginResponse, error) {
	s.logger.Info("Processing user login request")

	if errs := req.Validate(); errs.HasErrors() {
		s.logger.WithError(errs).Warn("Invalid user login request")
		return nil, errs
	}

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		s.logger.WithField("username", req.Username).Warn("User not found")
		return nil, ErrInvalidCredentials
	}

	if verifyErr := VerifyPassword(user.PasswordHash, req.Password); verifyErr != nil {
		s.logger.WithField("user_id", user.UserID.String()).Warn("Invalid password")
		return nil, ErrInvalidCredentials
	}

	resp, err := s.establishSession(ctx, user, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"username": user.Username,
		"user_id":  user.UserID.String(),
	}).Info("User logged in successfully")

	return resp, nil
}

func (s *userService) LogoutUser(ctx context.Context, token string) (*models.LogoutResponse, error) {
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		s.logger.WithError(err).Error("Failed to delete session on logout")
		return nil, errors.New("failed to log out")
	}

	return &models.LogoutResponse{Message: "Logged out successfully"}, nil
}

func (s *userService) LogoutEverywhere(ctx context.Context, userID uuid.UUID) (*models.LogoutResponse, error) {
	s.logger.WithField("user_id", userID.String()).Info("Processing logout-everywhere request")

	if err := s.sessions.DeleteAllUserSessions(ctx, userID); err != nil {
		s.logger.WithError(err).Error("Failed to delete user sessions")
		return nil, errors.New("failed to log out")
	}

	return &models.LogoutResponse{Message: "All sessions terminated"}, nil
}

// establishSession mints an opaque token and creates the server-side
// session row that backs it.
func (s *userService) establishSession(
	ctx context.Context,
	user *models.UserWithPassword,
	userAgent, ipAddress string,
) (*models.LoginResponse, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		s.logger.WithError(err).Error("Failed to generate session token")
		return nil, errors.New("failed to establish session")
	}

	if err := s.sessions.CreateSession(ctx, token, user.UserID, user.IsAdmin, userAgent, ipAddress); err != nil {
		s.logger.WithError(err).Error("Failed to create session")
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}

	profile := user.User
	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.config.Session.Window),
		User:      &profile,
	}, nil
}
