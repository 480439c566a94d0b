package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/qaboard/qa-service/internal/auth"
	"github.com/qaboard/qa-service/internal/config"
	"github.com/qaboard/qa-service/internal/domain"
	"github.com/qaboard/qa-service/internal/repository"
	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users        repository.UserRepository
	tokens       auth.TokenProvider
	bcryptCost   int
	dummyHash    string
	moderatorKey string
	logger       *zap.Logger
	hash         func(password string, cost int) (string, error)
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Tokens   auth.TokenProvider
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dummy, err := auth.DummyHash(cfg.BcryptCost)
	if err != nil {
		logger.Warn("unable to prepare dummy password hash", zap.Error(err))
	}
	return &AuthService{
		users:        deps.UserRepo,
		tokens:       deps.Tokens,
		bcryptCost:   cfg.BcryptCost,
		dummyHash:    dummy,
		moderatorKey: cfg.ModeratorAuthKey,
		logger:       logger,
		hash:         auth.HashPassword,
	}
}

// RegisterInput is a sign-up request. ModeratorKey is the value of the enrollment
// header, empty when absent.
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	IsModerator  bool
	ModeratorKey string
}

// RegisterUser creates an account. Asking for moderator rights without the enrollment
// key fails with AuthCredsMissing before anything is stored.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if err := auth.CheckEnrollment(in.IsModerator, in.ModeratorKey, s.moderatorKey); err != nil {
		s.logger.Debug("moderator enrollment refused", zap.String("email", in.Email))
		return nil, err
	}

	hash, err := s.hash(in.Password, s.bcryptCost)
	if err != nil {
		// The hash is part of the stored row, so a failure fails the insert.
		s.logger.Error("password hashing failed", zap.Error(err))
		return nil, apperrors.DBQueryError(err)
	}

	user := &domain.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsModerator:  in.IsModerator,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and issues a token. An unknown email and a wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	user, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, apperrors.ObjectNotFound()) {
			auth.BurnPasswordCheck(s.dummyHash, creds.Password)
		}
		return "", err
	}
	if !auth.PasswordMatches(user.PasswordHash, creds.Password) {
		s.logger.Debug("login rejected", zap.String("user_id", user.ID))
		return "", apperrors.ObjectNotFound()
	}
	return s.tokens.Issue(domain.Identity{ID: user.ID, IsModerator: user.IsModerator})
}
