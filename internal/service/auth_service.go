package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	operators  repository.OperatorRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	OperatorRepo repository.OperatorRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		operators:  deps.OperatorRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// RegisterUser creates a new consumer account.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, consumerNumber, zone, password string) (*domain.User, string, time.Time, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	consumerNumber = strings.TrimSpace(consumerNumber)
	if name == "" || email == "" || consumerNumber == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name, email, consumer number and password required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	user := &domain.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		ConsumerNumber: consumerNumber,
		Zone:           strings.TrimSpace(zone),
		PasswordHash:   hash,
		Status:         domain.UserStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginUser authenticates a consumer.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginOperator authenticates staff and returns a role-bearing token.
func (s *AuthService) LoginOperator(ctx context.Context, email, password string) (*domain.Operator, string, time.Time, error) {
	operator, err := s.operators.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if !operator.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("operator inactive")
	}
	if err := auth.ComparePassword(operator.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(operator.ID, domain.SubjectTypeOperator, &operator.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return operator, token, exp, nil
}

// SeedOperators provisions staff accounts from configuration when they do
// not exist yet. Used at startup so a fresh deployment has working
// engineer and department-head logins.
func (s *AuthService) SeedOperators(ctx context.Context, seed config.SeedConfig) error {
	type candidate struct {
		email    string
		password string
		role     domain.Role
		zone     string
		name     string
	}
	candidates := []candidate{
		{seed.EngineerEmail, seed.EngineerPassword, domain.RoleSiteEngineer, seed.EngineerZone, "Site Engineer"},
		{seed.HeadEmail, seed.HeadPassword, domain.RoleDepartmentHead, "", "Department Head"},
	}
	for _, c := range candidates {
		if c.email == "" || c.password == "" {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(c.email))
		if _, err := s.operators.GetByEmail(ctx, email); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		hash, err := auth.HashPassword(c.password, s.bcryptCost)
		if err != nil {
			return err
		}
		now := time.Now()
		operator := &domain.Operator{
			ID:           uuid.NewString(),
			Name:         c.name,
			Email:        email,
			PasswordHash: hash,
			Role:         c.role,
			Zone:         c.zone,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.operators.Create(ctx, operator); err != nil {
			return err
		}
	}
	return nil
}
