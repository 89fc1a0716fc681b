package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"planner/internal/domain"
)

const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
)

// Service contains all business logic for owner authentication
type Service struct {
	owners OwnerRepositoryInterface
	jwt    jwtService
	now    func() time.Time
}

type Session struct {
	Owner *domain.Owner
	Token string
}

func NewService(owners OwnerRepositoryInterface, jwt jwtService, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{owners: owners, jwt: jwt, now: now}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	email := normalizeEmail(req.Email)
	if err := s.validateEmailUnique(ctx, email); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	owner := &domain.Owner{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         strings.TrimSpace(req.Name),
	}
	if err := s.owners.Create(ctx, owner); err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(owner.ID, domain.RoleOwner)
	if err != nil {
		return nil, err
	}
	owner.PasswordHash = ""
	return &Session{Owner: owner, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	owner, err := s.owners.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if owner.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(req.Password)); err != nil {
		failedAttempts := owner.FailedLoginAttempts + 1
		var lockedUntil *time.Time
		if failedAttempts >= maxFailedLoginAttempts {
			until := now.Add(lockoutDuration)
			lockedUntil = &until
		}
		if updateErr := s.owners.RecordLoginFailure(ctx, owner.ID, failedAttempts, lockedUntil); updateErr != nil {
			return nil, updateErr
		}
		if lockedUntil != nil {
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if owner.FailedLoginAttempts > 0 || owner.LockedUntil != nil {
		if err := s.owners.ResetLoginFailures(ctx, owner.ID); err != nil {
			return nil, err
		}
	}

	token, err := s.jwt.GenerateToken(owner.ID, domain.RoleOwner)
	if err != nil {
		return nil, err
	}
	owner.PasswordHash = ""
	return &Session{Owner: owner, Token: token}, nil
}

func (s *Service) GetCurrentOwner(ctx context.Context, ownerID int64) (*domain.Owner, error) {
	owner, err := s.owners.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	owner.PasswordHash = ""
	return owner, nil
}

func (s *Service) UpdateProfile(ctx context.Context, ownerID int64, req UpdateProfileRequest) (*domain.Owner, error) {
	if err := s.owners.UpdateName(ctx, ownerID, strings.TrimSpace(req.Name)); err != nil {
		return nil, err
	}
	return s.GetCurrentOwner(ctx, ownerID)
}

func (s *Service) validateEmailUnique(ctx context.Context, email string) error {
	exists, err := s.owners.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailAlreadyExists
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
