package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/mapper"
	"ai-dms-be/internal/pkg/apperr"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/specification"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/pkg/authz"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "invalid credentials"

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Me(ctx context.Context, p authz.Principal) (*dto.UserResponse, error)
	UpdatePassword(ctx context.Context, p authz.Principal, req *dto.UpdatePasswordRequest) error
	// DeleteAccount removes the user and their chat histories.
	DeleteAccount(ctx context.Context, p authz.Principal, req *dto.DeleteAccountRequest) error
}

type authService struct {
	uowFactory unitofwork.RepositoryFactory
	registry   *registry.Registry
	publisher  IPublisherService
	userMapper *mapper.UserMapper
	secret     string
	expiry     time.Duration
	log        logger.ILogger
	now        func() time.Time
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	reg *registry.Registry,
	publisher IPublisherService,
	secret string,
	expiry time.Duration,
	log logger.ILogger,
) IAuthService {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &authService{
		uowFactory: uowFactory,
		registry:   reg,
		publisher:  publisher,
		userMapper: mapper.NewUserMapper(),
		secret:     secret,
		expiry:     expiry,
		log:        log,
		now:        time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	repo := s.uowFactory.UserRepository()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Storage("failed to check email", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Storage("failed to hash password", err)
	}

	user := &entity.User{
		Firstname: strings.TrimSpace(req.Firstname),
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Password:  string(hash),
		Role:      entity.UserRoleUser,
	}
	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, contract.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		s.log.Error("AUTH", "Failed to create user", map[string]interface{}{"email": email, "error": err.Error()})
		return nil, apperr.Storage("failed to register", err)
	}

	s.log.Info("AUTH", "User registered", map[string]interface{}{"user_id": user.IdHex()})
	s.publisher.DocumentCreated(ctx, registry.User, user.IdHex(), user.IdHex())
	return s.userMapper.ToResponse(user), nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.uowFactory.UserRepository().FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Storage("failed to load user", err)
	}
	if user == nil || user.Password == "" {
		return nil, apperr.Unauthorized(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.log.Warn("AUTH", "Failed login", map[string]interface{}{"user_id": user.IdHex()})
		return nil, apperr.Unauthorized(invalidCredentials)
	}

	expiresAt := s.now().Add(s.expiry)
	claims := jwt.MapClaims{
		"user_id": user.IdHex(),
		"role":    string(user.Role),
		"exp":     expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return nil, apperr.Storage("failed to sign token", err)
	}

	return &dto.LoginResponse{
		AccessToken: signedToken,
		ExpiresAt:   expiresAt.UTC(),
		User:        s.userMapper.ToResponse(user),
	}, nil
}

func (s *authService) load(ctx context.Context, p authz.Principal) (*entity.User, error) {
	user, err := s.uowFactory.UserRepository().FindByID(ctx, p.ID)
	if err != nil {
		return nil, apperr.Storage("failed to load user", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func (s *authService) Me(ctx context.Context, p authz.Principal) (*dto.UserResponse, error) {
	user, err := s.load(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.userMapper.ToResponse(user), nil
}

func (s *authService) UpdatePassword(ctx context.Context, p authz.Principal, req *dto.UpdatePasswordRequest) error {
	user, err := s.load(ctx, p)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return apperr.Validation("old_password", "", "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Storage("failed to hash password", err)
	}
	user.Password = string(hash)
	user.ModifiedBy = p.ID
	if err := s.uowFactory.UserRepository().Save(ctx, user); err != nil {
		return apperr.Storage("failed to update password", err)
	}

	s.log.Info("AUTH", "Password changed", map[string]interface{}{"user_id": p.ID})
	return nil
}

func (s *authService) DeleteAccount(ctx context.Context, p authz.Principal, req *dto.DeleteAccountRequest) error {
	user, err := s.load(ctx, p)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return apperr.Validation("password", "", "password is incorrect")
	}

	store := s.uowFactory.Store()
	histories := s.registry.MustResolve(registry.History)
	removed, err := store.DeleteMany(ctx, histories.Collection,
		specification.OwnedBy{Field: histories.OwnerField, Owner: p.ID})
	if err != nil {
		return apperr.Storage("failed to delete chat histories", err)
	}
	if err := s.uowFactory.UserRepository().Delete(ctx, p.ID); err != nil {
		return apperr.Storage("failed to delete account", err)
	}

	s.log.Info("AUTH", "Account deleted", map[string]interface{}{"user_id": p.ID, "histories": removed})
	s.publisher.DocumentDeleted(ctx, registry.User, p.ID, p.ID)
	return nil
}
