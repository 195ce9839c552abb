package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/slotbook/slotbook/internal/auth"
	"github.com/slotbook/slotbook/internal/metrics"
	"github.com/slotbook/slotbook/internal/model"
	"github.com/slotbook/slotbook/internal/repository"
)

const minPasswordLength = 8

// UserStore is the persistence surface the user service needs.
// *repository.Repository satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// PrincipalCache caches request principals. *cache.Cache satisfies it.
// May be nil to disable caching.
type PrincipalCache interface {
	GetPrincipal(ctx context.Context, userID string) (*model.Principal, error)
	SetPrincipal(ctx context.Context, p *model.Principal) error
	DeletePrincipal(ctx context.Context, userID string) error
}

// UserService handles registration, login and principal resolution.
type UserService struct {
	store        UserStore
	cache        PrincipalCache
	metrics      metrics.Recorder
	jwtSecret    string
	tokenTTL     time.Duration
	storeTimeout time.Duration
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, principals PrincipalCache, jwtSecret string, tokenTTL, storeTimeout time.Duration, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		store:        store,
		cache:        principals,
		metrics:      recorder,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
		storeTimeout: storeTimeout,
	}
}

// Register creates a new non-admin account. Admin accounts are only
// provisioned out of band.
func (s *UserService) Register(ctx context.Context, email, name, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           newULID(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		IsAdmin:      false,
		CreatedAt:    time.Now().UTC(),
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, mapStoreError(err)
	}

	return user, nil
}

// Login verifies credentials and issues a signed token. Unknown email
// and wrong password return the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLoginFailure()
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, mapStoreError(err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		s.metrics.IncLoginFailure()
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.MakeToken(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}

	s.metrics.IncLoginSuccess()

	return token, user, nil
}

// GetUser fetches a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return user, nil
}

// ListUsers returns all accounts. Admin only, enforced at the routing
// layer.
func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return users, nil
}

// Principal resolves the request principal for a token subject.
// Cache first, then the user record; a deleted user yields ErrNotFound
// so stale tokens stop working.
func (s *UserService) Principal(ctx context.Context, userID string) (*model.Principal, error) {
	if s.cache != nil {
		if p, err := s.cache.GetPrincipal(ctx, userID); err == nil && p != nil {
			return p, nil
		}
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	p := &model.Principal{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}

	if s.cache != nil {
		_ = s.cache.SetPrincipal(ctx, p)
	}

	return p, nil
}

func (s *UserService) withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
