package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"priceoracle-service/internal/domain"
)

const (
	minPasswordLen = 8
	maxUsernameLen = 64
)

// TokenGen produces opaque API tokens.
type TokenGen interface {
	NewToken() string
}

type uuidTokenGen struct{}

func (uuidTokenGen) NewToken() string { return uuid.NewString() }

// UserService registers API users and issues bearer tokens that expire
// after a fixed TTL.
type UserService struct {
	users    UserRepo
	tokens   TokenRepo
	uow      UnitOfWork
	clock    Clock
	tokenGen TokenGen
	tokenTTL time.Duration
	cost     int
}

type UserOption func(*UserService)

func WithUserClock(c Clock) UserOption        { return func(s *UserService) { s.clock = c } }
func WithTokenGen(g TokenGen) UserOption      { return func(s *UserService) { s.tokenGen = g } }
func WithTokenTTL(d time.Duration) UserOption { return func(s *UserService) { s.tokenTTL = d } }
func WithUnitOfWork(u UnitOfWork) UserOption  { return func(s *UserService) { s.uow = u } }
func WithBcryptCost(cost int) UserOption      { return func(s *UserService) { s.cost = cost } }

func NewUserService(users UserRepo, tokens TokenRepo, opts ...UserOption) *UserService {
	s := &UserService{
		users:  users,
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.tokenGen == nil {
		s.tokenGen = uuidTokenGen{}
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = 30 * 24 * time.Hour
	}
	if s.uow == nil {
		s.uow = NoopUoW{}
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	return s
}

func validateCredentials(username, password string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username is required", ErrBadRequest)
	case len(username) > maxUsernameLen:
		return fmt.Errorf("%w: username longer than %d characters", ErrBadRequest, maxUsernameLen)
	case strings.ContainsAny(username, " \t\n"):
		return fmt.Errorf("%w: username must not contain whitespace", ErrBadRequest)
	case len(password) < minPasswordLen:
		return fmt.Errorf("%w: password shorter than %d characters", ErrBadRequest, minPasswordLen)
	}
	return nil
}

// Register creates the user and its first token in one unit of work.
func (s *UserService) Register(ctx context.Context, username, password string, email *string) (domain.APIToken, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return domain.APIToken{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.APIToken{}, fmt.Errorf("hash password: %w", err)
	}

	var tok domain.APIToken
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if _, err := s.users.Create(ctx, domain.User{
			Username:     username,
			PasswordHash: string(hash),
			Email:        email,
			CreatedAt:    s.clock.Now(),
		}); err != nil {
			return err
		}
		tok, err = s.issue(ctx, username)
		return err
	})
	if err != nil {
		return domain.APIToken{}, err
	}
	return tok, nil
}

// Login checks the password and issues a fresh token.
func (s *UserService) Login(ctx context.Context, username, password string) (domain.APIToken, error) {
	u, err := s.authenticate(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return domain.APIToken{}, err
	}
	return s.issue(ctx, u.Username)
}

// Authenticate resolves a bearer token to its owner.
func (s *UserService) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	t, err := s.tokens.Get(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if err != nil {
		return "", err
	}
	if t.Expired(s.clock.Now()) {
		return "", fmt.Errorf("%w: token expired", ErrUnauthorized)
	}
	return t.Username, nil
}

func (s *UserService) Profile(ctx context.Context, username string) (domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Delete removes the account and its tokens after confirming the password.
func (s *UserService) Delete(ctx context.Context, username, password string) error {
	if _, err := s.authenticate(ctx, username, password); err != nil {
		return err
	}
	return s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.tokens.DeleteByUsername(ctx, username); err != nil {
			return err
		}
		return s.users.Delete(ctx, username)
	})
}

func (s *UserService) authenticate(ctx context.Context, username, password string) (domain.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if err != nil {
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	return u, nil
}

func (s *UserService) issue(ctx context.Context, username string) (domain.APIToken, error) {
	now := s.clock.Now()
	t := domain.APIToken{
		Token:     s.tokenGen.NewToken(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenTTL),
	}
	if err := s.tokens.Create(ctx, t); err != nil {
		return domain.APIToken{}, fmt.Errorf("store token: %w", err)
	}
	return t, nil
}
