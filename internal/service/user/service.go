package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"storefront-api/internal/apperr"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	tokenrepo "storefront-api/internal/repository/token"
	userrepo "storefront-api/internal/repository/user"
)

const invalidCredentials = "invalid email or password"

type accessIssuer interface {
	Mint(now time.Time, userID string, isAdmin bool) (string, error)
	TTL() time.Duration
}

type loginLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
}

// Service handles account signup, login and profile flows.
type Service struct {
	repo        userrepo.Repository
	tokens      *tokenManager
	issuer      accessIssuer
	limiter     loginLimiter
	logger      *logger.Logger
	refreshTTL  time.Duration
	passwordMin int
	now         func() time.Time
}

// New creates a Service. limiter may be nil to disable login rate limiting.
func New(repo userrepo.Repository, tokens tokenrepo.Repository, issuer accessIssuer, limiter loginLimiter, refreshTTL time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	now := func() time.Time { return time.Now().UTC() }
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(tokens, now),
		issuer:      issuer,
		limiter:     limiter,
		logger:      log,
		refreshTTL:  refreshTTL,
		passwordMin: 8,
		now:         now,
	}
}

// CreateInput captures fields expected by the signup endpoint.
type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// ProfileInput holds optional profile changes.
type ProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// Session is the result of a successful login or refresh.
type Session struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	password := strings.TrimSpace(in.Password)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	created, err := s.repo.Create(ctx, domain.User{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Internal(fmt.Errorf("create user: %w", err))
	}
	s.logger.Info(s.logger.WithUserID(ctx, created.ID), "user.created")
	return created, nil
}

// Login validates credentials and returns a fresh session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "login:"+email)
		if err != nil {
			// fail open
			s.logger.Error(ctx, "login rate limiter failed", err)
		} else if !allowed {
			return nil, apperr.New(apperr.CodeRateLimit, "too many login attempts, try again later")
		}
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.Unauthorized(invalidCredentials)
		}
		return nil, apperr.Internal(fmt.Errorf("load user: %w", err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized(invalidCredentials)
	}
	return s.newSession(ctx, u)
}

// Refresh exchanges a refresh token for a new session. The old token is
// consumed first, so concurrent refreshes with it yield one session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	userID, err := s.tokens.Redeem(ctx, strings.TrimSpace(refreshToken))
	if errors.Is(err, errInvalidRefreshToken) {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid refresh token")
		}
		return nil, apperr.Internal(fmt.Errorf("load user: %w", err))
	}
	return s.newSession(ctx, u)
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return apperr.Internal(fmt.Errorf("revoke refresh token: %w", err))
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list users: %w", err))
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "get user")
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*domain.User, error) {
	if in.FirstName == nil && in.LastName == nil && in.Phone == nil {
		return nil, apperr.Validation("no profile fields to update")
	}
	u, err := s.repo.UpdateProfile(ctx, id, userrepo.ProfileUpdate{
		FirstName: trimmed(in.FirstName),
		LastName:  trimmed(in.LastName),
		Phone:     trimmed(in.Phone),
	})
	if err != nil {
		return nil, notFoundOrInternal(err, "update user")
	}
	return u, nil
}

// ChangePassword verifies the current password, stores the new one and
// revokes every refresh token of the user.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("currentPassword and newPassword are required")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return notFoundOrInternal(err, "get user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return apperr.Validation("current password is incorrect")
	}
	if err := validatePassword(next, s.passwordMin); err != nil {
		return apperr.Validation(err.Error())
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hashed)); err != nil {
		return notFoundOrInternal(err, "update password")
	}
	if err := s.tokens.RevokeAll(ctx, id); err != nil {
		s.logger.Error(s.logger.WithUserID(ctx, id), "revoke tokens after password change failed", err)
	}
	s.logger.Info(s.logger.WithUserID(ctx, id), "user.password_changed")
	return nil
}

// Delete removes the account together with its carts and tokens.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err, "delete user")
	}
	s.logger.Info(s.logger.WithUserID(ctx, id), "user.deleted")
	return nil
}

func (s *Service) newSession(ctx context.Context, u *domain.User) (*Session, error) {
	access, err := s.issuer.Mint(s.now(), u.ID, u.IsAdmin)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("mint access token: %w", err))
	}
	refresh, err := s.tokens.Issue(ctx, u.ID, s.refreshTTL)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("issue refresh token: %w", err))
	}
	return &Session{
		User:         u,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.issuer.TTL().Seconds()),
	}, nil
}

func notFoundOrInternal(err error, op string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func validatePassword(p string, min int) error {
	if len(p) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
