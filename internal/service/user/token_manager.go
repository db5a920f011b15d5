package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"storefront-api/internal/domain"
	tokenrepo "storefront-api/internal/repository/token"
)

// tokenManager issues opaque refresh tokens persisted in the token store.
type tokenManager struct {
	repo tokenrepo.Repository
	now  func() time.Time
}

func newTokenManager(repo tokenrepo.Repository, now func() time.Time) *tokenManager {
	return &tokenManager{repo: repo, now: now}
}

func (m *tokenManager) Issue(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	expiresAt := m.now().Add(ttl)
	for i := 0; i < 5; i++ {
		token, err := randomToken()
		if err != nil {
			return "", err
		}
		err = m.repo.Create(ctx, tokenrepo.Token{
			Token:     token,
			UserID:    userID,
			Kind:      tokenrepo.KindRefresh,
			ExpiresAt: expiresAt,
		})
		if err == nil {
			return token, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return "", err
	}
	return "", errors.New("token collision")
}

var errInvalidRefreshToken = errors.New("invalid refresh token")

// Redeem consumes a refresh token and returns its owner. Unknown, expired or
// already used tokens yield errInvalidRefreshToken; store failures are returned as is.
func (m *tokenManager) Redeem(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errInvalidRefreshToken
	}
	meta, err := m.repo.Consume(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return "", errInvalidRefreshToken
	}
	if err != nil {
		return "", fmt.Errorf("consume refresh token: %w", err)
	}
	if meta.Kind != tokenrepo.KindRefresh || meta.UserID == "" || m.now().After(meta.ExpiresAt) {
		return "", errInvalidRefreshToken
	}
	return meta.UserID, nil
}

func (m *tokenManager) Revoke(ctx context.Context, token string) error {
	err := m.repo.Delete(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (m *tokenManager) RevokeAll(ctx context.Context, userID string) error {
	return m.repo.DeleteByUser(ctx, userID)
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
