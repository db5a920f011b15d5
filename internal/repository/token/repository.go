package token

import (
	"context"
	"time"
)

const KindRefresh = "refresh"

type Token struct {
	Token     string
	UserID    string
	Kind      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, token Token) error
	// Consume deletes the token and returns what was stored, so a token can
	// be redeemed by one caller only.
	Consume(ctx context.Context, token string) (*Token, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
}
