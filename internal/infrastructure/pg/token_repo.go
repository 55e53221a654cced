package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
	"priceoracle-service/internal/infrastructure/logx"
)

type TokenRepo struct{ db *DB }

var _ application.TokenRepo = (*TokenRepo)(nil)

func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) Create(ctx context.Context, t domain.APIToken) error {
	const ins = `
        INSERT INTO api_tokens(token, owner, expires_at, created_at)
        VALUES ($1, $2, $3, $4)`
	if _, err := r.db.q(ctx).Exec(ctx, ins, t.Token, t.Username, t.ExpiresAt, t.CreatedAt); err != nil {
		logx.WithFields(ctx).Error("sql.exec_failed",
			zap.String("repo", "token"),
			zap.String("operation", "Create"),
			zap.String("owner", t.Username),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *TokenRepo) Get(ctx context.Context, token string) (domain.APIToken, error) {
	const q = `SELECT token, owner, expires_at, created_at FROM api_tokens WHERE token=$1`
	var t domain.APIToken
	err := r.db.q(ctx).QueryRow(ctx, q, token).Scan(&t.Token, &t.Username, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.APIToken{}, application.ErrNotFound
	}
	if err != nil {
		logx.WithFields(ctx).Error("sql.query_failed", zap.String("repo", "token"), zap.String("operation", "Get"), zap.Error(err))
		return domain.APIToken{}, err
	}
	return t, nil
}

func (r *TokenRepo) DeleteByUsername(ctx context.Context, username string) error {
	const del = `DELETE FROM api_tokens WHERE owner=$1`
	_, err := r.db.q(ctx).Exec(ctx, del, username)
	return err
}
