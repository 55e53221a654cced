package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
	"priceoracle-service/internal/infrastructure/logx"
)

type UserRepo struct{ db *DB }

var _ application.UserRepo = (*UserRepo)(nil)

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	const ins = `
        INSERT INTO users(username, password_hash, email)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	log := logx.WithFields(ctx).With(
		zap.String("repo", "user"),
		zap.String("operation", "Create"),
		zap.String("username", u.Username),
	)
	log.Debug("sql.exec_start")
	err := r.db.q(ctx).QueryRow(ctx, ins, u.Username, u.PasswordHash, u.Email).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			log.Info("sql.exec_conflict")
			return domain.User{}, fmt.Errorf("%w: username %q taken", application.ErrConflict, u.Username)
		}
		log.Error("sql.exec_failed", zap.Error(err))
		return domain.User{}, err
	}
	log.Debug("sql.exec_success", zap.Int64("id", u.ID))
	return u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	const q = `
        SELECT id, username, password_hash, email, created_at
        FROM users WHERE username=$1`
	log := logx.WithFields(ctx).With(
		zap.String("repo", "user"),
		zap.String("operation", "GetByUsername"),
		zap.String("username", username),
	)
	var u domain.User
	err := r.db.q(ctx).QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debug("sql.query_no_rows")
		return domain.User{}, application.ErrNotFound
	}
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return domain.User{}, err
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	const q = `
        SELECT id, username, password_hash, email, created_at
        FROM users ORDER BY created_at DESC, id DESC`
	rows, err := r.db.q(ctx).Query(ctx, q)
	if err != nil {
		logx.WithFields(ctx).Error("sql.query_failed", zap.String("repo", "user"), zap.String("operation", "List"), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) Delete(ctx context.Context, username string) error {
	const del = `DELETE FROM users WHERE username=$1`
	tag, err := r.db.q(ctx).Exec(ctx, del, username)
	if err != nil {
		logx.WithFields(ctx).Error("sql.exec_failed", zap.String("repo", "user"), zap.String("operation", "Delete"), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	return nil
}
