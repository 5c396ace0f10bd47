package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists and validates the three opaque token families:
// refresh tokens (revocable, rotated on use) and the one-shot activation
// and password reset tokens (deleted on redemption). Every table stores a
// single 'token_hash' column; raw tokens never reach the database.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// ----- refresh tokens -----

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh returns userID if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid {
		return 0, sql.ErrNoRows
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// ----- activation tokens -----

// StoreActivation replaces any activation token for the user with a new
// one. Re-registering or resending always invalidates the older token.
func (r *TokenRepo) StoreActivation(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM activation_tokens WHERE user_id=?", userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO activation_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ConsumeActivation looks up a non-expired activation token, deletes it
// and returns the owning user ID. Expired or unknown hashes yield
// sql.ErrNoRows; expired rows are removed on sight so they cannot linger
// until the scheduled sweep.
func (r *TokenRepo) ConsumeActivation(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM activation_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt)
	if err != nil {
		return 0, err
	}
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM activation_tokens WHERE token_hash=?", tokenHash); err != nil {
		return 0, err
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// ----- password reset tokens -----

// StoreReset replaces any password reset token for the user.
func (r *TokenRepo) StoreReset(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM password_reset_tokens WHERE user_id=?", userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ConsumeReset validates and deletes a password reset token, returning
// the owning user ID.
func (r *TokenRepo) ConsumeReset(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM password_reset_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt)
	if err != nil {
		return 0, err
	}
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM password_reset_tokens WHERE token_hash=?", tokenHash); err != nil {
		return 0, err
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// DeleteExpired removes expired activation and password reset tokens.
// The scheduler calls this daily; it returns how many rows went away.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	var total int64
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM activation_tokens WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}
	res, err = r.DB.ExecContext(ctx,
		"DELETE FROM password_reset_tokens WHERE expires_at < ?", now)
	if err != nil {
		return total, err
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}
	return total, nil
}
