package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository         = (*PostgresUserRepo)(nil)
	_ RefreshTokenRepository = (*PostgresRefreshTokenRepo)(nil)
)

const userColumns = `id, username, first_name, last_name, email, phone_number, password_hash, role, avatar_url, is_active, created_at, updated_at`

// PostgresUserRepo implements UserRepository over pgx.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `INSERT INTO users (id, username, first_name, last_name, email, phone_number, password_hash, role, avatar_url, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.AvatarURL,
		user.IsActive,
	)

	created, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	return r.getBy(ctx, "id = $1", userID)
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *PostgresUserRepo) GetByPhone(ctx context.Context, phone string) (domain.User, error) {
	return r.getBy(ctx, "phone_number = $1", phone)
}

func (r *PostgresUserRepo) getBy(ctx context.Context, where string, arg any) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) List(ctx context.Context, params ListParams, role string, isActive *bool) ([]domain.User, int, error) {
	params = params.Normalize()

	where := "TRUE"
	args := []any{}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (username ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d OR phone_number ILIKE $%d)", n, n, n, n)
	}
	if role != "" {
		args = append(args, role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if isActive != nil {
		args = append(args, *isActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	args = append(args, params.PageSize, params.Offset())
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

func (r *PostgresUserRepo) Update(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `UPDATE users
SET username = $2, first_name = $3, last_name = $4, email = $5, avatar_url = $6, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

	updated, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.Username, user.FirstName, user.LastName, user.Email, user.AvatarURL))
	if err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (r *PostgresUserRepo) UpdateRole(ctx context.Context, userID int64, role string) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, userID, role); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) SetActive(ctx context.Context, userID int64, active bool) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, userID, active); err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) ActivateByPhone(ctx context.Context, phone string) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET is_active = TRUE, updated_at = now() WHERE phone_number = $1`, phone); err != nil {
		return fmt.Errorf("activate by phone: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) UpdatePasswordByPhone(ctx context.Context, phone, passwordHash string) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE phone_number = $1`, phone, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&user.AvatarURL,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// PostgresRefreshTokenRepo implements RefreshTokenRepository.
type PostgresRefreshTokenRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRefreshTokenRepo(pool *pgxpool.Pool) *PostgresRefreshTokenRepo {
	return &PostgresRefreshTokenRepo{db: pool}
}

const refreshTokenColumns = `id, user_id, token, expires_at, created_at`

func (r *PostgresRefreshTokenRepo) Create(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error) {
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING ` + refreshTokenColumns

	created, err := scanRefreshToken(r.db.QueryRow(ctx, query, token.ID, token.UserID, token.Token, token.ExpiresAt))
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("create refresh token: %w", err)
	}
	return created, nil
}

func (r *PostgresRefreshTokenRepo) GetByToken(ctx context.Context, token string) (domain.RefreshToken, error) {
	const query = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token = $1 LIMIT 1`
	found, err := scanRefreshToken(r.db.QueryRow(ctx, query, token))
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("get refresh token: %w", err)
	}
	return found, nil
}

func (r *PostgresRefreshTokenRepo) Rotate(ctx context.Context, tokenID int64, token string, expiresAt time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET token = $2, expires_at = $3 WHERE id = $1`, tokenID, token, expiresAt); err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return nil
}

func (r *PostgresRefreshTokenRepo) Delete(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *PostgresRefreshTokenRepo) DeleteForUser(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user refresh tokens: %w", err)
	}
	return nil
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := row.Scan(&token.ID, &token.UserID, &token.Token, &token.ExpiresAt, &token.CreatedAt)
	return token, err
}
