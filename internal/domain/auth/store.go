package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/querier"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// AuthUser joins the credential row with the employee fields needed to
// mint a token.
type AuthUser struct {
	ID                  string
	EmployeeID          string
	Email               string
	FullName            string
	PasswordHash        string
	AccessLevel         int
	Active              bool
	ForcePasswordChange bool
	MFAEnabled          bool
	MFASecretEnc        []byte
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.employee_id, u.email, e.full_name, u.password_hash, e.access_level,
           e.is_active, u.force_password_change, u.mfa_enabled, u.mfa_secret_enc
    FROM users u
    JOIN employees e ON u.employee_id = e.id
    WHERE lower(u.email) = lower($1)
  `, email).Scan(&out.ID, &out.EmployeeID, &out.Email, &out.FullName, &out.PasswordHash,
		&out.AccessLevel, &out.Active, &out.ForcePasswordChange, &out.MFAEnabled, &out.MFASecretEnc)
	return out, err
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.employee_id, u.email, e.full_name, u.password_hash, e.access_level,
           e.is_active, u.force_password_change, u.mfa_enabled, u.mfa_secret_enc
    FROM users u
    JOIN employees e ON u.employee_id = e.id
    WHERE u.id = $1
  `, userID).Scan(&out.ID, &out.EmployeeID, &out.Email, &out.FullName, &out.PasswordHash,
		&out.AccessLevel, &out.Active, &out.ForcePasswordChange, &out.MFAEnabled, &out.MFASecretEnc)
	return out, err
}

func (s *Store) CreateSession(ctx context.Context, userID, refreshTokenHash string, expires time.Time) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO sessions (user_id, refresh_token, expires_at)
    VALUES ($1,$2,$3)
    RETURNING id
  `, userID, refreshTokenHash, expires).Scan(&id)
	return id, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, userID, refreshTokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND refresh_token = $2", userID, refreshTokenHash)
	return err
}

func (s *Store) RevokeUserSessions(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
	return err
}

func (s *Store) SessionValid(ctx context.Context, userID, refreshTokenHash string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE user_id = $1 AND refresh_token = $2 AND expires_at > now() AND revoked_at IS NULL
  `, userID, refreshTokenHash).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE sessions
    SET refresh_token = $1, expires_at = $2, rotated_at = now()
    WHERE user_id = $3 AND refresh_token = $4
  `, newHash, expires, userID, oldHash)
	return err
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2
  `, secretEnc, userID)
	return err
}

func (s *Store) GetMFASecret(ctx context.Context, userID string) ([]byte, error) {
	var secretEnc []byte
	if err := s.DB.QueryRow(ctx, "SELECT mfa_secret_enc FROM users WHERE id = $1", userID).Scan(&secretEnc); err != nil {
		return nil, err
	}
	return secretEnc, nil
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}

func (s *Store) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var userID string
	if err := s.DB.QueryRow(ctx, "SELECT id FROM users WHERE lower(email) = lower($1)", email).Scan(&userID); err != nil {
		return "", err
	}
	return userID, nil
}

// CreatePasswordReset stores the hashed lookup token and the hashed
// temporary password side by side. Earlier unused resets for the same
// user are invalidated first so only one temporary password is live.
func (s *Store) CreatePasswordReset(ctx context.Context, userID, tokenHash, tempPasswordHash string, expires time.Time) error {
	if _, err := s.DB.Exec(ctx, `
    UPDATE password_resets SET used_at = now()
    WHERE user_id = $1 AND used_at IS NULL
  `, userID); err != nil {
		return err
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO password_resets (user_id, token, temp_password_hash, expires_at)
    VALUES ($1, $2, $3, $4)
  `, userID, tokenHash, tempPasswordHash, expires)
	return err
}

// ActiveResetTempPassword returns the live temporary password hash for
// a user, if any.
func (s *Store) ActiveResetTempPassword(ctx context.Context, userID string) (string, error) {
	var hash string
	err := s.DB.QueryRow(ctx, `
    SELECT temp_password_hash
    FROM password_resets
    WHERE user_id = $1 AND expires_at > now() AND used_at IS NULL
    ORDER BY created_at DESC
    LIMIT 1
  `, userID).Scan(&hash)
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (s *Store) PasswordResetUserID(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT user_id
    FROM password_resets
    WHERE token = $1 AND expires_at > now() AND used_at IS NULL
  `, tokenHash).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID, hash string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE users SET password_hash = $1, force_password_change = false WHERE id = $2
  `, hash, userID)
	return err
}

func (s *Store) SetForcePasswordChange(ctx context.Context, userID string, force bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET force_password_change = $1 WHERE id = $2", force, userID)
	return err
}

func (s *Store) MarkPasswordResetUsed(ctx context.Context, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE password_resets SET used_at = now() WHERE token = $1", tokenHash)
	return err
}

func (s *Store) MarkUserResetsUsed(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE password_resets SET used_at = now() WHERE user_id = $1 AND used_at IS NULL", userID)
	return err
}

// HasPermission reports whether the access level carries the named
// permission, per the seeded level_permissions mapping.
func (s *Store) HasPermission(ctx context.Context, accessLevel int, permission string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM level_permissions lp
    JOIN permissions p ON lp.permission_id = p.id
    WHERE lp.access_level = $1 AND p.key = $2
  `, accessLevel, permission).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteExpiredSessions removes sessions past their expiry. Run
// periodically by the jobs worker.
func DeleteExpiredSessions(ctx context.Context, q querier.Querier, now time.Time) (int64, error) {
	tag, err := q.Exec(ctx, "DELETE FROM sessions WHERE expires_at < $1", now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredPasswordResets removes reset rows that expired or were
// consumed more than a day ago.
func DeleteExpiredPasswordResets(ctx context.Context, q querier.Querier, now time.Time) (int64, error) {
	tag, err := q.Exec(ctx, `
    DELETE FROM password_resets
    WHERE expires_at < $1 OR used_at < $2
  `, now, now.Add(-24*time.Hour))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
