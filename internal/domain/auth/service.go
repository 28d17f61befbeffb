package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/config"
	cryptoutil "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/crypto"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/email"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrMFAUnavailable     = errors.New("mfa requires encryption key")
	ErrMFANotConfigured   = errors.New("mfa setup required")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// PolicyError carries every password policy violation so the API can
// report them together.
type PolicyError struct {
	Problems []string
}

func (e *PolicyError) Error() string {
	return strings.Join(e.Problems, "; ")
}

const totpIssuer = "Datarhaya HR"

type Service struct {
	Store  *Store
	Crypto *cryptoutil.Service
	Mailer email.Mailer
	Cfg    config.Config
}

func NewService(store *Store, crypto *cryptoutil.Service, mailer email.Mailer, cfg config.Config) *Service {
	return &Service{Store: store, Crypto: crypto, Mailer: mailer, Cfg: cfg}
}

type LoginResult struct {
	Token               string
	User                AuthUser
	ForcePasswordChange bool
}

// Login verifies credentials, honors a live temporary password, checks
// MFA, and issues a session-backed token. A temporary password login
// consumes the reset and forces a password change.
func (s *Service) Login(ctx context.Context, emailAddr, password, mfaCode string) (LoginResult, error) {
	user, err := s.Store.FindUserByEmail(ctx, emailAddr)
	if errors.Is(err, pgx.ErrNoRows) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !user.Active {
		return LoginResult{}, ErrUserDisabled
	}

	usedTempPassword := false
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		tempHash, tempErr := s.Store.ActiveResetTempPassword(ctx, user.ID)
		if tempErr != nil || CheckPassword(tempHash, password) != nil {
			return LoginResult{}, ErrInvalidCredentials
		}
		usedTempPassword = true
	}

	if user.MFAEnabled && !usedTempPassword {
		if err := s.checkMFACode(user.MFASecretEnc, mfaCode); err != nil {
			return LoginResult{}, err
		}
	}

	if usedTempPassword {
		if err := s.Store.MarkUserResetsUsed(ctx, user.ID); err != nil {
			return LoginResult{}, err
		}
		if err := s.Store.SetForcePasswordChange(ctx, user.ID, true); err != nil {
			return LoginResult{}, err
		}
		user.ForcePasswordChange = true
	}

	token, err := s.issueToken(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}

	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}

	return LoginResult{Token: token, User: user, ForcePasswordChange: user.ForcePasswordChange}, nil
}

func (s *Service) issueToken(ctx context.Context, user AuthUser) (string, error) {
	sessionID, err := NewToken()
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(s.Cfg.SessionTTL)
	if _, err := s.Store.CreateSession(ctx, user.ID, HashToken(sessionID), expires); err != nil {
		return "", err
	}
	return GenerateToken(s.Cfg.JWTSecret, Claims{
		UserID:      user.ID,
		EmployeeID:  user.EmployeeID,
		AccessLevel: user.AccessLevel,
		SessionID:   sessionID,
	}, s.Cfg.SessionTTL)
}

func (s *Service) Logout(ctx context.Context, user UserContext) {
	if user.SessionID == "" {
		return
	}
	if err := s.Store.RevokeSession(ctx, user.UserID, HashToken(user.SessionID)); err != nil {
		slog.Warn("logout session revoke failed", "userId", user.UserID, "err", err)
	}
}

// Refresh rotates the session behind valid claims and returns a fresh
// token. Expired or revoked sessions yield ErrSessionExpired.
func (s *Service) Refresh(ctx context.Context, claims *Claims) (string, error) {
	valid, err := s.Store.SessionValid(ctx, claims.UserID, HashToken(claims.SessionID))
	if err != nil || !valid {
		return "", ErrSessionExpired
	}

	newSessionID, err := NewToken()
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(s.Cfg.SessionTTL)
	if err := s.Store.RotateSession(ctx, claims.UserID, HashToken(claims.SessionID), HashToken(newSessionID), expires); err != nil {
		return "", err
	}

	return GenerateToken(s.Cfg.JWTSecret, Claims{
		UserID:      claims.UserID,
		EmployeeID:  claims.EmployeeID,
		AccessLevel: claims.AccessLevel,
		SessionID:   newSessionID,
	}, s.Cfg.SessionTTL)
}

// StartPasswordReset issues a temporary password valid for 24 hours
// and mails it to the user. Unknown emails return nil so the endpoint
// does not leak which addresses exist.
func (s *Service) StartPasswordReset(ctx context.Context, emailAddr string) error {
	user, err := s.Store.FindUserByEmail(ctx, emailAddr)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.createReset(ctx, user)
	return err
}

// AdminResetPassword issues a temporary password for any user and
// returns it so an administrator can hand it over out of band.
func (s *Service) AdminResetPassword(ctx context.Context, userID string) (string, error) {
	user, err := s.Store.FindUserByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", pgx.ErrNoRows
	}
	if err != nil {
		return "", err
	}
	return s.createReset(ctx, user)
}

func (s *Service) createReset(ctx context.Context, user AuthUser) (string, error) {
	tempPassword, err := GenerateTempPassword(12)
	if err != nil {
		return "", err
	}
	tempHash, err := HashPassword(tempPassword)
	if err != nil {
		return "", err
	}
	token, err := NewToken()
	if err != nil {
		return "", err
	}

	expires := time.Now().Add(24 * time.Hour)
	if err := s.Store.CreatePasswordReset(ctx, user.ID, HashToken(token), tempHash, expires); err != nil {
		return "", err
	}

	subject, body := resetEmail(user.FullName, user.Email, tempPassword, s.resetLink(token))
	if err := s.Mailer.Send(ctx, s.Cfg.EmailFrom, user.Email, subject, body); err != nil {
		slog.Warn("password reset email failed", "userId", user.ID, "err", err)
	}
	return tempPassword, nil
}

func (s *Service) resetLink(token string) string {
	base := strings.TrimRight(s.Cfg.ResetBaseURL, "/")
	return fmt.Sprintf("%s/reset?token=%s", base, url.QueryEscape(token))
}

// ResetWithToken sets a new password using the emailed reset token.
func (s *Service) ResetWithToken(ctx context.Context, token, newPassword string) error {
	userID, err := s.Store.PasswordResetUserID(ctx, HashToken(token))
	if err != nil {
		return ErrInvalidResetToken
	}

	if problems := ValidatePassword(newPassword); len(problems) > 0 {
		return &PolicyError{Problems: problems}
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.Store.MarkPasswordResetUsed(ctx, HashToken(token)); err != nil {
		slog.Warn("password reset mark used failed", "err", err)
	}
	if err := s.Store.RevokeUserSessions(ctx, userID); err != nil {
		slog.Warn("session revoke after reset failed", "userId", userID, "err", err)
	}
	return nil
}

// ChangePassword verifies the current password, enforces the policy,
// and revokes other sessions.
func (s *Service) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	user, err := s.Store.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if problems := ValidatePassword(newPassword); len(problems) > 0 {
		return &PolicyError{Problems: problems}
	}
	if newPassword == current {
		return &PolicyError{Problems: []string{"new password must differ from the current password"}}
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.Store.RevokeUserSessions(ctx, userID); err != nil {
		slog.Warn("session revoke after password change failed", "userId", userID, "err", err)
	}
	return nil
}

// SetupMFA generates and stores a fresh TOTP secret; it stays disabled
// until the first code is verified.
func (s *Service) SetupMFA(ctx context.Context, userID string) (secret, otpauthURL string, err error) {
	if s.Crypto == nil || !s.Crypto.Configured() {
		return "", "", ErrMFAUnavailable
	}
	user, err := s.Store.FindUserByID(ctx, userID)
	if err != nil {
		return "", "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return "", "", err
	}
	encrypted, err := s.Crypto.EncryptString(key.Secret())
	if err != nil {
		return "", "", err
	}
	if err := s.Store.UpdateMFASecret(ctx, userID, encrypted); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func (s *Service) EnableMFA(ctx context.Context, userID, code string) error {
	if err := s.verifyStoredMFACode(ctx, userID, code); err != nil {
		return err
	}
	return s.Store.SetMFAEnabled(ctx, userID, true)
}

func (s *Service) DisableMFA(ctx context.Context, userID, code string) error {
	if err := s.verifyStoredMFACode(ctx, userID, code); err != nil {
		return err
	}
	return s.Store.SetMFAEnabled(ctx, userID, false)
}

func (s *Service) verifyStoredMFACode(ctx context.Context, userID, code string) error {
	if s.Crypto == nil || !s.Crypto.Configured() {
		return ErrMFAUnavailable
	}
	secretEnc, err := s.Store.GetMFASecret(ctx, userID)
	if err != nil || len(secretEnc) == 0 {
		return ErrMFANotConfigured
	}
	secret, err := s.Crypto.DecryptString(secretEnc)
	if err != nil {
		return ErrMFAInvalid
	}
	if !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return nil
}

func (s *Service) checkMFACode(secretEnc []byte, code string) error {
	if code == "" {
		return ErrMFARequired
	}
	secret := ""
	if s.Crypto != nil && s.Crypto.Configured() {
		decoded, err := s.Crypto.DecryptString(secretEnc)
		if err != nil {
			return ErrMFAInvalid
		}
		secret = decoded
	} else {
		secret = string(secretEnc)
	}
	if secret == "" || !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return nil
}

func resetEmail(fullName, emailAddr, tempPassword, resetLink string) (subject, body string) {
	subject = "Password Reset - Datarhaya HR System"
	body = fmt.Sprintf(`Hello %s,

You have requested a password reset for your HR account.

TEMPORARY PASSWORD: %s

IMPORTANT:
- This temporary password expires in 24 hours
- It can only be used once
- You must change your password on first login
- Your old password remains active until the temporary one is used
- Contact HR immediately if you did not request this reset

HOW TO USE:
1. Go to the HR system login page
2. Email: %s
3. Password: %s
4. Set a new password when prompted

You can also pick a new password directly:
%s

---
This is an automated message from the Datarhaya HR system.
Do not reply to this email.
`, fullName, tempPassword, emailAddr, tempPassword, resetLink)
	return subject, body
}
