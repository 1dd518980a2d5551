package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"go-contacts-api/internal/auth"
	"go-contacts-api/internal/cache"
	"go-contacts-api/internal/mailer"
	"go-contacts-api/internal/model"
	"go-contacts-api/internal/util"
)

const (
	MsgEmailConfirmed       = "Email confirmed"
	MsgAlreadyConfirmed     = "Your email is already confirmed"
	MsgCheckConfirmation    = "Check your email for confirmation."
	MsgCheckPasswordReset   = "Check your email for update your password."
	MsgResetTokenAccepted   = "We received confirmation for update password"
	MsgPasswordUpdated      = "Password was updated successfully!"
	msgInvalidCredentials   = "Could not validate credentials"
	msgInvalidRefreshToken  = "Invalid refresh token"
	msgAccountAlreadyExists = "Account already exists"
)

// UserStore is the persistence the session flows need.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, user model.User) error
	UpdateRefreshToken(ctx context.Context, userID string, token *string) error
	RotateRefreshToken(ctx context.Context, userID string, presented string, next string) (bool, error)
	ConfirmEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
}

type TokenIssuer interface {
	Issue(subject string, purpose auth.Purpose, ttl time.Duration) (string, error)
	Decode(token string, expected auth.Purpose) (string, error)
}

type CredentialHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext string, hash string) bool
}

type AuthConfig struct {
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	EmailActionTTL time.Duration
	UserCacheTTL   time.Duration
}

func (c AuthConfig) withDefaults() AuthConfig {
	if c.AccessTTL <= 0 {
		c.AccessTTL = 15 * time.Minute
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
	if c.EmailActionTTL <= 0 {
		c.EmailActionTTL = 24 * time.Hour
	}
	if c.UserCacheTTL <= 0 {
		c.UserCacheTTL = cache.DefaultUserTTL
	}
	return c
}

// AuthService drives signup, login, refresh-token rotation and the
// email-token flows (confirmation and password reset).
type AuthService struct {
	users  UserStore
	hasher CredentialHasher
	tokens TokenIssuer
	cache  cache.Store
	mail   mailer.Queue
	cfg    AuthConfig
}

func NewAuthService(users UserStore, hasher CredentialHasher, tokens TokenIssuer, store cache.Store, mail mailer.Queue, cfg AuthConfig) *AuthService {
	if store == nil {
		store = cache.Noop{}
	}
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		cache:  store,
		mail:   mail,
		cfg:    cfg.withDefaults(),
	}
}

func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest, baseURL string) (model.User, error) {
	user, err := s.CreateUser(ctx, req.Username, req.Email, req.Password, model.RoleUser, false)
	if err != nil {
		return model.User{}, err
	}

	s.scheduleEmail(ctx, user, mailer.KindConfirmEmail, auth.PurposeEmailConfirmation, baseURL)
	return user, nil
}

// CreateUser validates and persists a new account and pre-warms the cache.
func (s *AuthService) CreateUser(ctx context.Context, username string, email string, password string, role model.Role, confirmed bool) (model.User, error) {
	username = util.CleanText(username, false)
	email = normalizeEmail(email)

	if err := validateLength(username, "username", minUsernameLen, maxUsernameLen); err != nil {
		return model.User{}, err
	}
	if err := validateEmail(email); err != nil {
		return model.User{}, err
	}
	if err := validatePassword(password, "password"); err != nil {
		return model.User{}, err
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return model.User{}, conflict(msgAccountAlreadyExists)
	case !errors.Is(err, model.ErrUserNotFound):
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.User{}, err
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Confirmed:    confirmed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.User{}, conflict(msgAccountAlreadyExists)
		}
		return model.User{}, err
	}

	s.cacheUser(ctx, user)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (model.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.TokenPair{}, unauthorized("Invalid email")
		}
		return model.TokenPair{}, err
	}
	if !user.Confirmed {
		return model.TokenPair{}, unauthorized("Email not confirmed")
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return model.TokenPair{}, unauthorized("Invalid password")
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.users.UpdateRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return model.TokenPair{}, err
	}

	return pair, nil
}

// Refresh rotates the caller's refresh token. Presenting any token other
// than the one currently stored revokes the session.
func (s *AuthService) Refresh(ctx context.Context, presented string) (model.TokenPair, error) {
	email, err := s.tokens.Decode(presented, auth.PurposeRefresh)
	if err != nil {
		return model.TokenPair{}, unauthorized(msgInvalidCredentials)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.TokenPair{}, unauthorized(msgInvalidCredentials)
		}
		return model.TokenPair{}, err
	}

	if !user.HasRefreshToken(presented) {
		s.revokeRefresh(ctx, user, "stale refresh token presented")
		return model.TokenPair{}, unauthorized(msgInvalidRefreshToken)
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return model.TokenPair{}, err
	}

	rotated, err := s.users.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	if !rotated {
		s.revokeRefresh(ctx, user, "concurrent refresh lost rotation")
		return model.TokenPair{}, unauthorized(msgInvalidRefreshToken)
	}

	return pair, nil
}

// CurrentUser resolves the subject of an access token, reading through the
// user cache.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (model.User, error) {
	email, err := s.tokens.Decode(accessToken, auth.PurposeAccess)
	if err != nil {
		return model.User{}, unauthorized(msgInvalidCredentials)
	}

	if user, ok := s.cachedUser(ctx, email); ok {
		return user, nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.User{}, unauthorized(msgInvalidCredentials)
		}
		return model.User{}, err
	}

	s.cacheUser(ctx, user)
	return user, nil
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (model.Ack, error) {
	user, err := s.userFromActionToken(ctx, token, auth.PurposeEmailConfirmation)
	if err != nil {
		return model.Ack{}, err
	}
	if user.Confirmed {
		return model.Ack{Message: MsgAlreadyConfirmed}, nil
	}

	if err := s.users.ConfirmEmail(ctx, user.Email); err != nil {
		return model.Ack{}, err
	}

	user.Confirmed = true
	s.cacheUser(ctx, user)
	return model.Ack{Message: MsgEmailConfirmed}, nil
}

// RequestConfirmation answers unknown and unconfirmed addresses identically.
func (s *AuthService) RequestConfirmation(ctx context.Context, email string, baseURL string) (model.Ack, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			slog.Debug("confirmation requested for unknown email")
			return model.Ack{Message: MsgCheckConfirmation}, nil
		}
		return model.Ack{}, err
	}
	if user.Confirmed {
		return model.Ack{Message: MsgAlreadyConfirmed}, nil
	}

	s.scheduleEmail(ctx, user, mailer.KindConfirmEmail, auth.PurposeEmailConfirmation, baseURL)
	return model.Ack{Message: MsgCheckConfirmation}, nil
}

func (s *AuthService) RequestPasswordReset(ctx context.Context, email string, baseURL string) (model.Ack, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			slog.Debug("password reset requested for unknown email")
			return model.Ack{Message: MsgCheckPasswordReset}, nil
		}
		return model.Ack{}, err
	}

	s.scheduleEmail(ctx, user, mailer.KindResetPassword, auth.PurposePasswordReset, baseURL)
	return model.Ack{Message: MsgCheckPasswordReset}, nil
}

// CheckResetToken validates a reset link before the new password is posted.
func (s *AuthService) CheckResetToken(ctx context.Context, token string) (model.Ack, error) {
	if _, err := s.userFromActionToken(ctx, token, auth.PurposePasswordReset); err != nil {
		return model.Ack{}, err
	}
	return model.Ack{Message: MsgResetTokenAccepted}, nil
}

func (s *AuthService) CompletePasswordReset(ctx context.Context, token string, req model.ResetPasswordRequest) (model.Ack, error) {
	user, err := s.userFromActionToken(ctx, token, auth.PurposePasswordReset)
	if err != nil {
		return model.Ack{}, err
	}
	if req.Password1 != req.Password2 {
		return model.Ack{}, passwordMismatch()
	}
	if err := validatePassword(req.Password1, "password1"); err != nil {
		return model.Ack{}, err
	}

	hash, err := s.hasher.Hash(req.Password1)
	if err != nil {
		return model.Ack{}, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return model.Ack{}, err
	}

	user.PasswordHash = hash
	user.RefreshToken = nil
	s.cacheUser(ctx, user)
	return model.Ack{Message: MsgPasswordUpdated}, nil
}

func (s *AuthService) userFromActionToken(ctx context.Context, token string, purpose auth.Purpose) (model.User, error) {
	email, err := s.tokens.Decode(token, purpose)
	if err != nil {
		return model.User{}, verificationFailed()
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.User{}, verificationFailed()
		}
		return model.User{}, err
	}
	return user, nil
}

func (s *AuthService) issuePair(subject string) (model.TokenPair, error) {
	access, err := s.tokens.Issue(subject, auth.PurposeAccess, s.cfg.AccessTTL)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := s.tokens.Issue(subject, auth.PurposeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *AuthService) revokeRefresh(ctx context.Context, user model.User, reason string) {
	slog.Warn("revoking refresh token", "user_id", user.ID, "reason", reason)
	if err := s.users.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
		slog.Error("failed to revoke refresh token", "user_id", user.ID, "error", err)
	}
}

// scheduleEmail hands the message to the queue; delivery problems never
// fail the calling request.
func (s *AuthService) scheduleEmail(ctx context.Context, user model.User, kind mailer.Kind, purpose auth.Purpose, baseURL string) {
	if s.mail == nil {
		return
	}

	token, err := s.tokens.Issue(user.Email, purpose, s.cfg.EmailActionTTL)
	if err != nil {
		slog.Error("failed to issue email action token", "kind", kind, "error", err)
		return
	}

	msg := mailer.Message{Kind: kind, To: user.Email, Username: user.Username, BaseURL: baseURL, Token: token}
	if err := s.mail.Enqueue(ctx, msg); err != nil {
		slog.Warn("email not scheduled", "kind", kind, "to", user.Email, "error", err)
	}
}

func cacheKey(email string) string {
	return "user:" + email
}

func (s *AuthService) cachedUser(ctx context.Context, email string) (model.User, bool) {
	raw, ok, err := s.cache.Get(ctx, cacheKey(email))
	if err != nil {
		slog.Warn("user cache read failed", "error", err)
		return model.User{}, false
	}
	if !ok {
		return model.User{}, false
	}

	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		slog.Warn("user cache entry unreadable", "error", err)
		return model.User{}, false
	}
	return user, true
}

// cacheUser stores the public snapshot; secrets are excluded by the json tags.
func (s *AuthService) cacheUser(ctx context.Context, user model.User) {
	raw, err := json.Marshal(user)
	if err != nil {
		slog.Warn("user cache encode failed", "error", err)
		return
	}
	if err := s.cache.Set(ctx, cacheKey(user.Email), raw, s.cfg.UserCacheTTL); err != nil {
		slog.Warn("user cache write failed", "error", err)
	}
}
