package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/store"
	"github.com/Skotchmaster/storefront/internal/transport"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
	phonePattern    = regexp.MustCompile(`^\d{10}$`)
)

// SessionListener is called after the session is established or cleared.
// s is nil on logout.
type SessionListener func(ctx context.Context, s *models.Session)

type AuthService struct {
	api   AuthAPI
	store store.Store
	admin string
	log   *slog.Logger
	now   func() time.Time

	mu        sync.Mutex
	session   *models.Session
	listeners []SessionListener
}

func NewAuthService(api AuthAPI, st store.Store, adminUsername string, log *slog.Logger) *AuthService {
	return &AuthService{
		api:   api,
		store: st,
		admin: adminUsername,
		log:   log.With("component", "auth"),
		now:   time.Now,
	}
}

// OnSessionChange registers fn. Listeners run synchronously in registration
// order, outside the manager's lock.
func (a *AuthService) OnSessionChange(fn SessionListener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Session returns a copy of the current session, or nil.
func (a *AuthService) Session() *models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil
	}
	cp := *a.session
	return &cp
}

func (a *AuthService) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.Token
}

// ValidateRegistration checks the fields the backend would reject, without
// any network call.
func ValidateRegistration(req transport.RegisterRequest) error {
	var fields []apperr.FieldError
	add := func(field, msg string) {
		fields = append(fields, apperr.FieldError{Field: field, Message: msg})
	}

	switch {
	case req.Username == "":
		add("username", "is required")
	case !usernamePattern.MatchString(req.Username):
		add("username", "must start with a letter and contain only letters and digits")
	}
	if req.Password == "" {
		add("password", "is required")
	}
	if req.Email == "" {
		add("email", "is required")
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		add("email", "is not a valid address")
	}
	switch {
	case req.Phone == "":
		add("phone", "is required")
	case !phonePattern.MatchString(req.Phone):
		add("phone", "must be exactly 10 digits")
	}
	if req.AltPhone != "" && !phonePattern.MatchString(req.AltPhone) {
		add("altPhone", "must be exactly 10 digits")
	}

	if len(fields) > 0 {
		return apperr.Validation("auth.register", "registration details are invalid", fields...)
	}
	return nil
}

// Register creates the account and logs in with the same credentials.
func (a *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.AltPhone = strings.TrimSpace(req.AltPhone)

	if err := ValidateRegistration(req); err != nil {
		return nil, err
	}
	if err := a.api.Register(ctx, req); err != nil {
		a.log.Warn("register_failed", "username", req.Username, "error", err)
		return nil, err
	}
	a.log.Info("register_success", "username", req.Username)
	return a.Login(ctx, req.Username, req.Password)
}

func (a *AuthService) Login(ctx context.Context, username, password string) (*models.Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, apperr.Validation("auth.login", "username and password are required")
	}

	token, err := a.api.Login(ctx, username, password)
	if err != nil {
		a.log.Warn("login_failed", "username", username, "error", err)
		return nil, err
	}
	if err := a.store.Set(ctx, store.KeyToken, []byte(token)); err != nil {
		a.log.Error("token_persist_failed", "error", err)
	}

	profile, err := a.api.GetProfile(ctx, token)
	if err != nil {
		a.log.Warn("profile_fetch_failed", "username", username, "error", err)
		a.clear(ctx)
		return nil, err
	}

	s := a.establish(ctx, token, *profile)
	a.log.Info("login_success", "username", s.Username(), "admin", s.IsAdmin())
	return s, nil
}

// Logout drops the session and the persisted token. No remote call is made.
func (a *AuthService) Logout(ctx context.Context) {
	a.clear(ctx)
	a.log.Info("logout")
}

// Profile returns the profile of the current session.
func (a *AuthService) Profile() (*models.Profile, error) {
	s := a.Session()
	if s == nil {
		return nil, apperr.Auth("auth.profile", "not signed in")
	}
	return &s.Profile, nil
}

// UpdateProfile sends the editable fields and replaces the stored profile
// with the server's copy.
func (a *AuthService) UpdateProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	const op = "auth.update_profile"

	s := a.Session()
	if s == nil {
		return nil, apperr.Auth(op, "not signed in")
	}
	var fields []apperr.FieldError
	if p.Phone != "" && !phonePattern.MatchString(p.Phone) {
		fields = append(fields, apperr.FieldError{Field: "phone", Message: "must be exactly 10 digits"})
	}
	if p.AltPhone != "" && !phonePattern.MatchString(p.AltPhone) {
		fields = append(fields, apperr.FieldError{Field: "altPhone", Message: "must be exactly 10 digits"})
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			fields = append(fields, apperr.FieldError{Field: "email", Message: "is not a valid address"})
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(op, "profile details are invalid", fields...)
	}

	p.Username = s.Username()
	updated, err := a.api.UpdateProfile(ctx, s.Token, p)
	if err != nil {
		a.log.Warn("update_profile_failed", "error", err)
		return nil, err
	}

	a.mu.Lock()
	if a.session != nil && a.session.Token == s.Token {
		a.session.Profile = *updated
	}
	a.mu.Unlock()

	a.log.Info("update_profile_success", "username", updated.Username)
	return updated, nil
}

// Bootstrap restores the session from the persisted token. Every failure
// leaves the manager signed out; none is returned.
func (a *AuthService) Bootstrap(ctx context.Context) *models.Session {
	raw, err := a.store.Get(ctx, store.KeyToken)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.log.Warn("token_load_failed", "error", err)
		}
		return nil
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return nil
	}

	if expired(token, a.now()) {
		a.log.Info("bootstrap_token_expired")
		a.clear(ctx)
		return nil
	}

	profile, err := a.api.GetProfile(ctx, token)
	if err != nil {
		a.log.Warn("bootstrap_profile_failed", "error", err)
		a.clear(ctx)
		return nil
	}

	s := a.establish(ctx, token, *profile)
	a.log.Info("bootstrap_success", "username", s.Username())
	return s
}

func (a *AuthService) RequestPasswordReset(ctx context.Context, usernameOrEmail, frontendURL string) (string, error) {
	usernameOrEmail = strings.TrimSpace(usernameOrEmail)
	if usernameOrEmail == "" {
		return "", apperr.Validation("auth.password_reset", "username or email is required")
	}
	req := transport.PasswordResetRequest{FrontendURL: frontendURL}
	if strings.Contains(usernameOrEmail, "@") {
		req.Email = usernameOrEmail
	} else {
		req.Username = usernameOrEmail
	}
	return a.api.RequestPasswordReset(ctx, req)
}

func (a *AuthService) ConfirmPasswordReset(ctx context.Context, uid, token, newPassword string) (string, error) {
	if uid == "" || token == "" || newPassword == "" {
		return "", apperr.Validation("auth.password_reset_confirm", "uid, token and new password are required")
	}
	return a.api.ConfirmPasswordReset(ctx, transport.PasswordResetConfirmRequest{
		UID:         uid,
		Token:       token,
		NewPassword: newPassword,
	})
}

func (a *AuthService) establish(ctx context.Context, token string, profile models.Profile) *models.Session {
	s := models.NewSession(token, profile, a.admin)

	a.mu.Lock()
	a.session = s
	listeners := append([]SessionListener(nil), a.listeners...)
	a.mu.Unlock()

	cp := *s
	for _, fn := range listeners {
		fn(ctx, &cp)
	}
	return &cp
}

func (a *AuthService) clear(ctx context.Context) {
	a.mu.Lock()
	had := a.session != nil
	a.session = nil
	listeners := append([]SessionListener(nil), a.listeners...)
	a.mu.Unlock()

	if err := a.store.Delete(ctx, store.KeyToken); err != nil && !errors.Is(err, store.ErrNotFound) {
		a.log.Warn("token_delete_failed", "error", err)
	}
	if had {
		for _, fn := range listeners {
			fn(ctx, nil)
		}
	}
}

// expired reports whether token is a JWT whose exp claim has passed. Tokens
// that are not JWTs, or carry no exp, are left for the server to judge.
func expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}
