package sandbox

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const resetTTL = 72 * time.Hour

func (s *Server) register(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	fields := map[string][]string{}
	if strings.TrimSpace(req.Username) == "" {
		fields["username"] = []string{"This field is required."}
	}
	if strings.TrimSpace(req.Email) == "" {
		fields["email"] = []string{"This field is required."}
	}
	if req.Password == "" {
		fields["password"] = []string{"This field is required."}
	}
	if len(fields) > 0 {
		l.Warn("register_failed", "status", 400, "reason", "missing_fields")
		return c.JSON(http.StatusBadRequest, fields)
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, exists := s.st.users[req.Username]; exists {
		l.Warn("register_failed", "status", 400, "reason", "user_exists")
		return c.JSON(http.StatusBadRequest, map[string][]string{
			"username": {"A user with that username already exists."},
		})
	}

	s.st.nextUserID++
	u := &user{
		ID: s.st.nextUserID,
		Profile: models.Profile{
			Username: req.Username,
			Email:    req.Email,
			Phone:    req.Phone,
			AltPhone: req.AltPhone,
			Salon:    req.Salon,
			Address:  req.Address,
			City:     req.City,
		},
		PasswordHash: hash,
	}
	s.st.users[u.Profile.Username] = u

	l.Info("register_success", "status", 201, "username", u.Profile.Username)
	return c.JSON(http.StatusCreated, u.Profile)
}

func (s *Server) login(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	s.st.mu.Lock()
	u := s.st.users[req.Username]
	s.st.mu.Unlock()

	if u == nil || !checkPassword(u.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid username or password")
		return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{
			Detail: "No active account found with the given credentials",
		})
	}

	role := authmw.RoleUser
	if s.isAdmin(u) {
		role = authmw.RoleAdmin
	}
	now := s.now()
	access, err := authmw.SignAccessToken(u.Profile.Username, role, s.secret, now, s.ttl)
	if err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	refresh, err := authmw.SignRefreshToken(u.Profile.Username, role, s.secret, now, 7*s.ttl)
	if err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	l.Info("login_success", "status", 200, "username", u.Profile.Username)
	return c.JSON(http.StatusOK, transport.LoginResponse{Access: access, Refresh: refresh})
}

func (s *Server) currentUser(c echo.Context) *user {
	return s.st.users[authmw.Username(c)]
}

func (s *Server) getProfile(c echo.Context) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	u := s.currentUser(c)
	if u == nil {
		return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Detail: "User not found"})
	}
	return c.JSON(http.StatusOK, u.Profile)
}

type profilePatch struct {
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	AltPhone *string `json:"altPhone"`
	Salon    *string `json:"salon"`
	Address  *string `json:"address"`
	City     *string `json:"city"`
}

func (s *Server) updateProfile(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_update_profile")

	var req profilePatch
	if err := c.Bind(&req); err != nil {
		l.Warn("update_profile_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	u := s.currentUser(c)
	if u == nil {
		return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Detail: "User not found"})
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Profile.Email, req.Email)
	set(&u.Profile.Phone, req.Phone)
	set(&u.Profile.AltPhone, req.AltPhone)
	set(&u.Profile.Salon, req.Salon)
	set(&u.Profile.Address, req.Address)
	set(&u.Profile.City, req.City)

	l.Info("update_profile_success", "status", 200, "username", u.Profile.Username)
	return c.JSON(http.StatusOK, u.Profile)
}

func (s *Server) requestPasswordReset(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_password_reset")

	var req transport.PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	key := req.Username
	if key == "" {
		key = req.Email
	}
	if key == "" {
		return fail(c, http.StatusBadRequest, "username or email is required")
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	u := s.st.users[key]
	if u == nil {
		u = s.st.userByEmail(key)
	}
	if u == nil {
		l.Warn("password_reset_failed", "status", 404)
		return fail(c, http.StatusNotFound, "No user found with this username or email")
	}
	if u.Profile.Email == "" {
		return fail(c, http.StatusBadRequest, "No email address found for this user.")
	}

	token := uuid.NewString()
	uid := base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(u.ID, 10)))
	s.st.resets[token] = resetGrant{UserID: u.ID, Expires: s.now().Add(resetTTL)}

	frontend := req.FrontendURL
	if frontend == "" {
		frontend = "http://localhost:3000"
	}
	s.st.outbox = append(s.st.outbox, Mail{
		To:      u.Profile.Email,
		Subject: "Password Reset Request",
		Body:    strings.TrimRight(frontend, "/") + "/reset-password?uid=" + uid + "&token=" + token,
	})

	l.Info("password_reset_sent", "status", 200, "username", u.Profile.Username)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "A password reset link has been sent to your email."})
}

func (s *Server) confirmPasswordReset(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_password_reset_confirm")

	var req transport.PasswordResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.UID == "" || req.Token == "" || req.NewPassword == "" {
		return fail(c, http.StatusBadRequest, "uid, token, and new_password are required")
	}

	raw, err := base64.RawURLEncoding.DecodeString(req.UID)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid user")
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid user")
	}

	hash, err := s.hashPassword(req.NewPassword)
	if err != nil {
		l.Error("password_reset_confirm_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	u := s.st.userByID(id)
	if u == nil {
		return fail(c, http.StatusBadRequest, "Invalid user")
	}
	grant, ok := s.st.resets[req.Token]
	if !ok || grant.UserID != u.ID || s.now().After(grant.Expires) {
		l.Warn("password_reset_confirm_failed", "status", 400, "reason", "invalid_token")
		return fail(c, http.StatusBadRequest, "Invalid or expired token")
	}
	delete(s.st.resets, req.Token)
	u.PasswordHash = hash

	l.Info("password_reset_confirmed", "status", 200, "username", u.Profile.Username)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Password has been reset successfully."})
}
