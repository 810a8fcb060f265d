package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/kinder-market/internal/config"
	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/repository"
	"github.com/iliyamo/kinder-market/internal/service"
	"github.com/iliyamo/kinder-market/internal/utils"
)

const minPasswordLen = 8

// Users is the account storage used by AuthHandler; *repository.UserRepo
// implements it.
type Users interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Organizations is implemented by *repository.OrganizationRepo.
type Organizations interface {
	GetByID(ctx context.Context, id uint64) (model.Organization, error)
}

// Tokens is implemented by *repository.TokenRepo.
type Tokens interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AccountCloser deletes a member and everything they own.
type AccountCloser interface {
	DeleteAccount(ctx context.Context, a service.Actor) error
}

// AuthHandler serves registration, sessions and the member profile.
type AuthHandler struct {
	Cfg           config.Config
	Users         Users
	Organizations Organizations
	Tokens        Tokens
	Accounts      AccountCloser
	Log           *zap.Logger
}

// NewAuthHandler wires an AuthHandler.
func NewAuthHandler(cfg config.Config, u Users, o Organizations, t Tokens, acc AccountCloser, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Organizations: o, Tokens: t, Accounts: acc, Log: log}
}

type registerReq struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	OrganizationID uint64 `json:"organization_id"`
	EnrollmentCode string `json:"enrollment_code"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID             uint64  `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	DisplayName    *string `json:"display_name"`
	OrganizationID *uint64 `json:"organization_id"`
	Role           string  `json:"role"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		DisplayName:    u.DisplayName,
		OrganizationID: u.OrganizationID,
		Role:           u.Role(),
	}
}

func (r *registerReq) validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.EnrollmentCode = strings.TrimSpace(r.EnrollmentCode)
	switch {
	case r.Email == "" || !strings.Contains(r.Email, "@"):
		return &service.ValidationError{Field: "email", Message: "a valid email is required"}
	case utf8.RuneCountInString(r.Password) < minPasswordLen:
		return &service.ValidationError{Field: "password", Message: "must be at least 8 characters"}
	case r.Name == "":
		return &service.ValidationError{Field: "name", Message: "is required"}
	case r.OrganizationID == 0:
		return &service.ValidationError{Field: "organization_id", Message: "is required"}
	case r.EnrollmentCode == "":
		return &service.ValidationError{Field: "enrollment_code", Message: "is required"}
	}
	return nil
}

// issue creates a token pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role(), h.Cfg.AccessTTL)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTL)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    toUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// Register creates a member of an organization and returns a token pair.
// The enrollment code must match the chosen organization.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	org, err := h.Organizations.GetByID(ctx, req.OrganizationID)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		return respondError(c, h.Log, err)
	}
	if err != nil || org.EnrollmentCode != req.EnrollmentCode {
		return respondError(c, h.Log, &service.ValidationError{Field: "enrollment_code", Message: "does not match the organization"})
	}

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Email:          req.Email,
		Name:           req.Name,
		DisplayName:    req.DisplayName,
		Password:       req.Password,
		OrganizationID: org.ID,
	}, h.Cfg.BcryptCost)
	if errors.Is(err, service.ErrDuplicate) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a live refresh token for a new pair.  The presented
// token is revoked.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now().UTC())
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return respondError(c, h.Log, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, service.ErrNotFound) || (err == nil && !u.IsActive) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every token of the
// authenticated user when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw != "" {
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return respondError(c, h.Log, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated member with their organization.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	resp := echo.Map{"user": toUserPart(u)}
	if u.OrganizationID != nil {
		org, err := h.Organizations.GetByID(ctx, *u.OrganizationID)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		resp["organization"] = echo.Map{
			"id":         org.ID,
			"name":       org.Name,
			"zip_code":   org.ZipCode,
			"prefecture": org.Prefecture,
			"address":    org.Address,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteMe closes the authenticated member's account.
func (h *AuthHandler) DeleteMe(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Accounts.DeleteAccount(c.Request().Context(), service.ActorFor(u)); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
