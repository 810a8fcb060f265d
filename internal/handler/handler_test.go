package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/kinder-market/internal/config"
	"github.com/iliyamo/kinder-market/internal/middleware"
	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/repository"
	"github.com/iliyamo/kinder-market/internal/service"
	"github.com/iliyamo/kinder-market/internal/utils"
)

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&service.ValidationError{Field: "price", Message: "bad"}, http.StatusBadRequest},
		{service.ErrAuthorization, http.StatusForbidden},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidState, http.StatusConflict},
		{service.ErrSelfDealing, http.StatusUnprocessableEntity},
		{echo.NewHTTPError(http.StatusUnauthorized, "unauthorized"), http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		c, rec := newContext(http.MethodGet, "/v1/listings/1", "")
		if err := respondError(c, zap.NewNop(), tc.err); err != nil {
			t.Fatal(err)
		}
		if rec.Code != tc.status {
			t.Errorf("%v: status %d, want %d", tc.err, rec.Code, tc.status)
		}
	}

	c, rec := newContext(http.MethodGet, "/", "")
	_ = respondError(c, zap.NewNop(), errors.New("db: secret detail"))
	if got := decode(t, rec)["error"]; got != internalErrorMessage {
		t.Fatalf("500 body leaks %v", got)
	}

	c, rec = newContext(http.MethodGet, "/", "")
	_ = respondError(c, zap.NewNop(), &service.ValidationError{Field: "price", Message: "must be a whole number"})
	if body := decode(t, rec); body["field"] != "price" {
		t.Fatalf("validation body = %v", body)
	}
}

func TestGetUserID(t *testing.T) {
	for _, v := range []any{uint64(5), 5, "5", float64(5)} {
		c, _ := newContext(http.MethodGet, "/", "")
		c.Set(middleware.ContextUserID, v)
		if id, err := getUserID(c); err != nil || id != 5 {
			t.Errorf("%T: %d, %v", v, id, err)
		}
	}
	for _, v := range []any{nil, "abc", 0} {
		c, _ := newContext(http.MethodGet, "/", "")
		if v != nil {
			c.Set(middleware.ContextUserID, v)
		}
		if _, err := getUserID(c); err == nil {
			t.Errorf("%v accepted", v)
		}
	}
}

func TestPathID(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("12")
	if id, err := pathID(c, "id"); err != nil || id != 12 {
		t.Fatalf("id = %d, %v", id, err)
	}
	c.SetParamValues("x")
	if _, err := pathID(c, "id"); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestRawFilter(t *testing.T) {
	q, _ := url.ParseQuery("keyword=coat&category=1,2&category=3&size=90&condition=1&price_min=100&page=2")
	got := rawFilter(q)
	want := service.RawFilter{
		Keyword:    "coat",
		Categories: []string{"1,2", "3"},
		PriceMin:   "100",
		Sizes:      []string{"90"},
		Conditions: []string{"1"},
		Page:       "2",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("raw filter = %+v", got)
	}
}

type fakeUsers struct {
	byID    map[uint64]model.User
	created []repository.NewUser
}

func (f *fakeUsers) UserByID(ctx context.Context, id uint64) (model.User, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, service.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, service.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, nu repository.NewUser, cost int) (uint64, error) {
	if _, err := f.GetByEmail(context.Background(), nu.Email); err == nil {
		return 0, service.ErrDuplicate
	}
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	id := uint64(len(f.byID) + 1)
	org := nu.OrganizationID
	f.byID[id] = model.User{ID: id, Email: nu.Email, Name: nu.Name, OrganizationID: &org, PasswordHash: hash, IsActive: true}
	f.created = append(f.created, nu)
	return id, nil
}

type fakeOrgs map[uint64]model.Organization

func (f fakeOrgs) GetByID(_ context.Context, id uint64) (model.Organization, error) {
	o, ok := f[id]
	if !ok {
		return model.Organization{}, service.ErrNotFound
	}
	return o, nil
}

type fakeTokens struct {
	live    map[string]uint64
	revoked []string
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.live[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string, _ time.Time) (uint64, error) {
	id, ok := f.live[hash]
	if !ok {
		return 0, service.ErrNotFound
	}
	return id, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	delete(f.live, hash)
	f.revoked = append(f.revoked, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	for h, id := range f.live {
		if id == userID {
			delete(f.live, h)
		}
	}
	return nil
}

func newAuth() (*AuthHandler, *fakeUsers, *fakeTokens) {
	users := &fakeUsers{byID: map[uint64]model.User{}}
	tokens := &fakeTokens{live: map[string]uint64{}}
	orgs := fakeOrgs{3: {ID: 3, Name: "Sakura", EnrollmentCode: "SAKURA-24"}}
	cfg := config.Config{JWTSecret: "secret", AccessTTL: time.Minute, RefreshTTL: time.Hour, BcryptCost: bcrypt.MinCost}
	return NewAuthHandler(cfg, users, orgs, tokens, nil, zap.NewNop()), users, tokens
}

func TestRegister(t *testing.T) {
	h, users, tokens := newAuth()

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"short password", `{"email":"a@example.com","password":"short","name":"A","organization_id":3,"enrollment_code":"SAKURA-24"}`, 400, "password"},
		{"missing name", `{"email":"a@example.com","password":"longenough","organization_id":3,"enrollment_code":"SAKURA-24"}`, 400, "name"},
		{"wrong code", `{"email":"a@example.com","password":"longenough","name":"A","organization_id":3,"enrollment_code":"nope"}`, 400, "enrollment_code"},
		{"unknown organization", `{"email":"a@example.com","password":"longenough","name":"A","organization_id":9,"enrollment_code":"SAKURA-24"}`, 400, "enrollment_code"},
		{"ok", `{"email":" A@Example.com ","password":"longenough","name":"A","organization_id":3,"enrollment_code":"SAKURA-24"}`, 201, ""},
		{"duplicate", `{"email":"a@example.com","password":"longenough","name":"B","organization_id":3,"enrollment_code":"SAKURA-24"}`, 409, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/v1/auth/register", tc.body)
			if err := h.Register(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tc.status {
				t.Fatalf("status %d, want %d: %s", rec.Code, tc.status, rec.Body.String())
			}
			if tc.field != "" {
				if got := decode(t, rec)["field"]; got != tc.field {
					t.Fatalf("field = %v, want %s", got, tc.field)
				}
			}
		})
	}
	if len(users.created) != 1 || users.created[0].Email != "a@example.com" {
		t.Fatalf("created = %+v", users.created)
	}
	if len(tokens.live) != 1 {
		t.Fatalf("stored %d refresh tokens", len(tokens.live))
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	h, users, tokens := newAuth()
	if _, err := users.Create(context.Background(), repository.NewUser{Email: "m@example.com", Name: "M", Password: "longenough", OrganizationID: 3}, bcrypt.MinCost); err != nil {
		t.Fatal(err)
	}

	c, rec := newContext(http.MethodPost, "/v1/auth/login", `{"email":"m@example.com","password":"wrong-pass"}`)
	_ = h.Login(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}

	c, rec = newContext(http.MethodPost, "/v1/auth/login", `{"email":"M@example.com","password":"longenough"}`)
	_ = h.Login(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var resp authResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if claims, err := utils.ParseAccessToken("secret", resp.Access.Token); err != nil || claims.UserID != resp.User.ID || claims.Role != model.RoleMember {
		t.Fatalf("access claims = %+v, %v", claims, err)
	}

	c, rec = newContext(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+resp.Refresh.Token+`"}`)
	_ = h.Refresh(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d", rec.Code)
	}
	c, rec = newContext(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+resp.Refresh.Token+`"}`)
	_ = h.Refresh(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: %d", rec.Code)
	}

	c, rec = newContext(http.MethodPost, "/v1/auth/logout", "")
	c.Set(middleware.ContextUserID, resp.User.ID)
	_ = h.Logout(c)
	if rec.Code != http.StatusNoContent || len(tokens.live) != 0 {
		t.Fatalf("logout: %d, %d live tokens", rec.Code, len(tokens.live))
	}
}

func TestLoadActor(t *testing.T) {
	org := uint64(3)
	users := &fakeUsers{byID: map[uint64]model.User{
		1: {ID: 1, OrganizationID: &org, IsActive: true, IsStaff: true},
		2: {ID: 2, OrganizationID: &org},
	}}

	c, _ := newContext(http.MethodGet, "/", "")
	c.Set(middleware.ContextUserID, uint64(1))
	a, err := loadActor(c, users)
	if err != nil || a.UserID != 1 || !a.Staff || *a.OrganizationID != 3 {
		t.Fatalf("actor = %+v, %v", a, err)
	}

	for _, id := range []uint64{2, 99} {
		c, _ := newContext(http.MethodGet, "/", "")
		c.Set(middleware.ContextUserID, id)
		var he *echo.HTTPError
		if _, err := loadActor(c, users); !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
			t.Errorf("user %d: err = %v", id, err)
		}
	}
}
