package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kinder-market/internal/config"
	"github.com/iliyamo/kinder-market/internal/utils"
)

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	var gotID any
	var gotRole any
	e.GET("/me", func(c echo.Context) error {
		gotID, gotRole = c.Get(ContextUserID), c.Get(ContextRole)
		return ok(c)
	}, JWTAuth("secret"))

	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	if rec := serve(e, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}

	at, err := utils.NewAccessToken("secret", 17, "MEMBER", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	if rec := serve(e, req); rec.Code != http.StatusOK {
		t.Fatalf("valid token: %d", rec.Code)
	}
	if gotID != uint64(17) || gotRole != "MEMBER" {
		t.Fatalf("context = %v %v", gotID, gotRole)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	setRole := func(role any) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if role != nil {
					c.Set(ContextRole, role)
				}
				return next(c)
			}
		}
	}
	e.GET("/staff", ok, setRole("STAFF"), RequireRole("STAFF"))
	e.GET("/member", ok, setRole("MEMBER"), RequireRole("STAFF"))
	e.GET("/none", ok, setRole(nil), RequireRole("STAFF"))

	for path, want := range map[string]int{"/staff": 200, "/member": 403, "/none": 403} {
		if rec := serve(e, httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != want {
			t.Errorf("%s: %d, want %d", path, rec.Code, want)
		}
	}
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/listings?page=2", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/listings")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	if got := rateKey(cfg, c); got != "rl:ip:10.0.0.1:user:anon:route:GET /v1/listings" {
		t.Fatalf("anon key = %q", got)
	}
	c.Set(ContextUserID, uint64(5))
	cfg.KeyStrategy = "user"
	if got := rateKey(cfg, c); got != "rl:user:5" {
		t.Fatalf("user key = %q", got)
	}
}

func TestCachePayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(200, h, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	status, hdr, body, ok := decodePayload(bs)
	if !ok || status != 200 || hdr.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Fatalf("decoded %d %v %q %v", status, hdr, body, ok)
	}
	if _, _, _, ok := decodePayload(bs[:6]); ok {
		t.Fatal("short payload decoded")
	}
}

func TestCacheKeyKeepsRoute(t *testing.T) {
	a := cacheKey("cache", "/v1/categories", httptest.NewRequest(http.MethodGet, "/v1/categories", nil))
	b := cacheKey("cache", "/v1/categories", httptest.NewRequest(http.MethodGet, "/v1/categories?x=1", nil))
	if a == b || !strings.HasPrefix(a, "cache:/v1/categories:") {
		t.Fatalf("keys %q %q", a, b)
	}
}

func TestCaptureWriterLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: 200, limit: 4}
	_, _ = cw.Write([]byte("ab"))
	_, _ = cw.Write([]byte("cde"))
	if !cw.truncated || cw.buf.String() != "ab" || rec.Body.String() != "abcde" {
		t.Fatalf("captured %q truncated=%v forwarded %q", cw.buf.String(), cw.truncated, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), []byte("abcde")) {
		t.Fatal("client body altered")
	}
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", ok, NewTokenBucket(config.RateLimitConfig{}, nil, nil), NewRedisCache(config.CacheConfig{}, nil, nil))
	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)); rec.Code != 200 || rec.Body.String() != "ok" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}
