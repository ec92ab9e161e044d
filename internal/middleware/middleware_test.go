package middleware

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/mindful-backend/internal/config"
    "github.com/iliyamo/mindful-backend/internal/utils"
)

const testSecret = "test-secret"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if auth != "" {
        req.Header.Set("Authorization", auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
    t.Helper()
    var body map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    s, _ := body["error"].(string)
    return s
}

func whoami(c echo.Context) error {
    id, ok := UserID(c)
    return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok})
}

func TestJWTAuth(t *testing.T) {
    e := echo.New()
    e.GET("/me", whoami, JWTAuth(testSecret))

    good, err := utils.NewSessionToken(testSecret, 42, time.Hour)
    require.NoError(t, err)
    expired, err := utils.NewSessionToken(testSecret, 42, -time.Minute)
    require.NoError(t, err)
    foreign, err := utils.NewSessionToken("other-secret", 42, time.Hour)
    require.NoError(t, err)

    tests := []struct {
        name   string
        auth   string
        status int
        errMsg string
    }{
        {"valid", "Bearer " + good.Token, http.StatusOK, ""},
        {"missing header", "", http.StatusUnauthorized, "Token is missing"},
        {"wrong scheme", "Basic abc", http.StatusUnauthorized, "Token is missing"},
        {"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, "Token is invalid"},
        {"wrong secret", "Bearer " + foreign.Token, http.StatusUnauthorized, "Token is invalid"},
        {"expired", "Bearer " + expired.Token, http.StatusUnauthorized, "Token has expired"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            rec := do(e, http.MethodGet, "/me", tt.auth)
            assert.Equal(t, tt.status, rec.Code)
            if tt.errMsg != "" {
                assert.Equal(t, tt.errMsg, errorOf(t, rec))
                return
            }
            assert.JSONEq(t, `{"id":42,"ok":true}`, rec.Body.String())
        })
    }
}

func TestUserIDWithoutAuth(t *testing.T) {
    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
    _, ok := UserID(c)
    assert.False(t, ok)
    assert.Equal(t, "anon", userKey(c))

    SetUserID(c, 7)
    id, ok := UserID(c)
    assert.True(t, ok)
    assert.Equal(t, uint64(7), id)
    assert.Equal(t, "7", userKey(c))
}

func postCredentials(e *echo.Echo, path, ip, email string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"email":"`+email+`","password":"p"}`))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    req.Header.Set(echo.HeaderXRealIP, ip)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func credentialServer(cfg config.RateLimitConfig, rdb *redis.Client) *echo.Echo {
    e := echo.New()
    ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
    e.POST("/api/login", ok, NewCredentialLimiter(cfg, rdb))
    e.POST("/api/register", ok, NewCredentialLimiter(cfg, rdb))
    return e
}

func limiterConfig(capacity, ipCapacity int) config.RateLimitConfig {
    return config.RateLimitConfig{
        Enabled: true, Capacity: capacity, IPCapacity: ipCapacity, RefillTokens: 1,
        RefillInterval: time.Minute, TTL: 10 * time.Minute, Prefix: "rl",
    }
}

func TestCredentialLimiterTwoEmailsOneIP(t *testing.T) {
    _, rdb := newRedis(t)
    e := credentialServer(limiterConfig(2, 3), rdb)

    assert.Equal(t, http.StatusOK, postCredentials(e, "/api/login", "10.0.0.1", "a@x.com").Code)
    rec := postCredentials(e, "/api/login", "10.0.0.1", "a@x.com")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

    // a@x.com has spent its account bucket
    rec = postCredentials(e, "/api/login", "10.0.0.1", "a@x.com")
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.NotEmpty(t, rec.Header().Get("Retry-After"))
    assert.Equal(t, "Too many requests, please try again later", errorOf(t, rec))

    // a blocked attempt charges nothing, so the address still has one token
    assert.Equal(t, http.StatusOK, postCredentials(e, "/api/login", "10.0.0.1", "b@x.com").Code)
    // and now the address bucket is empty for every email
    assert.Equal(t, http.StatusTooManyRequests, postCredentials(e, "/api/login", "10.0.0.1", "b@x.com").Code)
    assert.Equal(t, http.StatusTooManyRequests, postCredentials(e, "/api/login", "10.0.0.1", "c@x.com").Code)
}

func TestCredentialLimiterAccountSharedAcrossIPs(t *testing.T) {
    _, rdb := newRedis(t)
    e := credentialServer(limiterConfig(2, 10), rdb)

    assert.Equal(t, http.StatusOK, postCredentials(e, "/api/login", "10.0.0.1", "a@x.com").Code)
    assert.Equal(t, http.StatusOK, postCredentials(e, "/api/login", "10.0.0.2", "A@X.com ").Code)
    assert.Equal(t, http.StatusTooManyRequests, postCredentials(e, "/api/login", "10.0.0.3", "a@x.com").Code)

    // other accounts are untouched
    assert.Equal(t, http.StatusOK, postCredentials(e, "/api/login", "10.0.0.3", "b@x.com").Code)
}

func TestCredentialLimiterBucketsPerRoute(t *testing.T) {
    _, rdb := newRedis(t)
    e := credentialServer(limiterConfig(1, 1), rdb)

    assert.Equal(t, http.StatusOK, postCredentials(e, "/api/login", "10.0.0.1", "a@x.com").Code)
    assert.Equal(t, http.StatusTooManyRequests, postCredentials(e, "/api/login", "10.0.0.1", "a@x.com").Code)
    assert.Equal(t, http.StatusOK, postCredentials(e, "/api/register", "10.0.0.1", "a@x.com").Code)
}

func TestCredentialLimiterWithoutEmailUsesIPOnly(t *testing.T) {
    _, rdb := newRedis(t)
    e := credentialServer(limiterConfig(1, 2), rdb)

    assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/login", "").Code)
    assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/login", "").Code)
    assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/api/login", "").Code)
}

func TestCredentialLimiterLeavesBodyForHandler(t *testing.T) {
    _, rdb := newRedis(t)
    e := echo.New()
    e.POST("/api/login", func(c echo.Context) error {
        var body struct {
            Email    string `json:"email"`
            Password string `json:"password"`
        }
        if err := c.Bind(&body); err != nil {
            return err
        }
        return c.JSON(http.StatusOK, body)
    }, NewCredentialLimiter(limiterConfig(5, 5), rdb))

    rec := postCredentials(e, "/api/login", "10.0.0.1", "a@x.com")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"email":"a@x.com","password":"p"}`, rec.Body.String())
}

func TestCredentialLimiterFailsOpen(t *testing.T) {
    mr, rdb := newRedis(t)
    e := credentialServer(limiterConfig(1, 1), rdb)

    mr.Close()
    for i := 0; i < 3; i++ {
        assert.Equal(t, http.StatusOK, postCredentials(e, "/api/login", "10.0.0.1", "a@x.com").Code)
    }
}

func TestCredentialLimiterDisabledWithoutRedis(t *testing.T) {
    e := credentialServer(limiterConfig(1, 1), nil)
    for i := 0; i < 3; i++ {
        assert.Equal(t, http.StatusOK, postCredentials(e, "/api/login", "10.0.0.1", "a@x.com").Code)
    }
}

func TestRedisCacheHitAndInvalidate(t *testing.T) {
    _, rdb := newRedis(t)
    cfg := config.CacheConfig{
        Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
        Prefix: "cache", MaxBodyBytes: 1 << 20,
    }.WithPrefix("music")

    calls := 0
    e := echo.New()
    e.GET("/music", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, []string{strings.Repeat("x", calls)})
    }, NewRedisCache(cfg, rdb))

    first := do(e, http.MethodGet, "/music", "")
    assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
    second := do(e, http.MethodGet, "/music", "")
    assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
    assert.Equal(t, first.Body.String(), second.Body.String())
    assert.Equal(t, 1, calls)

    NewCacheInvalidator(rdb, cfg.Prefix).Invalidate(context.Background())

    third := do(e, http.MethodGet, "/music", "")
    assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
    assert.Equal(t, 2, calls)
    assert.JSONEq(t, `["xx"]`, third.Body.String())
}

func TestRedisCacheSkipsErrorsAndOversizedBodies(t *testing.T) {
    _, rdb := newRedis(t)
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 8}

    calls := 0
    e := echo.New()
    e.GET("/big", func(c echo.Context) error {
        calls++
        return c.String(http.StatusOK, "this body is longer than eight bytes")
    }, NewRedisCache(cfg, rdb))
    e.GET("/fail", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "boom"})
    }, NewRedisCache(cfg, rdb))

    for i := 0; i < 2; i++ {
        rec := do(e, http.MethodGet, "/big", "")
        assert.Equal(t, "this body is longer than eight bytes", rec.Body.String())
        do(e, http.MethodGet, "/fail", "")
    }
    assert.Equal(t, 4, calls)
}

func TestCacheInvalidatorNilSafe(t *testing.T) {
    var inv *CacheInvalidator
    inv.Invalidate(context.Background())
    NewCacheInvalidator(nil, "cache").Invalidate(context.Background())
}
