package middleware

import (
    "bytes"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "io"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/mindful-backend/internal/config"
)

// credentialScript charges one token from every bucket in KEYS, or from
// none of them when any bucket is empty.  ARGV holds now, refill tokens,
// refill interval and TTL, followed by one capacity per key.  It returns
// {allowed, tokens left in the emptiest bucket, ms until a refill}.
var credentialScript = redis.NewScript(`
    local now_ms = tonumber(ARGV[1])
    local refill_tokens = tonumber(ARGV[2])
    local interval_ms = tonumber(ARGV[3])
    local ttl_seconds = tonumber(ARGV[4])

    local tokens, last = {}, {}
    local allowed = 1
    local retry_ms = 0
    for i, key in ipairs(KEYS) do
        local capacity = tonumber(ARGV[4 + i])
        local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
        local t = tonumber(state[1])
        local l = tonumber(state[2])
        if t == nil or l == nil then
            t = capacity
            l = now_ms
        end
        local intervals = math.floor(math.max(0, now_ms - l) / interval_ms)
        if intervals > 0 then
            t = math.min(capacity, t + intervals * refill_tokens)
            l = l + intervals * interval_ms
        end
        if t <= 0 then
            allowed = 0
            local wait = interval_ms - (now_ms - l)
            if wait > retry_ms then retry_ms = wait end
        end
        tokens[i] = t
        last[i] = l
    end

    local remaining = -1
    for i, key in ipairs(KEYS) do
        if allowed == 1 then tokens[i] = tokens[i] - 1 end
        if remaining < 0 or tokens[i] < remaining then remaining = tokens[i] end
        redis.call('HSET', key, 'tokens', tokens[i], 'last_refill_ms', last[i])
        redis.call('EXPIRE', key, ttl_seconds)
    end
    return { allowed, remaining, retry_ms }
`)

// maxPeekBytes bounds how much of a credential body is read to find the
// email.  Credential payloads are tiny; anything longer is left unread.
const maxPeekBytes = 16 << 10

// NewCredentialLimiter guards register and login.  Each request draws from
// a bucket for its client address and route.  A request whose JSON body
// names an email also draws from that account's bucket, which is shared by
// every address, so guessing one account's password from many addresses is
// throttled as well as spraying many accounts from one.  Redis errors let
// the request through.
func NewCredentialLimiter(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            keys, capacities := credentialBuckets(cfg, c)
            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }
            args = append(args, capacities...)

            log := logrus.WithField("route", c.Path()).WithField("ip", c.RealIP())
            vals, err := credentialScript.Run(c.Request().Context(), rdb, keys, args...).Slice()
            if err != nil || len(vals) != 3 {
                log.WithError(err).Warn("ratelimit: redis unavailable, allowing request")
                return next(c)
            }
            allowed := asInt64(vals[0]) == 1
            remaining, retryMs := asInt64(vals[1]), asInt64(vals[2])

            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if !allowed {
                secs := int(math.Ceil(float64(retryMs) / 1000.0))
                if secs < 1 { secs = 1 }
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                log.WithField("retry_after", secs).Info("ratelimit: credential attempt blocked")
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "Too many requests, please try again later",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

// credentialBuckets lists the buckets a request is charged against with
// their capacities.
func credentialBuckets(cfg config.RateLimitConfig, c echo.Context) ([]string, []interface{}) {
    ip := c.RealIP()
    if ip == "" { ip = "unknown" }
    route := c.Path()

    keys := []string{cfg.Prefix + ":ip:" + route + ":" + ip}
    capacities := []interface{}{cfg.IPCapacity}
    if email := submittedEmail(c); email != "" {
        sum := sha256.Sum256([]byte(email))
        keys = append(keys, cfg.Prefix+":account:"+route+":"+hex.EncodeToString(sum[:]))
        capacities = append(capacities, cfg.Capacity)
    }
    return keys, capacities
}

// submittedEmail reads the email field of a JSON body and puts the bytes
// back for the handler.  Case is folded so variants of one address share a
// bucket.
func submittedEmail(c echo.Context) string {
    req := c.Request()
    if req.Body == nil || !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
        return ""
    }
    raw, err := io.ReadAll(io.LimitReader(req.Body, maxPeekBytes))
    req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), req.Body))
    if err != nil {
        return ""
    }
    var body struct {
        Email string `json:"email"`
    }
    if json.Unmarshal(raw, &body) != nil {
        return ""
    }
    return strings.ToLower(strings.TrimSpace(body.Email))
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64: return t
    case float64: return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil { return n }
    }
    return 0
}
