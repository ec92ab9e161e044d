package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/mindful-backend/internal/config"
)

// listingWriter forwards a listing to the client and keeps a copy of the
// body until it grows past limit.
type listingWriter struct {
    http.ResponseWriter
    status   int
    body     bytes.Buffer
    limit    int
    overflow bool
}

func (w *listingWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }

func (w *listingWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.body.Len()+len(b) > w.limit {
            w.overflow = true
            w.body.Reset()
        } else {
            w.body.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// cachedListing is what a hit replays.  Listings are JSON, so the content
// type is the only header worth keeping.
type cachedListing struct {
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// listingKey names a listing by route and query under the resource's
// prefix, so each resource's keys can be dropped together.
func listingKey(prefix string, c echo.Context) string {
    sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
    return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// NewRedisCache caches 200 responses of cfg.Methods under cfg.Prefix.
// Writers of the underlying resource must call CacheInvalidator.Invalidate
// for the same prefix.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }
    ttl := cfg.TTL
    if ttl <= 0 { ttl = 5 * time.Minute }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            key := listingKey(cfg.Prefix, c)
            log := logrus.WithField("key", key)

            if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                var hit cachedListing
                if err := json.Unmarshal(raw, &hit); err == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(http.StatusOK, hit.ContentType, hit.Body)
                }
                log.Warn("cache: dropping unreadable entry")
            } else if !errors.Is(err, redis.Nil) {
                log.WithError(err).Warn("cache: lookup failed")
            }

            w := &listingWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = w
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if w.status != http.StatusOK || w.overflow {
                return nil
            }

            entry, err := json.Marshal(cachedListing{
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        w.body.Bytes(),
            })
            if err == nil {
                // the request context may already be cancelled once the client has its bytes
                err = rdb.SetEx(context.Background(), key, entry, ttl).Err()
            }
            if err != nil {
                log.WithError(err).Warn("cache: store failed")
            }
            return nil
        }
    }
}

// CacheInvalidator drops every cached response stored under one prefix.
// A nil receiver or client is a no-op, matching a disabled cache.
type CacheInvalidator struct {
    rdb    *redis.Client
    prefix string
}

func NewCacheInvalidator(rdb *redis.Client, prefix string) *CacheInvalidator {
    return &CacheInvalidator{rdb: rdb, prefix: prefix}
}

// Invalidate deletes the keys under the prefix.  Failures are logged; the
// entries then expire with their TTL.
func (i *CacheInvalidator) Invalidate(ctx context.Context) {
    if i == nil || i.rdb == nil {
        return
    }
    iter := i.rdb.Scan(ctx, 0, i.prefix+":*", 100).Iterator()
    var keys []string
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil {
        logrus.WithError(err).WithField("prefix", i.prefix).Warn("cache: scan failed")
        return
    }
    if len(keys) == 0 {
        return
    }
    if err := i.rdb.Del(ctx, keys...).Err(); err != nil {
        logrus.WithError(err).WithField("prefix", i.prefix).Warn("cache: invalidate failed")
    }
}
