package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/config"
)

const cacheHeader = "X-Cache"

// captureWriter copies up to limit bytes of the body into buf while
// writing through.  A limit of 0 keeps everything.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	keep := b
	if cw.limit > 0 {
		room := cw.limit - cw.size
		switch {
		case room <= 0:
			keep = nil
		case int64(len(b)) > room:
			keep = b[:room]
		}
	}
	cw.buf.Write(keep)
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

func (cw *captureWriter) overflowed() bool { return cw.limit > 0 && cw.size > cw.limit }

var cacheKeyParts = map[string]func(c echo.Context) string{
	"method": func(c echo.Context) string { return c.Request().Method },
	"route":  func(c echo.Context) string { return c.Path() },
	"query":  func(c echo.Context) string { return c.Request().URL.RawQuery },
}

// cacheKeyFrom hashes the dimensions named by the key strategy, e.g.
// "method_route_query", plus every path parameter.  Unknown strategies
// fall back to route and query.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	dims := strings.Split(strings.ToLower(cfg.KeyStrategy), "_")
	for _, d := range dims {
		if cacheKeyParts[d] == nil {
			dims = []string{"route", "query"}
			break
		}
	}
	var sb strings.Builder
	for _, d := range dims {
		sb.WriteString(d + "=" + cacheKeyParts[d](c) + ";")
	}
	for _, name := range c.ParamNames() {
		sb.WriteString(":" + name + "=" + c.Param(name) + ";")
	}
	sum := sha1.Sum([]byte(sb.String()))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// cachedResponse is the redis value of one cached response.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	return json.Marshal(cachedResponse{Status: status, Header: header, Body: body})
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	var cr cachedResponse
	if err := json.Unmarshal(bs, &cr); err != nil || cr.Status == 0 {
		return 0, nil, nil, false
	}
	return cr.Status, cr.Header, cr.Body, true
}

// NewRedisCache serves repeated requests of the configured methods from
// redis.  Only complete 200 responses are stored.  Responses carry
// X-Cache HIT or MISS.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)
			res := c.Response()

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if k != echo.HeaderContentLength {
							res.Header()[k] = vals
						}
					}
					res.Header().Set(cacheHeader, "HIT")
					res.WriteHeader(status)
					_, err := res.Write(body)
					return err
				}
			} else if !errors.Is(err, redis.Nil) {
				log.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
			}

			cw := &captureWriter{ResponseWriter: res.Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			res.Writer = cw
			res.Header().Set(cacheHeader, "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.overflowed() {
				return nil
			}

			hdr := res.Header().Clone()
			hdr.Del(cacheHeader)
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err == nil {
				err = rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err()
			}
			if err != nil {
				log.Warn("cache store failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}
