package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"device-allocation-backend/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(NewIPRateLimiter(rate.Every(time.Hour), 2)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		assert.Equal(t, http.StatusOK, serve(r, req).Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := serve(r, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, serve(r, req).Code, "other clients keep their own budget")
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	now := time.Now()
	l := NewIPRateLimiter(rate.Limit(1), 1)
	l.now = func() time.Time { return now }

	l.swept = now

	l.Limiter("a")
	now = now.Add(5 * time.Minute)
	l.Limiter("b")

	assert.Equal(t, 1, l.Sweep(time.Minute))
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "b")

	now = now.Add(time.Hour)
	l.Limiter("c")
	assert.Len(t, l.visitors, 1, "idle buckets are swept on access")
	assert.Contains(t, l.visitors, "c")
}

func TestCacheAndInvalidate(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	hits := 0

	r := gin.New()
	r.Use(Invalidate(store))
	r.GET("/report", Cache(store, time.Minute), func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"hits": hits})
	})
	r.GET("/missing", Cache(store, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})
	r.POST("/write", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/fail", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	get := func(path string) *httptest.ResponseRecorder {
		return serve(r, httptest.NewRequest(http.MethodGet, path, nil))
	}

	w := get("/report")
	assert.JSONEq(t, `{"hits":1}`, w.Body.String())
	w = get("/report")
	assert.JSONEq(t, `{"hits":1}`, w.Body.String())
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	w = get("/report?status=ACTIVE")
	assert.JSONEq(t, `{"hits":2}`, w.Body.String(), "query string is part of the key")

	serve(r, httptest.NewRequest(http.MethodPost, "/fail", nil))
	assert.JSONEq(t, `{"hits":1}`, get("/report").Body.String(), "failed writes keep the cache")

	serve(r, httptest.NewRequest(http.MethodPost, "/write", nil))
	assert.JSONEq(t, `{"hits":3}`, get("/report").Body.String(), "successful writes flush the cache")

	get("/missing")
	assert.Equal(t, 0, countKeys(store, "/missing"))
}

func countKeys(store *cache.Cache, key string) int {
	if _, ok := store.Get(key); ok {
		return 1
	}
	return 0
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://localhost:3000"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	testCases := []struct {
		name   string
		method string
		origin string
		code   int
		allow  string
	}{
		{name: "Allowed origin", method: http.MethodGet, origin: "http://localhost:3000", code: http.StatusOK, allow: "http://localhost:3000"},
		{name: "Other origin", method: http.MethodGet, origin: "http://evil.example", code: http.StatusOK},
		{name: "No origin", method: http.MethodGet, code: http.StatusOK},
		{name: "Preflight", method: http.MethodOptions, origin: "http://localhost:3000", code: http.StatusNoContent, allow: "http://localhost:3000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/x", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := serve(r, req)
			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.allow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	iss, err := auth.NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	user := auth.User{ID: uuid.New(), Email: "admin@posadmin.local", Role: auth.RoleAdmin}
	token, _, err := iss.Issue(user)
	require.NoError(t, err)

	handler := func(c *gin.Context) {
		claims, ok := Claims(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "email": claims.Email})
	}

	testCases := []struct {
		name     string
		required bool
		header   string
		code     int
		body     string
	}{
		{name: "Valid token", required: true, header: "Bearer " + token, code: http.StatusOK, body: `{"authenticated":true,"email":"admin@posadmin.local"}`},
		{name: "Lowercase scheme", required: true, header: "bearer " + token, code: http.StatusOK, body: `{"authenticated":true,"email":"admin@posadmin.local"}`},
		{name: "Missing token", required: true, code: http.StatusUnauthorized, body: `{"error":"authentication required"}`},
		{name: "Bad token", required: true, header: "Bearer junk", code: http.StatusUnauthorized, body: `{"error":"invalid or expired token"}`},
		{name: "Optional without token", required: false, code: http.StatusOK, body: `{"authenticated":false,"email":""}`},
		{name: "Optional with bad token", required: false, header: "Bearer junk", code: http.StatusUnauthorized, body: `{"error":"invalid or expired token"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", Authenticate(iss, tc.required), handler)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(r, req)
			assert.Equal(t, tc.code, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok", entries[0].ContextMap()["path"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusInternalServerError, entries[1].ContextMap()["status"])
}
