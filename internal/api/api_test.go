package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"device-allocation-backend/config"
	"device-allocation-backend/internal/auth"
	"device-allocation-backend/internal/db"
	"device-allocation-backend/internal/model"
	"device-allocation-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (n *recordingNotifier) Dispatch(id uuid.UUID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
	return true
}

func (n *recordingNotifier) dispatched() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uuid.UUID(nil), n.ids...)
}

type testServer struct {
	router   *gin.Engine
	store    store.Store
	db       *gorm.DB
	notifier *recordingNotifier
	token    string
	server   config.ServerConfig
}

type serverOption func(*Options, *config.ServerConfig)

func development(o *Options, _ *config.ServerConfig) { o.Development = true }

func withStaticDir(dir string) serverOption {
	return func(_ *Options, s *config.ServerConfig) { s.StaticDir = dir }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	gormDB, err := db.Open(&config.DatabaseConfig{
		DSN:          fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	dir, err := auth.NewDemoDirectory(bcrypt.MinCost)
	require.NoError(t, err)
	issuer, err := auth.NewIssuer("test-secret", config.Default().Auth.TokenTTL)
	require.NoError(t, err)

	server := config.Default().Server
	server.RateLimitPerSec = 1000
	server.RateLimitBurst = 1000
	server.StaticDir = t.TempDir()

	notifier := &recordingNotifier{}
	s := store.NewGormStore(gormDB)
	o := Options{
		Store:     s,
		Issuer:    issuer,
		Directory: dir,
		Notifier:  notifier,
		Log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o, &server)
	}

	admin, err := dir.Authenticate("admin@posadmin.local", "admin123")
	require.NoError(t, err)
	token, _, err := issuer.Issue(admin)
	require.NoError(t, err)

	return &testServer{
		router:   NewRouter(NewHandler(o), server, true),
		store:    s,
		db:       gormDB,
		notifier: notifier,
		token:    token,
		server:   server,
	}
}

// do sends an authenticated request with body encoded as JSON.
func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.send(t, method, path, body, ts.token)
}

func (ts *testServer) send(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:4321"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) machine(t *testing.T, serial string) model.Machine {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/machines", gin.H{
		"serialNumber": serial, "mid": "MID1", "tid": "TID1",
		"type": "POS", "model": "A920", "manufacturer": "PAX",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Machine](t, w)
}

func (ts *testServer) distributor(t *testing.T, name string) model.Distributor {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/distributors", gin.H{
		"name": name, "email": uuid.NewString()[:8] + "@dist.example",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Distributor](t, w)
}

func (ts *testServer) retailer(t *testing.T, name string, distributorID uuid.UUID) model.Retailer {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/retailers", gin.H{
		"name": name, "email": uuid.NewString()[:8] + "@shop.example", "distributorId": distributorID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Retailer](t, w)
}

type assignmentsResponse struct {
	Assignments []model.Assignment `json:"assignments"`
	Total       int                `json:"total"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}
