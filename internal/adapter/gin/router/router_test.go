package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"registration-service/internal/adapter/db/sqlstore"
	"registration-service/internal/adapter/gin/handler"
	"registration-service/internal/usecase/user"
	apperrors "registration-service/pkg/errors"
	"registration-service/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testOrigin = "http://localhost:5173"

// recordingMailer remembers every recipient and fails when err is set.
type recordingMailer struct {
	mu  sync.Mutex
	to  []string
	err error
}

func (m *recordingMailer) SendWelcome(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	return m.err
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.to...)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	uc     *user.Usecase
	mailer *recordingMailer
	boot   *sqlstore.Bootstrapper
}

func setupServer(t *testing.T, lazy bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	boot := sqlstore.NewBootstrapper(db, log)
	opts := Options{AllowedOrigins: []string{testOrigin}}
	if lazy {
		opts.Bootstrap = boot
	} else {
		require.NoError(t, boot.Ensure(context.Background()))
	}

	mailer := &recordingMailer{}
	uc := user.New(sqlstore.NewUserRepo(db, log), mailer, security.NewPasswordHasher(bcrypt.MinCost), log)
	h := handler.NewUserHandler(uc, log)

	return &testServer{
		router: SetupRouter(h, opts, log),
		db:     db,
		uc:     uc,
		mailer: mailer,
		boot:   boot,
	}
}

func (s *testServer) do(method, path, origin, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) countUsers(t *testing.T, email string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&sqlstore.UserSchema{}).Where("email = ?", email).Count(&n).Error)
	return n
}

func TestHealth(t *testing.T) {
	s := setupServer(t, false)

	w := s.do(http.MethodGet, "/", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Server is running"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealth_DatabaseClosed(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		s := setupServer(t, lazy)
		sqlDB, err := s.db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		w := s.do(http.MethodGet, "/", "", "")

		assert.Equal(t, http.StatusOK, w.Code, "lazy=%v", lazy)
		assert.JSONEq(t, `{"message":"Server is running"}`, w.Body.String())

		// Registration does need the database.
		w = s.do(http.MethodPost, "/register", testOrigin, `{"name":"Jane","email":"jane@example.com","password":"pw"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, "lazy=%v", lazy)
	}
}

func TestRegister_EndToEnd(t *testing.T) {
	s := setupServer(t, false)
	body := `{"name":"Jane Doe","email":"jane@example.com","password":"s3cret!"}`

	w := s.do(http.MethodPost, "/register", testOrigin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, testOrigin, w.Header().Get("Access-Control-Allow-Origin"))

	var resp handler.RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, handler.RegisteredMessage, resp.Message)
	assert.Positive(t, resp.User.ID)
	assert.Equal(t, "Jane Doe", resp.User.Name)
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.NotContains(t, w.Body.String(), "password")

	var stored sqlstore.UserSchema
	require.NoError(t, s.db.Where("email = ?", "jane@example.com").First(&stored).Error)
	assert.NotEqual(t, "s3cret!", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("s3cret!")))

	require.NoError(t, s.uc.Wait(context.Background()))
	assert.Equal(t, []string{"jane@example.com"}, s.mailer.recipients())

	// Same email a second time.
	w = s.do(http.MethodPost, "/register", testOrigin, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"`+apperrors.DuplicateEmailMessage+`"}`, w.Body.String())
	assert.Equal(t, int64(1), s.countUsers(t, "jane@example.com"))

	require.NoError(t, s.uc.Wait(context.Background()))
	assert.Len(t, s.mailer.recipients(), 1)
}

func TestRegister_MissingFields(t *testing.T) {
	s := setupServer(t, false)

	w := s.do(http.MethodPost, "/register", testOrigin, `{"name":"Jane","email":"jane@example.com"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Name, email, and password are required"}`, w.Body.String())
	assert.Equal(t, int64(0), s.countUsers(t, "jane@example.com"))
}

func TestRegister_MailFailureStillCreated(t *testing.T) {
	s := setupServer(t, false)
	s.mailer.err = apperrors.NewDeliveryError("jane@example.com", errors.New("connection refused"))

	w := s.do(http.MethodPost, "/register", testOrigin, `{"name":"Jane","email":"jane@example.com","password":"pw"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, s.uc.Wait(context.Background()))
	assert.Equal(t, int64(1), s.countUsers(t, "jane@example.com"))
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	s := setupServer(t, false)
	body := `{"name":"Jane","email":"race@example.com","password":"pw"}`

	const n = 8
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- s.do(http.MethodPost, "/register", testOrigin, body).Code
		}()
	}
	wg.Wait()
	close(codes)

	created := 0
	for code := range codes {
		if code == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusBadRequest, code)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, int64(1), s.countUsers(t, "race@example.com"))
}

func TestCORS_RejectsUnknownOrigin(t *testing.T) {
	s := setupServer(t, false)

	w := s.do(http.MethodPost, "/register", "https://evil.example.com", `{"name":"Jane","email":"jane@example.com","password":"pw"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, int64(0), s.countUsers(t, "jane@example.com"))
	assert.Empty(t, s.mailer.recipients())
}

func TestLazyBootstrap(t *testing.T) {
	s := setupServer(t, true)
	assert.False(t, s.boot.Ready())

	// Health does not touch the database.
	w := s.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, s.boot.Ready())

	w = s.do(http.MethodPost, "/register", testOrigin, `{"name":"Jane","email":"jane@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, s.boot.Ready())
	require.NoError(t, s.uc.Wait(context.Background()))
}

func TestLazyBootstrap_FailureIsBadRequest(t *testing.T) {
	s := setupServer(t, true)
	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := s.do(http.MethodPost, "/register", testOrigin, `{"name":"Jane","email":"jane@example.com","password":"pw"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "database unreachable")
	assert.False(t, s.boot.Ready())
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	r := SetupRouter(handler.NewUserHandler(panickingUsecase{}, log), Options{AllowedOrigins: []string{testOrigin}}, log)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(`{}`)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type panickingUsecase struct{}

func (panickingUsecase) Register(context.Context, user.RegisterRequest) (*user.RegisterResponse, error) {
	panic("boom")
}
