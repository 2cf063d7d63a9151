package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anoixa/shock-panel/config"
	"github.com/anoixa/shock-panel/database/models"
	"github.com/anoixa/shock-panel/database/repo/accounts"
	svcAuth "github.com/anoixa/shock-panel/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTest 初始化测试环境
func setupTest(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Session{}))

	jwtService, err := svcAuth.NewJWTService("test-secret-key-at-least-32-characters-long", 30*time.Minute, 168*time.Hour)
	require.NoError(t, err)

	loginService := svcAuth.NewLoginService(
		accounts.NewRepository(db),
		accounts.NewSessionRepository(db),
		jwtService,
	)
	handler := NewHandler(loginService, &config.Config{})

	router := gin.New()
	router.POST("/api/auth/register", handler.RegisterHandlerFunc)
	router.POST("/api/auth/login", handler.LoginHandlerFunc)
	router.POST("/api/auth/refresh", handler.RefreshTokenHandlerFunc)
	router.POST("/api/auth/logout", handler.LogoutHandlerFunc)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterHandler_Success(t *testing.T) {
	router := setupTest(t)

	w := postJSON(t, router, "/api/auth/register", map[string]string{
		"username":         "alice",
		"password":         "password123",
		"confirm_password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Bearer ")

	// 刷新令牌与会话ID写入 cookie
	cookies := w.Result().Cookies()
	names := make(map[string]bool)
	for _, cookie := range cookies {
		names[cookie.Name] = true
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/api/auth/", cookie.Path)
	}
	assert.True(t, names["refresh_token"])
	assert.True(t, names["session_id"])
}

func TestRegisterHandler_PasswordMismatch(t *testing.T) {
	router := setupTest(t)

	w := postJSON(t, router, "/api/auth/register", map[string]string{
		"username":         "alice",
		"password":         "password123",
		"confirm_password": "different456",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Passwords do not match")
}

func TestRegisterHandler_WeakPassword(t *testing.T) {
	router := setupTest(t)

	w := postJSON(t, router, "/api/auth/register", map[string]string{
		"username":         "alice",
		"password":         "short",
		"confirm_password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterHandler_DuplicateUsername(t *testing.T) {
	router := setupTest(t)

	body := map[string]string{
		"username":         "alice",
		"password":         "password123",
		"confirm_password": "password123",
	}
	w := postJSON(t, router, "/api/auth/register", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/api/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestLoginHandler_Success(t *testing.T) {
	router := setupTest(t)

	w := postJSON(t, router, "/api/auth/register", map[string]string{
		"username":         "alice",
		"password":         "password123",
		"confirm_password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access_token")
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	router := setupTest(t)

	w := postJSON(t, router, "/api/auth/register", map[string]string{
		"username":         "alice",
		"password":         "password123",
		"confirm_password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
}

func TestLoginHandler_MissingFields(t *testing.T) {
	router := setupTest(t)

	w := postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshHandler_MissingCookies(t *testing.T) {
	router := setupTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshHandler_RotatesToken(t *testing.T) {
	router := setupTest(t)

	w := postJSON(t, router, "/api/auth/register", map[string]string{
		"username":         "alice",
		"password":         "password123",
		"confirm_password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	for _, cookie := range w.Result().Cookies() {
		req.AddCookie(cookie)
	}

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)

	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), "access_token")
}

func TestLogoutHandler_WithoutSession(t *testing.T) {
	router := setupTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
