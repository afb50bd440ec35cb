package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	roomydb "roomy/internal/db"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := filepath.Join(t.TempDir(), "roomy_api_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(roomydb.Models()...))

	r := gin.New()
	r.POST("/auth/register", RegisterHandler(db))
	r.POST("/auth/login", LoginHandler(db, nil, "test-secret"))
	return r
}

func performRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	r := newAuthRouter(t)

	w := performRequest(r, http.MethodPost, "/auth/register", gin.H{
		"email":        "Anna@Roomy.dev",
		"password":     "hunter2hunter2",
		"display_name": "Anna",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Email is normalized, so a different casing still logs in.
	w = performRequest(r, http.MethodPost, "/auth/login", gin.H{
		"email":    "anna@roomy.dev",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newAuthRouter(t)
	body := gin.H{
		"email":        "anna@roomy.dev",
		"password":     "hunter2hunter2",
		"display_name": "Anna",
	}

	w := performRequest(r, http.MethodPost, "/auth/register", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(r, http.MethodPost, "/auth/register", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	r := newAuthRouter(t)

	// Password below the minimum length.
	w := performRequest(r, http.MethodPost, "/auth/register", gin.H{
		"email":        "anna@roomy.dev",
		"password":     "short",
		"display_name": "Anna",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Not an email address.
	w = performRequest(r, http.MethodPost, "/auth/register", gin.H{
		"email":        "not-an-email",
		"password":     "hunter2hunter2",
		"display_name": "Anna",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	r := newAuthRouter(t)

	w := performRequest(r, http.MethodPost, "/auth/register", gin.H{
		"email":        "anna@roomy.dev",
		"password":     "hunter2hunter2",
		"display_name": "Anna",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(r, http.MethodPost, "/auth/login", gin.H{
		"email":    "anna@roomy.dev",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(r, http.MethodPost, "/auth/login", gin.H{
		"email":    "nobody@roomy.dev",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
