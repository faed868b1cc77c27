package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/medbook/medbook/config"
	"github.com/medbook/medbook/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newInMemoryDB creates an in-memory sqlite DB and runs required migrations for tests.
func newInMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb_middleware_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Session{}); err != nil {
		t.Fatalf("failed to auto-migrate: %v", err)
	}
	return db
}

type testSessionParams struct {
	roleID    uint32
	token     string
	expiresAt time.Time
}

// createTestUserAndSession creates a user and associated session in the provided DB.
func createTestUserAndSession(t *testing.T, db *gorm.DB, params testSessionParams) (model.User, model.Session) {
	t.Helper()
	user := model.User{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "hashedpassword",
		RoleID:   params.roleID,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	if params.expiresAt.IsZero() {
		params.expiresAt = time.Now().Add(time.Hour)
	}
	session := model.Session{
		SessionToken: params.token,
		UserID:       user.ID,
		ExpiresAt:    params.expiresAt,
		ClientIP:     "127.0.0.1",
		Browser:      "test-browser",
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("failed to create test session: %v", err)
	}
	return user, session
}

func setupRedisMock(t *testing.T) redismock.ClientMock {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTesting(rdb)
	t.Cleanup(func() {
		config.SetRedisClientForTesting(nil)
	})
	return mock
}

// runValidateLoginTokenRequest issues a GET /test through ValidateLoginToken
// followed by handler, returning the recorder.
func runValidateLoginTokenRequest(db *gorm.DB, token string, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if db != nil {
		r.Use(DatabaseMiddleware(db))
	}
	r.GET("/test", ValidateLoginToken, handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	if token != "" {
		req.Header.Set("session-token", token)
	}
	r.ServeHTTP(w, req)
	return w
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func TestCORSMiddleware_SetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/test", okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected Access-Control-Allow-Origin *, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Error("expected Access-Control-Allow-Headers to be set")
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware())
	r.OPTIONS("/test", okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/test", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", w.Code)
	}
}

func TestDatabaseMiddleware_GetDB(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newInMemoryDB(t)
	r := gin.New()
	r.Use(DatabaseMiddleware(db))
	r.GET("/test", func(c *gin.Context) {
		if GetDB(c) == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "no db"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestGetDB_WithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/test", nil)

	if GetDB(c) != nil {
		t.Error("expected nil DB when middleware did not run")
	}
}

func TestValidateLoginToken_MissingToken(t *testing.T) {
	config.SetRedisClientForTesting(nil)
	db := newInMemoryDB(t)

	w := runValidateLoginTokenRequest(db, "", okHandler)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session token, got %d", w.Code)
	}
}

func TestValidateLoginToken_RedisFastPath(t *testing.T) {
	db := newInMemoryDB(t)
	mock := setupRedisMock(t)
	mock.ExpectGet("session:redis-token").SetVal("42:3")

	handler := func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok || userID != 42 {
			t.Errorf("expected user id 42 from Redis value, got %d (ok=%v)", userID, ok)
		}
		roleID, ok := GetRoleID(c)
		if !ok || roleID != model.RolePatient {
			t.Errorf("expected role id %d from Redis value, got %d (ok=%v)", model.RolePatient, roleID, ok)
		}
		okHandler(c)
	}

	w := runValidateLoginTokenRequest(db, "redis-token", handler)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 via Redis fast path, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet redis expectations: %v", err)
	}
}

func TestValidateLoginToken_MalformedRedisValueFallsBackToDB(t *testing.T) {
	db := newInMemoryDB(t)
	user, _ := createTestUserAndSession(t, db, testSessionParams{roleID: model.RoleDoctor, token: "fallback-token"})

	mock := setupRedisMock(t)
	mock.ExpectGet("session:fallback-token").SetVal("not-a-session-value")

	handler := func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok || userID != user.ID {
			t.Errorf("expected user id %d from DB fallback, got %d (ok=%v)", user.ID, userID, ok)
		}
		roleID, _ := GetRoleID(c)
		if roleID != model.RoleDoctor {
			t.Errorf("expected doctor role from DB fallback, got %d", roleID)
		}
		okHandler(c)
	}

	w := runValidateLoginTokenRequest(db, "fallback-token", handler)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 via DB fallback, got %d: %s", w.Code, w.Body.String())
	}
}

func TestValidateLoginToken_DBOnly(t *testing.T) {
	config.SetRedisClientForTesting(nil)
	db := newInMemoryDB(t)
	user, _ := createTestUserAndSession(t, db, testSessionParams{roleID: model.RolePatient, token: "db-token"})

	handler := func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok || userID != user.ID {
			t.Errorf("expected user id %d, got %d (ok=%v)", user.ID, userID, ok)
		}
		okHandler(c)
	}

	w := runValidateLoginTokenRequest(db, "db-token", handler)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestValidateLoginToken_ExpiredSession(t *testing.T) {
	config.SetRedisClientForTesting(nil)
	db := newInMemoryDB(t)
	createTestUserAndSession(t, db, testSessionParams{
		roleID:    model.RolePatient,
		token:     "expired-token",
		expiresAt: time.Now().Add(-time.Hour),
	})

	w := runValidateLoginTokenRequest(db, "expired-token", okHandler)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired session, got %d", w.Code)
	}
}

func TestValidateLoginToken_UnknownToken(t *testing.T) {
	config.SetRedisClientForTesting(nil)
	db := newInMemoryDB(t)

	w := runValidateLoginTokenRequest(db, "no-such-token", okHandler)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown token, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(userRole, requiredRole uint32) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			SetAuthContext(c, 1, userRole)
			c.Next()
		})
		r.GET("/test", RequireRole(requiredRole), okHandler)
		return r
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	newRouter(model.RoleDoctor, model.RoleDoctor).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for matching role, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/test", nil)
	newRouter(model.RolePatient, model.RoleAdmin).ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for role mismatch, got %d", w.Code)
	}
}

func TestParseSessionValue(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		ok     bool
		userID uint
		roleID uint32
	}{
		{name: "valid", value: "42:3", ok: true, userID: 42, roleID: 3},
		{name: "missing role", value: "42", ok: false},
		{name: "zero user", value: "0:3", ok: false},
		{name: "non numeric", value: "abc:def", ok: false},
		{name: "empty", value: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uid, rid, ok := parseSessionValue(tt.value)
			if ok != tt.ok {
				t.Fatalf("parseSessionValue(%q) ok = %v, want %v", tt.value, ok, tt.ok)
			}
			if ok && (uid != tt.userID || rid != tt.roleID) {
				t.Errorf("parseSessionValue(%q) = (%d, %d), want (%d, %d)", tt.value, uid, rid, tt.userID, tt.roleID)
			}
		})
	}
}
