package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recruitment-platform/config"
	"recruitment-platform/internal/database"
	"recruitment-platform/internal/models"
	"recruitment-platform/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestContext holds common test dependencies
type TestContext struct {
	DB         *gorm.DB
	Config     *config.Config
	Logger     *zap.Logger
	JWTService *auth.JWTService
	TempDir    string
}

// TestConfig returns a config wired for a throwaway SQLite database in dir
func TestConfig(dir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "test", Port: "0"},
		Database: config.DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(dir, "test.db"),
		},
		Log: config.LogConfig{Level: "silent", Format: "json"},
		JWT: config.JWTConfig{
			Secret:        "test-secret-key-for-jwt-tokens",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 7 * 24 * time.Hour,
		},
		Email: config.EmailConfig{
			From:     "talent@example.com",
			FromName: "Talent Team",
		},
		CORS:      config.CORSConfig{Origins: []string{"*"}},
		RateLimit: config.RateLimitConfig{Requests: 1000, Window: 60},
		AI: config.AIConfig{
			PlatformProvider: "openai",
			PlatformAPIKey:   "platform-test-key",
			PlatformModel:    "gemini-1.5-flash",
			RequestTimeout:   5 * time.Second,
			MonthlyQuotaUSD:  "20.00",
			ScreeningWorkers: 2,
		},
	}
}

// SetupTestContext creates a migrated SQLite database, logger and JWT service
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	tempDir := t.TempDir()
	cfg := TestConfig(tempDir)
	log := zap.NewNop()

	db, err := database.Open(cfg, log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &TestContext{
		DB:         db,
		Config:     cfg,
		Logger:     log,
		JWTService: auth.NewJWTService(cfg, nil),
		TempDir:    tempDir,
	}
}

// CreateTestUser creates an active user with password "password123"
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	suffix := RandomString(8)
	user := &models.User{
		Username:  "user-" + suffix,
		Email:     "user-" + suffix + "@example.com",
		Password:  "password123",
		FirstName: "Test",
		LastName:  "User",
		IsActive:  true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestTenant creates an active tenant on the given plan
func CreateTestTenant(t *testing.T, db *gorm.DB, maxUsers int) *models.Tenant {
	t.Helper()

	suffix := RandomString(8)
	tenant := &models.Tenant{
		Name:     "Tenant " + suffix,
		Slug:     "tenant-" + suffix,
		Plan:     models.PlanPro,
		IsActive: true,
		MaxUsers: maxUsers,
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

// AddTestMember adds user to tenant with role
func AddTestMember(t *testing.T, db *gorm.DB, tenant *models.Tenant, user *models.User, role models.TenantRole, perms ...string) *models.TenantMembership {
	t.Helper()

	m := &models.TenantMembership{
		TenantID:    tenant.ID,
		UserID:      user.ID,
		Role:        role,
		IsActive:    true,
		Permissions: perms,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

// CreateTestVacancy creates a vacancy in the given status
func CreateTestVacancy(t *testing.T, db *gorm.DB, tenant *models.Tenant, status models.JobStatus) *models.JobVacancy {
	t.Helper()

	v := &models.JobVacancy{
		TenantID:     tenant.ID,
		Title:        "Backend Engineer " + RandomString(4),
		Description:  "Design and run backend services",
		Requirements: "go, postgresql, docker",
		Location:     "Berlin",
		Status:       status,
	}
	require.NoError(t, db.Create(v).Error)
	return v
}

// CreateTestApplication creates a candidate with skills and applies them
func CreateTestApplication(t *testing.T, db *gorm.DB, vacancy *models.JobVacancy, skills []string, years int) *models.Application {
	t.Helper()

	c := &models.Candidate{
		TenantID:        vacancy.TenantID,
		FirstName:       "Cand",
		LastName:        RandomString(6),
		Email:           RandomEmail(),
		Skills:          skills,
		YearsExperience: years,
	}
	require.NoError(t, db.Create(c).Error)

	a := &models.Application{
		TenantID:    vacancy.TenantID,
		VacancyID:   vacancy.ID,
		CandidateID: c.ID,
	}
	require.NoError(t, db.Create(a).Error)
	a.Candidate = c
	return a
}

// GenerateAuthToken issues an access token scoped to the membership's tenant.
// A nil membership yields a token without tenant claims.
func GenerateAuthToken(t *testing.T, jwtService *auth.JWTService, user *models.User, m *models.TenantMembership, slug string) string {
	t.Helper()

	var tc auth.TenantClaims
	if m != nil {
		tc = auth.TenantClaims{TenantID: m.TenantID.String(), TenantSlug: slug, Role: m.Role}
	}
	pair, err := jwtService.GenerateTokenPair(user, tc)
	require.NoError(t, err)
	return pair.AccessToken
}

// ParseJSONResponse parses JSON response body into target
func ParseJSONResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target))
}

// AssertJSONResponse asserts status and that the expected fields are present
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedFields map[string]interface{}) {
	t.Helper()
	require.Equal(t, expectedStatus, w.Code, w.Body.String())
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	ParseJSONResponse(t, w, &response)

	for key, expectedValue := range expectedFields {
		require.Contains(t, response, key)
		if expectedValue != nil {
			require.Equal(t, expectedValue, response[key])
		}
	}
}

// AssertErrorResponse asserts an error body with the given status and code
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	require.Equal(t, expectedStatus, w.Code, w.Body.String())

	var response map[string]interface{}
	ParseJSONResponse(t, w, &response)

	require.Contains(t, response, "error")
	if expectedCode != "" {
		require.Equal(t, expectedCode, response["code"])
	}
}

// SetupGinTestMode sets up Gin in test mode
func SetupGinTestMode() {
	gin.SetMode(gin.TestMode)
}

// TestHTTPClient drives a gin engine in-process
type TestHTTPClient struct {
	router http.Handler
}

// NewTestHTTPClient creates a client that serves requests through router
func NewTestHTTPClient(router http.Handler) *TestHTTPClient {
	return &TestHTTPClient{router: router}
}

// Do performs a request and records the response
func (c *TestHTTPClient) Do(method, url, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func (c *TestHTTPClient) GET(url string, headers map[string]string) *httptest.ResponseRecorder {
	return c.Do(http.MethodGet, url, "", headers)
}

func (c *TestHTTPClient) POST(url, body string, headers map[string]string) *httptest.ResponseRecorder {
	return c.Do(http.MethodPost, url, body, headers)
}

func (c *TestHTTPClient) PUT(url, body string, headers map[string]string) *httptest.ResponseRecorder {
	return c.Do(http.MethodPut, url, body, headers)
}

func (c *TestHTTPClient) PATCH(url, body string, headers map[string]string) *httptest.ResponseRecorder {
	return c.Do(http.MethodPatch, url, body, headers)
}

func (c *TestHTTPClient) DELETE(url string, headers map[string]string) *httptest.ResponseRecorder {
	return c.Do(http.MethodDelete, url, "", headers)
}

// WithAuth adds the bearer header
func WithAuth(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// WithTenant adds the bearer header and an explicit tenant header
func WithTenant(token string, tenantID uuid.UUID) map[string]string {
	h := WithAuth(token)
	h["X-Tenant-ID"] = tenantID.String()
	return h
}

// AssertRecordCount verifies the count of records matching the conditions
func AssertRecordCount(t *testing.T, db *gorm.DB, model interface{}, expectedCount int64, conditions ...interface{}) {
	t.Helper()

	var count int64
	query := db.Model(model)
	if len(conditions) > 0 {
		query = query.Where(conditions[0], conditions[1:]...)
	}
	require.NoError(t, query.Count(&count).Error)
	require.Equal(t, expectedCount, count)
}

// RandomEmail generates a random email for testing
func RandomEmail() string {
	return "test-" + RandomString(8) + "@example.com"
}

// RandomString generates a random string of the given length (max 32)
func RandomString(length int) string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:length]
}
