package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recruitment-platform/internal/ai/llm"
	"recruitment-platform/internal/ai/workflow"
	"recruitment-platform/internal/middleware"
	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"
	"recruitment-platform/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRespondError(t *testing.T) {
	testutil.SetupGinTestMode()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Field: "title", Message: "cannot be blank"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", fmt.Errorf("vacancy %w", services.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", fmt.Errorf("slug taken: %w", services.ErrConflict), http.StatusConflict, "CONFLICT"},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"forbidden", fmt.Errorf("last owner: %w", services.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{"quota", fmt.Errorf("plan limit: %w", services.ErrQuotaExceeded), http.StatusPaymentRequired, "QUOTA_EXCEEDED"},
		{"tenant full", fmt.Errorf("limit of 5 users: %w", services.ErrTenantFull), http.StatusConflict, "TENANT_FULL"},
		{"missing key", fmt.Errorf("openai: %w", llm.ErrMissingAPIKey), http.StatusBadRequest, "AI_NOT_CONFIGURED"},
		{"provider", fmt.Errorf("mystery: %w", llm.ErrUnsupportedProvider), http.StatusBadRequest, "UNSUPPORTED_PROVIDER"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/", func(c *gin.Context) { respondError(c, zap.NewNop(), tt.err) })

			w := testutil.NewTestHTTPClient(router).GET("/", nil)
			testutil.AssertErrorResponse(t, w, tt.status, tt.code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "disk on fire")
			}
		})
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	testutil.SetupGinTestMode()
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		respondError(c, zap.NewNop(), &services.ValidationError{Field: "email", Message: "is invalid"})
	})

	w := testutil.NewTestHTTPClient(router).GET("/", nil)
	testutil.AssertJSONResponse(t, w, http.StatusBadRequest, map[string]interface{}{
		"field": "email",
		"error": "email: is invalid",
	})
}

func TestPagination(t *testing.T) {
	testutil.SetupGinTestMode()

	tests := []struct {
		query    string
		page     int
		pageSize int
	}{
		{"", 1, 20},
		{"?page=3&page_size=50", 3, 50},
		{"?page=0&page_size=500", 1, 20},
		{"?page=abc", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			page, pageSize := pagination(c)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.pageSize, pageSize)
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseDate("2026-03-01T12:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, got.Hour())

	got, err = parseDate("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseDate("03/01/2026")
	assert.Error(t, err)
}

func TestPeriodParams_RejectsInvertedRange(t *testing.T) {
	testutil.SetupGinTestMode()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?from=2026-04-01&to=2026-03-01", nil)

	_, _, ok := periodParams(c)
	assert.False(t, ok)
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "INVALID_DATE")
}

type streamFixture struct {
	router  *gin.Engine
	hub     *workflow.Hub
	tenant  *models.Tenant
	vacancy *models.JobVacancy
}

func setupStream(t *testing.T) *streamFixture {
	t.Helper()
	testutil.SetupGinTestMode()

	tc := testutil.SetupTestContext(t)
	log := zap.NewNop()
	tenant := testutil.CreateTestTenant(t, tc.DB, 5)
	vacancy := testutil.CreateTestVacancy(t, tc.DB, tenant, models.JobStatusPublished)

	vacancies := services.NewVacancyService(tc.DB, log, services.NewActivityService(tc.DB, log))
	wf := workflow.NewService(workflow.Deps{Vacancies: vacancies}, log)
	h := NewSourcingHandler(wf, vacancies, log)

	router := gin.New()
	router.GET("/vacancies/:id/sourcing/events", func(c *gin.Context) {
		c.Set(middleware.ContextTenantID, tenant.ID)
		c.Next()
	}, h.StreamEvents)

	return &streamFixture{router: router, hub: wf.Hub(), tenant: tenant, vacancy: vacancy}
}

func (f *streamFixture) serve(ctx context.Context, vacancyID uuid.UUID) (*httptest.ResponseRecorder, <-chan struct{}) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/vacancies/"+vacancyID.String()+"/sourcing/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.router.ServeHTTP(w, req)
	}()
	return w, done
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event stream did not end")
	}
}

func TestStreamEvents_EndsOnSuccess(t *testing.T) {
	f := setupStream(t)
	group := workflow.GroupName(f.tenant.ID, f.vacancy.ID)

	w, done := f.serve(context.Background(), f.vacancy.ID)
	require.Eventually(t, func() bool { return f.hub.Subscribers(group) == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	f.hub.Publish(ctx, workflow.Event{Group: group, Type: workflow.EventStatus, Message: "Workflow started"})
	f.hub.Publish(ctx, workflow.Event{Group: group, Type: workflow.EventNodeEnd, Node: "analyst", Message: "Node finished"})
	f.hub.Publish(ctx, workflow.Event{Group: group, Type: workflow.EventSuccess, Message: "Workflow finished"})
	wait(t, done)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event:status")
	assert.Contains(t, body, "event:node_end")
	assert.Contains(t, body, `"node":"analyst"`)
	assert.Contains(t, body, "event:success")
	assert.Equal(t, 0, f.hub.Subscribers(group))
}

func TestStreamEvents_ClientDisconnect(t *testing.T) {
	f := setupStream(t)
	group := workflow.GroupName(f.tenant.ID, f.vacancy.ID)

	ctx, cancel := context.WithCancel(context.Background())
	_, done := f.serve(ctx, f.vacancy.ID)
	require.Eventually(t, func() bool { return f.hub.Subscribers(group) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	wait(t, done)
	assert.Equal(t, 0, f.hub.Subscribers(group))
}

func TestStreamEvents_UnknownVacancy(t *testing.T) {
	f := setupStream(t)

	w, done := f.serve(context.Background(), uuid.New())
	wait(t, done)
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, "NOT_FOUND")
}
