package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bryanwahyu/copyguard/internal/application"
	appai "github.com/bryanwahyu/copyguard/internal/application/ai"
	appauth "github.com/bryanwahyu/copyguard/internal/application/auth"
	appdashboard "github.com/bryanwahyu/copyguard/internal/application/dashboard"
	appintegrations "github.com/bryanwahyu/copyguard/internal/application/integrations"
	appreviews "github.com/bryanwahyu/copyguard/internal/application/reviews"
	appsettings "github.com/bryanwahyu/copyguard/internal/application/settings"
	"github.com/bryanwahyu/copyguard/internal/application/worker"
	domai "github.com/bryanwahyu/copyguard/internal/domain/ai"
	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
	"github.com/bryanwahyu/copyguard/internal/infra/auth"
	"github.com/bryanwahyu/copyguard/internal/infra/db/sqlstore/sqlstoretest"
	"github.com/bryanwahyu/copyguard/internal/infra/sources/notion"
	"github.com/bryanwahyu/copyguard/internal/infra/sources/slack"
	"github.com/bryanwahyu/copyguard/internal/middleware"
)

type stubEngine struct{}

func (stubEngine) Analyze(_ context.Context, _ string, _ reviews.ContentType, _ string) (appai.Result, error) {
	return appai.Result{
		Analysis: reviews.Analysis{
			BrandScore:      88,
			ComplianceFlags: []reviews.ComplianceFlag{},
			Sentiment:       "positive",
			SentimentScore:  0.9,
			OverallRating:   "A",
			Summary:         "On brand.",
		},
		Raw: "{}",
	}, nil
}

type inline struct{}

func (inline) Submit(job func(context.Context)) error {
	job(context.Background())
	return nil
}

type refusing struct{}

func (refusing) Submit(func(context.Context)) error { return worker.ErrQueueFull }

type testServer struct {
	handler  http.Handler
	reviews  *appreviews.Service
	recorder *middleware.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := sqlstoretest.Open(t)
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)
	clock := application.NewMonotonicClock(application.SystemClock{})
	metrics := middleware.NewMetrics()

	authSvc := &appauth.Service{
		Repo:      store.Users(),
		Tokens:    tokens,
		Passwords: auth.Passwords{Cost: bcrypt.MinCost},
		Clock:     clock,
	}
	reviewSvc := &appreviews.Service{
		Repo:     store.Reviews(),
		Sessions: store,
		Engine:   stubEngine{},
		Executor: inline{},
		Locker:   appreviews.NewInflightLocker(),
		Clock:    clock,
		Recorder: metrics,
	}
	h := NewRouter(Deps{
		Auth:     authSvc,
		Tokens:   tokens,
		Reviews:  reviewSvc,
		Settings: &appsettings.Service{Repo: store.Guidelines(), Clock: clock},
		Integrations: &appintegrations.Service{
			Repo:    store.Integrations(),
			Reviews: reviewSvc,
			Slack:   slack.New(),
			Notion:  notion.New(),
			Clock:   clock,
			History: store.Reviews(),
		},
		Dashboard: &appdashboard.Service{Repo: store.Reviews(), Clock: clock},
		Metrics:   metrics,
		Checks: map[string]middleware.HealthChecker{
			"database": middleware.CheckFunc(store.Ping),
		},
		CORSOrigins: []string{"http://localhost:3000"},
	})
	return &testServer{handler: h, reviews: reviewSvc, recorder: metrics}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "s3cret!", "full_name": "Test User",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok appauth.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	return tok.AccessToken
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody[middleware.HealthStatus](t, rec).Status)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "", nil).Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	adminTok := s.register(t, "Boss@Example.com")
	memberTok := s.register(t, "member@example.com")

	me := decodeBody[map[string]any](t, s.do(t, http.MethodGet, "/api/auth/me", adminTok, nil))
	assert.Equal(t, "boss@example.com", me["email"])
	assert.Equal(t, "admin", me["role"])

	me = decodeBody[map[string]any](t, s.do(t, http.MethodGet, "/api/auth/me", memberTok, nil))
	assert.Equal(t, "member", me["role"])

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "member@example.com", "password": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "member@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decodeBody[map[string]string](t, rec)["detail"])

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "member@example.com", "password": "s3cret!"})
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/auth/users", memberTok, nil).Code)

	list := decodeBody[[]map[string]any](t, s.do(t, http.MethodGet, "/api/auth/users", adminTok, nil))
	require.Len(t, list, 2)

	self := decodeBody[map[string]any](t, s.do(t, http.MethodGet, "/api/auth/me", adminTok, nil))
	rec = s.do(t, http.MethodDelete, "/api/auth/users/"+self["id"].(string), adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	memberID := list[1]["id"].(string)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/auth/users/"+memberID, adminTok, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/auth/me", memberTok, nil).Code)
}

func TestReviewLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	adminTok := s.register(t, "admin@example.com")
	memberTok := s.register(t, "member@example.com")
	otherTok := s.register(t, "other@example.com")

	rec := s.do(t, http.MethodPost, "/api/reviews", memberTok, map[string]string{
		"content_type": "blog", "original_content": "Our coffee is fair-trade.",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	created := decodeBody[reviews.Review](t, rec)
	assert.Equal(t, reviews.StatusPending, created.Status)
	assert.Equal(t, reviews.SourceManual, created.Source)

	rec = s.do(t, http.MethodGet, "/api/reviews/"+string(created.ID), memberTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[reviews.Review](t, rec)
	assert.Equal(t, reviews.StatusCompleted, got.Status)
	require.NotNil(t, got.BrandScore)
	assert.Equal(t, 88, *got.BrandScore)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/reviews/"+string(created.ID), otherTok, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/reviews/"+string(created.ID), adminTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/reviews/missing", adminTok, nil).Code)

	page := decodeBody[reviews.PaginatedResult](t, s.do(t, http.MethodGet, "/api/reviews?page=1&page_size=10", otherTok, nil))
	assert.Empty(t, page.Data)
	page = decodeBody[reviews.PaginatedResult](t, s.do(t, http.MethodGet, "/api/reviews", memberTok, nil))
	assert.Len(t, page.Data, 1)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/reviews?page=0", memberTok, nil).Code)

	stats := decodeBody[appdashboard.Stats](t, s.do(t, http.MethodGet, "/api/dashboard/stats", memberTok, nil))
	assert.Equal(t, 1, stats.TotalReviews)
	assert.Equal(t, 1, stats.RatingDistribution["A"])

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/reviews/"+string(created.ID), otherTok, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/reviews/"+string(created.ID), memberTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/reviews/"+string(created.ID), memberTok, nil).Code)

	assert.EqualValues(t, 1, s.recorder.AnalysesCompleted.Load())
}

func TestSubmitValidation(t *testing.T) {
	s := newTestServer(t)
	tok := s.register(t, "admin@example.com")

	for name, body := range map[string]any{
		"unknown type":  map[string]string{"content_type": "billboard", "original_content": "x"},
		"blank content": map[string]string{"content_type": "email", "original_content": "   "},
	} {
		rec := s.do(t, http.MethodPost, "/api/reviews", tok, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitKeepsSource(t *testing.T) {
	s := newTestServer(t)
	tok := s.register(t, "admin@example.com")

	rec := s.do(t, http.MethodPost, "/api/reviews", tok, map[string]string{
		"content_type":     "social_media",
		"original_content": "New menu drops Friday!",
		"source":           "slack",
		"source_reference": "C123/1712345678.000100",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	created := decodeBody[reviews.Review](t, rec)
	assert.Equal(t, reviews.SourceSlack, created.Source)
	require.NotNil(t, created.SourceReference)
	assert.Equal(t, "C123/1712345678.000100", *created.SourceReference)

	got := decodeBody[reviews.Review](t, s.do(t, http.MethodGet, "/api/reviews/"+string(created.ID), tok, nil))
	assert.Equal(t, reviews.SourceSlack, got.Source)
	require.NotNil(t, got.SourceReference)
	assert.Equal(t, "C123/1712345678.000100", *got.SourceReference)

	rec = s.do(t, http.MethodPost, "/api/reviews", tok, map[string]string{
		"content_type": "email", "original_content": "Hi", "source": "fax",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitWhenQueueIsFull(t *testing.T) {
	s := newTestServer(t)
	tok := s.register(t, "admin@example.com")
	s.reviews.Executor = refusing{}

	rec := s.do(t, http.MethodPost, "/api/reviews", tok, map[string]string{
		"content_type": "email", "original_content": "Hello!",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	page := decodeBody[reviews.PaginatedResult](t, s.do(t, http.MethodGet, "/api/reviews", tok, nil))
	require.Len(t, page.Data, 1)
	assert.Equal(t, reviews.StatusError, page.Data[0].Status)
}

func TestGuidelinesAndIntegrations(t *testing.T) {
	s := newTestServer(t)
	adminTok := s.register(t, "admin@example.com")
	memberTok := s.register(t, "member@example.com")

	g := decodeBody[map[string]any](t, s.do(t, http.MethodGet, "/api/settings/guidelines", memberTok, nil))
	assert.Equal(t, "", g["content"])

	body := map[string]string{"content": "Friendly, never pushy."}
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/api/settings/guidelines", memberTok, body).Code)
	rec := s.do(t, http.MethodPut, "/api/settings/guidelines", adminTok, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Friendly, never pushy.", decodeBody[map[string]any](t, rec)["content"])

	rec = s.do(t, http.MethodPost, "/api/integrations/slack/fetch?channel_id=C1", memberTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Slack not configured", decodeBody[map[string]string](t, rec)["detail"])

	st := decodeBody[map[string]bool](t, s.do(t, http.MethodGet, "/api/integrations/status", memberTok, nil))
	assert.Equal(t, map[string]bool{"slack": false, "notion": false}, st)

	cfg := map[string]any{"api_key": "secret_x", "database_ids": []string{"db-1"}}
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/integrations/notion/config", memberTok, cfg).Code)
	rec = s.do(t, http.MethodPost, "/api/integrations/notion/config", adminTok, cfg)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "saved", decodeBody[map[string]string](t, rec)["status"])

	st = decodeBody[map[string]bool](t, s.do(t, http.MethodGet, "/api/integrations/status", memberTok, nil))
	assert.True(t, st["notion"])

	rec = s.do(t, http.MethodPost, "/api/integrations/notion/fetch?database_id=db-1&content_type=poster", memberTok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassify(t *testing.T) {
	r := &Router{}
	status, _ := r.classify(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	status, _ = r.classify(worker.ErrClosed)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	// provider quota errors land on the review record, never on a request
	status, _ = r.classify(domai.ErrQuotaExceeded)
	assert.Equal(t, http.StatusInternalServerError, status)
}
