package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/learninglab-backend/internal/data/repos"
	"github.com/yungbote/learninglab-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/learninglab-backend/internal/http/handlers"
	httpMW "github.com/yungbote/learninglab-backend/internal/http/middleware"
	"github.com/yungbote/learninglab-backend/internal/inference/engine/mock"
	"github.com/yungbote/learninglab-backend/internal/inference/port"
	"github.com/yungbote/learninglab-backend/internal/observability"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
	"github.com/yungbote/learninglab-backend/internal/services"
)

const planReply = `{"levels":[{"title":"Foundations","lessons":[{"title":"Bird"}]}]}`

type testServer struct {
	router *gin.Engine
	auth   services.AuthService
	eng    *mock.Engine
}

func newTestServer(t *testing.T, limiter *httpMW.RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	db := testutil.DB(t)

	eng := mock.New().
		When("List specific skills", "INVENTORY").
		When("Define inspiring yet realistic outcomes", "GOALS").
		When("Organize the course into", "CURRICULUM").
		When("Now convert the curriculum to JSON", planReply).
		When("List the key categories", "Poses\nSpotting").
		When("Category: Poses\n", "Bird\nThrone").
		When("Category: Spotting\n", "Hand spot")

	plans := repos.NewCoursePlanRepo(db, log)
	callLogs := repos.NewCallLogRepo(db, log)
	runner := services.NewChainRunner(port.New(eng, port.WithLogger(log)), callLogs, log)
	auth, err := services.NewAuthService(log, "test-secret", "learninglab")
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	router := NewRouter(RouterConfig{
		Log:               log,
		Metrics:           observability.NewMetrics(),
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, auth),
		GenerateLimiter:   limiter,
		HealthHandler:     httpH.NewHealthHandler(nil),
		CoursePlanHandler: httpH.NewCoursePlanHandler(log, services.NewCoursePlanService(plans, runner, log)),
		GenerationHandler: httpH.NewGenerationHandler(log,
			services.NewTeachableItemService(runner, log),
			services.NewSkillRubricService(runner, log)),
		UsageHandler: httpH.NewUsageHandler(log, services.NewUsageService(callLogs, log)),
	})
	return &testServer{router: router, auth: auth, eng: eng}
}

func (s *testServer) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok, err := s.auth.IssueToken(userID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthcheckIsPublic(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/healthcheck", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("unexpected healthcheck: %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/api/course-plans", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	w = s.do(t, http.MethodGet, "/api/course-plans", "not-a-jwt", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}
}

func TestCoursePlanLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	owner := uuid.New()
	tok := s.token(t, owner)

	w := s.do(t, http.MethodPost, "/api/course-plans", tok, map[string]string{
		"title":    "Acroyoga",
		"planJson": "Eight weeks of partner acrobatics for beginners",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[struct {
		CoursePlan struct {
			ID uuid.UUID `json:"id"`
		} `json:"course_plan"`
	}](t, w)
	id := created.CoursePlan.ID.String()

	w = s.do(t, http.MethodPost, "/api/course-plans/"+id+"/generate", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", w.Code, w.Body.String())
	}
	gen := decode[struct {
		RunID uuid.UUID `json:"run_id"`
		Calls int       `json:"calls"`
		Plan  struct {
			GeneratedJSON json.RawMessage `json:"generated_json"`
		} `json:"plan"`
	}](t, w)
	if gen.Calls != 4 {
		t.Fatalf("expected 4 calls, got %d", gen.Calls)
	}
	if !strings.Contains(string(gen.Plan.GeneratedJSON), "Foundations") {
		t.Fatalf("generated json not stored: %s", gen.Plan.GeneratedJSON)
	}

	w = s.do(t, http.MethodGet, "/api/runs/"+gen.RunID.String()+"/calls", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("run calls: %d %s", w.Code, w.Body.String())
	}
	calls := decode[struct {
		Calls []struct {
			Label string `json:"label"`
		} `json:"calls"`
	}](t, w)
	if len(calls.Calls) != 4 || calls.Calls[0].Label != "inventory" {
		t.Fatalf("unexpected run calls: %+v", calls.Calls)
	}

	w = s.do(t, http.MethodGet, "/api/usage?since=1h", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("usage: %d %s", w.Code, w.Body.String())
	}
	usage := decode[struct {
		Usage struct {
			Calls int64 `json:"calls"`
		} `json:"usage"`
	}](t, w)
	if usage.Usage.Calls != 4 {
		t.Fatalf("expected 4 calls in usage, got %d", usage.Usage.Calls)
	}

	stranger := s.token(t, uuid.New())
	w = s.do(t, http.MethodGet, "/api/course-plans/"+id, stranger, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another owner, got %d", w.Code)
	}
}

func TestLegacyGenerateReturnsSuccessFlag(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.token(t, uuid.New())
	w := s.do(t, http.MethodPost, "/api/course-plans", tok, map[string]string{"title": "T", "planJson": "direction"})
	created := decode[struct {
		CoursePlan struct {
			ID uuid.UUID `json:"id"`
		} `json:"course_plan"`
	}](t, w)

	w = s.do(t, http.MethodPost, "/api/generate-course-plan", tok, map[string]string{"coursePlanId": created.CoursePlan.ID.String()})
	if w.Code != http.StatusOK {
		t.Fatalf("legacy generate: %d %s", w.Code, w.Body.String())
	}
	if got := decode[map[string]bool](t, w); !got["success"] {
		t.Fatalf("expected success flag, got %v", got)
	}

	w = s.do(t, http.MethodPost, "/api/generate-course-plan", tok, map[string]string{"coursePlanId": "nope"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestTeachableItemsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.token(t, uuid.New())
	w := s.do(t, http.MethodPost, "/api/teachable-items", tok, map[string]string{
		"title":         "Acroyoga Jam",
		"topicAndFocus": "L-basing",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("teachable items: %d %s", w.Code, w.Body.String())
	}
	out := decode[services.TeachableItems](t, w)
	if len(out.Categories) != 2 || out.Categories[0].Items[1] != "Throne" {
		t.Fatalf("unexpected categories: %+v", out.Categories)
	}

	w = s.do(t, http.MethodPost, "/api/teachable-items", tok, map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty profile, got %d", w.Code)
	}
}

func TestGenerateEndpointsAreRateLimited(t *testing.T) {
	s := newTestServer(t, httpMW.NewRateLimiter(1))
	tok := s.token(t, uuid.New())
	body := map[string]string{"title": "Acroyoga Jam"}

	if w := s.do(t, http.MethodPost, "/api/teachable-items", tok, body); w.Code != http.StatusOK {
		t.Fatalf("first request: %d %s", w.Code, w.Body.String())
	}
	w := s.do(t, http.MethodPost, "/api/teachable-items", tok, body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/course-plans", tok, nil); w.Code != http.StatusOK {
		t.Fatalf("read endpoints must not be throttled, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/healthcheck", "", nil)
	w := s.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "api_requests_total") {
		t.Fatalf("expected api request counter, got:\n%s", w.Body.String())
	}
}
