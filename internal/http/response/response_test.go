package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learninglab-backend/internal/platform/apierr"
)

func TestRespondErr(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api_error", apierr.NotFound("course_plan_not_found", errors.New("course plan not found")), http.StatusNotFound, "course_plan_not_found"},
		{"wrapped", fmt.Errorf("outer: %w", apierr.Upstream("", errors.New("bad json"))), http.StatusBadGateway, "fallback"},
		{"plain", errors.New("db down"), http.StatusInternalServerError, "fallback"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondErr(c, "fallback", tc.err)
			if rec.Code != tc.status {
				t.Fatalf("status=%d want %d", rec.Code, tc.status)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tc.code || env.Error.Message == "" {
				t.Fatalf("unexpected envelope: %+v", env)
			}
		})
	}
}
