package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learninglab-backend/internal/http/response"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
	"github.com/yungbote/learninglab-backend/internal/services"
)

const defaultUsageWindow = 30 * 24 * time.Hour

type UsageHandler struct {
	log          *logger.Logger
	usageService services.UsageService
	now          func() time.Time
}

func NewUsageHandler(log *logger.Logger, usageService services.UsageService) *UsageHandler {
	return &UsageHandler{
		log:          log.With("handler", "UsageHandler"),
		usageService: usageService,
		now:          time.Now,
	}
}

// GET /api/usage?since=<RFC3339 | duration such as 24h>
func (h *UsageHandler) Summary(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	since, err := h.parseSince(c.Query("since"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_since", err)
		return
	}
	totals, err := h.usageService.Summary(c.Request.Context(), userID, since)
	if err != nil {
		h.log.Error("Usage summary failed", "error", err, "user_id", userID)
		response.RespondErr(c, "load_usage_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"since": since, "usage": totals})
}

// GET /api/runs/:id/calls
func (h *UsageHandler) RunCalls(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	runID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	calls, err := h.usageService.RunCalls(c.Request.Context(), userID, runID)
	if err != nil {
		response.RespondErr(c, "load_run_calls_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run_id": runID, "calls": calls})
}

func (h *UsageHandler) parseSince(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return h.now().Add(-defaultUsageWindow), nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return h.now().Add(-d), nil
	}
	return time.Parse(time.RFC3339, raw)
}
