package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/learninglab-backend/internal/http/response"
	"github.com/yungbote/learninglab-backend/internal/platform/apierr"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
	"github.com/yungbote/learninglab-backend/internal/services"
)

type CoursePlanHandler struct {
	log         *logger.Logger
	planService services.CoursePlanService
}

func NewCoursePlanHandler(log *logger.Logger, planService services.CoursePlanService) *CoursePlanHandler {
	return &CoursePlanHandler{
		log:         log.With("handler", "CoursePlanHandler"),
		planService: planService,
	}
}

type createCoursePlanRequest struct {
	Title    string `json:"title"`
	PlanJSON string `json:"planJson"`
}

type updateCoursePlanRequest struct {
	Title    *string `json:"title"`
	PlanJSON *string `json:"planJson"`
}

type legacyGenerateRequest struct {
	CoursePlanID string `json:"coursePlanId"`
}

// POST /api/course-plans
func (h *CoursePlanHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req createCoursePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	plan, err := h.planService.Create(c.Request.Context(), userID, req.Title, req.PlanJSON)
	if err != nil {
		h.log.Error("Create course plan failed", "error", err, "user_id", userID)
		response.RespondErr(c, "create_course_plan_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"course_plan": plan})
}

// GET /api/course-plans
func (h *CoursePlanHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	plans, err := h.planService.List(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("List course plans failed", "error", err, "user_id", userID)
		response.RespondErr(c, "load_course_plans_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"course_plans": plans})
}

// GET /api/course-plans/:id
func (h *CoursePlanHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	plan, err := h.planService.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.RespondErr(c, "load_course_plan_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"course_plan": plan})
}

// PATCH /api/course-plans/:id
func (h *CoursePlanHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req updateCoursePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	plan, err := h.planService.UpdateDirection(c.Request.Context(), userID, id, req.Title, req.PlanJSON)
	if err != nil {
		response.RespondErr(c, "update_course_plan_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"course_plan": plan})
}

// POST /api/course-plans/:id/generate
func (h *CoursePlanHandler) Generate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.generate(c, userID, id, false)
}

// POST /api/generate-course-plan answers {success:true} like the first client expects.
func (h *CoursePlanHandler) GenerateLegacy(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req legacyGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, err := uuid.Parse(req.CoursePlanID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_plan_id", err)
		return
	}
	h.generate(c, userID, id, true)
}

func (h *CoursePlanHandler) generate(c *gin.Context, userID, id uuid.UUID, legacy bool) {
	gen, err := h.planService.Generate(c.Request.Context(), userID, id)
	if err != nil {
		var ae *apierr.Error
		if !errors.As(err, &ae) || ae.Status >= http.StatusInternalServerError {
			h.log.Error("Generate course plan failed", "error", err, "user_id", userID, "course_plan_id", id)
		}
		response.RespondErr(c, "generate_course_plan_failed", err)
		return
	}
	if legacy {
		response.RespondOK(c, gin.H{"success": true})
		return
	}
	response.RespondOK(c, gen)
}
