package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learninglab-backend/internal/http/response"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
	"github.com/yungbote/learninglab-backend/internal/services"
)

// GenerationHandler serves the stateless generators that work from a course profile.
type GenerationHandler struct {
	log       *logger.Logger
	teachable services.TeachableItemService
	rubric    services.SkillRubricService
}

func NewGenerationHandler(log *logger.Logger, teachable services.TeachableItemService, rubric services.SkillRubricService) *GenerationHandler {
	return &GenerationHandler{
		log:       log.With("handler", "GenerationHandler"),
		teachable: teachable,
		rubric:    rubric,
	}
}

// POST /api/teachable-items
func (h *GenerationHandler) TeachableItems(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var info services.CourseInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.teachable.Generate(c.Request.Context(), userID, info)
	if err != nil {
		h.log.Warn("Generate teachable items failed", "error", err, "user_id", userID)
		response.RespondErr(c, "generate_teachable_items_failed", err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/skill-rubrics
func (h *GenerationHandler) SkillRubric(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var info services.CourseInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.rubric.Generate(c.Request.Context(), userID, info)
	if err != nil {
		h.log.Warn("Generate skill rubric failed", "error", err, "user_id", userID)
		response.RespondErr(c, "generate_skill_rubric_failed", err)
		return
	}
	response.RespondOK(c, out)
}
