package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/learninglab-backend/internal/chain"
	"github.com/yungbote/learninglab-backend/internal/data/repos"
	"github.com/yungbote/learninglab-backend/internal/domain"
	"github.com/yungbote/learninglab-backend/internal/pkg/dbctx"
	"github.com/yungbote/learninglab-backend/internal/platform/apierr"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

const responseSeparator = "\n\n---\n\n"

const curriculumPrompt = `Organize the course into 2–4 levels. Each level should have 3–6 peer-teachable lessons. Each lesson must include:
- title
- synopsis
- instructions (as one string including bullets, summary, and common issues)
- 2–4 graduationRequirements

Return this in formatted text (not JSON yet).
`

const toJSONPrompt = `Now convert the curriculum to JSON.

Each lesson must contain:
- title
- synopsis
- instructions (as a **single string**, including bullets, summary, and common issues)
- graduationRequirements (a list of 2–4 items)

Return ONLY the following JSON structure:
{
  "levels": [
    {
      "title": "Level Title",
      "description": "Level Description",
      "lessons": [
        {
          "title": "Lesson Title",
          "synopsis": "Short summary of the lesson",
          "instructions": "All text as one string: bullets + explanation + common issues",
          "graduationRequirements": ["Requirement 1", "Requirement 2"]
        }
      ]
    }
  ]
}
`

// CoursePlanGeneration is the outcome of one generate call.
type CoursePlanGeneration struct {
	Plan   *domain.CoursePlan `json:"plan"`
	RunID  uuid.UUID          `json:"run_id"`
	Usage  chain.Usage        `json:"usage"`
	Calls  int                `json:"calls"`
	Errors int                `json:"errors"`
}

type CoursePlanService interface {
	Create(ctx context.Context, ownerUserID uuid.UUID, title, direction string) (*domain.CoursePlan, error)
	Get(ctx context.Context, ownerUserID, id uuid.UUID) (*domain.CoursePlan, error)
	List(ctx context.Context, ownerUserID uuid.UUID) ([]*domain.CoursePlan, error)
	UpdateDirection(ctx context.Context, ownerUserID, id uuid.UUID, title, direction *string) (*domain.CoursePlan, error)
	// Generate runs the inventory, goals, curriculum and JSON conversion chain over the
	// plan's direction and stores the validated curriculum on the plan.
	Generate(ctx context.Context, ownerUserID, id uuid.UUID) (*CoursePlanGeneration, error)
}

type coursePlanService struct {
	log    *logger.Logger
	plans  repos.CoursePlanRepo
	runner *ChainRunner
}

func NewCoursePlanService(plans repos.CoursePlanRepo, runner *ChainRunner, baseLog *logger.Logger) CoursePlanService {
	return &coursePlanService{
		log:    baseLog.With("service", "CoursePlanService"),
		plans:  plans,
		runner: runner,
	}
}

func (s *coursePlanService) Create(ctx context.Context, ownerUserID uuid.UUID, title, direction string) (*domain.CoursePlan, error) {
	if ownerUserID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthorized", errors.New("missing user"))
	}
	plan := &domain.CoursePlan{
		OwnerUserID: ownerUserID,
		Title:       strings.TrimSpace(title),
		PlanJSON:    direction,
	}
	if _, err := s.plans.Create(dbctx.Context{Ctx: ctx}, []*domain.CoursePlan{plan}); err != nil {
		return nil, fmt.Errorf("create course plan: %w", err)
	}
	return plan, nil
}

func (s *coursePlanService) Get(ctx context.Context, ownerUserID, id uuid.UUID) (*domain.CoursePlan, error) {
	plan, err := s.plans.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, fmt.Errorf("load course plan: %w", err)
	}
	if plan == nil || plan.OwnerUserID != ownerUserID {
		return nil, apierr.NotFound("course_plan_not_found", errors.New("course plan not found"))
	}
	return plan, nil
}

func (s *coursePlanService) List(ctx context.Context, ownerUserID uuid.UUID) ([]*domain.CoursePlan, error) {
	plans, err := s.plans.ListByOwner(dbctx.Context{Ctx: ctx}, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list course plans: %w", err)
	}
	return plans, nil
}

func (s *coursePlanService) UpdateDirection(ctx context.Context, ownerUserID, id uuid.UUID, title, direction *string) (*domain.CoursePlan, error) {
	if _, err := s.Get(ctx, ownerUserID, id); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if title != nil {
		updates["title"] = strings.TrimSpace(*title)
	}
	if direction != nil {
		updates["plan_json"] = *direction
	}
	if err := s.plans.UpdateFields(dbctx.Context{Ctx: ctx}, id, updates); err != nil {
		return nil, fmt.Errorf("update course plan: %w", err)
	}
	return s.Get(ctx, ownerUserID, id)
}

// coursePlanChain is the built chain plus the labels its results are read back under.
type coursePlanChain struct {
	*chain.Chain
	direction  chain.Label[string]
	inventory  chain.Label[string]
	goals      chain.Label[string]
	curriculum chain.Label[string]
	jsonText   chain.Label[string]
}

func (s *coursePlanService) chain() (*coursePlanChain, error) {
	cp := &coursePlanChain{
		direction:  chain.NewLabel[string]("direction"),
		inventory:  chain.NewLabel[string]("inventory"),
		goals:      chain.NewLabel[string]("goals"),
		curriculum: chain.NewLabel[string]("curriculum"),
		jsonText:   chain.NewLabel[string]("jsonText"),
	}
	defaults := s.runner.Defaults().With(chain.WithMaxTokens(5000))

	c, err := chain.NewBuilder(defaults).
		Then(
			chain.Prompt("inventory", cp.inventory, chain.Text()).
				System("You are a curriculum designer identifying all teachable elements for a course.").
				User("Course direction: ${direction}"+
					"\n\nList specific skills, concepts, drills, poses, or principles that might be taught. "+
					"For each, mention prerequisites and a rough estimate of difficulty or readiness needed."),
			chain.Prompt("goals", cp.goals, chain.Text()).
				System("You are helping define goals and experience for a course.").
				User("${direction}").
				Assistant("${inventory}").
				User("Define inspiring yet realistic outcomes for this course based on the listed teachable content. "+
					"Consider time limits (about 15 minutes per lesson. Each student learns a lesson and then teaches it. "+
					"Thus a student can finish learning/teaching two lessons per hour.). "+
					"Define the kind of student experience and emotional arc we want. Then suggest which goals to aim for."),
			chain.Prompt("curriculum", cp.curriculum, chain.Text()).
				System("You are designing a level-based curriculum for peer-teaching.").
				User("${direction}").
				Assistant("${inventory}").
				Assistant("${goals}").
				User(curriculumPrompt),
			chain.Prompt("toJson", cp.jsonText, chain.Text()).
				System("You are converting structured curriculum content into strict JSON.").
				User("${direction}").
				Assistant("${inventory}").
				Assistant("${goals}").
				Assistant("${curriculum}").
				User(toJSONPrompt),
		).
		Build()
	if err != nil {
		return nil, err
	}
	cp.Chain = c
	return cp, nil
}

func (s *coursePlanService) Generate(ctx context.Context, ownerUserID, id uuid.UUID) (*CoursePlanGeneration, error) {
	plan, err := s.Get(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	direction := plan.PlanJSON
	if strings.TrimSpace(direction) == "" {
		return nil, apierr.BadRequest("missing_direction", errors.New("missing or invalid planJson"))
	}

	cp, err := s.chain()
	if err != nil {
		return nil, fmt.Errorf("build course plan chain: %w", err)
	}
	start := chain.With(chain.Root(cp.Defaults()), cp.direction, direction)

	planID := plan.ID
	res := s.runner.RunFrom(ctx, cp.Chain, start, Subject{Kind: "course_plan", ID: &planID, OwnerUserID: ownerUserID})
	log := s.log.WithContext(ctx).With("course_plan_id", planID, "run_id", res.RunID())

	if err := firstFailure(res, cp.inventory, cp.goals, cp.curriculum, cp.jsonText); err != nil {
		log.Warn("course plan chain failed", "error", err)
		return nil, apierr.Upstream("generation_failed", err)
	}

	inventory, _ := chain.Get(res, cp.inventory)
	goals, _ := chain.Get(res, cp.goals)
	curriculum, _ := chain.Get(res, cp.curriculum)
	jsonText, _ := chain.Get(res, cp.jsonText)

	generated, err := validatePlanJSON(jsonText)
	if err != nil {
		log.Warn("invalid course plan JSON", "error", err)
		return nil, apierr.Upstream("invalid_plan_json", err)
	}

	now := time.Now().UTC()
	runID := res.RunID()
	updates := map[string]interface{}{
		"generated_json":   datatypes.JSON(generated),
		"openai_responses": strings.Join([]string{inventory, goals, curriculum, jsonText}, responseSeparator),
		"last_generated":   now,
		"last_run_id":      runID,
	}
	if err := s.plans.UpdateFields(dbctx.Context{Ctx: ctx}, planID, updates); err != nil {
		return nil, fmt.Errorf("store generated plan: %w", err)
	}

	stored, err := s.Get(ctx, ownerUserID, planID)
	if err != nil {
		return nil, err
	}
	log.Info("course plan generated", "calls", len(res.Ledger()))
	return &CoursePlanGeneration{
		Plan:   stored,
		RunID:  runID,
		Usage:  res.Usage(),
		Calls:  len(res.Ledger()),
		Errors: len(res.Errors()),
	}, nil
}
