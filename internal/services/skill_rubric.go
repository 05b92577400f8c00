package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/learninglab-backend/internal/chain"
	"github.com/yungbote/learninglab-backend/internal/platform/apierr"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

const skillRubricSystem = "You are an expert educator designing skill rubrics. A skill dimension is a major competency " +
	"area for the course. Each dimension has five skill degrees from novice to expert, each with " +
	"criteria and exercises."

const (
	rubricBranchCriteria  = "criteria"
	rubricBranchExercises = "exercises"
)

type SkillDegree struct {
	Name     string   `json:"name"`
	Criteria string   `json:"criteria"`
	Lessons  []string `json:"lessons"`
}

type SkillDimension struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Degrees     []SkillDegree `json:"degrees"`
}

type SkillRubric struct {
	Dimensions []SkillDimension `json:"dimensions"`
	RunID      uuid.UUID        `json:"run_id"`
}

type SkillRubricService interface {
	// Generate lists degree labels and dimensions, then fans out criteria and exercises
	// per dimension in parallel.
	Generate(ctx context.Context, ownerUserID uuid.UUID, info CourseInfo) (*SkillRubric, error)
}

type skillRubricService struct {
	runner *ChainRunner
	log    *logger.Logger
}

func NewSkillRubricService(runner *ChainRunner, baseLog *logger.Logger) SkillRubricService {
	return &skillRubricService{
		runner: runner,
		log:    baseLog.With("service", "SkillRubricService"),
	}
}

type skillRubricChain struct {
	*chain.Chain
	courseInfo   chain.Label[string]
	degreeLabels chain.Label[[]string]
	dimensions   chain.Label[[]string]
	details      chain.Label[map[string][]string]
}

func (s *skillRubricService) chain() (*skillRubricChain, error) {
	sr := &skillRubricChain{
		courseInfo:   chain.NewLabel[string]("courseInfo"),
		degreeLabels: chain.NewLabel[[]string]("degreeLabels"),
		dimensions:   chain.NewLabel[[]string]("dimensions"),
		details:      chain.NewLabel[map[string][]string]("rubricDetails"),
	}
	defaults := s.runner.Defaults().With(chain.WithTemperature(1), chain.WithMaxTokens(3000))

	criteria := chain.ForEach[string, string](sr.dimensions).
		Named("degreeDescriptions").
		As("dimension").
		Do(
			chain.Prompt("degreeDescriptions", chain.NewLabel[string]("criteriaDetail"), chain.Text()).
				System(skillRubricSystem).
				User("${courseInfo}\n\nDimension: ${dimension}\nDegree labels: ${degreeLabels}\n" +
					"For each degree, describe what a student must demonstrate at that degree for this dimension. " +
					"Return one paragraph per degree, separated by a blank line, and follow the order of the degree labels.").
				MaxTokens(800),
		).
		JoinInto(chain.NewLabel[[]string]("degreeDescriptions"))

	exercises := chain.ForEach[string, string](sr.dimensions).
		Named("degreeExercises").
		As("dimension").
		Do(
			chain.Prompt("degreeExercises", chain.NewLabel[string]("exerciseDetail"), chain.Text()).
				System(skillRubricSystem).
				User("${courseInfo}\n\nDimension: ${dimension}\nDegree labels: ${degreeLabels}\n" +
					"For each degree, list three exercises a student can do to progress to the next degree. " +
					"Provide one exercise per line and separate each group of exercises by a blank line. " +
					"Follow the order of the degree labels.").
				MaxTokens(800),
		).
		JoinInto(chain.NewLabel[[]string]("degreeExercises"))

	c, err := chain.NewBuilder(defaults).
		Then(
			chain.Prompt("degreeLabels", sr.degreeLabels, chain.Lines()).
				System(skillRubricSystem).
				User("${courseInfo}\n\nList the five skill degree labels from novice to expert. Return one per line.").
				MaxTokens(50),
			chain.Prompt("dimensions", sr.dimensions, chain.Lines()).
				System(skillRubricSystem).
				User("${courseInfo}\n\nList 5-7 key skill dimensions for this course. Return one per line."),
			chain.Parallel(sr.details).
				Named("rubricDetails").
				Branch(rubricBranchCriteria, criteria).
				Branch(rubricBranchExercises, exercises),
		).
		Build()
	if err != nil {
		return nil, err
	}
	sr.Chain = c
	return sr, nil
}

func (s *skillRubricService) Generate(ctx context.Context, ownerUserID uuid.UUID, info CourseInfo) (*SkillRubric, error) {
	if info.IsEmpty() {
		return nil, apierr.BadRequest("missing_course_info", errors.New("title, description or topic is required"))
	}
	sr, err := s.chain()
	if err != nil {
		return nil, fmt.Errorf("build skill rubric chain: %w", err)
	}
	start := chain.With(chain.Root(sr.Defaults()), sr.courseInfo, info.Prompt())

	res := s.runner.RunFrom(ctx, sr.Chain, start, Subject{Kind: "skill_rubric", OwnerUserID: ownerUserID})
	if err := firstFailure(res, sr.degreeLabels, sr.dimensions); err != nil {
		s.log.Warn("skill rubric generation failed", "run_id", res.RunID(), "error", err)
		return nil, apierr.Upstream("generation_failed", err)
	}

	dims, _ := chain.Lookup(res, sr.dimensions)
	degrees, _ := chain.Lookup(res, sr.degreeLabels)
	details, _ := chain.Lookup(res, sr.details)

	rubric := assembleRubric(dims, degrees, details[rubricBranchCriteria], details[rubricBranchExercises])
	rubric.RunID = res.RunID()
	return rubric, nil
}

// assembleRubric lines up the per-dimension criteria and exercise blocks with the
// degree labels. Missing blocks leave empty criteria and lessons.
func assembleRubric(dims, degreeLabels, criteriaBlocks, exerciseBlocks []string) *SkillRubric {
	out := &SkillRubric{Dimensions: make([]SkillDimension, 0, len(dims))}
	for i, name := range dims {
		var criteria []string
		if i < len(criteriaBlocks) {
			criteria = splitParagraphs(criteriaBlocks[i])
		}
		var groups [][]string
		if i < len(exerciseBlocks) {
			groups = splitGroups(exerciseBlocks[i])
		}

		degrees := make([]SkillDegree, 0, len(degreeLabels))
		for j, label := range degreeLabels {
			d := SkillDegree{Name: label, Lessons: []string{}}
			if j < len(criteria) {
				d.Criteria = criteria[j]
			}
			if j < len(groups) {
				d.Lessons = groups[j]
			}
			degrees = append(degrees, d)
		}
		out.Dimensions = append(out.Dimensions, SkillDimension{Name: name, Degrees: degrees})
	}
	return out
}

func splitParagraphs(block string) []string {
	var out []string
	for _, p := range strings.Split(block, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitGroups keeps empty groups so later groups stay aligned with their degree.
func splitGroups(block string) [][]string {
	if block == "" {
		return nil
	}
	parts := strings.Split(block, "\n\n")
	out := make([][]string, 0, len(parts))
	for _, g := range parts {
		lines := []string{}
		for _, l := range strings.Split(g, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
		out = append(out, lines)
	}
	return out
}
