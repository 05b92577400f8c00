package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/learninglab-backend/internal/chain"
	"github.com/yungbote/learninglab-backend/internal/platform/apierr"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

const teachableItemsSystem = "You are an expert course designer. A 'teachable item' is the smallest " +
	"atomic unit that can be taught. " +
	"Example categories for acroyoga are poses, washing machines, warm-ups, " +
	"technique drills, technique principles, and spotting. " +
	"Example categories for chess are piece movement, openings, tactics, " +
	"endgames, and strategy. " +
	"Individual items should be very short, 2-5 words each."

type TeachableCategory struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

type TeachableItems struct {
	Categories []TeachableCategory `json:"categories"`
	RunID      uuid.UUID           `json:"run_id"`
}

type TeachableItemService interface {
	// Generate brainstorms categories for the course, then lists the items of each category.
	Generate(ctx context.Context, ownerUserID uuid.UUID, info CourseInfo) (*TeachableItems, error)
}

type teachableItemService struct {
	runner *ChainRunner
	log    *logger.Logger
}

func NewTeachableItemService(runner *ChainRunner, baseLog *logger.Logger) TeachableItemService {
	return &teachableItemService{
		runner: runner,
		log:    baseLog.With("service", "TeachableItemService"),
	}
}

type teachableItemsChain struct {
	*chain.Chain
	courseInfo chain.Label[string]
	categories chain.Label[[]string]
	items      chain.Label[[][]string]
}

func (s *teachableItemService) chain() (*teachableItemsChain, error) {
	ti := &teachableItemsChain{
		courseInfo: chain.NewLabel[string]("courseInfo"),
		categories: chain.NewLabel[[]string]("categories"),
		items:      chain.NewLabel[[][]string]("items"),
	}
	defaults := s.runner.Defaults().With(chain.WithTemperature(0.7), chain.WithMaxTokens(3000))

	c, err := chain.NewBuilder(defaults).
		Then(
			chain.Prompt("categories", ti.categories, chain.Lines()).
				System(teachableItemsSystem).
				User("${courseInfo}\n\nList the key categories of teachable items. Return one category per line."),
			chain.ForEach[string, []string](ti.categories).
				As("category").
				Do(
					chain.Prompt("items", chain.NewLabel[[]string]("itemList"), chain.Lines()).
						System(teachableItemsSystem).
						User("${courseInfo}\n\nCategory: ${category}\nList teachable items for this category, one per line."),
				).
				JoinInto(ti.items),
		).
		Build()
	if err != nil {
		return nil, err
	}
	ti.Chain = c
	return ti, nil
}

func (s *teachableItemService) Generate(ctx context.Context, ownerUserID uuid.UUID, info CourseInfo) (*TeachableItems, error) {
	if info.IsEmpty() {
		return nil, apierr.BadRequest("missing_course_info", errors.New("title, description or topic is required"))
	}
	ti, err := s.chain()
	if err != nil {
		return nil, fmt.Errorf("build teachable items chain: %w", err)
	}
	start := chain.With(chain.Root(ti.Defaults()), ti.courseInfo, info.Prompt())

	res := s.runner.RunFrom(ctx, ti.Chain, start, Subject{Kind: "teachable_items", OwnerUserID: ownerUserID})
	if err := firstFailure(res, ti.categories, ti.items); err != nil {
		s.log.Warn("teachable items generation failed", "run_id", res.RunID(), "error", err)
		return nil, apierr.Upstream("generation_failed", err)
	}

	cats, _ := chain.Lookup(res, ti.categories)
	items, _ := chain.Lookup(res, ti.items)
	out := &TeachableItems{Categories: make([]TeachableCategory, 0, len(cats)), RunID: res.RunID()}
	for i := 0; i < min(len(cats), len(items)); i++ {
		list := items[i]
		if list == nil {
			list = []string{}
		}
		out.Categories = append(out.Categories, TeachableCategory{Category: cats[i], Items: list})
	}
	return out, nil
}
