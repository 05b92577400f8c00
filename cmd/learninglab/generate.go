package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/learninglab-backend/internal/app"
	"github.com/yungbote/learninglab-backend/internal/services"
)

var (
	generateUser  string
	generateTitle string
)

var generateCmd = &cobra.Command{
	Use:   "generate <teachable-items|skill-rubric|course-plan> <file>",
	Short: "Run one generation chain and print the result as JSON",
	Long: "teachable-items and skill-rubric read a course profile JSON file.\n" +
		"course-plan reads a plain-text course direction and stores the generated plan.",
	Args: cobra.ExactArgs(2),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateUser, "user", "", "owning user id (random when empty)")
	generateCmd.Flags().StringVar(&generateTitle, "title", "", "course plan title")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	kind, path := args[0], args[1]
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	owner, err := parseUser(generateUser)
	if err != nil {
		return err
	}

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()
	svc := application.Services

	var out any
	switch kind {
	case "teachable-items", "skill-rubric":
		var info services.CourseInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return fmt.Errorf("parse course profile: %w", err)
		}
		if kind == "teachable-items" {
			out, err = svc.TeachableItems.Generate(ctx, owner, info)
		} else {
			out, err = svc.SkillRubric.Generate(ctx, owner, info)
		}
	case "course-plan":
		plan, cerr := svc.CoursePlan.Create(ctx, owner, generateTitle, strings.TrimSpace(string(raw)))
		if cerr != nil {
			return cerr
		}
		out, err = svc.CoursePlan.Generate(ctx, owner, plan.ID)
	default:
		return fmt.Errorf("unknown generator %q", kind)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
