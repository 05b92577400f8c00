package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/learninglab-backend/internal/config"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

// Version is set at build time via ldflags.
var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "learninglab",
	Short:         "Course design assistant backend",
	Long:          "learninglab serves and runs the prompt chains that turn a course idea into teachable items, skill rubrics and course plans.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(serveCmd, tokenCmd, generateCmd)
}

// bootstrap loads configuration and builds the logger every subcommand shares.
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
