package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/config"
	"github.com/ivankudzin/recipemarket/internal/infra/logger"
)

type globals struct {
	configPath string
}

// NewRootCmd builds the recipectl command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "recipectl",
		Short:         "Operator tooling for the recipe marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultPath := os.Getenv("APP_CONFIG")
	if defaultPath == "" {
		defaultPath = "configs/config.yaml"
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", defaultPath, "Path to the YAML config file")

	root.AddCommand(
		newMigrateCmd(g),
		newPasswordHashCmd(),
		newPromoteAdminCmd(g),
		newSweepOrphansCmd(g),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (g *globals) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}
