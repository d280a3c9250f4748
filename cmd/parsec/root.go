package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KingRain/Parsec/internal/gateway/app"
	"github.com/KingRain/Parsec/internal/gateway/config"
	"github.com/KingRain/Parsec/internal/github"
	"github.com/KingRain/Parsec/internal/logging"
)

var (
	logLevelFlag string
	tokenFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "parsec",
	Short: "Parsec - GitHub repository explorer",
	Long: `Parsec inspects GitHub repositories: it enriches npm dependencies with
registry metadata, descriptions and logos, and draws Mermaid architecture
diagrams that are guaranteed to parse.

Configuration is read from the environment and .env, like the gateway.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "GitHub access token for private repositories")
}

// loadDeps reads the config and builds the shared clients. Logs go to
// stderr so stdout stays machine readable.
func loadDeps(cmd *cobra.Command) (*app.Deps, *config.Config, logrus.FieldLogger, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, nil, err
	}
	logCfg := cfg.Log
	logCfg.Output = "stderr"
	if logLevelFlag != "" {
		logCfg.Level = logLevelFlag
	}
	logger := logging.Configure(logrus.New(), logCfg)
	d, err := app.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return d, cfg, logger, nil
}

// splitRepo parses "owner/repo".
func splitRepo(arg string) (string, string, error) {
	owner, repo, ok := strings.Cut(strings.Trim(arg, "/"), "/")
	if !ok || github.ValidateRepo(owner, repo) != nil {
		return "", "", fmt.Errorf("expected OWNER/REPO, got %q", arg)
	}
	return owner, repo, nil
}
