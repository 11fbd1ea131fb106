// Package cli implements the lrna-launch command line.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/lrnalaunch/internal/config"
	"github.com/me/lrnalaunch/internal/launch"
	"github.com/me/lrnalaunch/internal/logging"
	"github.com/me/lrnalaunch/pkg/bvbrc"
)

var (
	flagDebug         bool
	flagLogLevel      string
	flagLogFormat     string
	flagAppServiceURL string
	flagWorkspaceURL  string

	logger *slog.Logger
)

// Exit codes returned by ExitCode.
const (
	ExitFailure     = 1
	ExitConfig      = 2
	ExitMissingFile = 3
)

// ExitCode maps an error from Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, launch.ErrConfig):
		return ExitConfig
	case errors.Is(err, launch.ErrMissingFile):
		return ExitMissingFile
	}
	return ExitFailure
}

// NewRootCmd creates the root cobra command for lrna-launch.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultLaunchConfig().FromEnv()

	root := &cobra.Command{
		Use:   "lrna-launch",
		Short: "Launch the long RNA-seq pipeline on BV-BRC",
		Long: "lrna-launch runs the long RNA-seq pipeline for one replicate of an ENCODE experiment.\n" +
			"It can be run repeatedly and launches only the stages still needed to finish the\n" +
			"pipeline. Results are placed in <project>/<results-loc>/<experiment>/<replicate>/.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				flagLogLevel = "debug"
			}
			level, err := logging.ParseLevel(flagLogLevel)
			if err != nil {
				return err
			}
			format, err := logging.ParseFormat(flagLogFormat)
			if err != nil {
				return err
			}
			logger = logging.NewLoggerWithWriter(level, format, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	pf.StringVar(&flagLogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	pf.StringVar(&flagAppServiceURL, "app-service-url", bvbrc.DefaultAppServiceURL, "BV-BRC App Service endpoint")
	pf.StringVar(&flagWorkspaceURL, "workspace-url", bvbrc.DefaultWorkspaceURL, "BV-BRC Workspace endpoint")

	root.AddCommand(
		newLaunchCmd(cfg),
		newStagesCmd(),
		newRefsCmd(cfg),
		newHistoryCmd(cfg),
		newLoginCmd(),
		newVerifyCmd(cfg),
	)
	return root
}

// newPlatformClient creates an authenticated BV-BRC client.
func newPlatformClient() (*bvbrc.Client, error) {
	token, err := bvbrc.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("%w: run 'lrna-launch login' first", err)
	}
	if _, err := bvbrc.ParseToken(token); err != nil {
		return nil, err
	}
	cfg := bvbrc.DefaultConfig().WithToken(token)
	cfg.AppServiceURL = flagAppServiceURL
	cfg.WorkspaceURL = flagWorkspaceURL
	return bvbrc.NewClient(cfg, logger), nil
}

// projectPath turns a project name into the user's workspace folder.
// Absolute workspace paths are kept.
func projectPath(username, project string) string {
	if len(project) > 0 && project[0] == '/' {
		return launch.ProjectFolder("", project)
	}
	return bvbrc.WorkspacePath(username, project, "")
}
