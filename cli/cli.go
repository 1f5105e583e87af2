// Package cli wires the pipeline into a command line entry point for
// use as a CI step.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"

	"github.com/sizewatch/sizewatch"
	"github.com/sizewatch/sizewatch/ci"
	"github.com/sizewatch/sizewatch/comment"
	"github.com/sizewatch/sizewatch/config"
	"github.com/sizewatch/sizewatch/diff"
	"github.com/sizewatch/sizewatch/store"
)

const AppName = "sizewatch"

// App is the command line application.
type App struct {
	cli    *cli.App
	logger *charmlog.Logger
}

// New builds the application.
func New() *App {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Level:           charmlog.InfoLevel,
	})

	app := &App{logger: logger}
	app.cli = &cli.App{
		Name:  AppName,
		Usage: "track build output size in CI",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "root",
				Usage: "project root directory",
				Value: ".",
			},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				logger.SetLevel(charmlog.DebugLevel)
			}
			slog.SetDefault(slog.New(logger))
			return nil
		},
		Action: app.run,
	}
	return app
}

// Run executes the application with the given arguments.
func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

func (a *App) run(ctx *cli.Context) error {
	run, err := ci.FromEnv()
	if err != nil {
		return err
	}

	root := ctx.String("root")
	resolver := config.NewResolver(root)
	cfg, err := resolver.Resolve()
	if err != nil {
		return err
	}
	for _, w := range resolver.Warnings {
		slog.Warn(w)
	}

	token, err := resolveToken(ctx.Context, cfg, run.Token, store.AppInstallationToken)
	if err != nil {
		return err
	}

	s, err := store.NewGitHub(store.GitHubConfig{
		Token:        token,
		Owner:        run.Owner,
		Repo:         run.Repo,
		RuntimeToken: run.RuntimeToken,
		ResultsURL:   run.ResultsURL,
	})
	if err != nil {
		return err
	}

	deps := sizewatch.Deps{Store: s}
	if run.IsPullRequest() && token != "" {
		comments, err := comment.NewGitHub(token, run.Owner, run.Repo, nil)
		if err != nil {
			return err
		}
		deps.Comments = comments
	}

	result, err := sizewatch.Run(ctx.Context, root, cfg, run, deps)
	if err != nil {
		return err
	}
	if result.Status == diff.StatusFail {
		return cli.Exit(fmt.Sprintf("size check failed: %s", failureReason(result)), 1)
	}
	return nil
}

// resolveToken picks the API token for the run. Fully configured App
// credentials win over the workflow token; mint exchanges them for a
// short-lived installation token.
func resolveToken(ctx context.Context, cfg config.Config, workflowToken string, mint func(context.Context, store.AppConfig) (string, error)) (string, error) {
	if !cfg.UseAppAuth() {
		return workflowToken, nil
	}
	slog.Debug("authenticating as GitHub App", "app_id", cfg.AppID)
	token, err := mint(ctx, store.AppConfig{
		AppID:          cfg.AppID,
		InstallationID: cfg.AppInstallationID,
		PrivateKeyPEM:  []byte(cfg.AppPrivateKey),
	})
	if err != nil {
		return "", fmt.Errorf("app auth: %w", err)
	}
	return token, nil
}

func failureReason(r diff.Result) string {
	if r.BudgetMessage != "" {
		return r.BudgetMessage
	}
	return r.ThresholdMessage
}
