// Command tipp is the operator CLI of the scoring engine.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/attaboy/tippspiel/internal/app"
	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/infra"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "tipp",
		Usage: "score matches, resolve specials and inspect leaderboards",
		Commands: []*cli.Command{
			migrateCommand(),
			finishCommand(),
			reopenCommand(),
			scoreCommand(),
			resolveSlotsCommand(),
			resolveSpecialsCommand(),
			recomputeCommand(),
			verifyCommand(),
			leaderboardCommand(),
			tablesCommand(),
			statsCommand(),
			chartCommand(),
			exportCommand(),
			tailCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the environment, and builds the logger.
// CLI logs go to stderr so command output stays clean.
func loadConfig() (*infra.Config, *slog.Logger, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, infra.NewLogger(os.Stderr, cfg.LogLevel), nil
}

// withApp runs fn with a connected App and closes it afterwards.
func withApp(fn func(c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.New(c.Context, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(c, a)
	}
}

func uuidFlag(c *cli.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.String(name))
	if err != nil {
		return uuid.Nil, domain.ErrValidation(fmt.Sprintf("--%s: invalid id %q", name, c.String(name)))
	}
	return id, nil
}

func optionalUUIDFlag(c *cli.Context, name string) (*uuid.UUID, error) {
	if !c.IsSet(name) {
		return nil, nil
	}
	id, err := uuidFlag(c, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func optionalIntFlag(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}

// tournamentID accepts a tournament id or slug.
func tournamentID(c *cli.Context, a *app.App) (uuid.UUID, error) {
	ref := c.String("tournament")
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	t, err := a.Reports.TournamentBySlug(c.Context, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return t.ID, nil
}

var (
	fixtureFlag    = &cli.StringFlag{Name: "fixture", Aliases: []string{"f"}, Usage: "fixture id", Required: true}
	tournamentFlag = &cli.StringFlag{Name: "tournament", Aliases: []string{"t"}, Usage: "tournament id or slug", Required: true}
)
