package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/infra"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	dirFlag := &cli.StringFlag{Name: "dir", Usage: "migrations directory (default: MIGRATIONS_DIR or ./db/migrations)"}
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Flags: []cli.Flag{dirFlag},
				Action: func(c *cli.Context) error {
					cfg, logger, err := loadConfig()
					if err != nil {
						return err
					}
					return infra.RunMigrations(cfg.DSN(), migrationsDir(c, cfg), logger)
				},
			},
			{
				Name:  "down",
				Usage: "roll back the most recent migrations",
				Flags: []cli.Flag{dirFlag, &cli.IntFlag{Name: "steps", Usage: "number of migrations to revert", Value: 1}},
				Action: func(c *cli.Context) error {
					cfg, logger, err := loadConfig()
					if err != nil {
						return err
					}
					return infra.RollbackMigrations(cfg.DSN(), migrationsDir(c, cfg), c.Int("steps"), logger)
				},
			},
		},
	}
}

func migrationsDir(c *cli.Context, cfg *infra.Config) string {
	if c.IsSet("dir") {
		return c.String("dir")
	}
	return cfg.MigrationsDir
}

func tailCommand() *cli.Command {
	return &cli.Command{
		Name:  "tail",
		Usage: "print events published by the outbox relay",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "aggregate", Usage: "fixture, tournament or leaderboard", Value: string(domain.AggregateLeaderboard)},
			&cli.StringFlag{Name: "group", Usage: "consumer group id (default: read from the latest offset)"},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			aggregate := domain.AggregateType(strings.ToLower(c.String("aggregate")))
			switch aggregate {
			case domain.AggregateFixture, domain.AggregateTournament, domain.AggregateLeaderboard:
			default:
				return cli.Exit(fmt.Sprintf("unknown aggregate %q", c.String("aggregate")), 1)
			}

			topic := infra.Topic(cfg.KafkaTopicPrefix, aggregate)
			consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, topic, c.String("group"), cfg.KafkaEnabled, logger)
			defer consumer.Close()
			if !consumer.Enabled() {
				return cli.Exit("kafka is disabled; set KAFKA_ENABLED=true", 1)
			}

			logger.Info("tailing topic", "topic", topic)
			for {
				msg, err := consumer.ReadMessage(c.Context)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("read message: %w", err)
				}
				fmt.Fprintf(c.App.Writer, "%s\t%s\n", msg.Time.Format("15:04:05"), msg.Value)
			}
		},
	}
}
