package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/attaboy/tippspiel/internal/app"
	"github.com/attaboy/tippspiel/internal/report"
	"github.com/attaboy/tippspiel/internal/service"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "print the ranking of a tournament or of one tipp group",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tournament", Aliases: []string{"t"}, Usage: "tournament id or slug"},
			&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Usage: "tipp group id"},
			&cli.IntFlag{Name: "limit", Usage: "print at most this many rows", Value: 0},
		},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			var (
				lb  *service.Leaderboard
				err error
			)
			switch {
			case c.IsSet("group"):
				groupID, perr := uuidFlag(c, "group")
				if perr != nil {
					return perr
				}
				lb, err = a.Reports.GroupLeaderboard(c.Context, groupID)
			case c.IsSet("tournament"):
				id, terr := tournamentID(c, a)
				if terr != nil {
					return terr
				}
				lb, err = a.Reports.Leaderboard(c.Context, id)
			default:
				return cli.Exit("either --tournament or --group is required", 1)
			}
			if err != nil {
				return err
			}
			printLeaderboard(c.App.Writer, lb, c.Int("limit"))
			return nil
		}),
	}
}

func printLeaderboard(out io.Writer, lb *service.Leaderboard, limit int) {
	fmt.Fprintf(out, "match-day %d\n", lb.MatchDay)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "rank\t+/-\tname\ttotal\tmatch\tspecial\ttipps\tavg\t")
	for i, row := range lb.Rows {
		if limit > 0 && i >= limit {
			break
		}
		name := lb.Names[row.UserID]
		if name == "" {
			name = row.UserID.String()
		}
		fmt.Fprintf(w, "%d\t%+d\t%s\t%d\t%d\t%d\t%d\t%s\t\n",
			row.Rank, row.RankDelta, name, row.TotalPoints, row.MatchPoints, row.SpecialPoints, row.TippCount, row.Average.StringFixed(2))
	}
	w.Flush()
}

func tablesCommand() *cli.Command {
	return &cli.Command{
		Name:  "tables",
		Usage: "print the group tables",
		Flags: []cli.Flag{tournamentFlag},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			id, err := tournamentID(c, a)
			if err != nil {
				return err
			}
			tables, err := a.Reports.GroupTables(c.Context, id)
			if err != nil {
				return err
			}
			for _, table := range tables {
				fmt.Fprintf(c.App.Writer, "Group %s\n", table.Label)
				w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(w, "team\tP\tW\tD\tL\tGF\tGA\tGD\tPts\t")
				for _, t := range table.Teams {
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%+d\t%d\t\n",
						t.NationCode, t.Played(), t.Wins, t.Draws, t.Losses, t.GoalsFor, t.GoalsAgainst, t.GoalDifference(), t.Points)
				}
				w.Flush()
			}
			return nil
		}),
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print a user's tipp accuracy",
		Flags: []cli.Flag{
			tournamentFlag,
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "user id", Required: true},
		},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			id, err := tournamentID(c, a)
			if err != nil {
				return err
			}
			userID, err := uuidFlag(c, "user")
			if err != nil {
				return err
			}
			s, err := a.Reports.Accuracy(c.Context, id, userID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "scored tipps\t%d\n", s.Total)
			fmt.Fprintf(w, "perfect\t%d\t%s%%\n", s.Perfect, s.Share(s.Perfect))
			fmt.Fprintf(w, "goal difference\t%d\t%s%%\n", s.GoodDiff, s.Share(s.GoodDiff))
			fmt.Fprintf(w, "tendency only\t%d\t%s%%\n", s.TendencyOnly, s.Share(s.TendencyOnly))
			fmt.Fprintf(w, "wrong\t%d\t%s%%\n", s.Wrong, s.Share(s.Wrong))
			fmt.Fprintf(w, "points\t%d\n", s.Points)
			fmt.Fprintf(w, "points per tipp\t%s\n", s.AvgPoints.StringFixed(1))
			return w.Flush()
		}),
	}
}

func chartCommand() *cli.Command {
	return &cli.Command{
		Name:  "chart",
		Usage: "render a rank or points progression chart as PNG",
		Flags: []cli.Flag{
			tournamentFlag,
			&cli.StringSliceFlag{Name: "user", Aliases: []string{"u"}, Usage: "user ids to plot (default: everyone)"},
			&cli.StringFlag{Name: "metric", Usage: "rank or points", Value: string(report.MetricRank)},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file", Value: "progression.png"},
		},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			id, err := tournamentID(c, a)
			if err != nil {
				return err
			}
			var users []uuid.UUID
			for _, s := range c.StringSlice("user") {
				u, err := uuid.Parse(s)
				if err != nil {
					return cli.Exit(fmt.Sprintf("--user: invalid id %q", s), 1)
				}
				users = append(users, u)
			}
			png, err := a.Reports.ProgressionChart(c.Context, id, users, report.Metric(c.String("metric")))
			if err != nil {
				return err
			}
			if err := os.WriteFile(c.String("out"), png, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "wrote %s\n", c.String("out"))
			return nil
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "export the leaderboard as an xlsx workbook",
		Flags: []cli.Flag{
			tournamentFlag,
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file", Value: "leaderboard.xlsx"},
		},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			id, err := tournamentID(c, a)
			if err != nil {
				return err
			}
			f, err := os.Create(c.String("out"))
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer f.Close()
			if err := a.Reports.ExportLeaderboard(c.Context, f, id); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s\n", c.String("out"))
			return nil
		}),
	}
}
