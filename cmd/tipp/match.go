package main

import (
	"fmt"

	"github.com/attaboy/tippspiel/internal/app"
	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/engine"
	"github.com/urfave/cli/v2"
)

func finishCommand() *cli.Command {
	return &cli.Command{
		Name:  "finish",
		Usage: "record a match result and run the scoring pipeline",
		Flags: []cli.Flag{
			fixtureFlag,
			&cli.IntFlag{Name: "home", Usage: "home goals", Required: true},
			&cli.IntFlag{Name: "visitor", Usage: "visitor goals", Required: true},
			&cli.IntFlag{Name: "ht-home", Usage: "home goals at halftime"},
			&cli.IntFlag{Name: "ht-visitor", Usage: "visitor goals at halftime"},
			&cli.StringFlag{Name: "penalty-winner", Usage: "team id that won the shootout"},
		},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			fixtureID, err := uuidFlag(c, "fixture")
			if err != nil {
				return err
			}
			penaltyWinner, err := optionalUUIDFlag(c, "penalty-winner")
			if err != nil {
				return err
			}
			res, err := a.Scoring.FinishMatch(c.Context, domain.FinishMatchParams{
				FixtureID:       fixtureID,
				GoalsHome:       c.Int("home"),
				GoalsVisitor:    c.Int("visitor"),
				HalftimeHome:    optionalIntFlag(c, "ht-home"),
				HalftimeVisitor: optionalIntFlag(c, "ht-visitor"),
				PenaltyWinnerID: penaltyWinner,
			})
			if err != nil {
				return err
			}
			printMatchResult(c, res)
			return nil
		}),
	}
}

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "score the tipps of a finished match",
		Flags: []cli.Flag{fixtureFlag},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			fixtureID, err := uuidFlag(c, "fixture")
			if err != nil {
				return err
			}
			res, err := a.Scoring.ScoreMatch(c.Context, fixtureID)
			if err != nil {
				return err
			}
			if !res.Scored {
				fmt.Fprintf(c.App.Writer, "fixture %s is not finished; nothing scored\n", fixtureID)
				return nil
			}
			printMatchResult(c, res)
			return nil
		}),
	}
}

func reopenCommand() *cli.Command {
	return &cli.Command{
		Name:  "reopen",
		Usage: "withdraw a recorded result so it can be corrected",
		Flags: []cli.Flag{fixtureFlag},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			fixtureID, err := uuidFlag(c, "fixture")
			if err != nil {
				return err
			}
			res, err := a.Scoring.ReopenMatch(c.Context, fixtureID)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "reopened %s (version %d): %d tipps cleared, %d teams refolded, %d specials reopened, %d history rows pruned\n",
				res.Fixture.ID, res.Fixture.Version, res.TippsCleared, res.TeamsRefolded, res.SpecsReopened, res.HistoryPruned)
			return nil
		}),
	}
}

func resolveSlotsCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve-slots",
		Usage: "replace knockout placeholders with teams",
		Flags: []cli.Flag{
			fixtureFlag,
			&cli.StringFlag{Name: "home-team", Usage: "team id for the home slot"},
			&cli.StringFlag{Name: "visitor-team", Usage: "team id for the visitor slot"},
		},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			fixtureID, err := uuidFlag(c, "fixture")
			if err != nil {
				return err
			}
			home, err := optionalUUIDFlag(c, "home-team")
			if err != nil {
				return err
			}
			visitor, err := optionalUUIDFlag(c, "visitor-team")
			if err != nil {
				return err
			}
			fx, err := a.Scoring.ResolveSlots(c.Context, domain.ResolveSlotsParams{
				FixtureID:     fixtureID,
				HomeTeamID:    home,
				VisitorTeamID: visitor,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "fixture %s: home %s, visitor %s\n", fx.ID, slotLabel(fx.Home), slotLabel(fx.Visitor))
			return nil
		}),
	}
}

func resolveSpecialsCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve-specials",
		Usage: "resolve knowable specials and score their picks",
		Flags: []cli.Flag{tournamentFlag},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			id, err := tournamentID(c, a)
			if err != nil {
				return err
			}
			res, err := a.Scoring.ResolveAndScoreSpecials(c.Context, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%d specials resolved, %d picks scored, tournament complete: %t\n",
				res.Resolved, res.Scored, res.Complete)
			return nil
		}),
	}
}

func recomputeCommand() *cli.Command {
	return &cli.Command{
		Name:  "recompute",
		Usage: "rebuild the leaderboard snapshot",
		Flags: []cli.Flag{tournamentFlag},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			id, err := tournamentID(c, a)
			if err != nil {
				return err
			}
			res, err := a.Scoring.RecomputeLeaderboard(c.Context, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "leaderboard recomputed at match-day %d for %d participants\n", res.MatchDay, len(res.Scores))
			return nil
		}),
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "check persisted invariants of a tournament",
		Flags: []cli.Flag{tournamentFlag},
		Action: withApp(func(c *cli.Context, a *app.App) error {
			id, err := tournamentID(c, a)
			if err != nil {
				return err
			}
			res, err := a.Scoring.Verify(c.Context, id)
			if err != nil {
				return err
			}
			for _, inv := range res.Invariants {
				status := "ok"
				if !inv.Passed {
					status = "FAIL"
				}
				fmt.Fprintf(c.App.Writer, "%-20s %-4s %s\n", inv.Name, status, inv.Detail)
			}
			if !res.AllPassed {
				return cli.Exit("invariant check failed", 2)
			}
			return nil
		}),
	}
}

func printMatchResult(c *cli.Context, res *engine.MatchResult) {
	fmt.Fprintf(c.App.Writer, "fixture %s: %d tipps scored, standings updated: %t, idempotent: %t\n",
		res.Fixture.ID, res.TippsScored, res.StandingsUpdate, res.Idempotent)
	if res.Specials != nil {
		fmt.Fprintf(c.App.Writer, "specials: %d resolved, %d picks scored\n", res.Specials.Resolved, res.Specials.Scored)
	}
	if res.Leaderboard != nil {
		fmt.Fprintf(c.App.Writer, "leaderboard: match-day %d, %d participants\n", res.Leaderboard.MatchDay, len(res.Leaderboard.Scores))
	}
}

func slotLabel(s domain.Slot) string {
	if s.TeamID != nil {
		return s.TeamID.String()
	}
	return s.Placeholder
}
