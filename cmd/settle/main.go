// Command settle settles a round described in a YAML fixture without a database.
//
//	settle compute round.yaml            print the leaderboard and every bet
//	settle compute --json round.yaml     print the full settlement as JSON
//	settle compute --xlsx out.xlsx round.yaml
//	settle validate round.yaml           check the fixture and report flagged bets
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/trentd187/golf-wagers/internal/logger"
	"github.com/trentd187/golf-wagers/internal/settlement"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "settle:", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "settle",
		Usage:     "settle golf wagers from a round fixture",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error"},
		},
		Before: func(c *cli.Context) error {
			cfg := logger.DefaultConfig()
			cfg.Level = c.String("log-level")
			slog.SetDefault(logger.New(cfg, stderr))
			return nil
		},
		Commands: []*cli.Command{
			computeCommand(),
			validateCommand(),
		},
	}
}

func computeCommand() *cli.Command {
	return &cli.Command{
		Name:      "compute",
		Usage:     "settle every bet and print the leaderboard",
		ArgsUsage: "FILE.yaml",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the settlement as JSON"},
			&cli.StringFlag{Name: "xlsx", Usage: "also write the settlement to this workbook"},
		},
		Action: func(c *cli.Context) error {
			res, err := settleFile(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			if path := c.String("xlsx"); path != "" {
				if err := writeWorkbook(path, res); err != nil {
					return err
				}
			}
			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return writeTable(c.App.Writer, res)
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check a fixture settles cleanly",
		ArgsUsage: "FILE.yaml",
		Action: func(c *cli.Context) error {
			res, err := settleFile(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			var flagged []string
			for _, o := range res.Outcomes {
				if o.Status == settlement.StatusNeedsAttention {
					flagged = append(flagged, fmt.Sprintf("%s (%s)", o.BetID, o.Error))
				}
			}
			if len(flagged) > 0 {
				return fmt.Errorf("bets need attention: %s", strings.Join(flagged, "; "))
			}
			fmt.Fprintf(c.App.Writer, "ok: %d players, %d bets\n", len(res.Leaderboard), len(res.Outcomes))
			return nil
		},
	}
}

func settleFile(ctx context.Context, path string) (*settlement.Result, error) {
	if path == "" {
		return nil, fmt.Errorf("a round fixture is required")
	}
	round, err := loadRound(path)
	if err != nil {
		return nil, err
	}
	return settlement.Compute(ctx, round)
}
