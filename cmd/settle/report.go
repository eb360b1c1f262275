package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"

	"github.com/trentd187/golf-wagers/internal/leaderboard"
	"github.com/trentd187/golf-wagers/internal/settlement"
)

var leaderboardHeader = []string{"Pos", "Player", "Score", "Thru", "Skins", "Wolf", "Snake", "Nassau", "Press", "Match", "Manual", "Net"}

var betsHeader = []string{"Bet", "Kind", "Status", "Winners", "Error"}

func leaderboardCells(r leaderboard.Row) []any {
	return []any{
		r.Position, r.Name, r.Score, r.Thru,
		r.Skins.Float(), r.Wolf.Float(), r.Snake.Float(), r.Nassau.Float(),
		r.Press.Float(), r.Match.Float(), r.Manual.Float(), r.NetPosition.Float(),
	}
}

func betCells(o settlement.Outcome) []any {
	winners := make([]string, len(o.Winners))
	for i, w := range o.Winners {
		winners[i] = string(w)
	}
	return []any{o.BetID, string(o.Kind), string(o.Status), strings.Join(winners, ", "), o.Error}
}

// writeTable prints the leaderboard and the bet list as aligned columns.
func writeTable(w io.Writer, res *settlement.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(leaderboardHeader, "\t")+"\t")
	for _, r := range res.Leaderboard {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Position, r.Name, r.Score, r.Thru,
			r.Skins, r.Wolf, r.Snake, r.Nassau, r.Press, r.Match, r.Manual, r.NetPosition)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(betsHeader, "\t"))
	for _, o := range res.Outcomes {
		cells := betCells(o)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", cells...)
	}
	return tw.Flush()
}

// writeWorkbook saves the settlement as a workbook with a Leaderboard and a Bets sheet.
func writeWorkbook(path string, res *settlement.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const board, list = "Leaderboard", "Bets"
	if err := f.SetSheetName(f.GetSheetName(0), board); err != nil {
		return err
	}
	if _, err := f.NewSheet(list); err != nil {
		return err
	}

	rows := [][]any{toAny(leaderboardHeader)}
	for _, r := range res.Leaderboard {
		rows = append(rows, leaderboardCells(r))
	}
	if err := setRows(f, board, rows); err != nil {
		return err
	}

	rows = [][]any{toAny(betsHeader)}
	for _, o := range res.Outcomes {
		rows = append(rows, betCells(o))
	}
	if err := setRows(f, list, rows); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, cells := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
