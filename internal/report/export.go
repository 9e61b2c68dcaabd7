package report

import (
	"fmt"
	"io"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// LeaderboardSheet is the sheet ExportLeaderboard writes.
const LeaderboardSheet = "Leaderboard"

var leaderboardHeader = []interface{}{"Rank", "Change", "Name", "Total", "Match", "Special", "Tipps", "Average"}

// ExportLeaderboard writes scores as an xlsx workbook, one row per user in
// the given order. Users missing from names are listed by id.
func ExportLeaderboard(w io.Writer, scores []domain.UserScore, names map[uuid.UUID]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), LeaderboardSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(LeaderboardSheet, "A1", &leaderboardHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, s := range scores {
		name := names[s.UserID]
		if name == "" {
			name = s.UserID.String()
		}
		avg, _ := s.Average.Float64()
		row := []interface{}{s.Rank, s.RankDelta, name, s.TotalPoints, s.MatchPoints, s.SpecialPoints, s.TippCount, avg}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(LeaderboardSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(LeaderboardSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
