// Package report builds read models on top of the scored state: accuracy
// statistics, tipp-group rankings, progression charts and spreadsheet exports.
package report

import (
	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/shopspring/decimal"
)

// AccuracyStats classifies a user's scored tipps.
type AccuracyStats struct {
	Total        int             `json:"total"`
	Perfect      int             `json:"perfect"`
	GoodDiff     int             `json:"good_diff"`
	TendencyOnly int             `json:"tendency_only"`
	Wrong        int             `json:"wrong"`
	Points       int             `json:"points"`
	AvgPoints    decimal.Decimal `json:"avg_points"`
}

// Accuracy counts only tipps that have been scored. A perfect tipp hit both
// goal counts; good-diff hit tendency and difference but not the score.
func Accuracy(preds []domain.Prediction) AccuracyStats {
	var s AccuracyStats
	for _, p := range preds {
		if !p.Scored() {
			continue
		}
		s.Total++
		s.Points += p.Score
		switch {
		case p.Exact():
			s.Perfect++
		case p.TendencyExact && p.DiffExact:
			s.GoodDiff++
		case p.TendencyExact:
			s.TendencyOnly++
		default:
			s.Wrong++
		}
	}
	if s.Total > 0 {
		s.AvgPoints = decimal.NewFromInt(int64(s.Points)).
			Div(decimal.NewFromInt(int64(s.Total))).
			Round(1)
	}
	return s
}

// Share returns n as a percentage of Total with one decimal.
func (s AccuracyStats) Share(n int) decimal.Decimal {
	if s.Total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(n * 100)).
		Div(decimal.NewFromInt(int64(s.Total))).
		Round(1)
}
