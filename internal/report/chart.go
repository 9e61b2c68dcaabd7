package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Metric selects what a progression chart plots per match-day.
type Metric string

const (
	MetricRank   Metric = "rank"
	MetricPoints Metric = "points"
)

// Series is one user's line on a progression chart.
type Series struct {
	Label   string
	Entries []domain.HistoryEntry
}

var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
}

// SeriesFromHistory groups history entries per user, labelled with names
// (falling back to the user id) and ordered by label.
func SeriesFromHistory(entries []domain.HistoryEntry, names map[uuid.UUID]string) []Series {
	byUser := make(map[uuid.UUID][]domain.HistoryEntry)
	for _, e := range entries {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}
	out := make([]Series, 0, len(byUser))
	for id, list := range byUser {
		label := names[id]
		if label == "" {
			label = id.String()
		}
		sort.Slice(list, func(i, j int) bool { return list[i].MatchDay < list[j].MatchDay })
		out = append(out, Series{Label: label, Entries: list})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// ProgressionChart renders a PNG line chart of rank or points per match-day.
// Rank charts put rank 1 at the top.
func ProgressionChart(series []Series, metric Metric) ([]byte, error) {
	if metric != MetricRank && metric != MetricPoints {
		return nil, fmt.Errorf("unknown chart metric: %q", metric)
	}

	var lines []chart.Series
	xb, yb := newBounds(), newBounds()
	for i, s := range series {
		if len(s.Entries) == 0 {
			continue
		}
		xs := make([]float64, len(s.Entries))
		ys := make([]float64, len(s.Entries))
		for j, e := range s.Entries {
			xs[j] = float64(e.MatchDay)
			if metric == MetricRank {
				ys[j] = float64(e.Rank)
			} else {
				ys[j] = float64(e.Points)
			}
			xb.add(xs[j])
			yb.add(ys[j])
		}
		color := palette[i%len(palette)]
		lines = append(lines, chart.ContinuousSeries{
			Name:    s.Label,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotWidth:    3,
				DotColor:    color,
			},
		})
	}
	if len(lines) == 0 {
		return renderNoData()
	}

	yAxis := chart.YAxis{Name: "Points", Range: yb.axis(false)}
	if metric == MetricRank {
		yAxis = chart.YAxis{Name: "Rank", Range: yb.axis(true)}
	}

	graph := chart.Chart{
		Width:  900,
		Height: 450,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Match-day",
			Range:          xb.axis(false),
			ValueFormatter: func(v interface{}) string { return fmt.Sprintf("%.0f", v) },
		},
		YAxis:  yAxis,
		Series: lines,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// bounds tracks the data extent of one axis.
type bounds struct {
	min, max float64
}

func newBounds() *bounds {
	return &bounds{min: math.Inf(1), max: math.Inf(-1)}
}

func (b *bounds) add(v float64) {
	b.min = math.Min(b.min, v)
	b.max = math.Max(b.max, v)
}

// axis returns a fixed range over the data. go-chart rejects a zero-width
// range, so a single match-day or a flat line is padded by one each side.
func (b *bounds) axis(descending bool) *chart.ContinuousRange {
	lo, hi := b.min, b.max
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi, Descending: descending}
}

// renderNoData draws the message straight onto a PNG renderer; chart.Chart
// refuses to render without a series.
func renderNoData() ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No match-day has been scored yet"
	)

	r, err := chart.PNG(width, height)
	if err != nil {
		return nil, fmt.Errorf("render placeholder: %w", err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("render placeholder: %w", err)
	}

	r.SetFillColor(drawing.ColorWhite)
	r.MoveTo(0, 0)
	r.LineTo(width, 0)
	r.LineTo(width, height)
	r.LineTo(0, height)
	r.Close()
	r.Fill()

	r.SetFont(font)
	r.SetFontColor(drawing.ColorBlack)
	r.SetFontSize(12.0)
	tb := r.MeasureText(msg)
	r.Text(msg, (width-tb.Width())/2, (height+tb.Height())/2)

	buf := bytes.NewBuffer(nil)
	if err := r.Save(buf); err != nil {
		return nil, fmt.Errorf("render placeholder: %w", err)
	}
	return buf.Bytes(), nil
}
