// Package summary reduces a clean table to the deterministic market summary
package summary

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/interfaces"
	"github.com/bobmcallan/marketstate/internal/models"
)

// Service implements SummaryService. It holds only the configured thresholds.
type Service struct {
	thresholds models.LimitThresholds
}

// NewService creates a new summary service
func NewService(thresholds models.LimitThresholds) *Service {
	return &Service{thresholds: thresholds}
}

// ThresholdsFromConfig converts the [limits] section to per-board thresholds.
func ThresholdsFromConfig(c common.LimitsConfig) models.LimitThresholds {
	return models.LimitThresholds{
		models.BoardMain:    c.Main,
		models.BoardChiNext: c.ChiNext,
		models.BoardStar:    c.Star,
		models.BoardBSE:     c.BSE,
	}
}

// Thresholds returns the limit-move thresholds in use
func (s *Service) Thresholds() models.LimitThresholds {
	return s.thresholds
}

// Summarize computes the summary. It has no clock or other hidden inputs, so
// equal tables and params give equal summaries.
func (s *Service) Summarize(table *models.CleanTable, params models.Params) (*models.Summary, error) {
	if table == nil {
		return nil, &common.ComputationError{Op: "summarize", Err: errors.New("nil clean table")}
	}
	if params.TopN <= 0 {
		return nil, &common.ComputationError{Op: "top_turnover", Err: fmt.Errorf("top_n must be positive, got %d", params.TopN)}
	}
	if _, ok := s.thresholds.For(models.BoardMain); !ok {
		return nil, &common.ComputationError{Op: "limit_counts", Err: errors.New("no limit threshold configured")}
	}

	summary := &models.Summary{
		Breadth: breadth(table.Rows),
	}

	pct := make([]float64, len(table.Rows))
	turnover := make([]float64, len(table.Rows))
	for i, r := range table.Rows {
		pct[i] = r.PctChg
		turnover[i] = r.Turnover
	}
	summary.PctChgQuantiles = quantiles(pct)
	summary.TurnoverQuantiles = quantiles(turnover)

	summary.LimitUpLike, summary.LimitDownLike = s.limitCounts(table.Rows)
	summary.TopTurnover = topTurnover(table.Rows, params.TopN)

	return summary, nil
}

// breadth partitions rows by the sign of pct_chg.
func breadth(rows []models.CleanRow) models.Breadth {
	b := models.Breadth{Total: len(rows)}
	for _, r := range rows {
		switch {
		case r.PctChg > 0:
			b.Advance++
		case r.PctChg < 0:
			b.Decline++
		default:
			b.Flat++
		}
	}
	return b
}

// limitCounts counts moves at or beyond the board's symmetric threshold.
func (s *Service) limitCounts(rows []models.CleanRow) (up, down int) {
	for _, r := range rows {
		limit, _ := s.thresholds.For(r.Board)
		if r.PctChg >= limit {
			up++
		}
		if r.PctChg <= -limit {
			down++
		}
	}
	return up, down
}

// topTurnover ranks by turnover descending, then symbol ascending. The result
// is never nil so an empty table encodes as [].
func topTurnover(rows []models.CleanRow, n int) []models.TopTurnoverEntry {
	ranked := make([]models.CleanRow, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Turnover != ranked[j].Turnover {
			return ranked[i].Turnover > ranked[j].Turnover
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]models.TopTurnoverEntry, 0, n)
	for _, r := range ranked[:n] {
		out = append(out, models.TopTurnoverEntry{
			Symbol:   r.Symbol,
			Name:     r.Name,
			Turnover: common.Round(r.Turnover),
		})
	}
	return out
}

// Ensure Service implements SummaryService
var _ interfaces.SummaryService = (*Service)(nil)
