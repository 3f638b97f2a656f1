package summary

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/models"
)

func defaultService() *Service {
	return NewService(ThresholdsFromConfig(common.NewDefaultConfig().Limits))
}

func row(symbol string, board models.Board, pct, turnover float64) models.CleanRow {
	return models.CleanRow{Symbol: symbol, Name: "name-" + symbol, Board: board, PctChg: pct, Turnover: turnover}
}

func tableOf(rows ...models.CleanRow) *models.CleanTable {
	return &models.CleanTable{Rows: rows, Received: len(rows)}
}

func TestSummarize_ThreeRowScenario(t *testing.T) {
	svc := defaultService()
	table := tableOf(
		row("AAA", models.BoardMain, 10.1, 300),
		row("BBB", models.BoardMain, -9.9, 200),
		row("CCC", models.BoardMain, 0, 100),
	)

	s, err := svc.Summarize(table, models.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, models.Breadth{Advance: 1, Decline: 1, Flat: 1, Total: 3}, s.Breadth)
	assert.Equal(t, 1, s.LimitUpLike)
	assert.Equal(t, 1, s.LimitDownLike)
	require.Len(t, s.TopTurnover, 3)
	assert.Equal(t, "AAA", s.TopTurnover[0].Symbol)
}

func TestSummarize_EmptyTable(t *testing.T) {
	svc := defaultService()

	s, err := svc.Summarize(tableOf(), models.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, models.Breadth{}, s.Breadth)
	assert.Equal(t, models.Quantiles{}, s.PctChgQuantiles)
	assert.Equal(t, models.Quantiles{}, s.TurnoverQuantiles)
	assert.Equal(t, 0, s.LimitUpLike)
	assert.Equal(t, 0, s.LimitDownLike)
	require.NotNil(t, s.TopTurnover)
	assert.Empty(t, s.TopTurnover)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"pct_chg_quantiles":{"p10":null,"p25":null,"p50":null,"p75":null,"p90":null,"p99":null}`)
	assert.Contains(t, string(out), `"top_turnover":[]`)
}

func TestSummarize_BoardThresholds(t *testing.T) {
	svc := defaultService()
	table := tableOf(
		row("600000", models.BoardMain, 9.8, 1),
		row("300750", models.BoardChiNext, 15, 1),
		row("300751", models.BoardChiNext, 19.8, 1),
		row("688981", models.BoardStar, -20, 1),
		row("830799", models.BoardBSE, 29.9, 1),
		row("830800", models.BoardBSE, -25, 1),
	)

	s, err := svc.Summarize(table, models.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 3, s.LimitUpLike, "main 9.8, chinext 19.8, bse 29.9")
	assert.Equal(t, 1, s.LimitDownLike, "star -20 only")
}

func TestSummarize_QuantilesLinearInterpolation(t *testing.T) {
	svc := defaultService()
	table := tableOf(
		row("A", models.BoardMain, 4, 40),
		row("B", models.BoardMain, 1, 10),
		row("C", models.BoardMain, 3, 30),
		row("D", models.BoardMain, 2, 20),
	)

	s, err := svc.Summarize(table, models.DefaultParams())
	require.NoError(t, err)

	// sorted 1,2,3,4: p10 h=0.3 -> 1.3, p50 h=1.5 -> 2.5, p90 h=2.7 -> 3.7, p99 h=2.97 -> 3.97
	q := s.PctChgQuantiles
	require.NotNil(t, q.P10)
	assert.Equal(t, 1.3, *q.P10)
	assert.Equal(t, 1.75, *q.P25)
	assert.Equal(t, 2.5, *q.P50)
	assert.Equal(t, 3.25, *q.P75)
	assert.Equal(t, 3.7, *q.P90)
	assert.Equal(t, 3.97, *q.P99)
	assert.Equal(t, 25.0, *s.TurnoverQuantiles.P50)
	assert.Equal(t, 4.0, table.Rows[0].PctChg, "input order is not disturbed")
}

func TestSummarize_QuantilesMonotonic(t *testing.T) {
	svc := defaultService()
	var rows []models.CleanRow
	for i := 0; i < 97; i++ {
		pct := float64((i*37)%41) - 20.5
		rows = append(rows, row(fmt.Sprintf("%06d", i), models.BoardMain, pct, float64((i*53)%89)*1e6))
	}

	s, err := svc.Summarize(tableOf(rows...), models.DefaultParams())
	require.NoError(t, err)

	for _, q := range []models.Quantiles{s.PctChgQuantiles, s.TurnoverQuantiles} {
		assert.LessOrEqual(t, *q.P10, *q.P25)
		assert.LessOrEqual(t, *q.P25, *q.P50)
		assert.LessOrEqual(t, *q.P50, *q.P75)
		assert.LessOrEqual(t, *q.P75, *q.P90)
		assert.LessOrEqual(t, *q.P90, *q.P99)
	}
	b := s.Breadth
	assert.Equal(t, len(rows), b.Advance+b.Decline+b.Flat)
}

func TestSummarize_TopTurnoverOrderAndLength(t *testing.T) {
	svc := defaultService()
	table := tableOf(
		row("000003", models.BoardMain, 1, 500),
		row("000002", models.BoardMain, 1, 900.005),
		row("000001", models.BoardMain, 1, 500),
		row("000004", models.BoardMain, 1, 100),
	)

	s, err := svc.Summarize(table, models.Params{TopN: 3})
	require.NoError(t, err)

	require.Len(t, s.TopTurnover, 3)
	assert.Equal(t, "000002", s.TopTurnover[0].Symbol)
	assert.Equal(t, 900.01, s.TopTurnover[0].Turnover, "rounded half away from zero")
	assert.Equal(t, "000001", s.TopTurnover[1].Symbol, "ties broken by symbol ascending")
	assert.Equal(t, "000003", s.TopTurnover[2].Symbol)
	assert.Equal(t, "name-000001", s.TopTurnover[1].Name)

	s, err = svc.Summarize(table, models.Params{TopN: 50})
	require.NoError(t, err)
	assert.Len(t, s.TopTurnover, 4)
}

func TestSummarize_Idempotent(t *testing.T) {
	svc := defaultService()
	table := tableOf(
		row("600000", models.BoardMain, 1.234, 1234.567),
		row("300750", models.BoardChiNext, -3.333, 99.999),
		row("688981", models.BoardStar, 0, 0),
	)

	first, err := svc.Summarize(table, models.DefaultParams())
	require.NoError(t, err)
	second, err := svc.Summarize(table, models.DefaultParams())
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
}

func TestSummarize_ComputationErrors(t *testing.T) {
	_, err := defaultService().Summarize(nil, models.DefaultParams())
	var compErr *common.ComputationError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, common.ExitComputation, common.ExitCode(err))

	_, err = NewService(models.LimitThresholds{}).Summarize(tableOf(), models.DefaultParams())
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, "limit_counts", compErr.Op)

	_, err = defaultService().Summarize(tableOf(), models.Params{TopN: 0})
	require.ErrorAs(t, err, &compErr)
}

func TestQuantile_SingleValue(t *testing.T) {
	assert.Equal(t, 5.0, Quantile([]float64{5}, 0.99))
	assert.Equal(t, 5.0, Quantile([]float64{5}, 0.10))
}
