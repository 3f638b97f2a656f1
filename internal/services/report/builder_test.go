package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/models"
)

var shanghai = time.FixedZone("CST", 8*60*60)

func newTestBuilder() *Builder {
	b := NewBuilder(shanghai, models.LimitThresholds{
		models.BoardMain:    9.8,
		models.BoardChiNext: 19.8,
	})
	b.now = func() time.Time { return time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC) }
	b.newID = func() string { return "run-1" }
	return b
}

func testTable() (*models.Snapshot, *models.CleanTable) {
	snap := &models.Snapshot{
		Scope:          models.ScopeAllA,
		Source:         "sina",
		FallbackErrors: []string{"[eastmoney] status 403"},
		Columns:        []string{"symbol", "name", "pct_chg", "turnover"},
	}
	table := &models.CleanTable{
		Columns: snap.Columns,
		Rows: []models.CleanRow{
			{Symbol: "600000", Name: "浦发银行", PctChg: 1, Turnover: 10, Raw: models.InstrumentRow{"symbol": "600000", "pct_chg": json.Number("1.00"), "turnover": "10"}},
			{Symbol: "000001", Name: "平安银行", PctChg: -1, Turnover: 20, Raw: models.InstrumentRow{"symbol": "000001", "pct_chg": json.Number("-1"), "turnover": "20"}},
			{Symbol: "300750", Name: "宁德时代", PctChg: 0, Turnover: 30, Raw: models.InstrumentRow{"symbol": "300750", "pct_chg": json.Number("0"), "turnover": "30"}},
		},
		Received:   5,
		Excluded:   1,
		Duplicates: 1,
	}
	return snap, table
}

func TestNewMeta(t *testing.T) {
	b := newTestBuilder()
	meta := b.NewMeta()
	assert.Equal(t, "run-1", meta.RunID)
	assert.Equal(t, "2026-03-02T15:30:00+08:00", meta.Timestamp)
	assert.Equal(t, common.GetVersion(), meta.Version)
}

func TestNewBuilder_RunIDIsUUID(t *testing.T) {
	b := NewBuilder(nil, nil)
	a, c := b.NewMeta().RunID, b.NewMeta().RunID
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, c)
}

func TestBuild_Success(t *testing.T) {
	b := newTestBuilder()
	snap, table := testTable()
	meta := b.NewMeta()
	meta.Scope = "hs_a"
	summary := &models.Summary{Breadth: models.Breadth{Advance: 1, Decline: 1, Flat: 1, Total: 3}, TopTurnover: []models.TopTurnoverEntry{}}

	doc := b.Build(meta, snap, table, summary, models.DefaultParams())

	assert.False(t, doc.IsError())
	assert.Equal(t, "sina", doc.Meta.Source)
	assert.Equal(t, []string{"[eastmoney] status 403"}, doc.Meta.FallbackErrors)
	assert.Equal(t, &models.RowCounts{Received: 5, Clean: 3, Excluded: 1, Duplicate: 1}, doc.Meta.Rows)
	assert.Equal(t, map[string]float64{"main": 9.8, "chinext": 19.8}, doc.Meta.LimitThresholds)
	assert.Equal(t, LimitRule, doc.Meta.LimitRule)
	assert.Equal(t, &models.Shape{Rows: 3, Cols: 4}, doc.Shape)
	assert.Equal(t, snap.Columns, doc.Columns)
	assert.Same(t, summary, doc.Summary)
	assert.Nil(t, doc.RawSample, "raw sample only when requested")
}

func TestBuild_RawSample(t *testing.T) {
	b := newTestBuilder()
	snap, table := testTable()

	doc := b.Build(b.NewMeta(), snap, table, &models.Summary{}, models.Params{TopN: 5, Raw: true, RawRows: 2})
	require.Len(t, doc.RawSample, 2)
	assert.Equal(t, json.Number("1.00"), doc.RawSample[0]["pct_chg"], "values echoed verbatim")
	assert.Equal(t, "000001", doc.RawSample[1]["symbol"])

	doc = b.Build(b.NewMeta(), snap, table, &models.Summary{}, models.Params{TopN: 5, Raw: true, RawRows: 10})
	assert.Len(t, doc.RawSample, 3)

	doc = b.Build(b.NewMeta(), snap, table, &models.Summary{}, models.Params{TopN: 5, Raw: true, RawRows: 0})
	assert.Empty(t, doc.RawSample)
}

func TestBuildError_Config(t *testing.T) {
	b := newTestBuilder()
	meta := b.NewMeta()
	meta.Scope = "nasdaq"

	doc := b.BuildError(meta, &common.ConfigError{Field: "scope", Message: "unknown scope: nasdaq"})

	assert.True(t, doc.IsError())
	assert.Equal(t, "unknown scope: nasdaq", doc.Error)
	assert.Equal(t, common.KindConfig, doc.Meta.ErrorKind)
	assert.Equal(t, models.ScopeNames(), doc.Meta.SupportedScopes)
	assert.Nil(t, doc.Summary)
	assert.Nil(t, doc.Shape)
}

func TestBuildError_InvalidParams(t *testing.T) {
	b := newTestBuilder()
	doc := b.BuildError(b.NewMeta(), &common.ConfigError{Field: "params", Message: "invalid params", Detail: "unexpected end of JSON input"})

	assert.Equal(t, "invalid params", doc.Error)
	assert.Equal(t, "unexpected end of JSON input", doc.Meta.ErrorDetail)
	assert.Empty(t, doc.Meta.SupportedScopes)
}

func TestBuildError_Source(t *testing.T) {
	b := newTestBuilder()
	err := &common.SourceError{Scope: "hs_a", Failures: []common.ProviderFailure{
		{Provider: "eastmoney", Err: errors.New("timeout")},
		{Provider: "sina", Err: errors.New("status 456")},
	}}

	doc := b.BuildError(b.NewMeta(), err)

	assert.Equal(t, "all data sources failed for hs_a: [eastmoney] timeout; [sina] status 456", doc.Error)
	assert.Equal(t, common.KindSource, doc.Meta.ErrorKind)
	assert.Equal(t, []string{"[eastmoney] timeout", "[sina] status 456"}, doc.Meta.FallbackErrors)
}

func TestBuildError_NilIsComputation(t *testing.T) {
	doc := newTestBuilder().BuildError(models.Meta{}, nil)
	assert.Equal(t, common.KindComputation, doc.Meta.ErrorKind)
	assert.True(t, doc.IsError())
}

func TestWrite_ErrorDocumentShape(t *testing.T) {
	b := newTestBuilder()
	doc := b.BuildError(b.NewMeta(), &common.ConfigError{Field: "params", Message: "invalid params", Detail: "bad <json>"})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "invalid params", decoded["error"])
	assert.NotContains(t, decoded, "summary")
	assert.NotContains(t, decoded, "shape")
	assert.Contains(t, buf.String(), "bad <json>", "HTML characters are not escaped")
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \""), "two-space indent")
}

func TestWrite_KeepsUnicode(t *testing.T) {
	b := newTestBuilder()
	snap, table := testTable()
	summary := &models.Summary{TopTurnover: []models.TopTurnoverEntry{{Symbol: "300750", Name: "宁德时代", Turnover: 30}}}
	doc := b.Build(b.NewMeta(), snap, table, summary, models.DefaultParams())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))
	assert.Contains(t, buf.String(), "宁德时代")
	assert.Equal(t, 1, strings.Count(buf.String(), "\"meta\""), "exactly one document")
}
