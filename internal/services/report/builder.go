// Package report assembles the result document written to stdout
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/models"
)

// LimitRule labels the limit-like counts as an approximation.
const LimitRule = "approximate: pct_chg at or beyond ±threshold for the board inferred from the symbol prefix; not an exchange limit-hit count"

// Builder creates success and error documents
type Builder struct {
	loc        *time.Location
	thresholds models.LimitThresholds
	now        func() time.Time // injectable clock for testing
	newID      func() string
}

// NewBuilder creates a builder stamping timestamps in loc
func NewBuilder(loc *time.Location, thresholds models.LimitThresholds) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{
		loc:        loc,
		thresholds: thresholds,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// NewMeta starts the meta block for one invocation. scope and params are
// filled in as they become known.
func (b *Builder) NewMeta() models.Meta {
	return models.Meta{
		RunID:     b.newID(),
		Timestamp: b.now().In(b.loc).Format(time.RFC3339),
		Version:   common.GetVersion(),
	}
}

// Build returns the success document.
func (b *Builder) Build(meta models.Meta, snapshot *models.Snapshot, table *models.CleanTable, summary *models.Summary, params models.Params) *models.ResultDocument {
	meta.Source = snapshot.Source
	meta.FallbackErrors = snapshot.FallbackErrors
	meta.Params = &params
	meta.Rows = &models.RowCounts{
		Received:  table.Received,
		Clean:     table.Len(),
		Excluded:  table.Excluded,
		Duplicate: table.Duplicates,
	}
	meta.LimitThresholds = make(map[string]float64, len(b.thresholds))
	for board, v := range b.thresholds {
		meta.LimitThresholds[string(board)] = common.Round(v)
	}
	meta.LimitRule = LimitRule

	columns := table.Columns
	if columns == nil {
		columns = []string{}
	}

	return &models.ResultDocument{
		Meta:      meta,
		Shape:     &models.Shape{Rows: table.Len(), Cols: len(columns)},
		Columns:   columns,
		Summary:   summary,
		RawSample: rawSample(table, params),
	}
}

// rawSample echoes the first raw_rows clean rows exactly as received.
func rawSample(table *models.CleanTable, params models.Params) []models.InstrumentRow {
	if !params.Raw || params.RawRows <= 0 {
		return nil
	}
	n := min(params.RawRows, table.Len())
	sample := make([]models.InstrumentRow, 0, n)
	for _, r := range table.Rows[:n] {
		sample = append(sample, r.Raw)
	}
	return sample
}

// BuildError returns the failure document. It carries only meta established
// before the failure and never a summary.
func (b *Builder) BuildError(meta models.Meta, err error) *models.ResultDocument {
	if err == nil {
		err = &common.ComputationError{Op: "run", Err: errors.New("failure without cause")}
	}

	meta.ErrorKind = common.ErrorKind(err)
	meta.ErrorDetail = common.ErrorDetail(err)
	meta.Rows = nil
	meta.LimitThresholds = nil
	meta.LimitRule = ""

	var srcErr *common.SourceError
	if errors.As(err, &srcErr) {
		meta.FallbackErrors = srcErr.Causes()
	}
	var cfgErr *common.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Field == "scope" {
		meta.SupportedScopes = models.ScopeNames()
	}

	return &models.ResultDocument{
		Error: common.PublicMessage(err),
		Meta:  meta,
	}
}

// Write encodes doc as indented JSON with non-ASCII and HTML characters kept.
func Write(w io.Writer, doc *models.ResultDocument) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
