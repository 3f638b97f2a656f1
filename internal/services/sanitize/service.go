// Package sanitize coerces, filters and deduplicates snapshot rows
package sanitize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/interfaces"
	"github.com/bobmcallan/marketstate/internal/models"
)

// Service implements SanitizeService
type Service struct {
	logger *common.Logger
}

// NewService creates a new sanitize service
func NewService(logger *common.Logger) *Service {
	return &Service{logger: logger}
}

// Sanitize builds the clean table. Rows without a symbol or with an unusable
// pct_chg or turnover are excluded; a missing value is never read as zero.
func (s *Service) Sanitize(snapshot *models.Snapshot) (*models.CleanTable, int) {
	table := &models.CleanTable{}
	if snapshot == nil {
		return table, 0
	}

	table.Columns = snapshot.Columns
	table.Received = len(snapshot.Rows)
	table.Rows = make([]models.CleanRow, 0, len(snapshot.Rows))
	seen := make(map[string]bool, len(snapshot.Rows))

	for _, raw := range snapshot.Rows {
		row, ok := cleanRow(raw)
		if !ok {
			table.Excluded++
			continue
		}
		if seen[row.Symbol] {
			table.Duplicates++
			continue
		}
		seen[row.Symbol] = true
		table.Rows = append(table.Rows, row)
	}

	s.logger.Debug().
		Str("source", snapshot.Source).
		Int("received", table.Received).
		Int("clean", len(table.Rows)).
		Int("excluded", table.Excluded).
		Int("duplicate", table.Duplicates).
		Msg("Snapshot sanitized")

	return table, table.Excluded
}

func cleanRow(raw models.InstrumentRow) (models.CleanRow, bool) {
	symbol := ToText(raw[models.ColSymbol])
	if symbol == "" {
		return models.CleanRow{}, false
	}
	pct, ok := ToFloat(raw[models.ColPctChg])
	if !ok {
		return models.CleanRow{}, false
	}
	turnover, ok := ToFloat(raw[models.ColTurnover])
	if !ok || turnover < 0 {
		return models.CleanRow{}, false
	}

	return models.CleanRow{
		Symbol:    symbol,
		Name:      ToText(raw[models.ColName]),
		Board:     ClassifyBoard(symbol),
		PctChg:    pct,
		Turnover:  turnover,
		LastPrice: optional(raw, models.ColLastPrice),
		PrevClose: optional(raw, models.ColPrevClose),
		Volume:    optional(raw, models.ColVolume),
		Amplitude: optional(raw, models.ColAmplitude),
		Raw:       raw,
	}, true
}

func optional(raw models.InstrumentRow, col string) *float64 {
	v, ok := ToFloat(raw[col])
	if !ok {
		return nil
	}
	return &v
}

// missing markers used by providers in place of a number
var missingMarkers = map[string]bool{
	"":    true,
	"-":   true,
	"--":  true,
	"N/A": true,
}

// ToFloat coerces a provider value to a finite float.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case json.Number:
		return parseNumeric(t.String())
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		return parseNumeric(t)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if missingMarkers[s] {
		return 0, false
	}
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToText renders a symbol or name value as a trimmed string.
func ToText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// ClassifyBoard derives the instrument class from the exchange code prefix.
func ClassifyBoard(symbol string) models.Board {
	switch {
	case strings.HasPrefix(symbol, "688"), strings.HasPrefix(symbol, "689"):
		return models.BoardStar
	case strings.HasPrefix(symbol, "300"), strings.HasPrefix(symbol, "301"), strings.HasPrefix(symbol, "302"):
		return models.BoardChiNext
	case strings.HasPrefix(symbol, "920"), strings.HasPrefix(symbol, "4"), strings.HasPrefix(symbol, "8"):
		return models.BoardBSE
	default:
		return models.BoardMain
	}
}

// Ensure Service implements SanitizeService
var _ interfaces.SanitizeService = (*Service)(nil)
