package source

import (
	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/models"
)

// ColumnMapping maps a canonical column to the provider's field name.
// Canonical columns without an entry are never produced for that provider.
type ColumnMapping map[string]string

// EastmoneyColumns is the push2 clist field mapping, shared by the mirror.
var EastmoneyColumns = ColumnMapping{
	models.ColSymbol:    "f12",
	models.ColName:      "f14",
	models.ColLastPrice: "f2",
	models.ColPctChg:    "f3",
	models.ColTurnover:  "f6",
	models.ColPrevClose: "f18",
	models.ColVolume:    "f5",
	models.ColAmplitude: "f7",
}

// SinaColumns is the Market_Center getHQNodeData field mapping.
var SinaColumns = ColumnMapping{
	models.ColSymbol:    "code",
	models.ColName:      "name",
	models.ColLastPrice: "trade",
	models.ColPctChg:    "changepercent",
	models.ColTurnover:  "amount",
	models.ColPrevClose: "settlement",
	models.ColVolume:    "volume",
}

// RequiredColumns must be supplied by a provider for its table to be usable.
var RequiredColumns = []string{models.ColSymbol, models.ColPctChg, models.ColTurnover}

// MappingFor returns the static mapping for a configured provider name.
func MappingFor(provider string) (ColumnMapping, bool) {
	switch provider {
	case common.ProviderEastmoney, common.ProviderEastmoneyMirror:
		return EastmoneyColumns, true
	case common.ProviderSina:
		return SinaColumns, true
	}
	return nil, false
}

// normalize renames provider fields to canonical columns. A column is present
// when at least one record carries its field; values are copied untouched.
func normalize(table *models.ProviderTable, mapping ColumnMapping) ([]string, []models.InstrumentRow) {
	seen := make(map[string]bool, len(models.CanonicalColumns))
	rows := make([]models.InstrumentRow, 0, len(table.Records))

	for _, rec := range table.Records {
		row := make(models.InstrumentRow, len(mapping))
		for _, col := range models.CanonicalColumns {
			field, ok := mapping[col]
			if !ok {
				continue
			}
			if v, present := rec[field]; present {
				row[col] = v
				seen[col] = true
			}
		}
		rows = append(rows, row)
	}

	var columns []string
	for _, col := range models.CanonicalColumns {
		if seen[col] {
			columns = append(columns, col)
		}
	}
	return columns, rows
}

// missingRequired returns the required columns absent from columns.
func missingRequired(columns []string) []string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
