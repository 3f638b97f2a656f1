// Package models defines data structures for marketstate
package models

import (
	"time"
)

// Scope selects the market segment a snapshot is fetched for.
type Scope string

const (
	ScopeAllA     Scope = "hs_a" // Shanghai + Shenzhen + Beijing A shares
	ScopeShanghai Scope = "sh_a"
	ScopeShenzhen Scope = "sz_a"
	ScopeBeijing  Scope = "bj_a"
	ScopeChiNext  Scope = "cyb"
	ScopeStar     Scope = "kcb"
)

// AllScopes is the closed set of supported scopes, in display order.
var AllScopes = []Scope{ScopeAllA, ScopeShanghai, ScopeShenzhen, ScopeBeijing, ScopeChiNext, ScopeStar}

// Valid reports whether s is one of AllScopes.
func (s Scope) Valid() bool {
	for _, known := range AllScopes {
		if s == known {
			return true
		}
	}
	return false
}

// ScopeNames returns AllScopes as strings.
func ScopeNames() []string {
	names := make([]string, len(AllScopes))
	for i, s := range AllScopes {
		names[i] = string(s)
	}
	return names
}

// Canonical column names. Every provider is mapped onto this set.
const (
	ColSymbol    = "symbol"
	ColName      = "name"
	ColLastPrice = "last_price"
	ColPctChg    = "pct_chg"
	ColTurnover  = "turnover"
	ColPrevClose = "prev_close"
	ColVolume    = "volume"
	ColAmplitude = "amplitude"
)

// CanonicalColumns lists canonical columns in output order.
var CanonicalColumns = []string{
	ColSymbol, ColName, ColLastPrice, ColPctChg, ColTurnover, ColPrevClose, ColVolume, ColAmplitude,
}

// ProviderRecord is one row exactly as a provider returned it, keyed by the
// provider's own field names. Numbers are kept as json.Number.
type ProviderRecord map[string]any

// ProviderTable is a provider's raw answer for one scope.
type ProviderTable struct {
	Provider string
	Scope    Scope
	Records  []ProviderRecord
}

// InstrumentRow is one row keyed by canonical column. Values are still as
// received (string, json.Number, nil); columns the provider does not supply
// are absent.
type InstrumentRow map[string]any

// Snapshot is a normalized, not yet sanitized, market table.
type Snapshot struct {
	Scope          Scope
	Source         string   // provider that produced the rows
	FallbackErrors []string // "[provider] cause" for providers that failed first
	Columns        []string // canonical columns present, canonical order
	Rows           []InstrumentRow
	FetchedAt      time.Time
}

// Board is the instrument class used for approximate limit-move thresholds.
type Board string

const (
	BoardMain    Board = "main"
	BoardChiNext Board = "chinext"
	BoardStar    Board = "star"
	BoardBSE     Board = "bse"
)

// LimitThresholds maps each board to its approximate daily limit, in percent.
type LimitThresholds map[Board]float64

// For returns the threshold for b, falling back to the main board.
func (t LimitThresholds) For(b Board) (float64, bool) {
	if v, ok := t[b]; ok {
		return v, true
	}
	v, ok := t[BoardMain]
	return v, ok
}

// CleanRow is a sanitized instrument row.
type CleanRow struct {
	Symbol    string
	Name      string
	Board     Board
	PctChg    float64
	Turnover  float64
	LastPrice *float64
	PrevClose *float64
	Volume    *float64
	Amplitude *float64
	Raw       InstrumentRow // canonical values as received, for raw_sample
}

// CleanTable is the sanitizer output consumed by the summarizer.
type CleanTable struct {
	Columns    []string
	Rows       []CleanRow
	Received   int // rows in the snapshot
	Excluded   int // rows dropped for unusable symbol, pct_chg or turnover
	Duplicates int // rows dropped because the symbol was already seen
}

// Len returns the number of clean rows.
func (t *CleanTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
