package models

// Breadth counts advancing, declining and unchanged instruments.
// Advance + Decline + Flat == Total.
type Breadth struct {
	Advance int `json:"advance"`
	Decline int `json:"decline"`
	Flat    int `json:"flat"`
	Total   int `json:"total"`
}

// Quantiles holds linear-interpolated percentiles. Nil marshals to null and
// means the input was empty.
type Quantiles struct {
	P10 *float64 `json:"p10"`
	P25 *float64 `json:"p25"`
	P50 *float64 `json:"p50"`
	P75 *float64 `json:"p75"`
	P90 *float64 `json:"p90"`
	P99 *float64 `json:"p99"`
}

// TopTurnoverEntry is one row of the turnover leaderboard.
type TopTurnoverEntry struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Turnover float64 `json:"turnover"`
}

// Summary is the deterministic statistical digest of a clean table.
type Summary struct {
	Breadth           Breadth            `json:"breadth"`
	PctChgQuantiles   Quantiles          `json:"pct_chg_quantiles"`
	TurnoverQuantiles Quantiles          `json:"turnover_quantiles"`
	LimitUpLike       int                `json:"limit_up_like"`
	LimitDownLike     int                `json:"limit_down_like"`
	TopTurnover       []TopTurnoverEntry `json:"top_turnover"`
}
