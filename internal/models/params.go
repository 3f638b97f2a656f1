package models

// Default parameter values
const (
	DefaultTopN    = 20
	DefaultRawRows = 2
)

// Params holds the per-invocation options passed as the second CLI argument.
type Params struct {
	TopN    int  `json:"top_n"`    // size of the turnover leaderboard
	Raw     bool `json:"raw"`      // echo sample rows
	RawRows int  `json:"raw_rows"` // number of rows echoed when Raw is set
}

// DefaultParams returns Params with documented defaults
func DefaultParams() Params {
	return Params{
		TopN:    DefaultTopN,
		Raw:     false,
		RawRows: DefaultRawRows,
	}
}
