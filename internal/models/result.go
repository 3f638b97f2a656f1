package models

// RowCounts reports how the snapshot rows were consumed.
type RowCounts struct {
	Received  int `json:"received"`
	Clean     int `json:"clean"`
	Excluded  int `json:"excluded"`
	Duplicate int `json:"duplicate"`
}

// Meta describes the invocation. Error documents carry only the fields
// established before the failure.
type Meta struct {
	RunID           string             `json:"run_id"`
	Timestamp       string             `json:"timestamp"`
	Scope           string             `json:"scope,omitempty"`
	Source          string             `json:"source,omitempty"`
	FallbackErrors  []string           `json:"fallback_errors,omitempty"`
	Params          *Params            `json:"params,omitempty"`
	Rows            *RowCounts         `json:"rows,omitempty"`
	LimitThresholds map[string]float64 `json:"limit_thresholds,omitempty"`
	LimitRule       string             `json:"limit_rule,omitempty"`
	ErrorKind       string             `json:"error_kind,omitempty"`
	ErrorDetail     string             `json:"error_detail,omitempty"`
	SupportedScopes []string           `json:"supported_scopes,omitempty"`
	Version         string             `json:"version"`
}

// Shape is the row/column count of the clean table.
type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// ResultDocument is the single JSON document written to stdout. It is either
// a complete summary or an error, never both.
type ResultDocument struct {
	Error     string          `json:"error,omitempty"`
	Meta      Meta            `json:"meta"`
	Shape     *Shape          `json:"shape,omitempty"`
	Columns   []string        `json:"columns,omitempty"`
	Summary   *Summary        `json:"summary,omitempty"`
	RawSample []InstrumentRow `json:"raw_sample,omitempty"`
}

// IsError reports whether the document is the failure variant.
func (d *ResultDocument) IsError() bool {
	return d.Error != ""
}
