package interfaces

import (
	"context"

	"github.com/bobmcallan/marketstate/internal/models"
)

// SourceService acquires a normalized snapshot with ranked provider failover
type SourceService interface {
	// Fetch tries providers in rank order and returns the first usable snapshot,
	// or a *common.SourceError aggregating every provider's cause
	Fetch(ctx context.Context, scope models.Scope) (*models.Snapshot, error)

	// Providers returns the provider names in rank order
	Providers() []string
}

// SanitizeService turns a snapshot into a clean table
type SanitizeService interface {
	// Sanitize coerces, deduplicates and classifies rows. The second return is
	// the number of rows excluded for unusable values.
	Sanitize(snapshot *models.Snapshot) (*models.CleanTable, int)
}

// SummaryService computes the statistical summary of a clean table
type SummaryService interface {
	// Summarize is deterministic; it returns a *common.ComputationError only
	// for unrecoverable states
	Summarize(table *models.CleanTable, params models.Params) (*models.Summary, error)

	// Thresholds returns the limit-move thresholds in use
	Thresholds() models.LimitThresholds
}
