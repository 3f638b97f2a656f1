// Package interfaces defines service contracts for marketstate
package interfaces

import (
	"context"

	"github.com/bobmcallan/marketstate/internal/models"
)

// SnapshotClient fetches one provider's all-market quote table.
type SnapshotClient interface {
	// Name identifies the provider in logs and meta.source
	Name() string

	// Supports reports whether the provider can serve the scope
	Supports(scope models.Scope) bool

	// FetchSnapshot performs a single attempt for the scope. Any page failure
	// fails the whole attempt; no partial table is returned.
	FetchSnapshot(ctx context.Context, scope models.Scope) (*models.ProviderTable, error)
}
