// Package source acquires a market snapshot from ranked providers with failover
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/interfaces"
	"github.com/bobmcallan/marketstate/internal/models"
)

// Provider is one ranked snapshot source and its column mapping.
type Provider struct {
	Client  interfaces.SnapshotClient
	Mapping ColumnMapping
}

// Service implements SourceService. Providers are attempted once each, in order.
type Service struct {
	providers []Provider
	logger    *common.Logger
	now       func() time.Time // injectable clock for testing
}

// NewService creates a new source service
func NewService(providers []Provider, logger *common.Logger) *Service {
	return &Service{
		providers: providers,
		logger:    logger,
		now:       time.Now,
	}
}

// Providers returns the provider names in rank order
func (s *Service) Providers() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Client.Name()
	}
	return names
}

// Fetch returns the first usable snapshot. Failed attempts contribute nothing
// but their cause, which is carried on the winning snapshot.
func (s *Service) Fetch(ctx context.Context, scope models.Scope) (*models.Snapshot, error) {
	if !scope.Valid() {
		return nil, &common.ConfigError{
			Field:   "scope",
			Message: fmt.Sprintf("unknown scope: %s", scope),
		}
	}

	var failures []common.ProviderFailure

	for _, p := range s.providers {
		name := p.Client.Name()

		snapshot, err := s.attempt(ctx, p, scope)
		if err != nil {
			s.logger.Warn().Str("provider", name).Str("scope", string(scope)).Err(err).Msg("Provider attempt failed")
			failures = append(failures, common.ProviderFailure{Provider: name, Err: err})
			if ctx.Err() != nil {
				break
			}
			continue
		}

		for _, f := range failures {
			snapshot.FallbackErrors = append(snapshot.FallbackErrors, f.String())
		}

		s.logger.Info().
			Str("provider", name).
			Str("scope", string(scope)).
			Int("rows", len(snapshot.Rows)).
			Int("failed_before", len(failures)).
			Msg("Snapshot acquired")

		return snapshot, nil
	}

	return nil, &common.SourceError{Scope: string(scope), Failures: failures}
}

// attempt runs one provider and normalizes its table.
func (s *Service) attempt(ctx context.Context, p Provider, scope models.Scope) (*models.Snapshot, error) {
	if !p.Client.Supports(scope) {
		return nil, fmt.Errorf("scope %s not supported", scope)
	}

	table, err := p.Client.FetchSnapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	if table == nil || len(table.Records) == 0 {
		return nil, common.ErrEmptySnapshot
	}

	columns, rows := normalize(table, p.Mapping)
	if missing := missingRequired(columns); len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return &models.Snapshot{
		Scope:     scope,
		Source:    p.Client.Name(),
		Columns:   columns,
		Rows:      rows,
		FetchedAt: s.now(),
	}, nil
}

// Ensure Service implements SourceService
var _ interfaces.SourceService = (*Service)(nil)
