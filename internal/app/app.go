// Package app wires configuration, clients and services into the pipeline
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/marketstate/internal/clients/eastmoney"
	"github.com/bobmcallan/marketstate/internal/clients/sina"
	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/interfaces"
	"github.com/bobmcallan/marketstate/internal/services/report"
	"github.com/bobmcallan/marketstate/internal/services/sanitize"
	"github.com/bobmcallan/marketstate/internal/services/source"
	"github.com/bobmcallan/marketstate/internal/services/summary"
)

// App holds the initialized services for one invocation.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Source      interfaces.SourceService
	Sanitizer   interfaces.SanitizeService
	Summarizer  interfaces.SummaryService
	Builder     *report.Builder
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, MARKETSTATE_CONFIG, the binary
// dir, then the development fallback.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("MARKETSTATE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "marketstate.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/marketstate.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and builds the pipeline. configPath may be
// empty, in which case the default resolution logic is used. Errors are
// *common.ConfigError.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		var cfgErr *common.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &common.ConfigError{Field: "config", Message: "failed to load config", Detail: err.Error()}
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	return newApp(config, logger, startupStart)
}

// newApp builds services from an already loaded config.
func newApp(config *common.Config, logger *common.Logger, startupStart time.Time) (*App, error) {
	providers, err := newProviders(config, logger)
	if err != nil {
		return nil, err
	}

	thresholds := summary.ThresholdsFromConfig(config.Limits)

	a := &App{
		Config:      config,
		Logger:      logger,
		Source:      source.NewService(providers, logger),
		Sanitizer:   sanitize.NewService(logger),
		Summarizer:  summary.NewService(thresholds),
		Builder:     report.NewBuilder(config.Location(), thresholds),
		StartupTime: startupStart,
	}

	logger.Debug().
		Str("environment", config.Environment).
		Str("version", common.GetFullVersion()).
		Strs("providers", a.Source.Providers()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// newProviders builds one client per configured provider, in rank order.
func newProviders(config *common.Config, logger *common.Logger) ([]source.Provider, error) {
	providers := make([]source.Provider, 0, len(config.Source.Providers))

	for _, name := range config.Source.Providers {
		pc, ok := config.Clients.Provider(name)
		mapping, hasMapping := source.MappingFor(name)
		if !ok || !hasMapping {
			return nil, &common.ConfigError{Field: "source.providers", Message: fmt.Sprintf("unknown provider: %s", name)}
		}

		var client interfaces.SnapshotClient
		switch name {
		case common.ProviderSina:
			client = sina.NewClient(
				sina.WithBaseURL(pc.BaseURL),
				sina.WithLogger(logger),
				sina.WithRateLimit(pc.RateLimit),
				sina.WithTimeout(pc.GetTimeout()),
				sina.WithPageSize(pc.PageSize),
				sina.WithMaxPages(pc.MaxPages),
			)
		default:
			client = eastmoney.NewClient(
				eastmoney.WithName(name),
				eastmoney.WithBaseURL(pc.BaseURL),
				eastmoney.WithLogger(logger),
				eastmoney.WithRateLimit(pc.RateLimit),
				eastmoney.WithTimeout(pc.GetTimeout()),
				eastmoney.WithPageSize(pc.PageSize),
				eastmoney.WithMaxPages(pc.MaxPages),
			)
		}

		providers = append(providers, source.Provider{Client: client, Mapping: mapping})
	}

	return providers, nil
}
