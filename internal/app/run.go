package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/models"
	"github.com/bobmcallan/marketstate/internal/services/report"
)

// Usage is reported in meta.error_detail for malformed invocations.
const Usage = `marketstate [scope] [params_json], e.g. marketstate hs_a '{"top_n": 30, "raw": true}'`

// Run loads the app and executes one invocation. It always returns a
// document and the matching exit status.
func Run(ctx context.Context, configPath string, args []string) (*models.ResultDocument, int) {
	a, err := NewApp(configPath)
	if err != nil {
		common.NewLogger("warn").Warn().Err(err).Msg("Failed to initialize app")
		defaults := common.NewDefaultConfig()
		builder := report.NewBuilder(defaults.Location(), nil)
		return builder.BuildError(builder.NewMeta(), err), common.ExitCode(err)
	}
	return a.Execute(ctx, args)
}

// Execute runs scope/params parsing, fetch, sanitize and summarize. Scope and
// params are validated before any network access. A panic anywhere in the
// pipeline becomes a computation error document.
func (a *App) Execute(ctx context.Context, args []string) (doc *models.ResultDocument, code int) {
	start := time.Now()
	meta := a.Builder.NewMeta()

	fail := func(err error) (*models.ResultDocument, int) {
		a.Logger.Error().
			Str("run_id", meta.RunID).
			Str("kind", common.ErrorKind(err)).
			Err(err).
			Msg("Run failed")
		return a.Builder.BuildError(meta, err), common.ExitCode(err)
	}

	defer func() {
		if r := recover(); r != nil {
			a.Logger.Error().Str("stack", string(debug.Stack())).Msgf("panic: %v", r)
			doc, code = fail(&common.ComputationError{Op: "pipeline", Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	if len(args) > 2 {
		return fail(&common.ConfigError{
			Field:   "args",
			Message: fmt.Sprintf("too many arguments: expected at most 2, got %d", len(args)),
			Detail:  Usage,
		})
	}

	var scopeArg, paramsArg string
	if len(args) > 0 {
		scopeArg = args[0]
	}
	if len(args) > 1 {
		paramsArg = args[1]
	}

	scope := ParseScope(scopeArg, a.Config.DefaultScope)
	meta.Scope = string(scope)
	if !scope.Valid() {
		return fail(&common.ConfigError{Field: "scope", Message: fmt.Sprintf("unknown scope: %s", scope)})
	}

	params, err := ParseParams(paramsArg)
	if err != nil {
		return fail(err)
	}
	meta.Params = &params

	snapshot, err := a.Source.Fetch(ctx, scope)
	if err != nil {
		return fail(err)
	}

	table, _ := a.Sanitizer.Sanitize(snapshot)

	summary, err := a.Summarizer.Summarize(table, params)
	if err != nil {
		return fail(err)
	}

	a.Logger.Info().
		Str("run_id", meta.RunID).
		Str("scope", string(scope)).
		Str("source", snapshot.Source).
		Int("rows", table.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Run complete")

	return a.Builder.Build(meta, snapshot, table, summary, params), common.ExitOK
}
