package infrastructure

import (
	"github.com/JaimeStill/botwatch/internal/config"
	"github.com/JaimeStill/botwatch/internal/enrich"
	"github.com/JaimeStill/botwatch/internal/fetch"
	"github.com/JaimeStill/botwatch/internal/reports"
	"github.com/JaimeStill/botwatch/internal/workflow"
)

// Reports returns the report catalog, or nil when recording is disabled.
func (i *Infrastructure) Reports(cfg *config.Config) reports.System {
	if i.Database == nil {
		return nil
	}
	return reports.New(i.Database.Connection(), i.Logger, cfg.API.Pagination)
}

// Pipeline assembles the workflow runtime. Stages whose backend is disabled
// are left nil and skipped by the pipeline.
func (i *Infrastructure) Pipeline(cfg *config.Config, recorder workflow.Recorder) *workflow.Runtime {
	rt := &workflow.Runtime{
		OutputDir: cfg.Pipeline.OutputDir,
		Weights:   cfg.Ranker.Weights(),
		Workers:   cfg.Pipeline.ScoreWorkers,
		Fetcher:   fetch.New(&cfg.Fetch, i.Logger),
		Logger:    i.Logger.With("system", "workflow"),
	}

	if cfg.Pipeline.Enrich {
		rt.Enricher = enrich.New(&cfg.Enrich, cfg.Fetch.Header(), i.Logger)
	}
	if i.Storage != nil {
		rt.Archive = i.Storage
	}
	if recorder != nil {
		rt.Reports = recorder
	}

	return rt
}
