package api

import (
	"github.com/JaimeStill/botwatch/internal/config"
	"github.com/JaimeStill/botwatch/internal/infrastructure"
	"github.com/JaimeStill/botwatch/internal/reports"
	"github.com/JaimeStill/botwatch/internal/workflow"
	"github.com/JaimeStill/botwatch/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration and the
// workflow runtime that rank passes run against.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Reports    reports.System
	Workflow   *workflow.Runtime
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := &infrastructure.Infrastructure{
		Lifecycle: infra.Lifecycle,
		Logger:    infra.Logger.With("module", "api"),
		Database:  infra.Database,
		Storage:   infra.Storage,
	}

	rep := scoped.Reports(cfg)

	var recorder workflow.Recorder
	if rep != nil {
		recorder = rep
	}

	return &Runtime{
		Infrastructure: scoped,
		Pagination:     cfg.API.Pagination,
		Reports:        rep,
		Workflow:       scoped.Pipeline(cfg, recorder),
	}
}
