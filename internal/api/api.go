// Package api assembles the API module: post artifacts, ranking, the report
// catalog, and the artifact archive, behind CORS and request logging.
package api

import (
	"net/http"

	"github.com/JaimeStill/botwatch/internal/config"
	"github.com/JaimeStill/botwatch/internal/infrastructure"
	"github.com/JaimeStill/botwatch/pkg/middleware"
	"github.com/JaimeStill/botwatch/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
