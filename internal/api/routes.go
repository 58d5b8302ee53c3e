package api

import (
	"net/http"

	"github.com/JaimeStill/botwatch/internal/config"
	"github.com/JaimeStill/botwatch/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	groups := []routes.Group{
		domain.Posts.Handler(cfg.API.MaxBodySizeBytes()).Routes(),
	}

	if domain.Reports != nil {
		groups = append(groups, domain.Reports.Handler().Routes())
	}

	if runtime.Storage != nil {
		archive := newArchiveHandler(
			runtime.Storage,
			runtime.Logger,
			cfg.Storage.MaxListSize,
		)
		groups = append(groups, archive.routes())
	}

	routes.Register(mux, groups...)
}
