package kinds

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/adsharma/truth-serum/domain/schema"
	"github.com/adsharma/truth-serum/internal/config"
	"github.com/adsharma/truth-serum/pkg/logger"
)

// Module registers the declared kinds, creates their tables and, unless
// disabled, registers their types on start. It must be listed after
// migrate.Module so the core tables exist first.
var Module = fx.Module("kinds",
	fx.Invoke(setup),
)

func setup(lc fx.Lifecycle, catalog *schema.Catalog, cfg *config.Config, log *slog.Logger) error {
	if err := Register(catalog); err != nil {
		return err
	}

	log = log.With(logger.Scope("kinds"))
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := catalog.CreateTables(ctx); err != nil {
				log.Error("failed to create kind tables", logger.Error(err))
				return err
			}
			if !cfg.Graph.BootstrapKinds {
				return nil
			}
			return catalog.Bootstrap(ctx)
		},
	})
	return nil
}
