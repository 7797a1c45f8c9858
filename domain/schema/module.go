package schema

import (
	"log/slog"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/adsharma/truth-serum/domain/relations"
	"github.com/adsharma/truth-serum/domain/typeregistry"
	"github.com/adsharma/truth-serum/internal/config"
)

// Module provides the entity catalog
var Module = fx.Module("schema",
	fx.Provide(newCatalogFromConfig),
)

func newCatalogFromConfig(
	db bun.IDB,
	registry *typeregistry.Registry,
	store *relations.Store,
	cfg *config.Config,
	log *slog.Logger,
) *Catalog {
	return NewCatalog(db, registry, store, log, cfg.Graph.InstanceOfName)
}
