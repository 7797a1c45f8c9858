package relations

import (
	"go.uber.org/fx"
)

// Module provides the relation store
var Module = fx.Module("relations",
	fx.Provide(NewStore),
)
