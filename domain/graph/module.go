package graph

import (
	"go.uber.org/fx"
)

// Module provides graph domain dependencies.
var Module = fx.Module("graph",
	fx.Provide(NewService),
)
