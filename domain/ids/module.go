package ids

import (
	"go.uber.org/fx"
)

// Module provides the global id allocator
var Module = fx.Module("ids",
	fx.Provide(NewAllocator),
)
