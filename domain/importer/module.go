package importer

import (
	"go.uber.org/fx"
)

// Module provides the dataset importer
var Module = fx.Module("importer",
	fx.Provide(NewImporter),
)
