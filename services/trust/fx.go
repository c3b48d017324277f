package trust

import (
	"go.uber.org/fx"
)

var Module = fx.Module("trust.module",
	fx.Provide(
		NewService,
	),
)
