package quota

import (
	"go.uber.org/fx"
)

var Module = fx.Module("quota.module",
	fx.Provide(
		NewService,
	),
)
