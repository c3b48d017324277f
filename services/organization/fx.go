package organization

import (
	"go.uber.org/fx"
)

var Module = fx.Module("organization.module",
	fx.Provide(
		NewService,
	),
)
