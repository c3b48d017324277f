package httpapi

import "go.uber.org/fx"

var Module = fx.Module("httpapi.module",
	fx.Provide(
		NewHandler,
		ProvideRouter,
	),
)
