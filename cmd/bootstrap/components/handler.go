package components

import (
	"reservation-engine/internal/handler"
	"reservation-engine/internal/handler/api"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewRequestHandler,
	),
	fx.Invoke(handler.NewRouter),
)
