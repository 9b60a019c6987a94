//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/crowdsync/internal/config"
)

// InitializeApp wires the simulator from cfg.
func InitializeApp(cfg config.Config) (*App, error) {
	wire.Build(
		ProvideLogger,
		ProvideOptions,
		ProvideEventBus,
		ProvideSimulation,
		ProvideAvoidanceSystem,
		ProvideStream,
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
