//go:build wireinject
// +build wireinject

package di

import (
	"SignalDeck/pkg/config"
	"SignalDeck/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideFeed,
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedis,
		ProvideSnapshotCache,
		ProvidePrefStore,
		ProvideGateway,
		ProvideEventTap,

		// Services
		ProvidePrefs,
		ProvideNotifier,
		ProvideStream,

		// Use cases
		ProvideStore,
		ProvideDispatcher,
		ProvideSyncer,
		ProvidePoller,
		ProvideController,

		// HTTP surface
		ProvideViewHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
