package fx

import (
	"grouprank/internal/config"
	"grouprank/internal/database"
	"grouprank/internal/ledger"
	"grouprank/internal/logger"
	"grouprank/internal/repository"
	"grouprank/internal/server"
	"grouprank/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// store + repos
	fx.Provide(repository.NewStore),
	fx.Provide(repository.NewGroupRepository),
	fx.Provide(repository.NewSeasonRepository),
	fx.Provide(repository.NewMemberRepository),
	fx.Provide(repository.NewRatingRepository),
	fx.Provide(repository.NewGameRepository),
	fx.Provide(repository.NewParticipantRepository),
	fx.Provide(repository.NewRatingChangeRepository),
	// engine
	fx.Provide(ledger.New),
	fx.Provide(service.NewMatchReporter),
	fx.Provide(service.NewMatchRevoker),
	fx.Provide(service.NewSeasonManager),
	fx.Provide(service.NewGroupService),
	fx.Provide(service.NewLeaderboardService),
	// http
	fx.Provide(server.New),
)
