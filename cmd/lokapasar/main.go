package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/lokapasar/lokapasar/internal/clock"
	"github.com/lokapasar/lokapasar/internal/config"
	"github.com/lokapasar/lokapasar/internal/logger"
	"github.com/lokapasar/lokapasar/internal/migration"
	"github.com/lokapasar/lokapasar/internal/scheduler"
	"github.com/lokapasar/lokapasar/internal/server"
	"github.com/lokapasar/lokapasar/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface plus the domain modules it serves
		server.Module,

		// Background sweeps
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
