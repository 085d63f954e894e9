package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/config"
	"github.com/digiget/digiget/internal/migration"
	"github.com/digiget/digiget/internal/observability"
	"github.com/digiget/digiget/internal/scheduler"
	"github.com/digiget/digiget/internal/server"
	"github.com/digiget/digiget/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		migration.Module,
		server.Module,
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
