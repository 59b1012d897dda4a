package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/clock"
	"github.com/collectra/collectra/internal/config"
	"github.com/collectra/collectra/internal/migration"
	"github.com/collectra/collectra/internal/observability"
	"github.com/collectra/collectra/internal/server"
	"github.com/collectra/collectra/pkg/db"
	"go.uber.org/fx"
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
