package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/assignment"
	"github.com/collectra/collectra/internal/clock"
	"github.com/collectra/collectra/internal/collector"
	"github.com/collectra/collectra/internal/config"
	"github.com/collectra/collectra/internal/debtor"
	"github.com/collectra/collectra/internal/draft"
	"github.com/collectra/collectra/internal/invoice"
	"github.com/collectra/collectra/internal/migration"
	"github.com/collectra/collectra/internal/observability"
	"github.com/collectra/collectra/internal/workflow"
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

		// Domain modules required by the collections pass.
		invoice.Module,
		debtor.Module,
		workflow.Module,
		assignment.Module,
		draft.Module,
		collector.Module,

		// No server module.
		fx.Invoke(StartCollector),
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

func StartCollector(lc fx.Lifecycle, c *collector.Collector) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go c.RunForever(context.Background())
			return nil
		},
	})
}
