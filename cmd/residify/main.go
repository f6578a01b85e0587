package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/residify/residify/internal/bill"
	"github.com/residify/residify/internal/clock"
	"github.com/residify/residify/internal/config"
	"github.com/residify/residify/internal/gateway"
	"github.com/residify/residify/internal/migration"
	"github.com/residify/residify/internal/observability"
	"github.com/residify/residify/internal/payment"
	"github.com/residify/residify/internal/ratelimit"
	"github.com/residify/residify/internal/server"
	"github.com/residify/residify/internal/transaction"
	"github.com/residify/residify/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		db.Module,
		migration.Module,

		gateway.Module,
		transaction.Module,
		bill.Module,
		payment.Module,
		ratelimit.Module,
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
