package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/umagate/umagate/internal/clock"
	"github.com/umagate/umagate/internal/config"
	"github.com/umagate/umagate/internal/keycipher"
	"github.com/umagate/umagate/internal/observability"
	"github.com/umagate/umagate/internal/server"
	"github.com/umagate/umagate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		keycipher.Module,
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
