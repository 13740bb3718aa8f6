package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/spotdexlabs/spotdex/params"
	"github.com/spotdexlabs/spotdex/pkg/api"
	"github.com/spotdexlabs/spotdex/pkg/dex/asset"
	"github.com/spotdexlabs/spotdex/pkg/dex/engine"
	"github.com/spotdexlabs/spotdex/pkg/dex/ledger"
	"github.com/spotdexlabs/spotdex/pkg/feed"
	"github.com/spotdexlabs/spotdex/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	if !common.IsHexAddress(cfg.Owner) {
		sugar.Fatalw("invalid_owner_address", "owner", cfg.Owner)
	}
	owner := common.HexToAddress(cfg.Owner)

	// ---- Ledger + registry ----
	led, err := ledger.Open(cfg.Storage.DBPath)
	if err != nil {
		sugar.Fatalw("ledger_open_failed", "path", cfg.Storage.DBPath, "err", err)
	}
	defer led.Close()
	sugar.Infow("ledger_opened", "path", cfg.Storage.DBPath)

	registry := asset.NewRegistry(owner)
	sugar.Infow("registry_initialized", "owner", owner.Hex())

	// ---- Matching engine ----
	eng := engine.New(led, registry, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Trade feed (optional) ----
	var producer *feed.Producer
	if len(cfg.Feed.Brokers) > 0 {
		producer = feed.NewProducer(cfg.Feed.Brokers, cfg.Feed.Topic)
		defer producer.Close()
		sugar.Infow("trade_feed_enabled", "brokers", cfg.Feed.Brokers, "topic", cfg.Feed.Topic)
	} else {
		sugar.Info("trade_feed_disabled - set KAFKA_BROKERS to enable")
	}

	// ---- API Server ----
	apiServer := api.NewServer(eng, led, registry)

	// Fan fills out to WebSocket clients and Kafka. OnFill runs under the
	// engine lock, so the Kafka publish is handed off to a goroutine.
	eng.OnFill = func(f engine.Fill) {
		apiServer.BroadcastFill(f)
		if producer != nil {
			go func(f engine.Fill) {
				if err := producer.PublishFill(ctx, f); err != nil {
					sugar.Errorw("fill_publish_failed", "trade_id", f.TradeID, "err", err)
				}
			}(f)
		}
	}

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.HTTP.Addr)
		if err := apiServer.Start(cfg.HTTP.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting_down")
}
