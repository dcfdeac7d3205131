package main

import (
	"context"
	"encoding/hex"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/uhyunpark/darkpool/params"
	"github.com/uhyunpark/darkpool/pkg/api"
	"github.com/uhyunpark/darkpool/pkg/crypto"
	"github.com/uhyunpark/darkpool/pkg/engine"
	"github.com/uhyunpark/darkpool/pkg/events"
	"github.com/uhyunpark/darkpool/pkg/p2p"
	"github.com/uhyunpark/darkpool/pkg/resolver"
	"github.com/uhyunpark/darkpool/pkg/settle"
	"github.com/uhyunpark/darkpool/pkg/storage"
	"github.com/uhyunpark/darkpool/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLogger(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Pool key / resolution authority ----
	// The devnet runs the authority in-process (LocalAuthority). POOL_KEY
	// pins the key across restarts so sealed intents keep decrypting.
	var key []byte
	if hexKey := os.Getenv("POOL_KEY"); hexKey != "" {
		key, err = hex.DecodeString(hexKey)
		if err != nil || len(key) != 32 {
			sugar.Fatalw("bad_pool_key", "err", err)
		}
	} else {
		pk, err := crypto.NewPoolKey()
		if err != nil {
			sugar.Fatalw("pool_key_generation_failed", "err", err)
		}
		if key, err = pk.SymmetricKey(); err != nil {
			sugar.Fatalw("pool_key_derivation_failed", "err", err)
		}
		// Devnet convenience only. Never log key material in production.
		sugar.Infow("pool_key_generated", "key", hex.EncodeToString(key))
	}
	auth := resolver.NewLocalAuthority(key)

	// ---- Storage ----
	if err := os.MkdirAll(cfg.Node.DataDir, 0755); err != nil {
		sugar.Fatalw("data_dir", "err", err)
	}
	store, err := storage.NewPebbleStore(filepath.Join(cfg.Node.DataDir, "executions"))
	if err != nil {
		sugar.Fatalw("pebble_open_failed", "err", err)
	}
	defer store.Close()

	journal, err := storage.NewFileJournal(filepath.Join(cfg.Node.DataDir, "settlements.log"))
	if err != nil {
		sugar.Fatalw("journal_open_failed", "err", err)
	}
	defer journal.Close()

	// ---- Settlement executor (simulated swaps) ----
	failureRate := 0.0
	if v := os.Getenv("SIM_FAILURE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			failureRate = f
		}
	}
	exec := &settle.SimExecutor{
		Latency:     200 * time.Millisecond,
		FailureRate: failureRate,
		Logger:      sugar,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Event publishers: websocket hub, plus gossip when LISTEN is set ----
	apiServer := api.NewServer(nil, store) // engine wired below
	pubs := events.Fanout{apiServer.Publisher()}
	if cfg.Node.Listen != "" {
		gossip, err := p2p.NewGossipPublisher(ctx, p2p.GossipConfig{
			ListenAddr: cfg.Node.Listen,
			Logger:     sugar,
		})
		if err != nil {
			sugar.Fatalw("gossip_init_failed", "err", err)
		}
		defer gossip.Close()
		pubs = append(pubs, gossip)
	}

	// ---- Engine ----
	eng := engine.New(cfg, auth, exec, store, pubs, journal, util.RealClock{}, sugar)
	apiServer.SetEngine(eng)
	eng.Start()
	defer eng.Stop()

	sugar.Infow("node_starting",
		"cycle_interval", cfg.Matching.CycleInterval.String(),
		"min_batch", cfg.Matching.MinBatchSize,
		"settle_window", cfg.Settlement.MaxDelay.String(),
		"sim_failure_rate", failureRate)

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Node.APIAddr)
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("node_stopping")
}
