package main

import (
	"errors"
	"flag"
	"net/http"
	"os"

	"proofmarket/config"
	"proofmarket/core/state"
	"proofmarket/ledger"
	"proofmarket/native/market"
	"proofmarket/observability/logging"
	"proofmarket/rpc"
	"proofmarket/storage"
	"proofmarket/verifier"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the daemon configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup("proofmarketd", "").Error("load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup("proofmarketd", cfg.Environment)

	params, err := cfg.EngineParams()
	if err != nil {
		logger.Error("derive engine params", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open state database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	balances := ledger.NewMemory(cfg.PrincipalToken)

	engine := market.NewEngine(params)
	engine.SetState(state.NewStore(db))
	engine.SetLedger(balances)
	if cfg.VerifierEndpoint != "" {
		client, err := verifier.NewClient(cfg.VerifierEndpoint)
		if err != nil {
			logger.Error("configure verifier", "error", err)
			os.Exit(1)
		}
		engine.SetVerifier(client)
	} else {
		// Without a verifier endpoint every proof submission must fail
		// closed rather than settle unchecked.
		engine.SetVerifier(market.VerifierFunc(func([]byte, [32]byte, [32]byte) error {
			return errors.New("verifier endpoint not configured")
		}))
		logger.Warn("no verifier endpoint configured; proof submissions will be rejected")
	}

	server := rpc.NewServer(engine, balances, logger)
	engine.SetEmitter(server.Emitter())
	balances.SetEmitter(server.Emitter())
	logger.Info("settlement daemon listening", "address", cfg.ListenAddress, "chainId", cfg.ChainID)
	if err := http.ListenAndServe(cfg.ListenAddress, server.Router()); err != nil {
		logger.Error("http server stopped", "error", err)
		os.Exit(1)
	}
}
