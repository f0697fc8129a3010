// Command lobbyd bootstraps the lobby registry and its admin HTTP API,
// wiring the ambient stack (config, logging) to the domain stack
// (registry, admin HTTP) this core owns.
package main

import (
	"flag"
	"net/http"

	"github.com/fishscene/newserv/adminhttp"
	"github.com/fishscene/newserv/internal/config"
	"github.com/fishscene/newserv/internal/logging"
	"github.com/fishscene/newserv/registry"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file; defaults are used if empty")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}

	logger, err := logging.New(logging.Config{Debug: cfg.Debug})
	if err != nil {
		panic(err)
	}
	logger.Infof("starting lobbyd")

	var store *registry.Store
	if cfg.Registry.DSN != "" {
		store, err = registry.Open(cfg.Registry.DSN)
		if err != nil {
			logger.Errorf("failed to open registry store: %v", err)
			panic(err)
		}
	}

	reg := registry.New(store, logger.With("registry"))
	if store != nil {
		seeded, err := store.LoadAll()
		if err != nil {
			logger.Errorf("failed to load persisted listings: %v", err)
			panic(err)
		}
		reg.Seed(seeded)
	}
	srv := adminhttp.New(reg, cfg.Lobby, logger.With("adminhttp"))

	logger.Infof("admin http listening on %s", cfg.Admin.ListenAddr)
	if err := http.ListenAndServe(cfg.Admin.ListenAddr, srv); err != nil {
		logger.Errorf("admin http server stopped: %v", err)
	}
}
