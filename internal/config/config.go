// Package config loads the TOML configuration for the lobby core and its
// registry/admin surfaces, split into a section per subsystem.
package config

import (
	"os"

	"github.com/pelletier/go-toml"
	"golang.org/x/xerrors"
)

// LobbyConf holds the defaults applied to every newly created Lobby.
type LobbyConf struct {
	MaxClients       int    `toml:"max_clients"`
	FloorCount       int    `toml:"floor_count"`
	FloorItemCap     int    `toml:"floor_item_cap"`
	IdleTimeoutUsecs uint64 `toml:"idle_timeout_usecs"`
}

// RegistryConf configures the listing-persistence store.
type RegistryConf struct {
	DSN             string `toml:"dsn"`
	SnapshotOnWrite bool   `toml:"snapshot_on_write"`
}

// AdminConf configures the admin/debug HTTP listing surface.
type AdminConf struct {
	ListenAddr string `toml:"listen_addr"`
}

// Config is the top-level document.
type Config struct {
	Lobby    LobbyConf    `toml:"lobby"`
	Registry RegistryConf `toml:"registry"`
	Admin    AdminConf    `toml:"admin"`
	Debug    bool         `toml:"debug"`
}

// Default returns the built-in defaults: 12 client slots, no idle
// timeout, an 18-floor item-queue layout capped at 48 items per queue.
func Default() Config {
	return Config{
		Lobby: LobbyConf{
			MaxClients:       12,
			FloorCount:       18,
			FloorItemCap:     48,
			IdleTimeoutUsecs: 0,
		},
		Admin: AdminConf{
			ListenAddr: ":9050",
		},
	}
}

// Load reads a TOML file at path, overlaying it onto Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, xerrors.Errorf("read config %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, xerrors.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}
