package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// configFileName is the optional per-project configuration file, looked
// up in the working directory.
const configFileName = ".crateaudit.toml"

// config holds project-level defaults. Flags override config values;
// config values override built-in defaults.
type config struct {
	// FirstParty lists crate names that belong to the packaged project
	// itself and must never be declared as bundled dependencies.
	FirstParty []string `toml:"first_party"`

	// CacheFile overrides the default verdict cache location.
	CacheFile string `toml:"cache_file"`

	// TimeoutSeconds bounds a single repository query.
	TimeoutSeconds int `toml:"timeout_seconds"`

	// DNF overrides the repository query tool binary.
	DNF string `toml:"dnf"`
}

// loadConfig reads .crateaudit.toml from dir. A missing file yields the
// zero config; a malformed file is an error so typos do not silently
// change behavior.
func loadConfig(dir string) (config, error) {
	var cfg config
	path := filepath.Join(dir, configFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
