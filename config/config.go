package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"p2pindex/logging"
)

// Duration reads "5s"-style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = duration

	return nil
}

type IndexConfig struct {
	Address   string `toml:"address"`
	Transport string `toml:"transport"`
	Workers   int    `toml:"workers"`
	// HTTPAddress enables the status API when set.
	HTTPAddress string `toml:"http_address"`
	MDNS        bool   `toml:"mdns"`
}

type ServentConfig struct {
	// Index is the index server address as transport:host:port.
	Index string `toml:"index"`
	// Transport, Host and Port make up the advertised file-server address.
	Transport   string   `toml:"transport"`
	Host        string   `toml:"host"`
	Port        uint16   `toml:"port"`
	SharedDir   string   `toml:"shared_dir"`
	DownloadDir string   `toml:"download_dir"`
	Workers     int      `toml:"workers"`
	Framed      bool     `toml:"framed"`
	Watch       bool     `toml:"watch"`
	Timeout     Duration `toml:"timeout"`
	Discover    bool     `toml:"discover"`
}

type Config struct {
	Index   IndexConfig    `toml:"index"`
	Servent ServentConfig  `toml:"servent"`
	Log     logging.Config `toml:"log"`
}

func Default() Config {
	return Config{
		Index: IndexConfig{
			Address:   "localhost:5000",
			Transport: "tcp",
			Workers:   1,
		},
		Servent: ServentConfig{
			Index:       "tcp:localhost:5000",
			Transport:   "tcp",
			Port:        6000,
			SharedDir:   "shared",
			DownloadDir: "downloads",
			Workers:     1,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load returns the defaults overlaid with the TOML file at path. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	metadata, err := toml.DecodeFile(path, &config)
	if err != nil {
		return config, errors.Wrapf(err, "reading config %s", path)
	}

	if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
		return config, errors.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	return config, nil
}
