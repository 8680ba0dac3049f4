// Package config loads runtime settings of the timeline terminal client.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file given with -c/-config (or TIMELINE_CONFIG).
//  3. Command-line flags:
//
//     -a string   base URL of the timeline server
//     -f string   path of the local SQLite database
//     -t int      request timeout (seconds)
//     -i int      online status check interval (seconds)
//     -o string   directory for exports and downloads
//     -l string   log level
package config

import "time"

type Config struct {
	ServerURL           string
	LocalDBPath         string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	DownloadDir         string
	LogLevel            string
}

// LoadDefaults populates c with defaults suitable for a local server.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.LocalDBPath = "timeline.db"
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.DownloadDir = "."
	c.LogLevel = "warn"
}

// LoadConfig applies defaults, then the JSON file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
