package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/timeline/internal/flagx"
)

// parseFlags overlays cfg with the client's short flags. Other arguments
// are filtered out first so the -c/-config flag of the JSON layer does not
// trip the parser.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-t", "-i", "-o", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the timeline server")
	fs.StringVar(&cfg.LocalDBPath, "f", cfg.LocalDBPath, "path of the local database")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "directory for exports and downloads")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
