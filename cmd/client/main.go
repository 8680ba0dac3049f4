package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/timeline/internal/client/api"
	"github.com/dmitrijs2005/timeline/internal/client/cli"
	"github.com/dmitrijs2005/timeline/internal/client/config"
	"github.com/dmitrijs2005/timeline/internal/client/localstore"
	"github.com/dmitrijs2005/timeline/internal/client/services"
	"github.com/dmitrijs2005/timeline/internal/cryptox"
	"github.com/dmitrijs2005/timeline/internal/filex"
	"github.com/dmitrijs2005/timeline/internal/logging"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	dbPath, err := filex.EnsureParentDir(cfg.LocalDBPath)
	if err != nil {
		log.Fatalf("local database path: %v", err)
	}

	store, err := localstore.Open(ctx, dbPath)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer store.Close()

	hasher, err := cryptox.NewHasher("")
	if err != nil {
		log.Fatalf("password hasher: %v", err)
	}

	client := api.New(cfg.ServerURL, cfg.RequestTimeout)
	auth := services.NewAuthService(client, store, hasher, logger)
	timeline := services.NewTimelineService(client, store, logger, cfg.DownloadDir)

	app := cli.NewApp(auth, timeline, logger, os.Stdin, os.Stdout)
	app.Run(ctx, cfg.OnlineCheckInterval)
}
