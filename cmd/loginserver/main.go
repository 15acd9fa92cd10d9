package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/la2go/internal/config"
	"github.com/udisondev/la2go/internal/db"
	"github.com/udisondev/la2go/internal/gameserver"
	"github.com/udisondev/la2go/internal/gslistener"
	"github.com/udisondev/la2go/internal/login"
)

const ConfigPath = "config/login.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Configure slog
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("la2go login server starting")

	// Load config
	cfgPath := ConfigPath
	if p := os.Getenv("LA2GO_CONFIG"); p != "" {
		cfgPath = p
	}
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.LoadLoginServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port, "gs_listen_port", cfg.GSListenPort)

	// Connect to database
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	// Run migrations
	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// Preload the game-server ID table so restarts don't reshuffle server IDs
	// out from under already-configured game servers.
	gsTable := gameserver.NewGameServerTable()
	if err := gsTable.LoadFromDB(ctx, database); err != nil {
		return fmt.Errorf("loading game server table: %w", err)
	}

	loginSrv, err := login.NewServer(cfg, database, gsTable)
	if err != nil {
		return fmt.Errorf("creating login server: %w", err)
	}

	gsListenerSrv, err := gslistener.NewServer(cfg, database, gsTable, loginSrv.SessionManager())
	if err != nil {
		return fmt.Errorf("creating gs listener server: %w", err)
	}
	gsListenerSrv.SetOnlineAccounts(loginSrv.OnlineAccounts())
	gsListenerSrv.SetBans(loginSrv.Bans())
	loginSrv.SetPlayerKicker(gsListenerSrv)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loginSrv.Run(ctx)
	})
	g.Go(func() error {
		return gsListenerSrv.Run(ctx)
	})

	return g.Wait()
}
