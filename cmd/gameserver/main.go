package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/la2go/internal/config"
	"github.com/udisondev/la2go/internal/db"
	"github.com/udisondev/la2go/internal/gameserver"
	"github.com/udisondev/la2go/internal/gslink"
	"github.com/udisondev/la2go/internal/idfactory"
)

const ConfigPath = "config/game.yaml"

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
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("la2go game server starting")

	cfgPath := ConfigPath
	if p := os.Getenv("LA2GO_CONFIG"); p != "" {
		cfgPath = p
	}
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.LoadGameServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port, "login_host", cfg.LoginHost, "login_port", cfg.LoginPort)

	decoded, err := hex.DecodeString(cfg.HexID)
	if err != nil {
		return fmt.Errorf("decoding hex_id %q: %w", cfg.HexID, err)
	}
	// The link protocol always carries a fixed 32-byte hexId field.
	const hexIDSize = 32
	hexID := make([]byte, hexIDSize)
	if len(decoded) > hexIDSize {
		decoded = decoded[:hexIDSize]
	}
	copy(hexID[hexIDSize-len(decoded):], decoded)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	ids := idfactory.New()
	repo := db.NewPostgresCharacterRepository(database.Pool(), ids)
	localClients := gameserver.NewClients()

	auth := gslink.AuthParams{
		ID:              byte(cfg.ServerID),
		AcceptAlternate: true,
		Port:            int16(cfg.Port),
		MaxPlayers:      int32(cfg.MaxConnectionPerIP * 100),
		HexID:           hexID,
		Hosts: []gameserver.HostEntry{
			{Subnet: "0.0.0.0/0", Host: cfg.BindAddress},
		},
	}

	link, err := gslink.Dial(ctx, cfg, auth, repo, localClients)
	if err != nil {
		return fmt.Errorf("connecting to login server: %w", err)
	}
	defer link.Close()
	slog.Info("connected to login server link", "host", cfg.LoginHost, "port", cfg.LoginPort)

	broadcast := func(from *gameserver.Client, buf []byte, n int) {
		payload := append([]byte(nil), buf[:n]...)
		for _, peer := range localClients.All() {
			if peer == from {
				continue
			}
			peer.Send(payload)
		}
	}

	gameSrv := gameserver.NewServer(cfg, localClients, repo, link, link, broadcast)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gameSrv.Run(ctx)
	})
	g.Go(func() error {
		return link.Run(ctx)
	})

	return g.Wait()
}
