package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/susu3304/warikan/internal/api"
	"github.com/susu3304/warikan/internal/config"
	"github.com/susu3304/warikan/internal/db"
	"github.com/susu3304/warikan/internal/notify"
	"github.com/susu3304/warikan/internal/room"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and WebSocket relay",
		Long: `Run the room relay. Configuration comes from the environment (and a
.env file when present): WEB_BIND, DEFAULT_ROOM, ROSTER_FILE, DATABASE_URL,
DISCORD_TOKEN, DISCORD_CHANNEL_ID and friends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(ctx context.Context, rootOpts *RootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	roster, err := rootOpts.roster(cfg.RosterFile)
	if err != nil {
		return err
	}

	opts := []room.Option{
		room.WithActivityLimit(cfg.ActivityLogLimit),
		room.WithSnapshotActivity(cfg.SnapshotActivity),
	}

	if cfg.DiscordEnabled() {
		mirror, err := notify.New(cfg.DiscordToken, cfg.DiscordChannelID)
		if err != nil {
			return err
		}
		mirror.Start()
		defer mirror.Stop()
		opts = append(opts, room.WithActivityHook(mirror.Hook()))
		log.Printf("notify: mirroring activity channel=%s", cfg.DiscordChannelID)
	}

	var archive db.Archive
	if cfg.DatabaseURL != "" {
		archive, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open backup archive: %w", err)
		}
		defer archive.Close()
	}

	store := room.NewStore(roster, opts...)
	store.Ensure(cfg.DefaultRoom)
	log.Printf("room: default room ready id=%s participants=%d", cfg.DefaultRoom, roster.Len())

	server := api.New(cfg, store, archive)
	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}
