package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"tysmp/whitelist/internal/admin"
	"tysmp/whitelist/internal/api"
	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/discord"
	"tysmp/whitelist/internal/links"
	"tysmp/whitelist/internal/mojang"
	"tysmp/whitelist/internal/pipeline"
	"tysmp/whitelist/internal/playercache"
	"tysmp/whitelist/internal/queue"
	"tysmp/whitelist/internal/rcon"
	"tysmp/whitelist/internal/store"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the review worker and the HTTP API",
		RunE:  serveRun,
	}
}

func serveRun(cmd *cobra.Command, _ []string) error {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errors.New("no config found in context")
	}
	logger := commonRun(cfg)
	ctx := cmd.Context()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}()

	live, err := config.LoadLive(ctx, config.NewKVSettings(st))
	if err != nil {
		return errors.Trace(err)
	}
	token := live.Snapshot().Token
	if token == "" {
		return errors.Errorf("no bot token stored; run `%s settings set %s <token>` first", programName, store.KeyToken)
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return errors.Annotate(err, "creating discord session")
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dc := discord.NewClient(session, logger)
	gateway := rcon.New(live, nil, logger, reg)
	linkRegistry := links.New(st)
	applications := queue.New(st)

	profiles, err := playercache.New(playercache.Config{
		Store:        st,
		Lookup:       mojang.New(cfg.Mojang, logger),
		Clock:        clock.WallClock,
		Logger:       logger,
		PromRegistry: reg,
	})
	if err != nil {
		return errors.Trace(err)
	}

	p, err := pipeline.New(pipeline.Config{
		Queue:        applications,
		Pending:      queue.NewPending(st),
		Links:        linkRegistry,
		Board:        dc,
		Community:    dc,
		Gateway:      gateway,
		Settings:     live,
		Clock:        clock.WallClock,
		Logger:       logger,
		PromRegistry: reg,
	})
	if err != nil {
		return errors.Trace(err)
	}

	svc, err := admin.New(admin.Config{
		Links:    linkRegistry,
		Queue:    applications,
		Gateway:  gateway,
		Guild:    dc,
		Settings: live,
		Clock:    clock.WallClock,
		Logger:   logger,
	})
	if err != nil {
		return errors.Trace(err)
	}

	handler := discord.NewHandler(p, svc, live, logger)
	defer handler.Register(session)()

	if err := session.Open(); err != nil {
		return errors.Annotate(err, "connecting to discord")
	}
	defer session.Close()
	// Commands are registered in the configured guild, or globally before
	// set_channel has been run.
	if err := handler.SyncCommands(session, live.Snapshot().GuildID); err != nil {
		logger.Error("syncing slash commands", "error", err)
	}

	reviewWorker, err := pipeline.NewWorker(pipeline.WorkerConfig{
		Pipeline: p,
		Clock:    clock.WallClock,
		Interval: cfg.ReviewInterval,
		Logger:   logger,
	})
	if err != nil {
		return errors.Trace(err)
	}

	router, err := api.NewRouter(api.Dependencies{
		Submitter: p,
		Links:     linkRegistry,
		Profiles:  profiles,
		Health: func(ctx context.Context) error {
			var guild any
			err := st.Get(ctx, store.KeyGuild, &guild)
			if errors.Is(err, errors.NotFound) {
				return nil
			}
			return err
		},
		Gatherer: reg,
		Logger:   logger,
	})
	if err != nil {
		return errors.Trace(err)
	}
	srv := api.NewServer(logger, cfg.ListenAddress(), router)

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start()
	}()
	go func() {
		errCh <- reviewWorker.Wait()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("stopped unexpectedly", "error", err)
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if err := worker.Stop(reviewWorker); err != nil {
		logger.Error("stopping review worker", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("%s: %w", programName, runErr)
	}
	return nil
}
