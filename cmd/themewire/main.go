package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/themewire/themewire/internal/api"
	"github.com/themewire/themewire/internal/config"
	"github.com/themewire/themewire/internal/pipeline"
	"github.com/themewire/themewire/internal/plex"
	"github.com/themewire/themewire/internal/scheduler"
	"github.com/themewire/themewire/internal/store"
	"github.com/themewire/themewire/internal/themerrdb"
	"github.com/themewire/themewire/internal/tmdb"
	"github.com/themewire/themewire/internal/version"
	"github.com/themewire/themewire/internal/youtube"
)

func main() {
	ver := version.Load()
	log.Printf("Themewire %s starting...", ver.Version)

	cfg := config.Load()
	if cfg.PlexToken == "" {
		log.Fatal("PLEX_TOKEN not set, cannot proceed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	plexClient := plex.NewClient(cfg.PlexURL, cfg.PlexToken, cfg.UploadTimeout)
	themesClient := themerrdb.NewClient(cfg.ThemerrDBURL)
	cache := themerrdb.NewCache(themesClient)
	tmdbClient := tmdb.NewClient(cfg.PlexURL, cfg.PlexToken)
	st := store.New(cfg.DataDir)
	extractor := &youtube.Extractor{
		Path:        cfg.YTDLPPath,
		CookiesFile: cfg.YouTubeCookies,
		PreferMP4A:  cfg.PreferMP4ACodec,
	}

	pipe := pipeline.New(cfg, plexClient, themesClient, cache, tmdbClient, st, extractor)
	pipe.Start(ctx)

	listener := plex.NewListener(cfg.PlexURL, cfg.PlexToken, pipe.HandleTimeline)
	go listener.Run(ctx)

	sched := scheduler.New()
	if cfg.Enabled {
		interval := time.Duration(cfg.ThemeUpdateInterval) * time.Minute
		if err := sched.Add("library scan", interval, func() { pipe.EnqueueAll(ctx) }); err != nil {
			log.Fatalf("scheduler setup failed: %v", err)
		}
	}
	cacheInterval := time.Duration(cfg.CacheUpdateInterval) * time.Minute
	if err := sched.Add("cache refresh", cacheInterval, cache.Refresh); err != nil {
		log.Fatalf("scheduler setup failed: %v", err)
	}
	sched.Start()

	srv := api.NewServer(pipe, cache, ver)
	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	cancel()
	sched.Stop()
	pipe.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
