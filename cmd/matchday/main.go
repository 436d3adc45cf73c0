// Command matchday is the entrypoint for the sports-release acquisition
// service: it loads configuration, opens and migrates the database,
// wires every collaborator package together, registers the background
// scheduler tasks, and serves the REST/websocket API until an OS signal
// asks it to stop.
//
// Grounded on the teacher's cmd/slipstream/main.go composition order
// (config -> logger -> database -> port resolution -> websocket hub ->
// API server -> signal-driven shutdown), stripped of everything that
// only makes sense for a desktop tray application: the self-updater
// (--complete-update flag and spawnNewProcess/completeUpdate), the
// system tray and first-run browser launch (platform.NewApp/IsFirstRun),
// runtime.LockOSThread (required only for macOS UI toolkits), and the
// dev/prod dual-database switch used by the teacher's devmode toggle.
// matchday is a headless service with a single on-disk database.
package main

import (
	"context"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matchday/matchday/internal/api"
	"github.com/matchday/matchday/internal/autosearch"
	"github.com/matchday/matchday/internal/config"
	"github.com/matchday/matchday/internal/crypto"
	"github.com/matchday/matchday/internal/database"
	"github.com/matchday/matchday/internal/decisioning"
	"github.com/matchday/matchday/internal/downloader"
	"github.com/matchday/matchday/internal/downloader/queue"
	"github.com/matchday/matchday/internal/events"
	"github.com/matchday/matchday/internal/filesystem"
	"github.com/matchday/matchday/internal/history"
	"github.com/matchday/matchday/internal/importer"
	"github.com/matchday/matchday/internal/indexer/search"
	indexerstatus "github.com/matchday/matchday/internal/indexer/status"
	indexerstore "github.com/matchday/matchday/internal/indexer/store"
	"github.com/matchday/matchday/internal/logger"
	"github.com/matchday/matchday/internal/monitor"
	"github.com/matchday/matchday/internal/profiles"
	"github.com/matchday/matchday/internal/releasecache"
	"github.com/matchday/matchday/internal/rsssync"
	"github.com/matchday/matchday/internal/scheduler"
	"github.com/matchday/matchday/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:           cfg.Logging.Level,
		Format:          cfg.Logging.Format,
		Path:            cfg.Logging.Path,
		MaxSizeMB:       cfg.Logging.MaxSizeMB,
		MaxBackups:      cfg.Logging.MaxBackups,
		MaxAgeDays:      cfg.Logging.MaxAgeDays,
		Compress:        cfg.Logging.Compress,
		EnableStreaming: true,
		BufferSize:      1000,
	})
	defer log.Close()

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations complete")

	actualPort, err := config.FindAvailablePort(cfg.Server.Port, 10)
	if err != nil {
		log.Fatal().Err(err).Int("configuredPort", cfg.Server.Port).Msg("failed to find available port")
	}
	if actualPort != cfg.Server.Port {
		log.Warn().Int("configuredPort", cfg.Server.Port).Int("actualPort", actualPort).Msg("configured port in use, using alternative port")
		cfg.Server.Port = actualPort
	}

	ctx := context.Background()
	apiKey := ensureApiKey(ctx, db.Conn(), cfg, log.Logger)
	secrets := ensureSecretStore(ctx, db.Conn(), apiKey, log.Logger)

	hub := websocket.NewHub(&log.Logger)
	go hub.Run()
	log.SetBroadcastHub(hub)

	// Persistence layer.
	eventsStore := events.New(db.Conn())
	profilesStore := profiles.New(db.Conn())
	queueStore := queue.New(db.Conn())
	historyStore := history.New(db.Conn())
	clientStore := downloader.NewClientStore(db.Conn())
	indexerStore := indexerstore.New(db.Conn(), secrets, clientStore, log.Logger)
	cacheStore := releasecache.New(db.Conn(), log.Logger)
	eventFileStore := importer.NewEventStore(db.Conn())
	rootFolderStore := importer.NewRootFolderStore(db.Conn())

	// Search, grab and download pipeline.
	tracker := indexerstatus.NewTracker()
	if persisted, err := indexerstatus.LoadPersisted(ctx, db.Conn()); err != nil {
		log.Warn().Err(err).Msg("failed to load persisted indexer status, starting clean")
	} else {
		for _, s := range persisted {
			tracker.Load(s)
		}
	}
	orchestrator := search.New(tracker, log.Logger)
	dispatch := downloader.NewDispatch(clientStore, queueStore, secrets, log.Logger)
	grabLock := decisioning.NewGrabLock()

	rssService := rsssync.NewService(indexerStore, orchestrator, cacheStore, eventsStore, profilesStore, dispatch, historyStore, grabLock, hub, log.Logger)
	autosearchService := autosearch.NewService(eventsStore, indexerStore, orchestrator, profilesStore, dispatch, historyStore, grabLock, hub, log.Logger)

	// Download completion and import pipeline.
	importConfig := importer.Config{
		LinkMode:             importer.LinkMode(cfg.Import.LinkMode),
		MinimumFreeSpaceMB:   cfg.Import.MinimumFreeSpaceMB,
		SkipFreeSpaceCheck:   cfg.Import.SkipFreeSpaceCheck,
		DeleteEmptySourceDir: cfg.Import.DeleteEmptySourceDir,
	}
	importerService := importer.NewService(eventFileStore, rootFolderStore, historyStore, queueStore, importer.DefaultNamingConfig(), importConfig, filesystem.FreeBytes, log.Logger)
	monitorService := monitor.NewService(clientStore, queueStore, importerService, secrets, hub, log.Logger)

	// Scheduler: background loops that keep rsssync, download monitoring,
	// and cache/status bookkeeping running without an incoming request.
	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}

	rssSettingsDefaults := rsssync.Settings{
		Enabled:     true,
		IntervalMin: int(cfg.RssSync.Interval / time.Minute),
	}
	rssSettingsHandler := rsssync.NewSettingsHandler(db.Conn(), rssSettingsDefaults)
	currentRssSettings := rssSettingsHandler.Current(ctx)

	registerRssSyncTask(sched, rssService, currentRssSettings)
	rssSettingsHandler.SetRescheduler(func(intervalMin int) error {
		return sched.Reschedule(rssSyncTaskConfig(rssService, rsssync.Settings{Enabled: true, IntervalMin: intervalMin}))
	})

	if err := sched.RegisterTask(scheduler.TaskConfig{
		ID:          "download-monitor",
		Name:        "Download Monitor",
		Description: "Poll download clients for progress, completion and stalls",
		Cron:        "* * * * *",
		RunOnStart:  true,
		Func:        monitorService.Poll,
	}); err != nil {
		log.Error().Err(err).Msg("failed to register download monitor task")
	}

	if err := sched.RegisterTask(scheduler.TaskConfig{
		ID:          "release-cache-sweep",
		Name:        "Release Cache Sweep",
		Description: "Evict expired cached release search results",
		Cron:        durationToCronExpr(cfg.Cache.SweepInterval),
		Func: func(ctx context.Context) error {
			n, err := cacheStore.SweepExpired(ctx)
			if err == nil {
				log.Info().Int64("evicted", n).Msg("release cache swept")
			}
			return err
		},
	}); err != nil {
		log.Error().Err(err).Msg("failed to register release cache sweep task")
	}

	if err := sched.RegisterTask(scheduler.TaskConfig{
		ID:          "indexer-status-persist",
		Name:        "Indexer Status Persist",
		Description: "Persist indexer backoff/health state so it survives a restart",
		Cron:        "*/5 * * * *",
		Func: func(ctx context.Context) error {
			return tracker.Persist(ctx, db.Conn())
		},
	}); err != nil {
		log.Error().Err(err).Msg("failed to register indexer status persist task")
	}

	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	server := api.NewServer(eventsStore, queueStore, tracker, rssService, rssSettingsHandler, autosearchService, hub, apiKey, log.Logger)

	go func() {
		addr := cfg.Server.Address()
		log.Info().Str("address", addr).Msg("starting HTTP server")
		if err := server.Start(addr); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}
	if err := tracker.Persist(context.Background(), db.Conn()); err != nil {
		log.Error().Err(err).Msg("failed to persist indexer status on shutdown")
	}

	log.Info().Msg("matchday stopped")
}

func rssSyncTaskConfig(service *rsssync.Service, settings rsssync.Settings) scheduler.TaskConfig {
	return scheduler.TaskConfig{
		ID:          "rss-sync",
		Name:        "RSS Sync",
		Description: "Fetch recent releases from indexer RSS feeds and grab matching parts",
		Cron:        rsssync.CronExpr(settings.IntervalMin),
		RunOnStart:  settings.Enabled,
		Func:        service.Run,
	}
}

func registerRssSyncTask(sched *scheduler.Scheduler, service *rsssync.Service, settings rsssync.Settings) {
	if !settings.Enabled {
		return
	}
	if err := sched.RegisterTask(rssSyncTaskConfig(service, settings)); err != nil {
		panic(fmt.Sprintf("failed to register rss-sync task: %v", err))
	}
}

// durationToCronExpr converts a duration to a minute-granularity cron
// expression, since gocron.CronJob here only parses standard 5-field
// cron strings rather than accepting a raw time.Duration.
func durationToCronExpr(d time.Duration) string {
	minutes := int(d / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if minutes < 60 {
		return fmt.Sprintf("*/%d * * * *", minutes)
	}
	hours := minutes / 60
	if hours < 1 {
		hours = 1
	}
	return fmt.Sprintf("0 */%d * * *", hours)
}

const (
	settingsKeyApiKey = "api_key"
	settingsKeySalt   = "secret_salt"
)

// ensureApiKey returns the configured API key, or generates and persists
// one into the shared settings table on first run so the operator can
// read it back out of the startup log. A config-file/env value always
// takes precedence over a persisted one.
func ensureApiKey(ctx context.Context, db *sql.DB, cfg *config.Config, log zerolog.Logger) string {
	if cfg.ApiKey != "" {
		return cfg.ApiKey
	}

	if existing, ok := readSetting(ctx, db, settingsKeyApiKey); ok {
		return existing
	}

	key := uuid.NewString()
	if err := writeSetting(ctx, db, settingsKeyApiKey, key); err != nil {
		log.Warn().Err(err).Msg("failed to persist generated api key, it will change on restart")
	}
	log.Warn().Str("apiKey", key).Msg("generated a new API key; set MATCHDAY_APIKEY or config apiKey to pin it")
	return key
}

// ensureSecretStore derives the download-client/indexer credential
// encryption key from the API key, using a salt persisted in the
// settings table on first run (crypto.NewSecretStore's doc comment
// calls out the settings table as the intended home for it).
func ensureSecretStore(ctx context.Context, db *sql.DB, apiKey string, log zerolog.Logger) *crypto.SecretStore {
	saltHex, ok := readSetting(ctx, db, settingsKeySalt)
	var salt []byte
	if ok {
		if decoded, err := hex.DecodeString(saltHex); err == nil {
			salt = decoded
		}
	}

	if salt == nil {
		generated, err := crypto.GenerateSalt()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to generate secret store salt")
		}
		salt = generated
		if err := writeSetting(ctx, db, settingsKeySalt, hex.EncodeToString(salt)); err != nil {
			log.Warn().Err(err).Msg("failed to persist secret store salt, encrypted secrets will be unreadable after restart")
		}
	}

	return crypto.NewSecretStore(apiKey, salt)
}

func readSetting(ctx context.Context, db *sql.DB, key string) (string, bool) {
	var value string
	if err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value); err != nil {
		return "", false
	}
	return value, true
}

func writeSetting(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
