package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vbonduro/propdesk/internal/auth"
	"github.com/vbonduro/propdesk/internal/buildings"
	"github.com/vbonduro/propdesk/internal/cache"
	"github.com/vbonduro/propdesk/internal/config"
	"github.com/vbonduro/propdesk/internal/filestore/local"
	"github.com/vbonduro/propdesk/internal/functions"
	"github.com/vbonduro/propdesk/internal/functions/claude"
	"github.com/vbonduro/propdesk/internal/functions/remote"
	"github.com/vbonduro/propdesk/internal/notify"
	"github.com/vbonduro/propdesk/internal/notify/email"
	"github.com/vbonduro/propdesk/internal/poll"
	"github.com/vbonduro/propdesk/internal/project"
	"github.com/vbonduro/propdesk/internal/settings"
	"github.com/vbonduro/propdesk/internal/store"
	"github.com/vbonduro/propdesk/internal/support"
	"github.com/vbonduro/propdesk/internal/upload"
	"github.com/vbonduro/propdesk/internal/validate"
	"github.com/vbonduro/propdesk/internal/web"
	"github.com/vbonduro/propdesk/internal/wizard"
)

const (
	appName   = "PropDesk"
	tokenTTL  = 24 * time.Hour
	wizardTTL = time.Hour
)

// app is everything serve runs.
type app struct {
	server  *web.Server
	watcher *poll.Poller
	close   func()
}

// newQueryCache picks the query cache named by CACHE_BACKEND. The returned
// func releases it.
func newQueryCache(cfg *config.Config, logger *slog.Logger) (cache.QueryCache, func(), error) {
	switch cfg.CacheBackend {
	case "lru":
		c, err := cache.NewLRU(cfg.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using in-memory query cache", "size", cfg.CacheSize)
		return c, func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, reads will bypass the cache until it is", "addr", cfg.RedisAddr, "error", err)
		}
		logger.Info("using redis query cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return cache.NewRedis(client, cfg.CacheTTL), func() { closeWithLog(client, "redis client", logger) }, nil
	case "none", "":
		logger.Info("query cache disabled")
		return cache.Nop{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
}

// newFunctions routes functions the Claude backend implements to Claude when
// a key is configured, and everything else to the remote endpoint.
func newFunctions(cfg *config.Config, logger *slog.Logger) functions.Invoker {
	var fallback functions.Invoker
	if cfg.FunctionsURL != "" {
		fallback = remote.New(cfg.FunctionsURL, cfg.FunctionsAPIKey, remote.DefaultOptions(), logger)
		logger.Info("using remote functions", "url", cfg.FunctionsURL)
	} else {
		logger.Warn("FUNCTIONS_URL not set, remote functions are unavailable")
	}
	router := functions.NewRouter(fallback)
	if cfg.ClaudeAPIKey != "" {
		inv := claude.New(cfg.ClaudeAPIKey, cfg.ClaudeModel)
		for _, name := range claude.Names() {
			router.Handle(name, inv)
		}
		logger.Info("using Claude for text functions", "model", cfg.ClaudeModel)
	}
	return router
}

// newNotifier fans out to every configured channel. The log channel is
// always on.
func newNotifier(cfg *config.Config, fns functions.Invoker, logger *slog.Logger) notify.Notifier {
	notifiers := notify.Multi{notify.NewLog(logger)}
	if cfg.SendGridAPIKey != "" {
		notifiers = append(notifiers, email.New(cfg.SendGridAPIKey, appName, cfg.NotifyFrom, splitList(cfg.NotifyTo)))
	}
	if cfg.FunctionsURL != "" {
		notifiers = append(notifiers, notify.NewFunction(fns))
	}
	return notifiers
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newApp(cfg *config.Config, database *sql.DB, logger *slog.Logger) (*app, error) {
	tokens, err := auth.NewTokens(cfg.JWTSecret, tokenTTL)
	if err != nil {
		return nil, err
	}
	qc, closeCache, err := newQueryCache(cfg, logger)
	if err != nil {
		return nil, err
	}
	files, err := local.NewLocalFileStore(cfg.UploadPath)
	if err != nil {
		closeCache()
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	v := validate.New()
	prefs, err := settings.Open(cfg.SettingsPath, settings.Defaults(cfg.PollInterval), v, logger)
	if err != nil {
		closeCache()
		return nil, err
	}

	st := store.New(database, qc, logger)
	cols := store.NewCollections(st)
	fns := newFunctions(cfg, logger)
	notifier := newNotifier(cfg, fns, logger)

	supportSvc := support.NewService(st, cols.Problems, cols.Solutions, cols.Features, fns, notifier, v, logger)
	server := web.NewServer(web.Deps{
		Entities:  cols.Registry(),
		Functions: fns,
		Tokens:    tokens,
		Uploads:   upload.NewService(files, store.NewFileIndex(database), notifier, cfg.PublicURL, cfg.UploadConcurrency, logger),
		Support:   supportSvc,
		Wizards:   wizard.NewSessions(wizardTTL, supportSvc.NewReportWizard),
		Project:   project.NewService(st, cols.Features, cols.Problems, v, logger),
		Buildings: buildings.NewService(st, cols.Buildings, cols.Children(), v, logger),
		Settings:  prefs,
	}, logger)

	watcher := support.NewWatcher(cols.Problems, notify.When(prefs.DesktopNotifications, notifier), logger)
	poller := poll.New("critical-tickets", prefs.RefreshInterval, watcher.Check, logger).OnlyWhen(prefs.AutoRefresh)

	return &app{server: server, watcher: poller, close: closeCache}, nil
}
