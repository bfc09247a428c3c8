// Package app wires the engine to its collaborators and owns process
// lifecycle: config, logging, storage, scheduler, retention and metrics.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"showrunner/internal/automation"
	"showrunner/internal/catalog"
	"showrunner/internal/chat"
	"showrunner/internal/config"
	"showrunner/internal/engine"
	"showrunner/internal/eventbus"
	"showrunner/internal/platform"
	"showrunner/internal/retention"
	"showrunner/internal/script"
	"showrunner/pkg/logx"
)

// Options carries the external collaborators. Nil collaborators degrade to
// safe unavailable stubs: affected automations log a failure and skip.
type Options struct {
	ConfigPath string

	Roles    platform.RoleFetcher
	ChatSend chat.SendFunc
	Scripts  script.Runner
	Emotes   engine.EmoteProvider
}

type App struct {
	cfgMgr   *config.Manager
	log      logx.Logger
	logClose func() error

	store      *catalog.Store
	bus        eventbus.Bus
	roles      *platform.Roles
	subs       *script.Subscriptions
	dispatcher *engine.Dispatcher
	scheduler  *engine.Scheduler
	retention  *retention.Service
	metricsSrv *http.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opts Options) (*App, error) {
	boot := logx.NewConsole("info")
	cfgMgr := config.NewManager(opts.ConfigPath, boot)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, err
	}

	log, logClose := logx.New(logx.Config{
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
		File:    logx.FileConfig{Enabled: cfg.Log.File.Enabled, Path: cfg.Log.File.Path},
	})

	store, err := catalog.Open(catalog.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: time.Duration(cfg.Storage.BusyTimeoutMS) * time.Millisecond,
	}, log.With(logx.String("component", "catalog")))
	if err != nil {
		_ = logClose()
		return nil, err
	}

	bus := eventbus.New()
	roles := platform.NewRoles(cfg.Channel.BroadcasterID, opts.Roles, cfg.Storage.RoleCacheTTL,
		log.With(logx.String("component", "roles")))
	subs := script.NewSubscriptions()

	send := opts.ChatSend
	if send == nil {
		send = func(ctx context.Context, text string) error {
			return errors.New("chat client not attached")
		}
	}
	sender := chat.NewClient(chat.Config{RatePerSec: cfg.Chat.RatePerSec, Burst: cfg.Chat.Burst},
		send, log.With(logx.String("component", "chat")))

	runner := opts.Scripts
	if runner == nil {
		runner = unavailableRunner{}
	}

	resolver := engine.NewResolver(store, sender, runner, opts.Emotes,
		log.With(logx.String("component", "resolver")))
	dispatcher := engine.NewDispatcher(engine.DispatcherDeps{
		Matcher:    engine.NewMatcher(store, log.With(logx.String("component", "matcher"))),
		Permission: engine.NewPermissionGate(roles, log),
		Cooldown:   engine.NewCooldownGate(store, log),
		Resolver:   resolver,
		Catalog:    store,
		Bus:        bus,
		Scripts:    subs,
		Runner:     runner,
		Roles:      roles,
		Log:        log.With(logx.String("component", "dispatcher")),
	})
	scheduler := engine.NewScheduler(dispatcher, log.With(logx.String("component", "scheduler")))
	ret := retention.New(retention.Config{
		Enabled:  cfg.Retention.Enabled,
		Schedule: cfg.Retention.Schedule,
		MaxAge:   cfg.Retention.MaxAge,
	}, store, log.With(logx.String("component", "retention")))

	a := &App{
		cfgMgr:     cfgMgr,
		log:        log,
		logClose:   logClose,
		store:      store,
		bus:        bus,
		roles:      roles,
		subs:       subs,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		retention:  ret,
	}
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	}
	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.scheduler.Run(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgMgr.Watch(runCtx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	if err := a.retention.Start(); err != nil {
		return err
	}

	if a.metricsSrv != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Warn("metrics listener failed", logx.Err(err))
			}
		}()
	}

	// Seed the schedule from the catalog; later snapshots arrive through
	// ReloadSchedule whenever the configuration boundary changes timers.
	if err := a.ReloadSchedule(runCtx); err != nil {
		a.log.Warn("initial schedule load failed", logx.Err(err))
	}

	a.log.Info("showrunner started")
	return nil
}

// Process hands one platform event to the dispatcher. Fire-and-forget.
func (a *App) Process(ctx context.Context, ev platform.Event) {
	a.dispatcher.Process(ctx, ev)
}

// ReloadSchedule pushes the current timer automations to the scheduler.
func (a *App) ReloadSchedule(ctx context.Context) error {
	timers, err := a.store.AutomationsByTrigger(ctx, automation.TriggerTimer)
	if err != nil {
		return err
	}
	a.scheduler.UpdateAutomations(timers)
	return nil
}

// Bus exposes the outcome bus for renderer subscriptions.
func (a *App) Bus() eventbus.Bus { return a.bus }

// Catalog exposes the store's write surface for the configuration boundary.
func (a *App) Catalog() *catalog.Store { return a.store }

// Subscriptions exposes the script subscription registry.
func (a *App) Subscriptions() *script.Subscriptions { return a.subs }

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.retention.Stop()
	if a.metricsSrv != nil {
		_ = a.metricsSrv.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		a.dispatcher.Wait()
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	err := a.store.Close()
	if a.logClose != nil {
		_ = a.logClose()
	}
	a.log.Info("showrunner stopped")
	return err
}

// unavailableRunner stands in when no scripting sandbox is attached.
type unavailableRunner struct{}

func (unavailableRunner) Execute(context.Context, string, string, automation.TriggerKind, automation.EventData) error {
	return errors.New("script sandbox not attached")
}

func (unavailableRunner) ExecuteCommand(context.Context, string, string, script.CommandContext) error {
	return errors.New("script sandbox not attached")
}
